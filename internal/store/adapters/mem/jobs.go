package mem

import (
	"context"
	"time"

	"github.com/dropDatabas3/authledger/internal/domain/repository"
)

// ─── JobRepository ───

func (s *Store) InsertJob(_ context.Context, jobType string, payload []byte, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.jobs[id] = &repository.Job{ID: id, Type: jobType, Payload: cp, CreatedAt: createdAt}
	return nil
}

func (s *Store) GetOldestJob(_ context.Context, jobType string) (*repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *repository.Job
	for _, j := range s.jobs {
		if jobType != "" && j.Type != jobType {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) ||
			(j.CreatedAt.Equal(oldest.CreatedAt) && j.ID < oldest.ID) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (s *Store) DeleteJobByID(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false, nil
	}
	delete(s.jobs, id)
	return true, nil
}

func (s *Store) InsertFailedJob(_ context.Context, job *repository.Job, reason string, failedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedJobs = append(s.failedJobs, &repository.FailedJob{
		ID: s.nextID(), JobID: job.ID, Type: job.Type,
		Payload: job.Payload, Reason: reason, FailedAt: failedAt,
	})
	return nil
}

// FailedJobs retorna las copias archivadas. Solo para tests.
func (s *Store) FailedJobs() []*repository.FailedJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repository.FailedJob, len(s.failedJobs))
	copy(out, s.failedJobs)
	return out
}
