// Package jobs implements the durable SQL-backed job queue and the
// single-active job runner that drains it.
//
// The queue keeps no "in progress" state: claiming a job IS deleting its
// row, and the delete's affected-row count is the proof of exclusive
// ownership. That is the only atomic primitive required, so the queue works
// on storage engines without transactions.
package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authledger/internal/domain/repository"
	"github.com/dropDatabas3/authledger/internal/metrics"
	"github.com/dropDatabas3/authledger/internal/observability/logger"
)

// claimAttempts limita cuántas veces el dequeue reintenta reclamar cuando
// otro worker le gana la fila.
const claimAttempts = 3

// Queue envuelve el JobRepository con semántica de claim-por-delete y
// reintentos acotados.
type Queue struct {
	repo repository.JobRepository
	now  func() time.Time
	log  *zap.Logger
}

// QueueOption configura una Queue.
type QueueOption func(*Queue)

// WithQueueClock overrides the time source.
func WithQueueClock(now func() time.Time) QueueOption {
	return func(q *Queue) { q.now = now }
}

// WithQueueLogger overrides the component logger.
func WithQueueLogger(l *zap.Logger) QueueOption {
	return func(q *Queue) { q.log = l }
}

func NewQueue(repo repository.JobRepository, opts ...QueueOption) *Queue {
	q := &Queue{
		repo: repo,
		now:  time.Now,
		log:  logger.Named("jobs.queue"),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue serializa e inserta un job nuevo.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload []byte) error {
	if jobType == "" {
		return repository.NewStoreError("job.enqueue", repository.ErrInvalidInput)
	}
	if err := q.repo.InsertJob(ctx, jobType, payload, q.now()); err != nil {
		return err
	}
	metrics.JobsEnqueued.Inc()
	return nil
}

// Dequeue reclama el job más antiguo del tipo dado (vacío = cualquier tipo).
//
// Ciclo: (a) leer la fila más antigua, (b) DELETE por id, (c) comprobar el
// contador de filas afectadas. Una fila afectada = el job es nuestro; cero
// filas = otro worker lo borró primero, volver a leer. Cola vacía retorna
// (nil, nil), no es un error. Intentos agotados sí lo es.
func (q *Queue) Dequeue(ctx context.Context, jobType string) (*repository.Job, error) {
	for attempt := 1; attempt <= claimAttempts; attempt++ {
		job, err := q.repo.GetOldestJob(ctx, jobType)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}

		claimed, err := q.repo.DeleteJobByID(ctx, job.ID)
		if err != nil {
			return nil, err
		}
		if claimed {
			return job, nil
		}

		q.log.Debug("job claimed by another worker, refetching",
			logger.JobID(job.ID), logger.Attempt(attempt))
	}
	return nil, repository.NewStoreError("job.dequeue",
		errors.New("claim attempts exhausted"))
}

// MarkFailed archiva la copia del job en la tabla de fallidos. Nunca se
// descarta un job silenciosamente.
func (q *Queue) MarkFailed(ctx context.Context, job *repository.Job, cause error) error {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	if err := q.repo.InsertFailedJob(ctx, job, reason, q.now()); err != nil {
		return err
	}
	metrics.JobsFailed.Inc()
	return nil
}
