// Package mem implements the accounting repositories on in-process maps.
//
// It enforces the same unique keys as the SQL schema (entityID, parent+
// fingerprint, the ternary triple) so the resolver behaves identically
// against it. Used by tests and the "memory" storage driver in dev mode.
package mem

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/authledger/internal/domain/repository"
)

type Store struct {
	mu sync.Mutex

	seq int64

	idps         map[string]*repository.Idp  // entityID -> row
	sps          map[string]*repository.Sp   // entityID -> row
	users        map[string]*repository.User // fingerprint -> row
	idpVersions  map[verKey]*repository.IdpVersion
	spVersions   map[verKey]*repository.SpVersion
	userVersions map[verKey]*repository.UserVersion
	links        map[linkKey]*repository.VersionLink

	services map[int64]*repository.ConnectedService // versionLinkID -> row
	events   []*repository.AuthenticationEvent

	jobs       map[int64]*repository.Job
	failedJobs []*repository.FailedJob
}

type verKey struct {
	parentID    int64
	fingerprint string
}

type linkKey struct {
	idpVersionID  int64
	spVersionID   int64
	userVersionID int64
}

func New() *Store {
	return &Store{
		idps:         map[string]*repository.Idp{},
		sps:          map[string]*repository.Sp{},
		users:        map[string]*repository.User{},
		idpVersions:  map[verKey]*repository.IdpVersion{},
		spVersions:   map[verKey]*repository.SpVersion{},
		userVersions: map[verKey]*repository.UserVersion{},
		links:        map[linkKey]*repository.VersionLink{},
		services:     map[int64]*repository.ConnectedService{},
		jobs:         map[int64]*repository.Job{},
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// ─── EntityRepository ───

func (s *Store) GetIdpByEntityID(_ context.Context, entityID string) (*repository.Idp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.idps[entityID]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) InsertIdp(_ context.Context, entityID string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idps[entityID]; ok {
		return repository.NewStoreError("idp.insert", repository.ErrConflict)
	}
	s.idps[entityID] = &repository.Idp{ID: s.nextID(), EntityID: entityID, CreatedAt: createdAt}
	return nil
}

func (s *Store) GetIdpVersion(_ context.Context, idpID int64, fingerprint string) (*repository.IdpVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.idpVersions[verKey{idpID, fingerprint}]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) InsertIdpVersion(_ context.Context, idpID int64, metadata, fingerprint string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := verKey{idpID, fingerprint}
	if _, ok := s.idpVersions[k]; ok {
		return repository.NewStoreError("idp_version.insert", repository.ErrConflict)
	}
	s.idpVersions[k] = &repository.IdpVersion{
		ID: s.nextID(), IdpID: idpID, Metadata: metadata, Fingerprint: fingerprint, CreatedAt: createdAt,
	}
	return nil
}

func (s *Store) GetSpByEntityID(_ context.Context, entityID string) (*repository.Sp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.sps[entityID]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) InsertSp(_ context.Context, entityID string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sps[entityID]; ok {
		return repository.NewStoreError("sp.insert", repository.ErrConflict)
	}
	s.sps[entityID] = &repository.Sp{ID: s.nextID(), EntityID: entityID, CreatedAt: createdAt}
	return nil
}

func (s *Store) GetSpVersion(_ context.Context, spID int64, fingerprint string) (*repository.SpVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.spVersions[verKey{spID, fingerprint}]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) InsertSpVersion(_ context.Context, spID int64, metadata, fingerprint string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := verKey{spID, fingerprint}
	if _, ok := s.spVersions[k]; ok {
		return repository.NewStoreError("sp_version.insert", repository.ErrConflict)
	}
	s.spVersions[k] = &repository.SpVersion{
		ID: s.nextID(), SpID: spID, Metadata: metadata, Fingerprint: fingerprint, CreatedAt: createdAt,
	}
	return nil
}

func (s *Store) GetUserByFingerprint(_ context.Context, fingerprint string) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.users[fingerprint]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) InsertUser(_ context.Context, identifier, fingerprint string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[fingerprint]; ok {
		return repository.NewStoreError("user.insert", repository.ErrConflict)
	}
	s.users[fingerprint] = &repository.User{
		ID: s.nextID(), Identifier: identifier, Fingerprint: fingerprint, CreatedAt: createdAt,
	}
	return nil
}

func (s *Store) GetUserVersion(_ context.Context, userID int64, fingerprint string) (*repository.UserVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.userVersions[verKey{userID, fingerprint}]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) InsertUserVersion(_ context.Context, userID int64, attributes, fingerprint string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := verKey{userID, fingerprint}
	if _, ok := s.userVersions[k]; ok {
		return repository.NewStoreError("user_version.insert", repository.ErrConflict)
	}
	s.userVersions[k] = &repository.UserVersion{
		ID: s.nextID(), UserID: userID, Attributes: attributes, Fingerprint: fingerprint, CreatedAt: createdAt,
	}
	return nil
}

func (s *Store) GetVersionLink(_ context.Context, idpVersionID, spVersionID, userVersionID int64) (*repository.VersionLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.links[linkKey{idpVersionID, spVersionID, userVersionID}]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) InsertVersionLink(_ context.Context, idpVersionID, spVersionID, userVersionID int64, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := linkKey{idpVersionID, spVersionID, userVersionID}
	if _, ok := s.links[k]; ok {
		return repository.NewStoreError("version_link.insert", repository.ErrConflict)
	}
	s.links[k] = &repository.VersionLink{
		ID: s.nextID(), IdpVersionID: idpVersionID, SpVersionID: spVersionID,
		UserVersionID: userVersionID, CreatedAt: createdAt,
	}
	return nil
}

// ─── FactRepository ───

func (s *Store) TouchConnectedService(_ context.Context, versionLinkID int64, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.services[versionLinkID]; ok {
		cs.LastSeenAt = seenAt
		cs.Count++
		return nil
	}
	s.services[versionLinkID] = &repository.ConnectedService{
		ID: s.nextID(), VersionLinkID: versionLinkID,
		FirstSeenAt: seenAt, LastSeenAt: seenAt, Count: 1,
	}
	return nil
}

func (s *Store) InsertAuthenticationEvent(_ context.Context, versionLinkID int64, happenedAt time.Time, clientIP string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, &repository.AuthenticationEvent{
		ID: s.nextID(), VersionLinkID: versionLinkID,
		HappenedAt: happenedAt, ClientIP: clientIP, CreatedAt: happenedAt,
	})
	return nil
}

// Counts retorna el número de filas por tabla. Solo para tests.
type Counts struct {
	Idps, IdpVersions    int
	Sps, SpVersions      int
	Users, UserVersions  int
	VersionLinks         int
	ConnectedServices    int
	AuthenticationEvents int
	Jobs, FailedJobs     int
}

func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Idps: len(s.idps), IdpVersions: len(s.idpVersions),
		Sps: len(s.sps), SpVersions: len(s.spVersions),
		Users: len(s.users), UserVersions: len(s.userVersions),
		VersionLinks:         len(s.links),
		ConnectedServices:    len(s.services),
		AuthenticationEvents: len(s.events),
		Jobs:                 len(s.jobs),
		FailedJobs:           len(s.failedJobs),
	}
}
