// Package accounting resolves authentication events into durable version-row
// ids through a content-addressed, resolve-or-create entity store.
//
// The resolver never uses transactions or upserts: it optimistically inserts
// and treats any insert failure as "someone else got there first", then
// re-reads. The unique constraint on the fingerprint column is the only
// synchronization primitive relied upon, which keeps the algorithm portable
// across storage engines without transactional guarantees.
package accounting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/authledger/internal/domain/repository"
	"github.com/dropDatabas3/authledger/internal/fingerprint"
	"github.com/dropDatabas3/authledger/internal/metrics"
	"github.com/dropDatabas3/authledger/internal/observability/logger"
)

func errMissing(field string) error {
	return &repository.UnexpectedValueError{What: fmt.Sprintf("event is missing %s", field)}
}

// Resolver turns fingerprinted values into durable row ids.
type Resolver struct {
	entities repository.EntityRepository
	facts    repository.FactRepository
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source. Tests use it for deterministic rows.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger overrides the component logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

func NewResolver(entities repository.EntityRepository, facts repository.FactRepository, opts ...Option) *Resolver {
	r := &Resolver{
		entities: entities,
		facts:    facts,
		now:      time.Now,
		log:      logger.Named("accounting.resolver"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// resolveID is the resolve-or-create cycle, shared by every entity type.
// get must return the row id or repository.ErrNotFound; insert may race with
// a concurrent caller, and any insert error is treated as "already inserted"
// followed by one re-read. A second missing read is unrecoverable: it means
// constraint enforcement or the read path is broken, and retrying forever
// would hide that.
func (r *Resolver) resolveID(ctx context.Context, entity string, get func(context.Context) (int64, error), insert func(context.Context) error) (int64, error) {
	id, err := get(ctx)
	if err == nil {
		return id, nil
	}
	if !repository.IsNotFound(err) {
		return 0, err
	}

	if insErr := insert(ctx); insErr != nil {
		r.log.Warn("insert raced or failed, retrying lookup",
			logger.Entity(entity), logger.Err(insErr))
	}

	id, err = get(ctx)
	if err == nil {
		return id, nil
	}
	if repository.IsNotFound(err) {
		return 0, repository.NewStoreError(entity+".resolve",
			errors.New("could not resolve or create entity"))
	}
	return 0, err
}

// ResolveEvent resolves the full dependency chain for one event and returns
// the ternary version-link id. The idp, sp and user chains are independent
// and run concurrently; the link step waits for all three.
func (r *Resolver) ResolveEvent(ctx context.Context, ev *Event) (int64, error) {
	if err := ev.Validate(); err != nil {
		return 0, err
	}

	start := r.now()
	defer func() {
		metrics.ResolveLatency.Observe(float64(time.Since(start).Milliseconds()))
	}()

	var idpVersionID, spVersionID, userVersionID int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := r.resolveIdpVersion(gctx, ev.IdpEntityID, ev.IdpMetadata)
		idpVersionID = id
		return err
	})
	g.Go(func() error {
		id, err := r.resolveSpVersion(gctx, ev.SpEntityID, ev.SpMetadata)
		spVersionID = id
		return err
	})
	g.Go(func() error {
		id, err := r.resolveUserVersion(gctx, ev.UserIdentifier, ev.UserAttributes)
		userVersionID = id
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	createdAt := r.now()
	return r.resolveID(ctx, "version_link",
		func(ctx context.Context) (int64, error) {
			row, err := r.entities.GetVersionLink(ctx, idpVersionID, spVersionID, userVersionID)
			if err != nil {
				return 0, err
			}
			return row.ID, nil
		},
		func(ctx context.Context) error {
			return r.entities.InsertVersionLink(ctx, idpVersionID, spVersionID, userVersionID, createdAt)
		},
	)
}

// Record resolves the event and writes the downstream facts (connected
// service accumulator + the punctual authentication event).
func (r *Resolver) Record(ctx context.Context, ev *Event) (int64, error) {
	linkID, err := r.ResolveEvent(ctx, ev)
	if err != nil {
		return 0, err
	}

	happenedAt := ev.HappenedAt
	if happenedAt.IsZero() {
		happenedAt = r.now()
	}
	if err := r.facts.TouchConnectedService(ctx, linkID, happenedAt); err != nil {
		return 0, err
	}
	if err := r.facts.InsertAuthenticationEvent(ctx, linkID, happenedAt, ev.ClientIP); err != nil {
		return 0, err
	}
	return linkID, nil
}

func (r *Resolver) resolveIdpVersion(ctx context.Context, entityID string, metadata map[string]any) (int64, error) {
	createdAt := r.now()
	idpID, err := r.resolveID(ctx, "idp",
		func(ctx context.Context) (int64, error) {
			row, err := r.entities.GetIdpByEntityID(ctx, entityID)
			if err != nil {
				return 0, err
			}
			return row.ID, nil
		},
		func(ctx context.Context) error {
			return r.entities.InsertIdp(ctx, entityID, createdAt)
		},
	)
	if err != nil {
		return 0, err
	}

	blob, fp, err := canonicalBlob(metadata)
	if err != nil {
		return 0, err
	}
	return r.resolveID(ctx, "idp_version",
		func(ctx context.Context) (int64, error) {
			row, err := r.entities.GetIdpVersion(ctx, idpID, fp)
			if err != nil {
				return 0, err
			}
			return row.ID, nil
		},
		func(ctx context.Context) error {
			return r.entities.InsertIdpVersion(ctx, idpID, blob, fp, r.now())
		},
	)
}

func (r *Resolver) resolveSpVersion(ctx context.Context, entityID string, metadata map[string]any) (int64, error) {
	createdAt := r.now()
	spID, err := r.resolveID(ctx, "sp",
		func(ctx context.Context) (int64, error) {
			row, err := r.entities.GetSpByEntityID(ctx, entityID)
			if err != nil {
				return 0, err
			}
			return row.ID, nil
		},
		func(ctx context.Context) error {
			return r.entities.InsertSp(ctx, entityID, createdAt)
		},
	)
	if err != nil {
		return 0, err
	}

	blob, fp, err := canonicalBlob(metadata)
	if err != nil {
		return 0, err
	}
	return r.resolveID(ctx, "sp_version",
		func(ctx context.Context) (int64, error) {
			row, err := r.entities.GetSpVersion(ctx, spID, fp)
			if err != nil {
				return 0, err
			}
			return row.ID, nil
		},
		func(ctx context.Context) error {
			return r.entities.InsertSpVersion(ctx, spID, blob, fp, r.now())
		},
	)
}

func (r *Resolver) resolveUserVersion(ctx context.Context, identifier string, attributes map[string]any) (int64, error) {
	// El identificador crudo no se persiste: se guarda hasheado y la
	// fingerprint del hash es la clave natural.
	hashed := fingerprint.Data(identifier)
	idFp := fingerprint.Data(hashed)

	createdAt := r.now()
	userID, err := r.resolveID(ctx, "user",
		func(ctx context.Context) (int64, error) {
			row, err := r.entities.GetUserByFingerprint(ctx, idFp)
			if err != nil {
				return 0, err
			}
			return row.ID, nil
		},
		func(ctx context.Context) error {
			return r.entities.InsertUser(ctx, hashed, idFp, createdAt)
		},
	)
	if err != nil {
		return 0, err
	}

	blob, fp, err := canonicalBlob(attributes)
	if err != nil {
		return 0, err
	}
	return r.resolveID(ctx, "user_version",
		func(ctx context.Context) (int64, error) {
			row, err := r.entities.GetUserVersion(ctx, userID, fp)
			if err != nil {
				return 0, err
			}
			return row.ID, nil
		},
		func(ctx context.Context) error {
			return r.entities.InsertUserVersion(ctx, userID, blob, fp, r.now())
		},
	)
}

// canonicalBlob serializes the structure once and fingerprints it. The blob
// stored is plain JSON; the fingerprint is over the canonical (key-sorted)
// form so key order in the incoming payload is irrelevant.
func canonicalBlob(v map[string]any) (blob, fp string, err error) {
	if v == nil {
		v = map[string]any{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", "", &repository.UnexpectedValueError{What: "structure is not serializable"}
	}
	fp, err = fingerprint.Structure(v)
	if err != nil {
		return "", "", err
	}
	return string(raw), fp, nil
}
