package repository

import (
	"context"
	"time"
)

// EntityRepository es el contrato de acceso a datos del almacén versionado.
// Solo lecturas por fingerprint e inserts; sin reintentos ni manejo de
// carreras (eso vive en el resolver).
//
// Los Get* retornan ErrNotFound (envuelto en *StoreError solo si el driver
// falló de verdad) cuando la fila no existe. Los Insert* retornan ErrConflict
// cuando chocan con una unique constraint.
type EntityRepository interface {
	GetIdpByEntityID(ctx context.Context, entityID string) (*Idp, error)
	InsertIdp(ctx context.Context, entityID string, createdAt time.Time) error

	GetIdpVersion(ctx context.Context, idpID int64, fingerprint string) (*IdpVersion, error)
	InsertIdpVersion(ctx context.Context, idpID int64, metadata, fingerprint string, createdAt time.Time) error

	GetSpByEntityID(ctx context.Context, entityID string) (*Sp, error)
	InsertSp(ctx context.Context, entityID string, createdAt time.Time) error

	GetSpVersion(ctx context.Context, spID int64, fingerprint string) (*SpVersion, error)
	InsertSpVersion(ctx context.Context, spID int64, metadata, fingerprint string, createdAt time.Time) error

	GetUserByFingerprint(ctx context.Context, fingerprint string) (*User, error)
	InsertUser(ctx context.Context, identifier, fingerprint string, createdAt time.Time) error

	GetUserVersion(ctx context.Context, userID int64, fingerprint string) (*UserVersion, error)
	InsertUserVersion(ctx context.Context, userID int64, attributes, fingerprint string, createdAt time.Time) error

	GetVersionLink(ctx context.Context, idpVersionID, spVersionID, userVersionID int64) (*VersionLink, error)
	InsertVersionLink(ctx context.Context, idpVersionID, spVersionID, userVersionID int64, createdAt time.Time) error
}

// FactRepository registra los hechos derivados de un enlace ternario ya
// resuelto. Fuera del núcleo de resolución; consume los ids que produce.
type FactRepository interface {
	// TouchConnectedService crea o actualiza el acumulador (count,
	// first/last seen) del enlace dado.
	TouchConnectedService(ctx context.Context, versionLinkID int64, seenAt time.Time) error

	// InsertAuthenticationEvent registra el hecho puntual.
	InsertAuthenticationEvent(ctx context.Context, versionLinkID int64, happenedAt time.Time, clientIP string) error
}

// JobRepository es la capa plana de acceso a la tabla de jobs.
type JobRepository interface {
	// InsertJob encola un job nuevo.
	InsertJob(ctx context.Context, jobType string, payload []byte, createdAt time.Time) error

	// GetOldestJob retorna el job más antiguo del tipo dado (FIFO por
	// created_at, empates por id). jobType vacío significa cualquier tipo.
	// Retorna ErrNotFound si la cola está vacía.
	GetOldestJob(ctx context.Context, jobType string) (*Job, error)

	// DeleteJobByID borra el job y retorna si la fila existía. El contador
	// de filas afectadas es el único primitivo de exclusión de la cola:
	// una fila solo puede borrarse una vez.
	DeleteJobByID(ctx context.Context, id int64) (bool, error)

	// InsertFailedJob archiva la copia de un job que falló al procesarse.
	InsertFailedJob(ctx context.Context, job *Job, reason string, failedAt time.Time) error
}
