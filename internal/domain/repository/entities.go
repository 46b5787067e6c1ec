package repository

import "time"

// Idp es un identity provider observado. Una fila por entityID distinto.
type Idp struct {
	ID        int64
	EntityID  string
	CreatedAt time.Time
}

// Sp es un service provider observado. Una fila por entityID distinto.
type Sp struct {
	ID        int64
	EntityID  string
	CreatedAt time.Time
}

// IdpVersion captura un valor observado de los metadatos de un IdP,
// identificado por su fingerprint. Append-only: nunca se muta ni borra.
type IdpVersion struct {
	ID          int64
	IdpID       int64
	Metadata    string
	Fingerprint string
	CreatedAt   time.Time
}

// SpVersion captura un valor observado de los metadatos de un SP.
type SpVersion struct {
	ID          int64
	SpID        int64
	Metadata    string
	Fingerprint string
	CreatedAt   time.Time
}

// User es un usuario identificado por un identificador opaco (hasheado).
type User struct {
	ID          int64
	Identifier  string
	Fingerprint string
	CreatedAt   time.Time
}

// UserVersion captura un conjunto observado de atributos liberados de un usuario.
type UserVersion struct {
	ID          int64
	UserID      int64
	Attributes  string
	Fingerprint string
	CreatedAt   time.Time
}

// VersionLink es el enlace ternario IdpVersion–SpVersion–UserVersion:
// "exactamente esta combinación de metadatos estuvo activa durante una
// autenticación". Única por la tripleta de ids.
type VersionLink struct {
	ID            int64
	IdpVersionID  int64
	SpVersionID   int64
	UserVersionID int64
	CreatedAt     time.Time
}

// ConnectedService acumula, por enlace ternario, cuántas veces y cuándo
// se observó la combinación.
type ConnectedService struct {
	ID            int64
	VersionLinkID int64
	FirstSeenAt   time.Time
	LastSeenAt    time.Time
	Count         int64
}

// AuthenticationEvent es el hecho puntual: una autenticación concreta.
type AuthenticationEvent struct {
	ID            int64
	VersionLinkID int64
	HappenedAt    time.Time
	ClientIP      string
	CreatedAt     time.Time
}

// Job es una unidad de trabajo pendiente en la cola.
type Job struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// FailedJob es la copia archivada de un job cuyo procesamiento falló.
type FailedJob struct {
	ID       int64
	JobID    int64
	Type     string
	Payload  []byte
	Reason   string
	FailedAt time.Time
}
