package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - ACCOUNTING
// =================================================================================

// Entity crea un campo para el tipo de entidad (idp, sp, user, ...).
func Entity(v string) zap.Field {
	return zap.String("entity", v)
}

// EntityID crea un campo para el entityID SAML/OIDC de un IdP o SP.
func EntityID(v string) zap.Field {
	return zap.String("entity_id", v)
}

// Fingerprint crea un campo para un fingerprint SHA-256.
func Fingerprint(v string) zap.Field {
	return zap.String("fingerprint", v)
}

// RowID crea un campo para el id de una fila resuelta.
func RowID(v int64) zap.Field {
	return zap.Int64("row_id", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - JOBS
// =================================================================================

// JobID crea un campo para el ID de un job.
func JobID(v int64) zap.Field {
	return zap.Int64("job_id", v)
}

// JobType crea un campo para el tipo de job.
func JobType(v string) zap.Field {
	return zap.String("job_type", v)
}

// RunnerID crea un campo para el ID del job runner.
func RunnerID(v int64) zap.Field {
	return zap.Int64("runner_id", v)
}

// Attempt crea un campo para el número de intento.
func Attempt(v int) zap.Field {
	return zap.Int("attempt", v)
}

// Err crea un campo de error (alias de zap.Error).
func Err(err error) zap.Field {
	return zap.Error(err)
}
