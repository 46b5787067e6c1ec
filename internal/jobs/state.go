package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/authledger/internal/cache"
	"github.com/dropDatabas3/authledger/internal/domain/repository"
)

// StateKey es la única key del cache donde vive el registro de coordinación.
// Existe cero o un registro en todo el sistema.
const StateKey = "jobrunner:state"

// State es el registro de coordinación de un runner: autodeclarado, no
// impuesto por el almacenamiento. La posesión es advisory.
type State struct {
	RunnerID     int64     `json:"runner_id"`
	StartedAt    time.Time `json:"started_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	SuccessCount int64     `json:"success_count"`
	FailureCount int64     `json:"failure_count"`
}

// IsStale reporta si el registro quedó huérfano: su UpdatedAt es más viejo
// que el umbral, evidencia de un dueño que murió sin limpiar.
func (s *State) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(s.UpdatedAt) > threshold
}

// CoordinationError indica que la identidad propia del runner ya no coincide
// con el registro compartido. El runner se detiene defensivamente antes que
// arriesgar procesamiento duplicado.
type CoordinationError struct {
	OwnID   int64
	FoundID int64
}

func (e *CoordinationError) Error() string {
	if e.FoundID == 0 {
		return fmt.Sprintf("jobs: coordination state for runner %d disappeared", e.OwnID)
	}
	return fmt.Sprintf("jobs: coordination state owned by runner %d, expected %d", e.FoundID, e.OwnID)
}

// loadState lee el registro del cache. (nil, nil) si no existe.
func loadState(ctx context.Context, c cache.Client, key string) (*State, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, nil
		}
		return nil, repository.NewStoreError("runner_state.get", err)
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, &repository.UnexpectedValueError{What: "runner state is not valid JSON"}
	}
	if st.RunnerID == 0 {
		return nil, &repository.UnexpectedValueError{What: "runner state is missing runner_id"}
	}
	return &st, nil
}

// saveState escribe el registro. Sin TTL: la staleness se decide leyendo
// UpdatedAt, no por expiración del cache.
func saveState(ctx context.Context, c cache.Client, key string, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return repository.NewStoreError("runner_state.set", err)
	}
	if err := c.Set(ctx, key, string(raw), 0); err != nil {
		return repository.NewStoreError("runner_state.set", err)
	}
	return nil
}

func deleteState(ctx context.Context, c cache.Client, key string) error {
	if err := c.Delete(ctx, key); err != nil {
		return repository.NewStoreError("runner_state.delete", err)
	}
	return nil
}
