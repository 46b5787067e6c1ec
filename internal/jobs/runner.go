package jobs

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authledger/internal/cache"
	"github.com/dropDatabas3/authledger/internal/domain/repository"
	"github.com/dropDatabas3/authledger/internal/metrics"
	"github.com/dropDatabas3/authledger/internal/observability/logger"
)

// Consumer procesa el payload de un job reclamado. Falla con error.
type Consumer interface {
	Process(ctx context.Context, job *repository.Job) error
}

// ConsumerFunc adapta una función a Consumer.
type ConsumerFunc func(ctx context.Context, job *repository.Job) error

func (f ConsumerFunc) Process(ctx context.Context, job *repository.Job) error {
	return f(ctx, job)
}

// RunnerConfig parametriza una invocación del runner.
type RunnerConfig struct {
	// Enabled habilita el procesamiento asíncrono. Deshabilitado, Run
	// retorna de inmediato sin error.
	Enabled bool

	// JobType filtra qué jobs drena este runner. Vacío = todos.
	JobType string

	// MaxRunDuration es el tope de duración de una invocación, medido
	// desde el arranque contra el reloj actual.
	MaxRunDuration time.Duration

	// StaleAfter es el umbral de staleness del registro de coordinación.
	StaleAfter time.Duration

	// BackoffStart y BackoffCeiling acotan la pausa cuando la cola está
	// vacía: arranca en BackoffStart y se duplica hasta el techo.
	BackoffStart   time.Duration
	BackoffCeiling time.Duration
}

func (c *RunnerConfig) withDefaults() RunnerConfig {
	out := *c
	if out.MaxRunDuration <= 0 {
		out.MaxRunDuration = 8 * time.Minute
	}
	if out.StaleAfter <= 0 {
		out.StaleAfter = 9 * time.Minute
	}
	if out.BackoffStart <= 0 {
		out.BackoffStart = time.Second
	}
	if out.BackoffCeiling < out.BackoffStart {
		out.BackoffCeiling = 64 * time.Second
	}
	return out
}

// Runner drena la cola con a lo sumo un runner activo a la vez en todo el
// sistema. La exclusión es una convención best-effort sobre un registro de
// coordinación en cache compartido, no un lock estricto: existe una ventana
// corta entre "no hay registro" y "registro escrito" donde dos runners
// pueden avanzar; la tolerancia a carreras del resolver la absorbe.
type Runner struct {
	id        int64
	cfg       RunnerConfig
	queue     *Queue
	cache     cache.Client
	stateKey  string
	consumers []Consumer
	now       func() time.Time
	sleep     func(context.Context, time.Duration)
	log       *zap.Logger
}

// RunnerOption configura un Runner.
type RunnerOption func(*Runner)

// WithRunnerID fija el id del runner (por defecto, aleatorio por invocación).
func WithRunnerID(id int64) RunnerOption {
	return func(r *Runner) { r.id = id }
}

// WithRunnerClock overrides the time source.
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithRunnerSleep overrides the backoff pause. Tests use it to avoid real
// sleeps.
func WithRunnerSleep(sleep func(context.Context, time.Duration)) RunnerOption {
	return func(r *Runner) { r.sleep = sleep }
}

// WithRunnerLogger overrides the component logger.
func WithRunnerLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// WithStateKey overrides the coordination cache key.
func WithStateKey(key string) RunnerOption {
	return func(r *Runner) { r.stateKey = key }
}

func NewRunner(queue *Queue, c cache.Client, cfg RunnerConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		id:       rand.Int63(),
		cfg:      cfg.withDefaults(),
		queue:    queue,
		cache:    c,
		stateKey: StateKey,
		now:      time.Now,
		sleep:    sleepCtx,
		log:      logger.Named("jobs.runner"),
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With(logger.RunnerID(r.id))
	return r
}

// Register agrega un consumer. Cada job reclamado se entrega a todos los
// consumers registrados.
func (r *Runner) Register(c Consumer) { r.consumers = append(r.consumers, c) }

// Run ejecuta una invocación completa del runner: chequeo de condiciones,
// adquisición best-effort del slot, loop de dequeue+process, y limpieza del
// registro al salir normalmente.
//
// Encontrar otro runner activo NO es un error: la invocación cede en
// silencio. Un job que falla tampoco detiene el loop (se archiva y sigue).
// Lo que sí detiene el runner: StoreError de la cola y cualquier
// inconsistencia de coordinación.
func (r *Runner) Run(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("async processing disabled, nothing to run")
		return nil
	}
	if len(r.consumers) == 0 {
		return fmt.Errorf("jobs: runner has no consumers registered")
	}

	ok, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := r.loop(ctx); err != nil {
		// No se borra el registro: en una inconsistencia de coordinación
		// el slot ya no es nuestro y borrarlo pisaría al nuevo dueño; en
		// cualquier otro error el registro queda y envejece hasta stale.
		return err
	}

	// Salida normal: handoff limpio.
	if delErr := deleteState(ctx, r.cache, r.stateKey); delErr != nil {
		r.log.Warn("failed to delete coordination state on exit", logger.Err(delErr))
	}
	r.log.Info("runner finished")
	return nil
}

// acquire decide si esta invocación puede correr y, si puede, escribe su
// propio registro de coordinación. Retorna false para la cesión silenciosa.
func (r *Runner) acquire(ctx context.Context) (bool, error) {
	st, err := loadState(ctx, r.cache, r.stateKey)
	if err != nil {
		return false, err
	}

	now := r.now()
	if st != nil {
		if !st.IsStale(now, r.cfg.StaleAfter) {
			if st.RunnerID == r.id {
				// Mismo id que el registro vivo: improbable (ids
				// aleatorios) y sospechoso; ceder igual.
				r.log.Warn("live coordination state already carries our id, yielding")
			}
			metrics.RunnerYields.Inc()
			r.log.Info("another runner is active, yielding",
				zap.Int64("active_runner_id", st.RunnerID))
			return false, nil
		}
		metrics.RunnerTakeovers.Inc()
		r.log.Warn("taking over stale coordination state",
			zap.Int64("stale_runner_id", st.RunnerID),
			zap.Time("stale_updated_at", st.UpdatedAt))
	}

	own := &State{RunnerID: r.id, StartedAt: now, UpdatedAt: now}
	if err := saveState(ctx, r.cache, r.stateKey, own); err != nil {
		return false, err
	}
	r.log.Info("runner started", logger.JobType(r.cfg.JobType))
	return true, nil
}

func (r *Runner) loop(ctx context.Context) error {
	startedAt := r.now()
	pause := r.cfg.BackoffStart
	var successes, failures int64

	for {
		if ctx.Err() != nil {
			return nil
		}
		if r.now().Sub(startedAt) >= r.cfg.MaxRunDuration {
			r.log.Info("max run duration reached, draining",
				zap.Int64("processed", successes), zap.Int64("failed", failures))
			return nil
		}

		if err := r.validateOwnership(ctx); err != nil {
			return err
		}

		job, err := r.queue.Dequeue(ctx, r.cfg.JobType)
		if err != nil {
			return err
		}

		if job == nil {
			if err := r.refresh(ctx, startedAt, successes, failures); err != nil {
				return err
			}
			metrics.RunnerBackoff.Set(pause.Seconds())
			r.sleep(ctx, pause)
			if next := pause * 2; next <= r.cfg.BackoffCeiling {
				pause = next
			} else {
				pause = r.cfg.BackoffCeiling
			}
			continue
		}
		pause = r.cfg.BackoffStart

		if err := r.process(ctx, job); err != nil {
			failures++
			r.log.Error("job processing failed, archiving",
				logger.JobID(job.ID), logger.JobType(job.Type), logger.Err(err))
			if mfErr := r.queue.MarkFailed(ctx, job, err); mfErr != nil {
				return mfErr
			}
		} else {
			successes++
			metrics.JobsProcessed.Inc()
		}

		if err := r.refresh(ctx, startedAt, successes, failures); err != nil {
			return err
		}
	}
}

// validateOwnership comprueba que el registro compartido siga siendo nuestro
// y siga vivo. Cualquier otra cosa detiene el runner.
func (r *Runner) validateOwnership(ctx context.Context) error {
	st, err := loadState(ctx, r.cache, r.stateKey)
	if err != nil {
		return err
	}
	if st == nil {
		return &CoordinationError{OwnID: r.id}
	}
	if st.RunnerID != r.id {
		return &CoordinationError{OwnID: r.id, FoundID: st.RunnerID}
	}
	if st.IsStale(r.now(), r.cfg.StaleAfter) {
		return &CoordinationError{OwnID: r.id, FoundID: r.id}
	}
	return nil
}

// refresh actualiza UpdatedAt y los contadores, pero solo si el registro
// sigue siendo nuestro: escribir a ciegas pisaría a un runner que tomó el
// slot mientras procesábamos.
func (r *Runner) refresh(ctx context.Context, startedAt time.Time, successes, failures int64) error {
	st, err := loadState(ctx, r.cache, r.stateKey)
	if err != nil {
		return err
	}
	if st == nil {
		return &CoordinationError{OwnID: r.id}
	}
	if st.RunnerID != r.id {
		return &CoordinationError{OwnID: r.id, FoundID: st.RunnerID}
	}
	return saveState(ctx, r.cache, r.stateKey, &State{
		RunnerID:     r.id,
		StartedAt:    startedAt,
		UpdatedAt:    r.now(),
		SuccessCount: successes,
		FailureCount: failures,
	})
}

// process entrega el job a todos los consumers. Un panic de un consumer se
// convierte en error: un job malo nunca tumba el runner.
func (r *Runner) process(ctx context.Context, job *repository.Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("jobs: consumer panicked: %v", rec)
		}
	}()
	for _, c := range r.consumers {
		if err := c.Process(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// sleepCtx duerme respetando la cancelación del contexto.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
