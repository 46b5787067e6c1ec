package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authledger/internal/cache"
	"github.com/dropDatabas3/authledger/internal/domain/repository"
	"github.com/dropDatabas3/authledger/internal/store/adapters/mem"
)

// fakeClock avanza solo cuando el runner duerme, haciendo los tests de
// backoff y duración máxima deterministas.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type runnerHarness struct {
	store  *mem.Store
	cache  cache.Client
	clock  *fakeClock
	pauses []time.Duration
}

func newHarness() *runnerHarness {
	return &runnerHarness{
		store: mem.New(),
		cache: cache.NewMemory(""),
		clock: newFakeClock(),
	}
}

func (h *runnerHarness) newRunner(cfg RunnerConfig, id int64) *Runner {
	q := NewQueue(h.store, WithQueueLogger(zap.NewNop()), WithQueueClock(h.clock.Now))
	return NewRunner(q, h.cache, cfg,
		WithRunnerID(id),
		WithRunnerLogger(zap.NewNop()),
		WithRunnerClock(h.clock.Now),
		WithRunnerSleep(func(_ context.Context, d time.Duration) {
			h.pauses = append(h.pauses, d)
			h.clock.Advance(d)
		}),
	)
}

func (h *runnerHarness) seedState(st *State) {
	raw, _ := json.Marshal(st)
	_ = h.cache.Set(context.Background(), StateKey, string(raw), 0)
}

func (h *runnerHarness) currentState(t *testing.T) *State {
	t.Helper()
	st, err := loadState(context.Background(), h.cache, StateKey)
	require.NoError(t, err)
	return st
}

func countingConsumer(n *int) Consumer {
	return ConsumerFunc(func(context.Context, *repository.Job) error {
		*n++
		return nil
	})
}

func TestRunner_ProcessesJobsAndCleansUp(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	q := NewQueue(h.store, WithQueueLogger(zap.NewNop()))
	require.NoError(t, q.Enqueue(ctx, "authentication-event", []byte("a")))
	require.NoError(t, q.Enqueue(ctx, "authentication-event", []byte("b")))

	processed := 0
	r := h.newRunner(RunnerConfig{
		Enabled:        true,
		MaxRunDuration: 10 * time.Second,
		BackoffStart:   time.Second,
		BackoffCeiling: 4 * time.Second,
	}, 42)
	r.Register(countingConsumer(&processed))

	require.NoError(t, r.Run(ctx))
	require.Equal(t, 2, processed)
	require.Equal(t, 0, h.store.Counts().Jobs, "queue must be drained")
	require.Nil(t, h.currentState(t), "coordination state must be deleted on clean exit")
}

func TestRunner_BackoffDoublesUpToCeiling(t *testing.T) {
	h := newHarness()

	r := h.newRunner(RunnerConfig{
		Enabled:        true,
		MaxRunDuration: 20 * time.Second,
		BackoffStart:   time.Second,
		BackoffCeiling: 4 * time.Second,
	}, 42)
	processed := 0
	r.Register(countingConsumer(&processed))

	require.NoError(t, r.Run(context.Background()))
	require.Zero(t, processed)

	// 1s + 2s + 4s + 4s + 4s + 4s... hasta cubrir los 20s de run.
	require.GreaterOrEqual(t, len(h.pauses), 4)
	require.Equal(t, time.Second, h.pauses[0])
	require.Equal(t, 2*time.Second, h.pauses[1])
	require.Equal(t, 4*time.Second, h.pauses[2])
	for _, p := range h.pauses[2:] {
		require.Equal(t, 4*time.Second, p, "pause must cap at the ceiling")
	}
}

func TestRunner_YieldsToFreshForeignState(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	q := NewQueue(h.store, WithQueueLogger(zap.NewNop()))
	require.NoError(t, q.Enqueue(ctx, "authentication-event", []byte("a")))

	now := h.clock.Now()
	h.seedState(&State{RunnerID: 7, StartedAt: now, UpdatedAt: now})

	processed := 0
	r := h.newRunner(RunnerConfig{Enabled: true, StaleAfter: 9 * time.Minute}, 42)
	r.Register(countingConsumer(&processed))

	require.NoError(t, r.Run(ctx), "yielding to an active runner is not an error")
	require.Zero(t, processed, "a yielding invocation must not process jobs")
	require.Equal(t, 1, h.store.Counts().Jobs, "the job must stay queued")

	st := h.currentState(t)
	require.NotNil(t, st)
	require.EqualValues(t, 7, st.RunnerID, "the foreign state must be left untouched")
}

func TestRunner_TakesOverStaleState(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	q := NewQueue(h.store, WithQueueLogger(zap.NewNop()))
	require.NoError(t, q.Enqueue(ctx, "authentication-event", []byte("a")))

	old := h.clock.Now().Add(-30 * time.Minute)
	h.seedState(&State{RunnerID: 7, StartedAt: old, UpdatedAt: old})

	processed := 0
	r := h.newRunner(RunnerConfig{
		Enabled:        true,
		MaxRunDuration: 10 * time.Second,
		StaleAfter:     9 * time.Minute,
	}, 42)
	r.Register(countingConsumer(&processed))

	require.NoError(t, r.Run(ctx))
	require.Equal(t, 1, processed, "a stale owner must be replaced and work must proceed")
}

func TestRunner_HaltsOnForeignTakeover(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	q := NewQueue(h.store, WithQueueLogger(zap.NewNop()))
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(ctx, "authentication-event", []byte("x")))
	}

	r := h.newRunner(RunnerConfig{Enabled: true, MaxRunDuration: time.Minute}, 42)
	processed := 0
	r.Register(ConsumerFunc(func(ctx context.Context, _ *repository.Job) error {
		processed++
		// Alguien pisa el slot mientras procesamos.
		h.seedState(&State{RunnerID: 99, StartedAt: h.clock.Now(), UpdatedAt: h.clock.Now()})
		return nil
	}))

	err := r.Run(ctx)
	var coordErr *CoordinationError
	require.ErrorAs(t, err, &coordErr)
	require.EqualValues(t, 42, coordErr.OwnID)
	require.EqualValues(t, 99, coordErr.FoundID)
	require.Equal(t, 1, processed, "the runner must stop at the first inconsistency")

	st := h.currentState(t)
	require.NotNil(t, st)
	require.EqualValues(t, 99, st.RunnerID, "the new owner's state must survive")
}

func TestRunner_OneBadJobDoesNotHaltTheLoop(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	q := NewQueue(h.store, WithQueueLogger(zap.NewNop()), WithQueueClock(h.clock.Now))
	require.NoError(t, q.Enqueue(ctx, "authentication-event", []byte("bad")))
	h.clock.Advance(time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, "authentication-event", []byte("good")))

	var goodRuns int
	r := h.newRunner(RunnerConfig{Enabled: true, MaxRunDuration: 10 * time.Second}, 42)
	r.Register(ConsumerFunc(func(_ context.Context, job *repository.Job) error {
		if string(job.Payload) == "bad" {
			return errors.New("unparseable payload")
		}
		goodRuns++
		return nil
	}))

	require.NoError(t, r.Run(ctx))
	require.Equal(t, 1, goodRuns)

	failed := h.store.FailedJobs()
	require.Len(t, failed, 1, "the bad job must be archived, not dropped")
	require.Equal(t, []byte("bad"), failed[0].Payload)
	require.Equal(t, 0, h.store.Counts().Jobs)
}

func TestRunner_PanickingConsumerIsContained(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	q := NewQueue(h.store, WithQueueLogger(zap.NewNop()))
	require.NoError(t, q.Enqueue(ctx, "authentication-event", []byte("boom")))

	r := h.newRunner(RunnerConfig{Enabled: true, MaxRunDuration: 5 * time.Second}, 42)
	r.Register(ConsumerFunc(func(context.Context, *repository.Job) error {
		panic("consumer bug")
	}))

	require.NoError(t, r.Run(ctx))
	require.Len(t, h.store.FailedJobs(), 1)
}

func TestRunner_DisabledIsANoOp(t *testing.T) {
	h := newHarness()
	r := h.newRunner(RunnerConfig{Enabled: false}, 42)
	r.Register(countingConsumer(new(int)))
	require.NoError(t, r.Run(context.Background()))
	require.Nil(t, h.currentState(t))
}

func TestRunner_NoConsumersIsAnError(t *testing.T) {
	h := newHarness()
	r := h.newRunner(RunnerConfig{Enabled: true}, 42)
	require.Error(t, r.Run(context.Background()))
}

func TestRunner_RecordsCounters(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	q := NewQueue(h.store, WithQueueLogger(zap.NewNop()), WithQueueClock(h.clock.Now))
	require.NoError(t, q.Enqueue(ctx, "authentication-event", []byte("bad")))
	h.clock.Advance(time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, "authentication-event", []byte("good")))

	r := h.newRunner(RunnerConfig{Enabled: true, MaxRunDuration: 10 * time.Second}, 42)

	// Capturar el último estado refrescado antes del delete final.
	var lastState State
	r.Register(ConsumerFunc(func(_ context.Context, job *repository.Job) error {
		if st := h.currentState(t); st != nil {
			lastState = *st
		}
		if string(job.Payload) == "bad" {
			return errors.New("boom")
		}
		return nil
	}))

	require.NoError(t, r.Run(ctx))

	// Tras procesar "bad" (fallo) el refresh previo a "good" ya registró
	// el contador de fallos.
	require.EqualValues(t, 1, lastState.FailureCount)
}
