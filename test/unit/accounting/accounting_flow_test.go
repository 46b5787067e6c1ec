package accounting

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authledger/internal/accounting"
	"github.com/dropDatabas3/authledger/internal/cache"
	"github.com/dropDatabas3/authledger/internal/jobs"
	"github.com/dropDatabas3/authledger/internal/store/adapters/mem"
)

// El flujo completo: evento entra por el service en modo async, queda
// encolado, y una invocación del runner lo resuelve en el almacén
// versionado.

func buildStack(store *mem.Store) (*accounting.Service, *jobs.Runner) {
	queue := jobs.NewQueue(store, jobs.WithQueueLogger(zap.NewNop()))
	resolver := accounting.NewResolver(store, store, accounting.WithLogger(zap.NewNop()))
	svc := accounting.NewService(resolver, queue, accounting.ModeAsync)

	runner := jobs.NewRunner(queue, cache.NewMemory(""), jobs.RunnerConfig{
		Enabled:        true,
		JobType:        accounting.JobTypeAuthEvent,
		MaxRunDuration: 50 * time.Millisecond,
		BackoffStart:   time.Millisecond,
		BackoffCeiling: 2 * time.Millisecond,
	}, jobs.WithRunnerLogger(zap.NewNop()))
	runner.Register(svc.Consumer())
	return svc, runner
}

func submitAndDrain(t *testing.T, svc *accounting.Service, runner *jobs.Runner, ev *accounting.Event) {
	t.Helper()
	if err := svc.Submit(context.Background(), ev); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("runner failed: %v", err)
	}
}

func baseEvent() *accounting.Event {
	return &accounting.Event{
		IdpEntityID:    "https://idp.example",
		SpEntityID:     "https://sp.example",
		UserIdentifier: "u1",
		UserAttributes: map[string]any{"mail": []any{"a@example.org"}},
	}
}

func TestAsyncFlow_FirstEventCreatesOneRowPerTable(t *testing.T) {
	store := mem.New()
	svc, runner := buildStack(store)

	submitAndDrain(t, svc, runner, baseEvent())

	c := store.Counts()
	if c.Jobs != 0 {
		t.Fatalf("queue must be drained, %d jobs left", c.Jobs)
	}
	if len(store.FailedJobs()) != 0 {
		t.Fatalf("no job may fail: %+v", store.FailedJobs())
	}
	if c.Idps != 1 || c.IdpVersions != 1 || c.Sps != 1 || c.SpVersions != 1 ||
		c.Users != 1 || c.UserVersions != 1 || c.VersionLinks != 1 {
		t.Fatalf("expected exactly one row per entity table, got %+v", c)
	}
	if c.ConnectedServices != 1 || c.AuthenticationEvents != 1 {
		t.Fatalf("expected the downstream facts, got %+v", c)
	}
}

func TestAsyncFlow_RepeatedEventCreatesNoRows(t *testing.T) {
	store := mem.New()
	svc, runner := buildStack(store)

	submitAndDrain(t, svc, runner, baseEvent())
	before := store.Counts()

	submitAndDrain(t, svc, runner, baseEvent())
	after := store.Counts()

	if after.Idps != before.Idps || after.IdpVersions != before.IdpVersions ||
		after.Sps != before.Sps || after.SpVersions != before.SpVersions ||
		after.Users != before.Users || after.UserVersions != before.UserVersions ||
		after.VersionLinks != before.VersionLinks {
		t.Fatalf("repeated event created entity rows: before %+v after %+v", before, after)
	}
	if after.AuthenticationEvents != before.AuthenticationEvents+1 {
		t.Fatalf("each authentication must add one fact row")
	}
}

func TestAsyncFlow_ChangedAttributesAddOneVersionAndOneLink(t *testing.T) {
	store := mem.New()
	svc, runner := buildStack(store)

	submitAndDrain(t, svc, runner, baseEvent())
	before := store.Counts()

	changed := baseEvent()
	changed.UserAttributes = map[string]any{"mail": []any{"b@example.org"}}
	submitAndDrain(t, svc, runner, changed)
	after := store.Counts()

	if after.UserVersions != before.UserVersions+1 {
		t.Fatalf("expected one extra UserVersion, before %+v after %+v", before, after)
	}
	if after.VersionLinks != before.VersionLinks+1 {
		t.Fatalf("expected one extra VersionLink, before %+v after %+v", before, after)
	}
	if after.Idps != before.Idps || after.Sps != before.Sps ||
		after.IdpVersions != before.IdpVersions || after.SpVersions != before.SpVersions ||
		after.Users != before.Users {
		t.Fatalf("Idp/Sp/User tables must stay unchanged, before %+v after %+v", before, after)
	}
}

func TestSyncMode_BypassesTheQueue(t *testing.T) {
	store := mem.New()
	queue := jobs.NewQueue(store, jobs.WithQueueLogger(zap.NewNop()))
	resolver := accounting.NewResolver(store, store, accounting.WithLogger(zap.NewNop()))
	svc := accounting.NewService(resolver, queue, accounting.ModeSync)

	if err := svc.Submit(context.Background(), baseEvent()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	c := store.Counts()
	if c.Jobs != 0 {
		t.Fatalf("sync mode must not enqueue, got %d jobs", c.Jobs)
	}
	if c.VersionLinks != 1 || c.AuthenticationEvents != 1 {
		t.Fatalf("sync mode must resolve inline, got %+v", c)
	}
}
