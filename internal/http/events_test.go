package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authledger/internal/accounting"
	"github.com/dropDatabas3/authledger/internal/jobs"
	"github.com/dropDatabas3/authledger/internal/store/adapters/mem"
)

const testKey = "sekrit"

func newTestRouter(store *mem.Store) http.Handler {
	queue := jobs.NewQueue(store, jobs.WithQueueLogger(zap.NewNop()))
	resolver := accounting.NewResolver(store, store, accounting.WithLogger(zap.NewNop()))
	svc := accounting.NewService(resolver, queue, accounting.ModeSync)
	return NewRouter(NewEventsHandler(svc, testKey), nil)
}

func postEvent(router http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-Ingest-Key", key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validEvent = `{
	"idp_entity_id": "https://idp.example",
	"sp_entity_id": "https://sp.example",
	"user_identifier": "u1",
	"user_attributes": {"mail": ["a@example.org"]}
}`

func TestEvents_RequiresIngestKey(t *testing.T) {
	router := newTestRouter(mem.New())

	if w := postEvent(router, "", validEvent); w.Code != http.StatusUnauthorized {
		t.Fatalf("no key: status = %d, expected 401", w.Code)
	}
	if w := postEvent(router, "wrong", validEvent); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d, expected 401", w.Code)
	}
}

func TestEvents_AcceptsAndRecords(t *testing.T) {
	store := mem.New()
	router := newTestRouter(store)

	w := postEvent(router, testKey, validEvent)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected an X-Request-ID header")
	}

	c := store.Counts()
	if c.VersionLinks != 1 || c.AuthenticationEvents != 1 {
		t.Fatalf("sync submit must resolve inline, got %+v", c)
	}
}

func TestEvents_RejectsIncompleteEvent(t *testing.T) {
	router := newTestRouter(mem.New())

	w := postEvent(router, testKey, `{"sp_entity_id": "https://sp.example"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", w.Code)
	}
}

func TestEvents_RejectsNonJSONContentType(t *testing.T) {
	router := newTestRouter(mem.New())

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(validEvent))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Ingest-Key", testKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(mem.New())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", w.Code)
	}
}
