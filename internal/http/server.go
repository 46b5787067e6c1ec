// Package http arma el router del servicio: ingesta de eventos, health y
// métricas.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger es lo mínimo que /healthz necesita del almacenamiento.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter arma el router con middlewares y rutas.
func NewRouter(events *EventsHandler, store Pinger) chi.Router {
	r := chi.NewRouter()
	r.Use(WithRequestID)
	r.Use(WithAccessLog)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "")
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	events.Register(r)
	return r
}

// NewServer construye el http.Server con timeouts de producción.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
