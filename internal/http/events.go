package http

import (
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authledger/internal/accounting"
	"github.com/dropDatabas3/authledger/internal/domain/repository"
	"github.com/dropDatabas3/authledger/internal/observability/logger"
)

type eventRequest struct {
	IdpEntityID    string         `json:"idp_entity_id"`
	IdpMetadata    map[string]any `json:"idp_metadata"`
	SpEntityID     string         `json:"sp_entity_id"`
	SpMetadata     map[string]any `json:"sp_metadata"`
	UserIdentifier string         `json:"user_identifier"`
	UserAttributes map[string]any `json:"user_attributes"`
	HappenedAt     *time.Time     `json:"happened_at,omitempty"`
}

// EventsHandler expone el endpoint de ingesta de eventos de autenticación.
type EventsHandler struct {
	svc       *accounting.Service
	ingestKey string
}

func NewEventsHandler(svc *accounting.Service, ingestKey string) *EventsHandler {
	return &EventsHandler{svc: svc, ingestKey: ingestKey}
}

func (h *EventsHandler) Register(r chi.Router) {
	r.Post("/events", h.create)
}

func (h *EventsHandler) create(w http.ResponseWriter, r *http.Request) {
	if h.ingestKey != "" {
		got := r.Header.Get("X-Ingest-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.ingestKey)) != 1 {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "ingest key inválida")
			return
		}
	}

	var req eventRequest
	if !ReadJSON(w, r, &req) {
		return
	}

	ev := &accounting.Event{
		IdpEntityID:    req.IdpEntityID,
		IdpMetadata:    req.IdpMetadata,
		SpEntityID:     req.SpEntityID,
		SpMetadata:     req.SpMetadata,
		UserIdentifier: req.UserIdentifier,
		UserAttributes: req.UserAttributes,
		ClientIP:       clientIP(r),
	}
	if req.HappenedAt != nil {
		ev.HappenedAt = *req.HappenedAt
	}

	if err := h.svc.Submit(r.Context(), ev); err != nil {
		var uv *repository.UnexpectedValueError
		if errors.As(err, &uv) || errors.Is(err, repository.ErrInvalidInput) {
			WriteError(w, http.StatusBadRequest, "invalid_event", err.Error())
			return
		}
		logger.From(r.Context()).Error("event ingest failed", logger.Err(err))
		WriteError(w, http.StatusInternalServerError, "store_error", "el evento no pudo persistirse")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
