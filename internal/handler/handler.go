// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Shivanand-hulikatti/event-scheduler/internal/auth"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// EventManager is the event membership API the handlers depend on.
type EventManager interface {
	CreateEvent(ctx context.Context, creatorID string, req model.CreateEventRequest) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.EventSummary, error)
	GetEvent(ctx context.Context, id string) (*model.EventDetail, error)
	Join(ctx context.Context, eventID, userID string) error
	Leave(ctx context.Context, eventID, userID string) error
}

// EventHandler holds the HTTP handlers for events and memberships.
type EventHandler struct {
	svc EventManager
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc EventManager) *EventHandler {
	return &EventHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

// writeServiceError maps a service error to a status and a caller-safe body.
// Store failures are logged with their cause and rendered generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case model.KindValidation:
		status = http.StatusBadRequest
	case model.KindAuth:
		status = http.StatusUnauthorized
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindConflict:
		status = http.StatusConflict
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	}
	writeError(w, status, string(kind), model.MessageOf(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(model.KindValidation), "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().Str("event_id", event.ID).Str("user_id", event.CreatorID).Msg("event created")
	writeJSON(w, http.StatusCreated, model.CreateEventResponse{
		Message: "Event created successfully",
		Event:   *event,
	})
}

// ListEvents handles GET /api/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.EventSummary{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// Join handles POST /api/events/{id}/join
func (h *EventHandler) Join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Join(r.Context(), id, userID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Successfully joined the event"})
}

// Leave handles POST /api/events/{id}/leave
func (h *EventHandler) Leave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Leave(r.Context(), id, userID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Successfully left the event"})
}
