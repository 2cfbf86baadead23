package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trailgrade/trailgrade/internal/api/models"
	"github.com/trailgrade/trailgrade/internal/api/response"
	"github.com/trailgrade/trailgrade/internal/featureflags"
	"github.com/trailgrade/trailgrade/internal/session"
)

// SessionHandler handles study session endpoints.
type SessionHandler struct {
	sessions *session.Service
	flags    *featureflags.Service
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *session.Service, flags *featureflags.Service) *SessionHandler {
	return &SessionHandler{sessions: sessions, flags: flags}
}

// readOnly writes a 503 and returns true when session mutations are flagged
// off, for example during a storage migration.
func (h *SessionHandler) readOnly(w http.ResponseWriter, r *http.Request) bool {
	if h.flags.IsSessionsReadOnly(r.Context()) {
		response.ServiceUnavailable(w, r, "sessions are temporarily read-only")
		return true
	}
	return false
}

// writeSessionError maps session service errors onto problem responses.
func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		fieldErrors := make([]models.FieldError, len(verr.Errors))
		for i, fe := range verr.Errors {
			fieldErrors[i] = models.FieldError{Field: fe.Field, Message: fe.Message}
		}
		response.BadRequest(w, r, "validation error", fieldErrors)
	case errors.Is(err, session.ErrSessionNotFound):
		response.NotFound(w, r, "session not found")
	default:
		response.InternalError(w, r, "session operation failed")
	}
}

// ListSessions handles GET /v1/me/sessions - list saved sessions.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	opts := session.ListOptions{Cursor: r.URL.Query().Get("cursor")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			response.BadRequest(w, r, "validation error", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer"},
			})
			return
		}
		opts.Limit = limit
	}

	result, err := h.sessions.List(r.Context(), GetClientID(r.Context()), opts)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}

	page := models.PagedSessions{
		Items: make([]models.Session, len(result.Items)),
		Meta:  models.PagedResponseMeta{Limit: opts.Limit},
	}
	for i, s := range result.Items {
		page.Items[i] = fromSession(s)
	}
	if result.NextCursor != "" {
		cursor := result.NextCursor
		page.Meta.NextCursor = &cursor
	}
	response.JSON(w, r, http.StatusOK, page)
}

// CreateSession handles POST /v1/me/sessions - save a new session.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.readOnly(w, r) {
		return
	}

	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	created, err := h.sessions.Create(r.Context(), GetClientID(r.Context()), toSessionInput(req))
	if err != nil {
		writeSessionError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/me/sessions/"+created.ID, fromSession(created))
}

// GetSession handles GET /v1/me/sessions/{sessionId} - get a saved session.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		response.BadRequest(w, r, "sessionId is required", nil)
		return
	}

	s, err := h.sessions.Get(r.Context(), GetClientID(r.Context()), sessionID)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, fromSession(s))
}

// UpdateSession handles PUT /v1/me/sessions/{sessionId} - replace a saved
// session.
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	if h.readOnly(w, r) {
		return
	}

	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		response.BadRequest(w, r, "sessionId is required", nil)
		return
	}

	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	updated, err := h.sessions.Update(r.Context(), GetClientID(r.Context()), sessionID, toSessionInput(req))
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, fromSession(updated))
}

// DeleteSession handles DELETE /v1/me/sessions/{sessionId} - delete a saved
// session.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if h.readOnly(w, r) {
		return
	}

	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		response.BadRequest(w, r, "sessionId is required", nil)
		return
	}

	if err := h.sessions.Delete(r.Context(), GetClientID(r.Context()), sessionID); err != nil {
		writeSessionError(w, r, err)
		return
	}
	response.NoContent(w, r)
}
