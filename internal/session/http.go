package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/auth/jwt"
	"github.com/gokatarajesh/challenger/internal/problem"
	"github.com/gokatarajesh/challenger/internal/profile"
	httperrors "github.com/gokatarajesh/challenger/pkg/http/errors"
)

// HTTPHandler exposes the session lifecycle over REST.
type HTTPHandler struct {
	mgr    *Manager
	topics []string
	logger zerolog.Logger
}

func NewHTTPHandler(mgr *Manager, topics []string, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		mgr:    mgr,
		topics: topics,
		logger: logger.With().Str("component", "session_http").Logger(),
	}
}

// HandleTopics handles GET /v1/topics
func (h *HTTPHandler) HandleTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"topics": h.topics,
		"tiers":  problem.Tiers,
	})
}

// HandleCreate handles POST /v1/sessions
func (h *HTTPHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	s, err := h.mgr.Create(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

// HandleGet handles GET /v1/sessions/{id}
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	s, err := h.mgr.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// HandleSetup handles PUT /v1/sessions/{id}/setup
func (h *HTTPHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	s, err := h.mgr.Setup(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// HandleConfirm handles POST /v1/sessions/{id}/confirm
func (h *HTTPHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	s, err := h.mgr.Confirm(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		if s != nil {
			h.respondGenerationError(w, s, err)
			return
		}
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// HandleSpin handles POST /v1/sessions/{id}/spin
func (h *HTTPHandler) HandleSpin(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.mgr.Spin)
}

// HandleReveal handles POST /v1/sessions/{id}/reveal
func (h *HTTPHandler) HandleReveal(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.mgr.Reveal)
}

// HandleAdvance handles POST /v1/sessions/{id}/advance
func (h *HTTPHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.mgr.Advance)
}

// HandleReset handles POST /v1/sessions/{id}/reset
func (h *HTTPHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.mgr.Reset)
}

type saveRequest struct {
	PlayerIndex *int `json:"player_index"`
}

// HandleSave handles POST /v1/sessions/{id}/save
func (h *HTTPHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerIndex == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "player_index is required", "player_index")
		return
	}

	saved, err := h.mgr.SaveChallenge(r.Context(), userID, r.PathValue("id"), *req.PlayerIndex)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

type commandFunc func(ctx context.Context, owner uuid.UUID, id string) (*Session, error)

func (h *HTTPHandler) command(w http.ResponseWriter, r *http.Request, fn commandFunc) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	s, err := fn(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// respondGenerationError reports a failed generation together with the session, now back in Setup.
func (h *HTTPHandler) respondGenerationError(w http.ResponseWriter, s *Session, err error) {
	status, code := http.StatusBadGateway, httperrors.ErrCodeGenerationFailed
	switch {
	case errors.Is(err, problem.ErrSourceUnavailable):
		code = httperrors.ErrCodeSourceUnavailable
	case errors.Is(err, problem.ErrCatalogExhausted):
		status, code = http.StatusUnprocessableEntity, httperrors.ErrCodeCatalogExhausted
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	h.logger.Warn().Err(err).Str("session_id", s.ID).Msg("generation failed")
	httperrors.RespondErrorWithDetails(w, status, code, err.Error(), map[string]interface{}{
		"session": s,
	})
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, err error) {
	var quota *QuotaError
	switch {
	case errors.As(err, &quota):
		httperrors.RespondErrorWithDetails(w, http.StatusTooManyRequests, httperrors.ErrCodeQuotaExceeded, err.Error(), map[string]interface{}{
			"next_generation_at": quota.Next.UTC().Format(time.RFC3339),
		})
	case errors.Is(err, ErrSessionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, err.Error())
	case errors.Is(err, ErrSessionBusy):
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionBusy, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFinished):
		httperrors.RespondConflict(w, httperrors.ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, ErrEmptyTopic):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "topic")
	case errors.Is(err, ErrUnknownMode):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "mode")
	case errors.Is(err, ErrNoPlayers), errors.Is(err, ErrTooManyPlayers), errors.Is(err, ErrUnknownTier):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "players")
	case errors.Is(err, ErrPlayerIndex):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "player_index")
	case errors.Is(err, profile.ErrUserNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("session request failed")
		httperrors.RespondInternalError(w, "Session request failed")
	}
}

func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := jwt.FromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
