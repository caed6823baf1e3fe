package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/auth/jwt"
	"github.com/gokatarajesh/challenger/internal/problem"
	httperrors "github.com/gokatarajesh/challenger/pkg/http/errors"
)

// HTTPHandler exposes profile, saved challenge and connection endpoints.
type HTTPHandler struct {
	svc    *Service
	now    func() time.Time
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		now:    time.Now,
		logger: logger.With().Str("component", "profile_http").Logger(),
	}
}

type quotaResponse struct {
	CanGenerate      bool       `json:"can_generate"`
	NextGenerationAt *time.Time `json:"next_generation_at,omitempty"`
}

// HandleProfile handles GET /v1/profile
func (h *HTTPHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	allowed, next := p.CanGenerate(h.now(), h.svc.QuotaWindow())
	quota := quotaResponse{CanGenerate: allowed}
	if !allowed {
		quota.NextGenerationAt = &next
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"profile": p,
		"quota":   quota,
	})
}

// HandleChallenges handles GET|POST /v1/profile/challenges
func (h *HTTPHandler) HandleChallenges(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := h.svc.ListChallenges(r.Context(), userID)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"challenges": list})
	case http.MethodPost:
		var p problem.Problem
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
		saved, err := h.svc.SaveChallenge(r.Context(), userID, p)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, saved)
	default:
		httperrors.RespondMethodNotAllowed(w)
	}
}

// HandleChallenge handles DELETE /v1/profile/challenges/{id}
func (h *HTTPHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	challengeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid challenge id")
		return
	}

	if err := h.svc.RemoveChallenge(r.Context(), userID, challengeID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addConnectionRequest struct {
	PeerID uuid.UUID `json:"peer_id"`
}

// HandleConnections handles GET|POST /v1/connections
func (h *HTTPHandler) HandleConnections(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := h.svc.ListConnections(r.Context(), userID)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"connections": list})
	case http.MethodPost:
		var req addConnectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PeerID == uuid.Nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "peer_id is required", "peer_id")
			return
		}
		if err := h.svc.AddConnection(r.Context(), userID, req.PeerID); err != nil {
			h.respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httperrors.RespondMethodNotAllowed(w)
	}
}

// HandleConnection handles DELETE /v1/connections/{id}
func (h *HTTPHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	peerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid peer id")
		return
	}

	if err := h.svc.RemoveConnection(r.Context(), userID, peerID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, err.Error())
	case errors.Is(err, ErrChallengeNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeChallengeNotFound, err.Error())
	case errors.Is(err, ErrConnectionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeConnectionNotFound, err.Error())
	case errors.Is(err, ErrSelfConnection):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeSelfConnection, err.Error())
	case errors.Is(err, ErrInvalidChallenge):
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, err.Error(), "title")
	default:
		h.logger.Error().Err(err).Msg("profile request failed")
		httperrors.RespondInternalError(w, "Profile request failed")
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
