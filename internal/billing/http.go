package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/metrics"
	"github.com/gokatarajesh/challenger/internal/profile"
	httperrors "github.com/gokatarajesh/challenger/pkg/http/errors"
)

const maxWebhookBody = 1 << 20

// HTTPHandler receives payment provider webhooks.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger.With().Str("component", "billing_http").Logger()}
}

// HandleWebhook handles POST /v1/billing/webhooks/{provider}
func (h *HTTPHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	provider := r.PathValue("provider")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		metrics.Webhooks.WithLabelValues(provider, "bad_request").Inc()
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Unreadable body")
		return
	}

	outcome, err := h.svc.Handle(r.Context(), provider, r.Header, body)
	if err != nil {
		result := h.respondError(w, err)
		metrics.Webhooks.WithLabelValues(provider, result).Inc()
		return
	}
	metrics.Webhooks.WithLabelValues(provider, string(outcome)).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": string(outcome)})
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, err error) string {
	switch {
	case errors.Is(err, ErrUnknownProvider):
		httperrors.RespondNotFound(w, httperrors.ErrCodeUnknownProvider, err.Error())
		return "unknown_provider"
	case errors.Is(err, ErrProviderNotConfigured):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, err.Error())
		return "not_configured"
	case errors.Is(err, ErrInvalidSignature):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidSignature, "Invalid signature")
		return "invalid_signature"
	case errors.Is(err, ErrMalformedEvent):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidPayload, err.Error())
		return "malformed"
	case errors.Is(err, profile.ErrUserNotFound):
		h.logger.Warn().Err(err).Msg("billing event for unknown user")
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, err.Error())
		return "unknown_user"
	default:
		h.logger.Error().Err(err).Msg("billing webhook failed")
		httperrors.RespondInternalError(w, "Webhook processing failed")
		return "error"
	}
}
