package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/challenger/pkg/http/errors"
	ws "github.com/gokatarajesh/challenger/pkg/http/ws"
)

// TokenValidator checks access tokens presented on the socket query string.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// WSHandler streams session events and accepts spin, reveal and advance commands.
type WSHandler struct {
	mgr      *Manager
	hub      *ws.Hub
	tokens   TokenValidator
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWSHandler(mgr *Manager, hub *ws.Hub, tokens TokenValidator, upgrader websocket.Upgrader, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		mgr:      mgr,
		hub:      hub,
		tokens:   tokens,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "session_ws").Logger(),
	}
}

// HandleWebSocket handles GET /ws/sessions?token=...&session_id=...
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "session_id is required", "session_id")
		return
	}
	s, err := h.mgr.Get(r.Context(), claims.UserID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, err.Error())
		case errors.Is(err, ErrNotOwner):
			httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, err.Error())
		default:
			h.logger.Error().Err(err).Msg("load session for websocket failed")
			httperrors.RespondInternalError(w, "Session lookup failed")
		}
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.serve(ws.NewConnection(conn, h.logger), claims.UserID, s)
}

func (h *WSHandler) serve(conn *ws.Connection, userID uuid.UUID, s *Session) {
	h.hub.RegisterConnection(userID, conn)
	h.hub.Subscribe(s.ID, userID)
	defer func() {
		h.hub.Unsubscribe(s.ID, userID)
		h.hub.UnregisterConnection(userID, conn)
	}()

	go conn.WritePump()

	if msg, err := ws.NewMessage(ws.TypeSessionState, s); err == nil {
		_ = conn.Send(msg)
	}

	conn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), conn, userID, s.ID, msg)
	})
}

// handleMessage runs one client command. Results reach the client through the session topic.
func (h *WSHandler) handleMessage(ctx context.Context, conn *ws.Connection, userID uuid.UUID, sessionID string, msg ws.Message) error {
	var run commandFunc
	switch msg.Type {
	case ws.TypePing:
		return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
	case ws.TypeSpin:
		run = h.mgr.Spin
	case ws.TypeReveal:
		run = h.mgr.Reveal
	case ws.TypeAdvance:
		run = h.mgr.Advance
	default:
		return h.sendError(conn, msg.RequestID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}

	if len(msg.Payload) > 0 {
		var p ws.SessionCommandPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return h.sendError(conn, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid command payload")
		}
		if p.SessionID != "" && p.SessionID != sessionID {
			return h.sendError(conn, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Socket is bound to another session")
		}
	}

	if _, err := run(ctx, userID, sessionID); err != nil {
		return h.sendError(conn, msg.RequestID, commandErrorCode(err), err.Error())
	}
	return nil
}

func commandErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return httperrors.ErrCodeSessionNotFound
	case errors.Is(err, ErrNotOwner):
		return httperrors.ErrCodeForbidden
	case errors.Is(err, ErrSessionBusy):
		return httperrors.ErrCodeSessionBusy
	case errors.Is(err, ErrInvalidTransition):
		return httperrors.ErrCodeInvalidTransition
	default:
		return httperrors.ErrCodeInternalError
	}
}

func (h *WSHandler) sendError(conn *ws.Connection, requestID, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return conn.Send(msg)
}
