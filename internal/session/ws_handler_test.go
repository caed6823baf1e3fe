package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/challenger/internal/auth/jwt"
	"github.com/gokatarajesh/challenger/internal/problem"
	ws "github.com/gokatarajesh/challenger/pkg/http/ws"
)

type staticTokens map[string]uuid.UUID

func (s staticTokens) ValidateToken(token string) (*jwt.Claims, error) {
	id, ok := s[token]
	if !ok {
		return nil, jwt.ErrInvalidToken
	}
	return &jwt.Claims{UserID: id}, nil
}

func newWSFixture(t *testing.T) (*fixture, *ws.Hub, *httptest.Server) {
	t.Helper()
	f := newFixture(t)
	hub := ws.NewHub(zerolog.Nop())
	f.mgr.notifier = hub

	h := NewWSHandler(f.mgr, hub, staticTokens{"good": f.owner, "other": uuid.New()}, websocket.Upgrader{}, zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)
	return f, hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketRejectsBadHandshake(t *testing.T) {
	f, _, srv := newWSFixture(t)
	s := f.created(t)

	cases := []struct {
		name   string
		query  string
		status int
	}{
		{"missing token", "session_id=" + s.ID, http.StatusUnauthorized},
		{"bad token", "token=nope&session_id=" + s.ID, http.StatusUnauthorized},
		{"missing session", "token=good", http.StatusBadRequest},
		{"unknown session", "token=good&session_id=missing", http.StatusNotFound},
		{"foreign session", "token=other&session_id=" + s.ID, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := dial(t, srv, tc.query)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestWebSocketStreamsSessionEvents(t *testing.T) {
	f, hub, srv := newWSFixture(t)
	ctx := context.Background()
	s := f.created(t)
	_, err := f.mgr.Setup(ctx, f.owner, s.ID, SetupRequest{Topic: "Graphs", Players: roster(problem.TierRookie, problem.TierAdept)})
	require.NoError(t, err)
	_, err = f.mgr.Confirm(ctx, f.owner, s.ID)
	require.NoError(t, err)

	conn, _, err := dial(t, srv, "token=good&session_id="+s.ID)
	require.NoError(t, err)
	defer conn.Close()

	initial := readMessage(t, conn)
	require.Equal(t, ws.TypeSessionState, initial.Type)
	var state Session
	require.NoError(t, json.Unmarshal(initial.Payload, &state))
	assert.Equal(t, PhasePlaying, state.Phase)
	assert.Eventually(t, func() bool { return hub.Watchers(s.ID) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypePing, RequestID: "p1"}))
	pong := readMessage(t, conn)
	assert.Equal(t, ws.TypePong, pong.Type)
	assert.Equal(t, "p1", pong.RequestID)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypeSpin}))
	started := readMessage(t, conn)
	require.Equal(t, ws.TypeSpinStarted, started.Type)
	var spin SpinStartedPayload
	require.NoError(t, json.Unmarshal(started.Payload, &spin))
	assert.Equal(t, s.ID, spin.SessionID)
	assert.Len(t, spin.Spin.Labels, 2)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypeAdvance, RequestID: "a1"}))
	errMsg := readMessage(t, conn)
	assert.Equal(t, ws.TypeError, errMsg.Type)
	assert.Equal(t, "a1", errMsg.RequestID)
	var payload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(errMsg.Payload, &payload))
	assert.Equal(t, "invalid_transition", payload.Code)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: "dance"}))
	unknown := readMessage(t, conn)
	require.NoError(t, json.Unmarshal(unknown.Payload, &payload))
	assert.Equal(t, "unknown_message_type", payload.Code)
}

func TestCommandErrorCode(t *testing.T) {
	assert.Equal(t, "session_busy", commandErrorCode(ErrSessionBusy))
	assert.Equal(t, "invalid_transition", commandErrorCode(errors.Join(errors.New("x"), ErrInvalidTransition)))
	assert.Equal(t, "internal_error", commandErrorCode(errors.New("boom")))
}
