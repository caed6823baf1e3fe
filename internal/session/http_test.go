package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/challenger/internal/auth/jwt"
	"github.com/gokatarajesh/challenger/internal/problem"
	"github.com/gokatarajesh/challenger/internal/profile"
)

type fixture struct {
	mgr      *Manager
	engine   *stubEngine
	profiles *stubProfiles
	owner    uuid.UUID
	handler  *HTTPHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	owner := uuid.New()
	f := &fixture{
		engine: &stubEngine{problems: problemsFor(4)},
		profiles: &stubProfiles{profiles: map[uuid.UUID]profile.Profile{
			owner: {UserID: owner, DisplayName: "Owner", Plan: profile.PlanFree},
		}},
		owner: owner,
	}
	f.mgr = NewManager(NewStore(client, StoreOptions{}, zerolog.Nop()), f.engine, f.profiles, Options{
		Rand:      &seqRand{},
		Clock:     &fakeClock{now: t0},
		Scheduler: &fakeScheduler{},
	}, zerolog.Nop())
	f.handler = NewHTTPHandler(f.mgr, problem.DefaultTables().Topics(), zerolog.Nop())
	return f
}

func (f *fixture) request(method, target, body, id string, user uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if id != "" {
		req.SetPathValue("id", id)
	}
	if user != uuid.Nil {
		req = req.WithContext(jwt.WithClaims(req.Context(), &jwt.Claims{UserID: user}))
	}
	return req
}

func (f *fixture) created(t *testing.T) *Session {
	t.Helper()
	s, err := f.mgr.Create(context.Background(), f.owner)
	require.NoError(t, err)
	return s
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHandleCreateRequiresAuth(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.HandleCreate(rec, f.request(http.MethodPost, "/v1/sessions", "", "", uuid.Nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.HandleCreate(rec, f.request(http.MethodPost, "/v1/sessions", "", "", f.owner))
	require.Equal(t, http.StatusCreated, rec.Code)

	var s Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	assert.Equal(t, PhaseSetup, s.Phase)
	assert.Equal(t, f.owner, s.Owner.UserID)
}

func TestHandleSetupAndConfirm(t *testing.T) {
	f := newFixture(t)
	s := f.created(t)

	body := `{"topic":"Graphs","mode":"catalog","players":[{"handle":"ana","tier":"Rookie"},{"tier":"Master"}]}`
	rec := httptest.NewRecorder()
	f.handler.HandleSetup(rec, f.request(http.MethodPut, "/v1/sessions/"+s.ID+"/setup", body, s.ID, f.owner))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.HandleConfirm(rec, f.request(http.MethodPost, "/v1/sessions/"+s.ID+"/confirm", "", s.ID, f.owner))
	require.Equal(t, http.StatusOK, rec.Code)

	var got Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, PhasePlaying, got.Phase)
	assert.Len(t, got.Pool, 2)
	assert.Equal(t, "Player 2", got.Players[1].Handle)
}

func TestHandleSetupValidation(t *testing.T) {
	f := newFixture(t)
	s := f.created(t)

	rec := httptest.NewRecorder()
	f.handler.HandleSetup(rec, f.request(http.MethodPut, "/", `{"topic":"x","mode":"quantum"}`, s.ID, f.owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "mode", decodeError(t, rec)["field"])

	rec = httptest.NewRecorder()
	f.handler.HandleSetup(rec, f.request(http.MethodPut, "/", `{"topic":"x","players":[{"tier":"Legend"}]}`, s.ID, f.owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "players", decodeError(t, rec)["field"])

	rec = httptest.NewRecorder()
	f.handler.HandleSetup(rec, f.request(http.MethodPut, "/", `{`, s.ID, f.owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleConfirmGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.engine.err = problem.ErrCatalogExhausted
	s := f.created(t)
	_, err := f.mgr.Setup(context.Background(), f.owner, s.ID, SetupRequest{Topic: "Graphs", Players: roster(problem.TierRookie)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.handler.HandleConfirm(rec, f.request(http.MethodPost, "/", "", s.ID, f.owner))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "catalog_exhausted", body["error"])
	details := body["details"].(map[string]interface{})
	assert.Equal(t, string(PhaseSetup), details["session"].(map[string]interface{})["phase"])
}

func TestHandleConfirmQuota(t *testing.T) {
	f := newFixture(t)
	last := t0.Add(-2 * time.Hour)
	f.profiles.profiles[f.owner] = profile.Profile{UserID: f.owner, Plan: profile.PlanFree, LastGeneratedAt: &last}
	s := f.created(t)
	_, err := f.mgr.Setup(context.Background(), f.owner, s.ID, SetupRequest{Topic: "Graphs", Mode: "ai", Players: roster(problem.TierRookie)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.handler.HandleConfirm(rec, f.request(http.MethodPost, "/", "", s.ID, f.owner))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "quota_exceeded", body["error"])
	assert.Equal(t, last.Add(24*time.Hour).Format(time.RFC3339), body["details"].(map[string]interface{})["next_generation_at"])
}

func TestHandleCommandErrors(t *testing.T) {
	f := newFixture(t)
	s := f.created(t)

	rec := httptest.NewRecorder()
	f.handler.HandleSpin(rec, f.request(http.MethodPost, "/", "", s.ID, f.owner))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, rec)["error"])

	rec = httptest.NewRecorder()
	f.handler.HandleSpin(rec, f.request(http.MethodPost, "/", "", s.ID, uuid.New()))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.HandleGet(rec, f.request(http.MethodGet, "/", "", "nope", f.owner))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.HandleReset(rec, f.request(http.MethodGet, "/", "", s.ID, f.owner))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSave(t *testing.T) {
	f := newFixture(t)
	s := f.created(t)
	ctx := context.Background()
	_, err := f.mgr.Setup(ctx, f.owner, s.ID, SetupRequest{Topic: "Graphs", Players: roster(problem.TierRookie)})
	require.NoError(t, err)
	_, err = f.mgr.Confirm(ctx, f.owner, s.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.handler.HandleSave(rec, f.request(http.MethodPost, "/", `{"player_index":0}`, s.ID, f.owner))
	assert.Equal(t, http.StatusConflict, rec.Code, "not finished yet")

	for _, step := range []commandFunc{f.mgr.Spin, f.mgr.Reveal, f.mgr.Advance} {
		_, err := step(ctx, f.owner, s.ID)
		require.NoError(t, err)
	}

	rec = httptest.NewRecorder()
	f.handler.HandleSave(rec, f.request(http.MethodPost, "/", `{}`, s.ID, f.owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.HandleSave(rec, f.request(http.MethodPost, "/", `{"player_index":3}`, s.ID, f.owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.HandleSave(rec, f.request(http.MethodPost, "/", `{"player_index":0}`, s.ID, f.owner))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, f.profiles.saved, 1)
}

func TestHandleTopics(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.HandleTopics(rec, httptest.NewRequest(http.MethodGet, "/v1/topics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Topics []string `json:"topics"`
		Tiers  []string `json:"tiers"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEmpty(t, body.Topics)
	assert.Equal(t, []string{"Rookie", "Adept", "Veteran", "Master"}, body.Tiers)
}
