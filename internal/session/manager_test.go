package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/gokatarajesh/challenger/internal/assign"
	"github.com/gokatarajesh/challenger/internal/problem"
	"github.com/gokatarajesh/challenger/internal/profile"
	ws "github.com/gokatarajesh/challenger/pkg/http/ws"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type task struct {
	delay time.Duration
	fn    func()
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []task
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	s.tasks = append(s.tasks, task{delay: d, fn: f})
	s.mu.Unlock()
}

// RunPending fires every task queued so far and returns their delays.
func (s *fakeScheduler) RunPending() []time.Duration {
	s.mu.Lock()
	pending := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	delays := make([]time.Duration, 0, len(pending))
	for _, t := range pending {
		delays = append(delays, t.delay)
		t.fn()
	}
	return delays
}

func (s *fakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

type stubEngine struct {
	mu       sync.Mutex
	problems []problem.Problem
	err      error
	calls    int

	// When set, Assign signals entered and blocks until release is closed.
	entered chan struct{}
	release chan struct{}
}

func (e *stubEngine) Assign(_ context.Context, req assign.Request) ([]problem.Problem, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.entered != nil {
		e.entered <- struct{}{}
		<-e.release
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.problems[:min(len(e.problems), len(req.Players))], nil
}

type stubProfiles struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]profile.Profile
	generated []time.Time
	saved     []problem.Problem
}

func (p *stubProfiles) Get(_ context.Context, id uuid.UUID) (profile.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prof, ok := p.profiles[id]
	if !ok {
		return profile.Profile{}, profile.ErrUserNotFound
	}
	return prof, nil
}

func (p *stubProfiles) RecordGeneration(_ context.Context, id uuid.UUID, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generated = append(p.generated, at)
	if prof, ok := p.profiles[id]; ok {
		prof.LastGeneratedAt = &at
		p.profiles[id] = prof
	}
	return nil
}

func (p *stubProfiles) SaveChallenge(_ context.Context, _ uuid.UUID, pr problem.Problem) (profile.SavedChallenge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, pr)
	return profile.SavedChallenge{ID: uuid.New(), Problem: pr}, nil
}

func (p *stubProfiles) QuotaWindow() time.Duration { return profile.DefaultQuotaWindow }

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []ws.Message
}

func (n *recordingNotifier) Publish(_ string, msg ws.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) count(msgType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.msgs {
		if m.Type == msgType {
			c++
		}
	}
	return c
}

type recordingBoard struct {
	userID uuid.UUID
	points int
	calls  int
}

func (b *recordingBoard) RecordCompletion(_ context.Context, userID uuid.UUID, _ string, points int) error {
	b.userID, b.points = userID, points
	b.calls++
	return nil
}

type ManagerSuite struct {
	suite.Suite

	mr        *miniredis.Miniredis
	store     *Store
	clock     *fakeClock
	scheduler *fakeScheduler
	engine    *stubEngine
	profiles  *stubProfiles
	notifier  *recordingNotifier
	board     *recordingBoard
	manager   *Manager
	owner     uuid.UUID
	ctx       context.Context
}

func (s *ManagerSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.T().Cleanup(func() { client.Close() })

	s.ctx = context.Background()
	s.owner = uuid.New()
	s.store = NewStore(client, StoreOptions{}, zerolog.Nop())
	s.clock = &fakeClock{now: t0}
	s.scheduler = &fakeScheduler{}
	s.engine = &stubEngine{problems: problemsFor(4)}
	s.profiles = &stubProfiles{profiles: map[uuid.UUID]profile.Profile{
		s.owner: {UserID: s.owner, DisplayName: "Owner", Plan: profile.PlanFree},
	}}
	s.notifier = &recordingNotifier{}
	s.board = &recordingBoard{}
	s.manager = NewManager(s.store, s.engine, s.profiles, Options{
		Rand:        &seqRand{vals: []int{0, 400}},
		Clock:       s.clock,
		Scheduler:   s.scheduler,
		Notifier:    s.notifier,
		Wheel:       WheelConfig{FullTurns: 3, Duration: 4 * time.Second},
		Leaderboard: s.board,
	}, zerolog.Nop())
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) configured(mode string, tiers ...problem.Tier) *Session {
	sess, err := s.manager.Create(s.ctx, s.owner)
	s.Require().NoError(err)
	sess, err = s.manager.Setup(s.ctx, s.owner, sess.ID, SetupRequest{Topic: "Algorithms", Mode: mode, Players: roster(tiers...)})
	s.Require().NoError(err)
	return sess
}

func (s *ManagerSuite) load(id string) *Session {
	sess, err := s.store.Load(s.ctx, id)
	s.Require().NoError(err)
	return sess
}

func (s *ManagerSuite) TestLastProblemIsDrawnWithoutManualTrigger() {
	sess := s.configured("catalog", problem.TierRookie, problem.TierAdept, problem.TierVeteran)
	id := sess.ID

	sess, err := s.manager.Confirm(s.ctx, s.owner, id)
	s.Require().NoError(err)
	s.Equal(PhasePlaying, sess.Phase)
	s.Zero(s.scheduler.Pending(), "three problems remain, no auto draw")

	for turn := 0; turn < 2; turn++ {
		_, err := s.manager.Spin(s.ctx, s.owner, id)
		s.Require().NoError(err)

		s.clock.Advance(4 * time.Second)
		s.Equal([]time.Duration{4 * time.Second}, s.scheduler.RunPending(), "auto reveal after the spin")
		s.Equal(TurnRevealed, s.load(id).Turn)

		_, err = s.manager.Advance(s.ctx, s.owner, id)
		s.Require().NoError(err)
	}

	sess = s.load(id)
	s.Equal(1, sess.Remaining())
	s.Equal(TurnIdle, sess.Turn)
	s.Equal(2, sess.Cursor)
	s.Require().Equal(1, s.scheduler.Pending(), "auto draw armed for the final problem")

	s.clock.Advance(1500 * time.Millisecond)
	s.Equal([]time.Duration{1500 * time.Millisecond}, s.scheduler.RunPending())
	s.Equal(TurnDrawing, s.load(id).Turn, "drawn without a spin request")

	s.clock.Advance(4 * time.Second)
	s.scheduler.RunPending()
	sess = s.load(id)
	s.Equal(TurnRevealed, sess.Turn)
	s.Zero(sess.Remaining())

	sess, err = s.manager.Advance(s.ctx, s.owner, id)
	s.Require().NoError(err)
	s.Equal(PhaseFinished, sess.Phase)

	results, err := sess.Results()
	s.Require().NoError(err)
	s.Len(results, 3)
	titles := map[string]bool{}
	for _, r := range results {
		titles[r.Problem.Title] = true
	}
	s.Len(titles, 3)

	s.Equal(1, s.board.calls)
	s.Equal(3, s.board.points)
	s.Equal(s.owner, s.board.userID)
	s.Equal(3, s.notifier.count(ws.TypeSpinStarted))
	s.Equal(3, s.notifier.count(ws.TypeRevealed))
}

func (s *ManagerSuite) TestManualRevealBeatsTimer() {
	sess := s.configured("", problem.TierRookie, problem.TierRookie)
	_, err := s.manager.Confirm(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)

	_, err = s.manager.Spin(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)
	_, err = s.manager.Reveal(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)

	s.scheduler.RunPending()
	s.Equal(1, s.notifier.count(ws.TypeRevealed), "timer is a no-op after a manual reveal")

	_, err = s.manager.Reveal(s.ctx, s.owner, sess.ID)
	s.ErrorIs(err, ErrInvalidTransition)
}

func (s *ManagerSuite) TestSinglePlayerAutoDrawWaitsForDelay() {
	sess := s.configured("", problem.TierMaster)
	_, err := s.manager.Confirm(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)

	s.Require().Equal(1, s.scheduler.Pending())
	s.scheduler.RunPending()
	s.Equal(TurnIdle, s.load(sess.ID).Turn, "delay has not elapsed on the clock")

	s.manager.autoDraw(sess.ID)
	s.Equal(TurnIdle, s.load(sess.ID).Turn)

	s.clock.Advance(2 * time.Second)
	s.manager.autoDraw(sess.ID)
	s.Equal(TurnDrawing, s.load(sess.ID).Turn)
}

func (s *ManagerSuite) TestGenerationFailureReturnsToSetup() {
	s.engine.err = problem.ErrSourceUnavailable
	sess := s.configured("", problem.TierRookie)

	got, err := s.manager.Confirm(s.ctx, s.owner, sess.ID)
	s.ErrorIs(err, problem.ErrSourceUnavailable)
	s.Require().NotNil(got)
	s.Equal(PhaseSetup, got.Phase)

	stored := s.load(sess.ID)
	s.Equal(PhaseSetup, stored.Phase)
	s.NotEmpty(stored.Error)
	s.Empty(stored.Pool)
}

func (s *ManagerSuite) TestGenerativeQuota() {
	recent := t0.Add(-time.Hour)
	s.profiles.profiles[s.owner] = profile.Profile{UserID: s.owner, Plan: profile.PlanFree, LastGeneratedAt: &recent}
	sess := s.configured("generative", problem.TierRookie)

	_, err := s.manager.Confirm(s.ctx, s.owner, sess.ID)
	s.ErrorIs(err, ErrQuotaExceeded)
	var qe *QuotaError
	s.Require().True(errors.As(err, &qe))
	s.Equal(recent.Add(24*time.Hour), qe.Next)
	s.Equal(PhaseSetup, s.load(sess.ID).Phase)
	s.Zero(s.engine.calls)

	s.profiles.profiles[s.owner] = profile.Profile{UserID: s.owner, Plan: profile.PlanPro, LastGeneratedAt: &recent}
	got, err := s.manager.Confirm(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)
	s.Equal(PhasePlaying, got.Phase)
	s.Equal([]time.Time{t0}, s.profiles.generated)
	s.Require().NotNil(got.Owner.LastGeneratedAt)
}

func (s *ManagerSuite) TestConcurrentGenerativeConfirmsShareOneQuota() {
	s.engine.entered = make(chan struct{})
	s.engine.release = make(chan struct{})
	first := s.configured("generative", problem.TierRookie)
	second := s.configured("generative", problem.TierAdept)

	done := make(chan error, 1)
	go func() {
		_, err := s.manager.Confirm(s.ctx, s.owner, first.ID)
		done <- err
	}()
	<-s.engine.entered

	_, err := s.manager.Confirm(s.ctx, s.owner, second.ID)
	s.ErrorIs(err, ErrSessionBusy)
	s.Equal(PhaseSetup, s.load(second.ID).Phase)

	close(s.engine.release)
	s.Require().NoError(<-done)

	s.engine.entered = nil
	_, err = s.manager.Confirm(s.ctx, s.owner, second.ID)
	s.ErrorIs(err, ErrQuotaExceeded)

	s.Equal(1, s.engine.calls)
	s.Len(s.profiles.generated, 1)
	s.Equal(PhasePlaying, s.load(first.ID).Phase)
	s.Equal(PhaseSetup, s.load(second.ID).Phase)
}

func (s *ManagerSuite) TestCatalogModeSkipsQuota() {
	recent := t0.Add(-time.Hour)
	s.profiles.profiles[s.owner] = profile.Profile{UserID: s.owner, Plan: profile.PlanFree, LastGeneratedAt: &recent}
	sess := s.configured("catalog", problem.TierRookie)

	_, err := s.manager.Confirm(s.ctx, s.owner, sess.ID)
	s.NoError(err)
	s.Empty(s.profiles.generated)
}

func (s *ManagerSuite) TestOwnership() {
	sess := s.configured("", problem.TierRookie)
	stranger := uuid.New()

	_, err := s.manager.Get(s.ctx, stranger, sess.ID)
	s.ErrorIs(err, ErrNotOwner)
	_, err = s.manager.Spin(s.ctx, stranger, sess.ID)
	s.ErrorIs(err, ErrNotOwner)

	_, err = s.manager.Get(s.ctx, s.owner, "missing")
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *ManagerSuite) TestBusyWhileLocked() {
	sess := s.configured("", problem.TierRookie)
	unlock, err := s.store.Lock(s.ctx, sess.ID)
	s.Require().NoError(err)

	_, err = s.manager.Reset(s.ctx, s.owner, sess.ID)
	s.ErrorIs(err, ErrSessionBusy)

	s.Require().NoError(unlock())
	_, err = s.manager.Reset(s.ctx, s.owner, sess.ID)
	s.NoError(err)
}

func (s *ManagerSuite) TestSaveChallenge() {
	sess := s.configured("", problem.TierRookie)
	_, err := s.manager.SaveChallenge(s.ctx, s.owner, sess.ID, 0)
	s.ErrorIs(err, ErrNotFinished)

	_, err = s.manager.Confirm(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)
	_, err = s.manager.Spin(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)
	_, err = s.manager.Reveal(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)
	_, err = s.manager.Advance(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)

	saved, err := s.manager.SaveChallenge(s.ctx, s.owner, sess.ID, 0)
	s.Require().NoError(err)
	s.Equal("Problem 0", saved.Problem.Title)
	s.Len(s.profiles.saved, 1)
}

func (s *ManagerSuite) TestResetClearsEverything() {
	sess := s.configured("", problem.TierRookie, problem.TierAdept)
	_, err := s.manager.Confirm(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)
	_, err = s.manager.Spin(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)

	got, err := s.manager.Reset(s.ctx, s.owner, sess.ID)
	s.Require().NoError(err)
	s.Equal(PhaseSetup, got.Phase)
	s.Empty(got.Players)
	s.Empty(got.Pool)

	s.scheduler.RunPending()
	s.Equal(PhaseSetup, s.load(sess.ID).Phase, "pending reveal does nothing after reset")
}

func TestStoreRoundTripAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewStore(client, StoreOptions{TTL: time.Hour}, zerolog.Nop())
	ctx := context.Background()

	sess := New("abc", profile.Profile{UserID: uuid.New()}, t0)
	require.NoError(t, store.Save(ctx, sess))
	assert.Equal(t, time.Hour, mr.TTL("session:abc"))

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, sess.Owner.UserID, got.Owner.UserID)
	assert.Equal(t, PhaseSetup, got.Phase)
	assert.Equal(t, -1, got.Pending)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStoreLockOnlyReleasesOwnLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewStore(client, StoreOptions{}, zerolog.Nop())
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("session:lock:abc"))

	_, err = store.Lock(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionBusy)

	// Simulate expiry and takeover by another holder.
	mr.Del("session:lock:abc")
	require.NoError(t, mr.Set("session:lock:abc", "someone-else"))
	require.NoError(t, unlock())
	val, err := mr.Get("session:lock:abc")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}
