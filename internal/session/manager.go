package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/assign"
	"github.com/gokatarajesh/challenger/internal/metrics"
	"github.com/gokatarajesh/challenger/internal/problem"
	"github.com/gokatarajesh/challenger/internal/profile"
	ws "github.com/gokatarajesh/challenger/pkg/http/ws"
)

// Assigner produces one problem per roster entry.
type Assigner interface {
	Assign(ctx context.Context, req assign.Request) ([]problem.Problem, error)
}

// Profiles is the profile collaborator consumed by sessions.
type Profiles interface {
	Get(ctx context.Context, userID uuid.UUID) (profile.Profile, error)
	RecordGeneration(ctx context.Context, userID uuid.UUID, at time.Time) error
	SaveChallenge(ctx context.Context, userID uuid.UUID, p problem.Problem) (profile.SavedChallenge, error)
	QuotaWindow() time.Duration
}

// Notifier fans session events out to live clients.
type Notifier interface {
	Publish(topic string, msg ws.Message) error
}

// Recorder credits finished sessions on the leaderboard.
type Recorder interface {
	RecordCompletion(ctx context.Context, userID uuid.UUID, displayName string, points int) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// QuotaError reports a free account that already ran its generative session for the window.
type QuotaError struct {
	Next time.Time
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: next generative session at %s", ErrQuotaExceeded, e.Next.UTC().Format(time.RFC3339))
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	AutoDrawDelay     time.Duration
	GenerationTimeout time.Duration
	Wheel             WheelConfig
	Rand              Rand
	Clock             Clock
	Scheduler         Scheduler
	Notifier          Notifier
	Leaderboard       Recorder
}

// SetupRequest carries the Setup-phase configuration.
type SetupRequest struct {
	Topic   string           `json:"topic"`
	Mode    string           `json:"mode"`
	Players []problem.Player `json:"players"`
}

// Manager orchestrates sessions: persistence, locking, generation, timers and notifications.
type Manager struct {
	store    *Store
	engine   Assigner
	profiles Profiles

	autoDrawDelay time.Duration
	genTimeout    time.Duration
	wheel         WheelConfig
	rng           Rand
	clock         Clock
	scheduler     Scheduler
	notifier      Notifier
	leaderboard   Recorder
	logger        zerolog.Logger
}

func NewManager(store *Store, engine Assigner, profiles Profiles, opts Options, logger zerolog.Logger) *Manager {
	if opts.AutoDrawDelay <= 0 {
		opts.AutoDrawDelay = 1500 * time.Millisecond
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 20 * time.Second
	}
	if opts.Wheel.Duration <= 0 {
		opts.Wheel = DefaultWheelConfig()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2545f4914f6cdd1d))
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = timerScheduler{}
	}
	return &Manager{
		store:         store,
		engine:        engine,
		profiles:      profiles,
		autoDrawDelay: opts.AutoDrawDelay,
		genTimeout:    opts.GenerationTimeout,
		wheel:         opts.Wheel,
		rng:           opts.Rand,
		clock:         opts.Clock,
		scheduler:     opts.Scheduler,
		notifier:      opts.Notifier,
		leaderboard:   opts.Leaderboard,
		logger:        logger.With().Str("component", "session_manager").Logger(),
	}
}

// Create opens a new session in Setup for the owner, seeded with their profile snapshot.
func (m *Manager) Create(ctx context.Context, owner uuid.UUID) (*Session, error) {
	snapshot, err := m.profiles.Get(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	s := New(uuid.NewString(), snapshot, m.clock.Now())
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	m.logger.Info().Str("session_id", s.ID).Str("user_id", owner.String()).Msg("session created")
	return s, nil
}

// Get returns the owner's session.
func (m *Manager) Get(ctx context.Context, owner uuid.UUID, id string) (*Session, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Owner.UserID != owner {
		return nil, ErrNotOwner
	}
	return s, nil
}

// Setup replaces topic, mode and roster.
func (m *Manager) Setup(ctx context.Context, owner uuid.UUID, id string, req SetupRequest) (*Session, error) {
	s, err := m.mutate(ctx, owner, id, func(s *Session, now time.Time) error {
		return s.Configure(req.Topic, req.Mode, req.Players, now)
	})
	if err != nil {
		return nil, err
	}
	m.publishState(s)
	return s, nil
}

// Confirm runs generation. On a generation failure the session is back in Setup and is returned with the error.
func (m *Manager) Confirm(ctx context.Context, owner uuid.UUID, id string) (*Session, error) {
	unlock, err := m.store.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer m.release(id, unlock)

	s, err := m.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	if s.Phase == PhaseSetup && s.Mode == problem.ModeGenerative {
		// Held until the generation is recorded so two sessions of one user cannot both pass the check.
		unlockQuota, err := m.store.LockQuota(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("generative quota: %w", err)
		}
		defer m.release(id, unlockQuota)

		snapshot, err := m.profiles.Get(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		s.Owner = snapshot
		if allowed, next := snapshot.CanGenerate(now, m.profiles.QuotaWindow()); !allowed {
			return nil, &QuotaError{Next: next}
		}
	}

	if err := s.BeginGenerating(now); err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	m.publishState(s)

	genCtx, cancel := context.WithTimeout(ctx, m.genTimeout)
	problems, genErr := m.engine.Assign(genCtx, assign.Request{Topic: s.Topic, Mode: s.Mode, Players: s.Roster()})
	cancel()

	// Persist the outcome even if the caller went away so the session never stays in Generating.
	saveCtx := context.WithoutCancel(ctx)
	now = m.clock.Now()
	outcome := s.CompleteGenerating(problems, genErr, now)
	if err := m.store.Save(saveCtx, s); err != nil {
		return nil, err
	}
	m.publishState(s)

	if outcome != nil {
		m.logger.Warn().Err(outcome).Str("session_id", id).Msg("generation failed")
		return s, outcome
	}

	if s.Mode == problem.ModeGenerative {
		if err := m.profiles.RecordGeneration(saveCtx, owner, now); err != nil {
			m.logger.Error().Err(err).Str("user_id", owner.String()).Msg("record generation failed")
		}
		s.Owner.LastGeneratedAt = &now
	}
	m.scheduleAutoDraw(s)
	return s, nil
}

// Spin starts the current player's draw and schedules its reveal when the animation ends.
func (m *Manager) Spin(ctx context.Context, owner uuid.UUID, id string) (*Session, error) {
	s, err := m.mutate(ctx, owner, id, func(s *Session, now time.Time) error {
		_, err := s.Draw(m.rng, m.wheel, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.Draws.WithLabelValues("manual").Inc()
	m.afterDraw(s)
	return s, nil
}

// Reveal binds the drawn problem ahead of the automatic reveal.
func (m *Manager) Reveal(ctx context.Context, owner uuid.UUID, id string) (*Session, error) {
	var binding Binding
	s, err := m.mutate(ctx, owner, id, func(s *Session, now time.Time) error {
		b, err := s.Reveal(now)
		binding = b
		return err
	})
	if err != nil {
		return nil, err
	}
	m.publishRevealed(s, binding)
	return s, nil
}

// Advance moves to the next player or finishes the session.
func (m *Manager) Advance(ctx context.Context, owner uuid.UUID, id string) (*Session, error) {
	s, err := m.mutate(ctx, owner, id, func(s *Session, now time.Time) error {
		return s.Advance(now)
	})
	if err != nil {
		return nil, err
	}
	m.publishState(s)

	if s.Phase == PhaseFinished {
		m.recordCompletion(ctx, s)
		return s, nil
	}
	m.scheduleAutoDraw(s)
	return s, nil
}

// Reset returns the session to Setup.
func (m *Manager) Reset(ctx context.Context, owner uuid.UUID, id string) (*Session, error) {
	s, err := m.mutate(ctx, owner, id, func(s *Session, now time.Time) error {
		s.Reset(now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.publishState(s)
	return s, nil
}

// SaveChallenge stores one player's revealed problem on the owner's profile.
func (m *Manager) SaveChallenge(ctx context.Context, owner uuid.UUID, id string, playerIndex int) (profile.SavedChallenge, error) {
	s, err := m.Get(ctx, owner, id)
	if err != nil {
		return profile.SavedChallenge{}, err
	}
	b, err := s.BindingFor(playerIndex)
	if err != nil {
		return profile.SavedChallenge{}, err
	}
	return m.profiles.SaveChallenge(ctx, owner, b.Problem)
}

func (m *Manager) mutate(ctx context.Context, owner uuid.UUID, id string, fn func(s *Session, now time.Time) error) (*Session, error) {
	unlock, err := m.store.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer m.release(id, unlock)

	s, err := m.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s, m.clock.Now()); err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) load(ctx context.Context, owner uuid.UUID, id string) (*Session, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner != uuid.Nil && s.Owner.UserID != owner {
		return nil, ErrNotOwner
	}
	return s, nil
}

func (m *Manager) release(id string, unlock func() error) {
	if err := unlock(); err != nil {
		m.logger.Warn().Err(err).Str("session_id", id).Msg("session unlock failed")
	}
}

func (m *Manager) afterDraw(s *Session) {
	m.publish(s.ID, ws.TypeSpinStarted, SpinStartedPayload{
		SessionID:   s.ID,
		PlayerIndex: s.Cursor,
		Spin:        s.Spin,
	})
	seq := s.DrawSeq
	id := s.ID
	delay := time.Duration(s.Spin.DurationMs) * time.Millisecond
	m.scheduler.AfterFunc(delay, func() { m.autoReveal(id, seq) })
}

// scheduleAutoDraw arms the timer for the final remaining problem.
func (m *Manager) scheduleAutoDraw(s *Session) {
	if s.Phase != PhasePlaying || s.Turn != TurnIdle || s.Remaining() != 1 {
		return
	}
	id := s.ID
	m.scheduler.AfterFunc(m.autoDrawDelay, func() { m.autoDraw(id) })
}

func (m *Manager) autoDraw(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	drawn := false
	s, err := m.mutate(ctx, uuid.Nil, id, func(s *Session, now time.Time) error {
		if !s.AutoDrawDue(now, m.autoDrawDelay) {
			return nil
		}
		if _, err := s.Draw(m.rng, m.wheel, now); err != nil {
			return err
		}
		drawn = true
		return nil
	})
	if err != nil {
		m.logTimerError(err, id, "auto draw failed")
		return
	}
	if !drawn {
		return
	}
	metrics.Draws.WithLabelValues("auto").Inc()
	m.logger.Debug().Str("session_id", id).Msg("auto draw")
	m.afterDraw(s)
}

func (m *Manager) autoReveal(id string, seq int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		binding  Binding
		revealed bool
	)
	s, err := m.mutate(ctx, uuid.Nil, id, func(s *Session, now time.Time) error {
		if s.Phase != PhasePlaying || s.Turn != TurnDrawing || s.DrawSeq != seq {
			return nil
		}
		b, err := s.Reveal(now)
		if err != nil {
			return err
		}
		binding, revealed = b, true
		return nil
	})
	if err != nil {
		m.logTimerError(err, id, "auto reveal failed")
		return
	}
	if revealed {
		m.publishRevealed(s, binding)
	}
}

func (m *Manager) logTimerError(err error, id, msg string) {
	if errors.Is(err, ErrSessionNotFound) {
		return
	}
	m.logger.Warn().Err(err).Str("session_id", id).Msg(msg)
}

func (m *Manager) recordCompletion(ctx context.Context, s *Session) {
	if m.leaderboard == nil {
		return
	}
	results, err := s.Results()
	if err != nil || len(results) == 0 {
		return
	}
	if err := m.leaderboard.RecordCompletion(ctx, s.Owner.UserID, s.Owner.DisplayName, len(results)); err != nil {
		m.logger.Warn().Err(err).Str("session_id", s.ID).Msg("leaderboard update failed")
	}
}

// SpinStartedPayload is sent when a draw begins.
type SpinStartedPayload struct {
	SessionID   string `json:"session_id"`
	PlayerIndex int    `json:"player_index"`
	Spin        *Spin  `json:"spin"`
}

// RevealedPayload is sent when a drawn problem is bound to its player.
type RevealedPayload struct {
	SessionID   string          `json:"session_id"`
	PlayerIndex int             `json:"player_index"`
	Player      problem.Player  `json:"player"`
	Problem     problem.Problem `json:"problem"`
}

func (m *Manager) publishState(s *Session) {
	m.publish(s.ID, ws.TypeSessionState, s)
}

func (m *Manager) publishRevealed(s *Session, b Binding) {
	m.publish(s.ID, ws.TypeRevealed, RevealedPayload{
		SessionID:   s.ID,
		PlayerIndex: s.Cursor,
		Player:      b.Player,
		Problem:     b.Problem,
	})
}

func (m *Manager) publish(id, msgType string, payload interface{}) {
	if m.notifier == nil {
		return
	}
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		m.logger.Warn().Err(err).Str("type", msgType).Msg("encode session event failed")
		return
	}
	if err := m.notifier.Publish(id, msg); err != nil && !errors.Is(err, ws.ErrConnectionNotFound) {
		m.logger.Debug().Err(err).Str("session_id", id).Str("type", msgType).Msg("publish session event failed")
	}
}
