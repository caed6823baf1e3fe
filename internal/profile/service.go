package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/challenger/internal/db/sqlc"
	"github.com/gokatarajesh/challenger/internal/problem"
)

type userStore interface {
	GetByID(ctx context.Context, userID uuid.UUID) (sqlcgen.User, error)
	TouchGeneration(ctx context.Context, userID uuid.UUID, at time.Time) error
	UpdatePlan(ctx context.Context, userID uuid.UUID, plan, provider, reference string) (sqlcgen.User, error)
}

type challengeStore interface {
	Upsert(ctx context.Context, params sqlcgen.UpsertSavedChallengeParams) (sqlcgen.SavedChallenge, error)
	Delete(ctx context.Context, userID, challengeID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]sqlcgen.SavedChallenge, error)
}

type connectionStore interface {
	Add(ctx context.Context, userID, peerID uuid.UUID) error
	Remove(ctx context.Context, userID, peerID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]sqlcgen.ListConnectionsRow, error)
}

// Options configures the profile service.
type Options struct {
	QuotaWindow time.Duration
}

// Service reads and mutates user profiles: plan, quota, saved challenges and connections.
type Service struct {
	users       userStore
	challenges  challengeStore
	connections connectionStore
	window      time.Duration
	logger      zerolog.Logger
}

func NewService(users userStore, challenges challengeStore, connections connectionStore, opts Options, logger zerolog.Logger) *Service {
	window := opts.QuotaWindow
	if window <= 0 {
		window = DefaultQuotaWindow
	}
	return &Service{
		users:       users,
		challenges:  challenges,
		connections: connections,
		window:      window,
		logger:      logger.With().Str("component", "profile").Logger(),
	}
}

// QuotaWindow is the rolling window applied to free accounts.
func (s *Service) QuotaWindow() time.Duration {
	return s.window
}

// Get loads the current profile snapshot.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, mapNotFound(err, ErrUserNotFound)
	}
	return fromUser(u), nil
}

// RecordGeneration stamps the start of a generative session against the quota.
func (s *Service) RecordGeneration(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if err := s.users.TouchGeneration(ctx, userID, at); err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	return nil
}

// SetPlan switches the account plan on behalf of a billing provider.
func (s *Service) SetPlan(ctx context.Context, userID uuid.UUID, plan Plan, provider, reference string) (Profile, error) {
	u, err := s.users.UpdatePlan(ctx, userID, string(plan), provider, reference)
	if err != nil {
		return Profile{}, mapNotFound(err, ErrUserNotFound)
	}
	s.logger.Info().Str("user_id", userID.String()).Str("plan", string(plan)).Str("provider", provider).Msg("plan updated")
	return fromUser(u), nil
}

// SaveChallenge keeps a problem on the profile. Saving a title twice overwrites the earlier copy.
func (s *Service) SaveChallenge(ctx context.Context, userID uuid.UUID, p problem.Problem) (SavedChallenge, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return SavedChallenge{}, ErrInvalidChallenge
	}
	solutions := p.Solutions
	if solutions == nil {
		solutions = map[string]string{}
	}
	rawSolutions, err := json.Marshal(solutions)
	if err != nil {
		return SavedChallenge{}, fmt.Errorf("encode solutions: %w", err)
	}

	row, err := s.challenges.Upsert(ctx, sqlcgen.UpsertSavedChallengeParams{
		UserID:      pgtype.UUID{Bytes: userID, Valid: true},
		Title:       p.Title,
		Description: p.Description,
		Difficulty:  string(p.Difficulty),
		Topic:       p.Topic,
		Url:         pgtype.Text{String: p.URL, Valid: p.URL != ""},
		Solutions:   rawSolutions,
	})
	if err != nil {
		return SavedChallenge{}, fmt.Errorf("save challenge: %w", err)
	}
	return fromChallenge(row), nil
}

// RemoveChallenge deletes one saved problem.
func (s *Service) RemoveChallenge(ctx context.Context, userID, challengeID uuid.UUID) error {
	if err := s.challenges.Delete(ctx, userID, challengeID); err != nil {
		return mapNotFound(err, ErrChallengeNotFound)
	}
	return nil
}

// ListChallenges returns saved problems, newest first.
func (s *Service) ListChallenges(ctx context.Context, userID uuid.UUID) ([]SavedChallenge, error) {
	rows, err := s.challenges.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	out := make([]SavedChallenge, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromChallenge(row))
	}
	return out, nil
}

// AddConnection follows a peer. The peer must exist and differ from the user.
func (s *Service) AddConnection(ctx context.Context, userID, peerID uuid.UUID) error {
	if userID == peerID {
		return ErrSelfConnection
	}
	if _, err := s.users.GetByID(ctx, peerID); err != nil {
		return mapNotFound(err, ErrUserNotFound)
	}
	if err := s.connections.Add(ctx, userID, peerID); err != nil {
		return fmt.Errorf("add connection: %w", err)
	}
	return nil
}

// RemoveConnection unfollows a peer.
func (s *Service) RemoveConnection(ctx context.Context, userID, peerID uuid.UUID) error {
	if err := s.connections.Remove(ctx, userID, peerID); err != nil {
		return mapNotFound(err, ErrConnectionNotFound)
	}
	return nil
}

// ListConnections returns followed peers in the order they were added.
func (s *Service) ListConnections(ctx context.Context, userID uuid.UUID) ([]Connection, error) {
	rows, err := s.connections.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	out := make([]Connection, 0, len(rows))
	for _, row := range rows {
		out = append(out, Connection{
			PeerID:      uuid.UUID(row.PeerID.Bytes),
			DisplayName: row.DisplayName,
			Since:       row.CreatedAt.Time,
		})
	}
	return out, nil
}

func mapNotFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}

func fromUser(u sqlcgen.User) Profile {
	p := Profile{
		UserID:      uuid.UUID(u.UserID.Bytes),
		DisplayName: u.DisplayName,
		Plan:        ParsePlan(u.Plan),
	}
	if u.Email.Valid {
		p.Email = u.Email.String
	}
	if u.PlanProvider.Valid {
		p.PlanProvider = u.PlanProvider.String
	}
	if u.LastGeneratedAt.Valid {
		at := u.LastGeneratedAt.Time
		p.LastGeneratedAt = &at
	}
	return p
}

func fromChallenge(row sqlcgen.SavedChallenge) SavedChallenge {
	p := problem.Problem{
		Title:       row.Title,
		Description: row.Description,
		Difficulty:  problem.Tier(row.Difficulty),
		Topic:       row.Topic,
	}
	if row.Url.Valid {
		p.URL = row.Url.String
	}
	if len(row.Solutions) > 0 {
		var solutions map[string]string
		if err := json.Unmarshal(row.Solutions, &solutions); err == nil && len(solutions) > 0 {
			p.Solutions = solutions
		}
	}
	return SavedChallenge{
		ID:      uuid.UUID(row.ChallengeID.Bytes),
		Problem: p,
		SavedAt: row.CreatedAt.Time,
	}
}
