package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Supported leaderboard windows.
const (
	WindowDaily   = "daily"
	WindowWeekly  = "weekly"
	WindowAllTime = "all_time"
)

var defaultWindows = []string{WindowDaily, WindowWeekly, WindowAllTime}

var ErrUnknownWindow = errors.New("unknown leaderboard window")

// Entry represents a leaderboard record sent to clients.
type Entry struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Score       int       `json:"score"`
	Sessions    int       `json:"sessions"`
}

// Update is published on the Pub/Sub channel once a completion is credited.
// Standings holds the current top entries of every window, keyed by window name.
type Update struct {
	UserID     uuid.UUID          `json:"user_id"`
	Points     int                `json:"points"`
	RecordedAt time.Time          `json:"recorded_at"`
	Standings  map[string][]Entry `json:"standings"`
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN           int
	PubSubChannel  string
	RedisKeyPrefix string
	// PublishTop is how many entries each update message carries.
	PublishTop int
}

// Service keeps per-window sorted sets of solved problems and emits updates over Pub/Sub.
type Service struct {
	redis         *redis.Client
	logger        zerolog.Logger
	topN          int
	publishTop    int
	pubsubChannel string
	prefix        string
	now           func() time.Time
}

// NewService constructs a leaderboard service instance.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = "lb:updates"
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}
	publishTop := opts.PublishTop
	if publishTop <= 0 {
		publishTop = 10
	}

	return &Service{
		redis:         redis,
		logger:        logger.With().Str("component", "leaderboard").Logger(),
		topN:          topN,
		publishTop:    publishTop,
		pubsubChannel: channel,
		prefix:        prefix,
		now:           time.Now,
	}
}

// ValidWindow reports whether window names a supported leaderboard.
func ValidWindow(window string) bool {
	switch window {
	case WindowDaily, WindowWeekly, WindowAllTime:
		return true
	default:
		return false
	}
}

// RecordCompletion credits a finished session to every window.
func (s *Service) RecordCompletion(ctx context.Context, userID uuid.UUID, displayName string, points int) error {
	if points <= 0 {
		return nil
	}

	now := s.now().UTC()
	pipe := s.redis.TxPipeline()
	for _, window := range defaultWindows {
		zKey, ttl := s.leaderboardKey(window, now)
		metaKey := s.metaKey(zKey, userID)

		pipe.ZIncrBy(ctx, zKey, float64(points), userID.String())
		pipe.HIncrBy(ctx, metaKey, "sessions", 1)
		pipe.HSet(ctx, metaKey, "display_name", displayName)
		if ttl > 0 {
			pipe.Expire(ctx, zKey, ttl)
			pipe.Expire(ctx, metaKey, ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	s.publishUpdate(ctx, userID, points, now)
	return nil
}

// Top retrieves the leading entries of the current period for a window.
func (s *Service) Top(ctx context.Context, window string, limit int) ([]Entry, error) {
	if !ValidWindow(window) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWindow, window)
	}
	return s.top(ctx, window, limit, s.now().UTC())
}

func (s *Service) top(ctx context.Context, window string, limit int, now time.Time) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	zKey, _ := s.leaderboardKey(window, now)
	results, err := s.redis.ZRevRangeWithScores(ctx, zKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		member, _ := z.Member.(string)
		userID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Warn().Str("member", member).Msg("skipping malformed leaderboard member")
			continue
		}
		meta, err := s.redis.HGetAll(ctx, s.metaKey(zKey, userID)).Result()
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard metadata")
			continue
		}
		entries = append(entries, Entry{
			UserID:      userID,
			DisplayName: meta["display_name"],
			Score:       int(z.Score),
			Sessions:    parseInt(meta["sessions"]),
		})
	}
	return entries, nil
}

func (s *Service) publishUpdate(ctx context.Context, userID uuid.UUID, points int, now time.Time) {
	update := Update{
		UserID:     userID,
		Points:     points,
		RecordedAt: now,
		Standings:  make(map[string][]Entry, len(defaultWindows)),
	}
	for _, window := range defaultWindows {
		entries, err := s.top(ctx, window, s.publishTop, now)
		if err != nil {
			s.logger.Warn().Err(err).Str("window", window).Msg("failed to collect leaderboard standings")
			continue
		}
		update.Standings[window] = entries
	}
	if len(update.Standings) == 0 {
		return
	}

	data, err := json.Marshal(update)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.redis.Publish(ctx, s.pubsubChannel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}

// leaderboardKey names the sorted set for the period containing now, with the TTL that outlives it.
func (s *Service) leaderboardKey(window string, now time.Time) (string, time.Duration) {
	switch window {
	case WindowDaily:
		return fmt.Sprintf("%s:%s:%s", s.prefix, window, now.Format(time.DateOnly)), 48 * time.Hour
	case WindowWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%s:%s:%d-W%02d", s.prefix, window, year, week), 14 * 24 * time.Hour
	default:
		return fmt.Sprintf("%s:%s", s.prefix, window), 0
	}
}

func (s *Service) metaKey(zKey string, userID uuid.UUID) string {
	return fmt.Sprintf("%s:meta:%s", zKey, userID.String())
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
