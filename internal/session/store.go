package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultSessionTTL = 2 * time.Hour
	defaultLockTTL    = 30 * time.Second
	lockRetryDelay    = 25 * time.Millisecond
)

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// StoreOptions configures Redis persistence. Zero values fall back to defaults.
type StoreOptions struct {
	TTL      time.Duration
	LockTTL  time.Duration
	LockWait time.Duration
}

// Store keeps sessions as JSON in Redis and serializes mutations with a per-session lock.
type Store struct {
	redis    *redis.Client
	ttl      time.Duration
	lockTTL  time.Duration
	lockWait time.Duration
	logger   zerolog.Logger
}

func NewStore(client *redis.Client, opts StoreOptions, logger zerolog.Logger) *Store {
	if opts.TTL <= 0 {
		opts.TTL = defaultSessionTTL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	return &Store{
		redis:    client,
		ttl:      opts.TTL,
		lockTTL:  opts.LockTTL,
		lockWait: opts.LockWait,
		logger:   logger.With().Str("component", "session_store").Logger(),
	}
}

func sessionKey(id string) string          { return fmt.Sprintf("session:%s", id) }
func lockKey(id string) string             { return fmt.Sprintf("session:lock:%s", id) }
func quotaLockKey(userID uuid.UUID) string { return fmt.Sprintf("quota:lock:%s", userID) }

// Lock acquires the session lock, waiting up to LockWait. Returns ErrSessionBusy when it stays held.
func (s *Store) Lock(ctx context.Context, id string) (func() error, error) {
	return s.acquire(ctx, lockKey(id))
}

// LockQuota serializes generative confirms of one user across all of their sessions.
func (s *Store) LockQuota(ctx context.Context, userID uuid.UUID) (func() error, error) {
	return s.acquire(ctx, quotaLockKey(userID))
}

func (s *Store) acquire(ctx context.Context, key string) (func() error, error) {
	value := uuid.New().String()
	deadline := time.Now().Add(s.lockWait)

	for {
		acquired, err := s.redis.SetNX(ctx, key, value, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if acquired {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, ErrSessionBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	unlock := func() error {
		// The request context may already be done; releasing must still happen.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		return unlockScript.Run(releaseCtx, s.redis, []string{key}, value).Err()
	}
	return unlock, nil
}

// Save writes the session and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Load reads a session; ErrSessionNotFound when absent or expired.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete drops a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.redis.Del(ctx, sessionKey(id)).Err()
}
