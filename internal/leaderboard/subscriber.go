package leaderboard

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/challenger/pkg/http/ws"
)

// Broadcaster turns leaderboard Updates from Pub/Sub into one WebSocket message per window.
// Every API instance runs one, so all connected clients see credits made on any instance.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

func NewBroadcaster(client *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = "lb:updates"
	}
	return &Broadcaster{
		redis:   client,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "leaderboard_broadcaster").Logger(),
	}
}

// Run consumes the update channel until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	updates := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-updates:
			if !ok {
				return nil
			}
			b.handle(msg.Payload)
		}
	}
}

func (b *Broadcaster) handle(raw string) {
	var update Update
	if err := json.Unmarshal([]byte(raw), &update); err != nil {
		b.logger.Warn().Err(err).Msg("dropping undecodable leaderboard update")
		return
	}

	sent := 0
	for _, window := range defaultWindows {
		entries, ok := update.Standings[window]
		if !ok {
			continue
		}
		msg, err := ws.NewMessage(ws.TypeLeaderboardUpdate, ws.LeaderboardUpdatePayload{
			Window: window,
			Top:    toWSEntries(entries),
		})
		if err != nil {
			b.logger.Warn().Err(err).Str("window", window).Msg("failed to encode leaderboard message")
			continue
		}
		if err := b.hub.BroadcastAll(msg); err != nil {
			b.logger.Warn().Err(err).Str("window", window).Msg("failed to broadcast leaderboard update")
			continue
		}
		sent++
	}
	if sent == 0 {
		b.logger.Debug().Str("user_id", update.UserID.String()).Msg("leaderboard update carried no known window")
	}
}
