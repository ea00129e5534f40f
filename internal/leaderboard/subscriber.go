package leaderboard

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/quizforge/pkg/http/ws"
)

// Room is the hub room following a topic board.
func Room(topic string) string {
	return "leaderboard:" + TopicKey(topic)
}

// Broadcaster listens for Redis Pub/Sub leaderboard updates and forwards them
// to the hub room of the updated topic.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

// NewBroadcaster creates a Pub/Sub powered leaderboard broadcaster.
func NewBroadcaster(redis *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = "lb:updates"
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "leaderboard_broadcaster").Logger(),
	}
}

// Run subscribes to the update channel and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var update Update
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode leaderboard update payload")
		return
	}

	room := Room(update.Topic)
	if b.hub.RoomSize(room) == 0 {
		return
	}

	msg, err := ws.NewMessage(ws.TypeLeaderboardUpdate, ws.LeaderboardUpdatePayload{
		Topic:     update.Topic,
		Window:    update.Window,
		Top:       toWSEntries(update.Top),
		SessionID: update.SessionID,
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal leaderboard WS payload")
		return
	}
	if err := b.hub.BroadcastToRoom(room, msg); err != nil {
		b.logger.Warn().Err(err).Str("topic", update.Topic).Msg("failed to broadcast leaderboard update")
	}
}

func toWSEntries(entries []Entry) []ws.LeaderboardEntry {
	out := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		out[i] = ws.LeaderboardEntry{
			Rank:      e.Rank,
			UserID:    e.UserID,
			Points:    e.Points,
			Games:     e.Games,
			Correct:   e.Correct,
			Questions: e.Questions,
			Accuracy:  e.Accuracy,
		}
	}
	return out
}
