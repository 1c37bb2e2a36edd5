// Package broadcast fans game state changes out to live viewers.
// Events flow through Redis pub/sub so every API instance sees
// mutations performed on any other instance; the websocket hub bridges
// the channels to connected sockets.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cinetrivia/pkg/logger"
	"cinetrivia/pkg/redis"
)

// Event types pushed to subscribers.
const (
	EventLeaderboardUpdate = "leaderboard-update"
	EventGameStateUpdate   = "game-state-update"
)

// Event is one broadcast message scoped to a game. Payload carries the
// full replacement state for the event type, never a delta.
type Event struct {
	Type    string      `json:"type"`
	GameID  string      `json:"gameId"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// Gateway publishes events to whatever transport carries them to
// viewers. Publishing is best effort: the mutation that triggered the
// event has already committed, so failures are logged and swallowed by
// callers rather than rolled back.
type Gateway interface {
	Publish(ctx context.Context, event Event) error
}

// RedisGateway publishes events on per-game Redis channels. The latest
// game-state event is also cached per game so viewers connecting
// mid-session receive the current state without waiting for the next
// mutation.
type RedisGateway struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisGateway(client *redis.Client, log *logger.Logger) *RedisGateway {
	return &RedisGateway{client: client, log: log}
}

func (g *RedisGateway) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	channel := g.client.KeyBuilder.KeyEventsChannel(event.GameID)
	if err := g.client.Publish(ctx, channel, encoded); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if event.Type == EventGameStateUpdate {
		key := g.client.KeyBuilder.KeyGameSnapshot(event.GameID)
		if err := g.client.Set(ctx, key, encoded, redis.TTLGameSnapshot); err != nil {
			g.log.WithError(err).WithField("game_id", event.GameID).Warn("Failed to cache game snapshot")
		}
	}

	g.log.WithFields(map[string]interface{}{
		"event":   event.Type,
		"game_id": event.GameID,
	}).Debug("Broadcast event published")
	return nil
}

// Snapshot returns the last cached game-state event payload for a
// game, or false when none is cached.
func (g *RedisGateway) Snapshot(ctx context.Context, gameID string) ([]byte, bool) {
	key := g.client.KeyBuilder.KeyGameSnapshot(gameID)
	cached, err := g.client.Get(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			g.log.WithError(err).Warn("Game snapshot read failed")
		}
		return nil, false
	}
	return []byte(cached), true
}

// NoopGateway discards events. Used when Redis is not configured, for
// example in single-instance development mode.
type NoopGateway struct{}

func (NoopGateway) Publish(ctx context.Context, event Event) error {
	return nil
}
