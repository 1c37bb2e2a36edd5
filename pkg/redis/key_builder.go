package redis

import "fmt"

// Key patterns, always used through the KeyBuilder so staging and prod
// deployments sharing a Redis instance never collide.
const (
	keyLeaderboard   = "game:%s:leaderboard"
	keyGameSnapshot  = "game:%s:snapshot"
	keyEventsChannel = "game:%s:events"
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = "staging"
	}
	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyLeaderboard is the cached ranked-team projection for a game.
func (kb *KeyBuilder) KeyLeaderboard(gameID string) string {
	return kb.BuildKey(fmt.Sprintf(keyLeaderboard, gameID))
}

// KeyGameSnapshot is the cached full game document for a game.
func (kb *KeyBuilder) KeyGameSnapshot(gameID string) string {
	return kb.BuildKey(fmt.Sprintf(keyGameSnapshot, gameID))
}

// KeyEventsChannel is the pub/sub channel carrying broadcast events
// scoped to one game.
func (kb *KeyBuilder) KeyEventsChannel(gameID string) string {
	return kb.BuildKey(fmt.Sprintf(keyEventsChannel, gameID))
}

// PatternEventsChannels matches the event channels of every game in
// this environment; used by the websocket hub's bridge subscriber.
func (kb *KeyBuilder) PatternEventsChannels() string {
	return kb.BuildKey("game:*:events")
}
