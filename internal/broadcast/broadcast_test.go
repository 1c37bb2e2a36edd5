package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinetrivia/pkg/logger"
	"cinetrivia/pkg/redis"
)

func setupGateway(t *testing.T) (*RedisGateway, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient(fmt.Sprintf("redis://%s", mr.Addr()), "test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	log, err := logger.New("error", "test")
	require.NoError(t, err)

	return NewRedisGateway(client, log), client
}

func TestRedisGateway_Publish(t *testing.T) {
	gateway, client := setupGateway(t)
	ctx := context.Background()

	channel := client.KeyBuilder.KeyEventsChannel("game-1")
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	err = gateway.Publish(ctx, Event{
		Type:    EventLeaderboardUpdate,
		GameID:  "game-1",
		Payload: []int{3, 1, 2},
	})
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, EventLeaderboardUpdate, event.Type)
		assert.Equal(t, "game-1", event.GameID)
		assert.False(t, event.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast event")
	}
}

func TestRedisGateway_ChannelIsolation(t *testing.T) {
	gateway, client := setupGateway(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, client.KeyBuilder.KeyEventsChannel("game-other"))
	defer sub.Close()

	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	err = gateway.Publish(ctx, Event{Type: EventGameStateUpdate, GameID: "game-1"})
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		t.Fatalf("received event on an unrelated game channel: %s", msg.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRedisGateway_SnapshotCache(t *testing.T) {
	gateway, _ := setupGateway(t)
	ctx := context.Background()

	// Only game-state events are cached.
	require.NoError(t, gateway.Publish(ctx, Event{Type: EventLeaderboardUpdate, GameID: "game-1"}))
	_, ok := gateway.Snapshot(ctx, "game-1")
	assert.False(t, ok)

	require.NoError(t, gateway.Publish(ctx, Event{
		Type:    EventGameStateUpdate,
		GameID:  "game-1",
		Payload: map[string]string{"status": "live"},
	}))

	payload, ok := gateway.Snapshot(ctx, "game-1")
	require.True(t, ok)

	var event Event
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, EventGameStateUpdate, event.Type)
	assert.Equal(t, "game-1", event.GameID)

	// Snapshots stay per game.
	_, ok = gateway.Snapshot(ctx, "game-other")
	assert.False(t, ok)
}

func TestNoopGateway(t *testing.T) {
	err := NoopGateway{}.Publish(context.Background(), Event{Type: EventGameStateUpdate, GameID: "g"})
	assert.NoError(t, err)
}
