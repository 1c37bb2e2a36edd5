package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient("redis://"+mr.Addr(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		expectError bool
	}{
		{
			name:        "Invalid URL",
			url:         "invalid://url",
			expectError: true,
		},
		{
			name:        "Empty URL",
			url:         "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "test")
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, client)
			}
		})
	}

	t.Run("Valid miniredis URL", func(t *testing.T) {
		_, client := setupTestRedis(t)
		assert.NotNil(t, client.KeyBuilder)
	})
}

func TestClient_SetGetDelete(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	key := client.KeyBuilder.KeyLeaderboard("g1")
	require.NoError(t, client.Set(ctx, key, "payload", time.Minute))

	val, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "payload", val)

	require.NoError(t, client.Delete(ctx, key))

	_, err = client.Get(ctx, key)
	assert.True(t, IsNil(err))
}

func TestClient_Exists(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	n, err := client.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, client.Set(ctx, "present", "1", time.Minute))
	n, err = client.Exists(ctx, "present")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestClient_PublishSubscribe(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	channel := client.KeyBuilder.KeyEventsChannel("g1")
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription to be established before publishing.
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, channel, `{"type":"leaderboard-update"}`))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, channel, msg.Channel)
		assert.Equal(t, `{"type":"leaderboard-update"}`, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}
