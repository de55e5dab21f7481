package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/devstudio/backoffice/internal/config"
)

func TestNopStore(t *testing.T) {
	var s IdempotencyStore = NopStore{}
	ok, err := s.Claim(context.Background(), WebhookKey("evt_1"), time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, s.Release(context.Background(), WebhookKey("evt_1")))
}

func TestWebhookKey(t *testing.T) {
	assert.Equal(t, "webhook:evt_1", WebhookKey("evt_1"))
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
