package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollbooth/internal/platform/config"
)

func TestNewWithoutURLIsDisabled(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "://nope"})
	assert.Error(t, err)
}

func TestApplyOverridesKeepsURLDefaults(t *testing.T) {
	opts, err := redis.ParseURL("redis://cache:6379/1?pool_size=20")
	require.NoError(t, err)

	applyOverrides(opts, config.RedisConfig{ReadTimeout: time.Second})

	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, time.Second, opts.ReadTimeout)
	assert.Equal(t, 1, opts.DB)
}
