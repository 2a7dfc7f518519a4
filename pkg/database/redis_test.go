package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

func TestNewRedisClient_NotConfigured(t *testing.T) {
	client, err := NewRedisClient(context.Background(), &config.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisClient_UnreachableFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Port 1 on loopback refuses connections immediately.
	client, err := NewRedisClient(ctx, &config.RedisConfig{Host: "127.0.0.1", Port: 1}, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
