package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-engine/internal/common/config"
)

func TestRedisClient_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	addr := mr.Addr()
	c := NewRedis(config.RedisConfig{Address: addr, PoolSize: 4, DialTimeout: 1000, IOTimeout: 1000})
	defer c.Close()

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, 4, c.Client.Options().PoolSize)
	assert.Equal(t, 1, c.Client.Options().MinIdleConns)

	mr.Close()
	err = c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}

func TestNewPostgres_AppliesPoolSettings(t *testing.T) {
	c, err := NewPostgres(config.PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		Database:        "action_engine",
		User:            "engine",
		MaxConnections:  7,
		MaxIdle:         2,
		ConnMaxLifetime: 60000,
		SSLMode:         "disable",
	})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 7, c.DB.Stats().MaxOpenConnections)
}
