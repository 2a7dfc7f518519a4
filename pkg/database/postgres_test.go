package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

func TestPoolConfig(t *testing.T) {
	pc, err := poolConfig(&config.DatabaseConfig{
		Host:           "db.internal",
		Port:           5433,
		User:           "ekaya",
		Password:       "p@ss/word",
		Database:       "ekaya_lakehouse",
		SSLMode:        "require",
		MaxConnections: 7,
	})
	require.NoError(t, err)

	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.EqualValues(t, 5433, pc.ConnConfig.Port)
	assert.Equal(t, "p@ss/word", pc.ConnConfig.Password)
	assert.EqualValues(t, 7, pc.MaxConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, "ekaya-lakehouse", pc.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_KeepsDriverDefaultWhenUnset(t *testing.T) {
	pc, err := poolConfig(&config.DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Database: "d", SSLMode: "disable"})
	require.NoError(t, err)
	assert.Positive(t, pc.MaxConns)
}
