package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := NewAppConfig()

	assert.Equal(t, ":8080", c.APIAddr())
	assert.Equal(t, "sqlite", c.DBDriver())
	assert.Equal(t, "file", c.IdentitiesSource())
	assert.Equal(t, time.Hour*24, c.JWTTTL())
	assert.Equal(t, slog.LevelInfo, c.LogLevel())
	require.NoError(t, c.Validate())
}

func TestLoadFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "rigs.yml")

	require.NoError(t, os.WriteFile(name, []byte("---\nparent: pilots-contract\ndb:\n    driver: postgres\njwt:\n    ttl: 10m\nlog:\n    level: debug\n"), 0o600))

	c := NewAppConfig()
	assert.True(t, c.Load(name))
	assert.False(t, c.Load(filepath.Join(t.TempDir(), "missing.yml")))

	assert.Equal(t, "pilots-contract", c.Parent())
	assert.Equal(t, "postgres", c.DBDriver())
	assert.Equal(t, "rigs.sqlite", c.DBDsn())
	assert.Equal(t, time.Minute*10, c.JWTTTL())
	assert.Equal(t, slog.LevelDebug, c.LogLevel())
}

func TestEnv(t *testing.T) {
	t.Setenv("RIGS_DB_DSN", "host=db user=rigs")
	t.Setenv("RIGS_PARENT", "env-parent")

	c := NewAppConfig()
	c.LoadEnv()

	assert.Equal(t, "host=db user=rigs", c.DBDsn())
	assert.Equal(t, "env-parent", c.Parent())
}

func TestValidate(t *testing.T) {
	c := NewAppConfig()

	c.Set("db.driver", "mysql")
	require.Error(t, c.Validate())

	c.Set("db.driver", "sqlite")
	c.Set("identities.source", "ldap")
	require.Error(t, c.Validate())

	c.Set("identities.source", "db")
	c.Set("parent", "")
	require.Error(t, c.Validate())
}
