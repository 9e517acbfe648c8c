package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "RIGS"

type AppConfig struct {
	v *viper.Viper
}

func NewAppConfig() *AppConfig {
	c := &AppConfig{v: viper.New()}

	setDefaults(c.v)

	return c
}

// Load merges the given yaml files in order. It reports whether any file was read.
func (c *AppConfig) Load(filename ...string) bool {
	loaded := false

	for _, name := range filename {
		c.v.SetConfigFile(name)

		if err := c.v.MergeInConfig(); err != nil {
			slog.Info(fmt.Sprintf("error loading config: %s", err.Error()))
		} else {
			loaded = true
		}
	}

	return loaded
}

// LoadEnv maps RIGS_DB_DSN to db.dsn and so on.
func (c *AppConfig) LoadEnv() {
	c.v.SetEnvPrefix(EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()
}

func (c *AppConfig) Bool(key string) bool {
	return c.v.GetBool(key)
}

func (c *AppConfig) String(key string) string {
	return c.v.GetString(key)
}

func (c *AppConfig) Int(key string) int {
	return c.v.GetInt(key)
}

func (c *AppConfig) Set(key string, v any) {
	c.v.Set(key, v)
}

func (c *AppConfig) APIAddr() string {
	return c.v.GetString("api_addr")
}

func (c *AppConfig) DBDriver() string {
	return c.v.GetString("db.driver")
}

func (c *AppConfig) DBDsn() string {
	return c.v.GetString("db.dsn")
}

// Parent is the identity allowed to open, close and correct sessions.
func (c *AppConfig) Parent() string {
	return c.v.GetString("parent")
}

func (c *AppConfig) IdentitiesSource() string {
	return c.v.GetString("identities.source")
}

func (c *AppConfig) IdentitiesFile() string {
	return c.v.GetString("identities.file")
}

func (c *AppConfig) Clock() string {
	return c.v.GetString("clock")
}

func (c *AppConfig) JWTSecret() string {
	return c.v.GetString("jwt.secret")
}

func (c *AppConfig) JWTTTL() time.Duration {
	return c.v.GetDuration("jwt.ttl")
}

func (c *AppConfig) JWTIssuer() string {
	return c.v.GetString("jwt.issuer")
}

func (c *AppConfig) LogLevel() slog.Level {
	var l slog.Level

	if err := l.UnmarshalText([]byte(c.v.GetString("log.level"))); err != nil {
		return slog.LevelInfo
	}

	return l
}

func (c *AppConfig) LogJSON() bool {
	return c.v.GetBool("log.json")
}

func (c *AppConfig) Validate() error {
	switch c.DBDriver() {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown db driver %q", c.DBDriver())
	}

	switch c.IdentitiesSource() {
	case "file", "db":
	default:
		return fmt.Errorf("unknown identities source %q", c.IdentitiesSource())
	}

	if c.Parent() == "" {
		return fmt.Errorf("parent identity is not set")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_addr", ":8080")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "rigs.sqlite")
	v.SetDefault("parent", "rigs")
	v.SetDefault("identities.source", "file")
	v.SetDefault("identities.file", "identities.yml")
	v.SetDefault("clock", "wall")
	v.SetDefault("jwt.ttl", time.Hour*24)
	v.SetDefault("jwt.issuer", "rigs")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}
