package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/SDB-Intelligence/internal/config"
)

// validConfig returns a Config that passes Validate() with all defaults applied.
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Database.User = "sdb"
	cfg.Database.Password = "secret"
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(c *config.Config)
		wantKey string
	}{
		{"server port", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"server mode", func(c *config.Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"half basic auth", func(c *config.Config) { c.Server.BasicAuthUser = "cm" }, "basic_auth"},
		{"database host", func(c *config.Config) { c.Database.Host = "" }, "database.host"},
		{"database name", func(c *config.Config) { c.Database.DBName = "" }, "database.db_name"},
		{"max conns", func(c *config.Config) { c.Database.MaxConns = 0 }, "database.max_conns"},
		{"redis addr", func(c *config.Config) { c.Redis.Addr = "" }, "redis.addr"},
		{"kafka brokers", func(c *config.Config) { c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"request topic", func(c *config.Config) { c.Kafka.RequestTopic = "" }, "kafka.request_topic"},
		{"worker concurrency", func(c *config.Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
		{"reference max age", func(c *config.Config) { c.Reference.MaxAge = -time.Hour }, "reference.max_age"},
		{"reference entry cap", func(c *config.Config) { c.Reference.MaxEntryBytes = -1 }, "reference.max_entry_bytes"},
		{"decimal separator", func(c *config.Config) { c.Extraction.DecimalSeparator = ",," }, "decimal_separator"},
		{"log level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "text" }, "log.format"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantKey)
		})
	}
}

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	assert.Equal(t, config.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, config.DefaultRequestTopic, cfg.Kafka.RequestTopic)
	assert.Equal(t, config.DefaultReferenceMaxAge, cfg.Reference.MaxAge)
	assert.Equal(t, config.DefaultReferenceMaxEntryBytes, cfg.Reference.MaxEntryBytes)
	assert.Equal(t, ",", cfg.Extraction.DecimalSeparator)
	assert.Equal(t, "~ca. <>E", cfg.Extraction.StripChars)
	assert.Equal(t, cfg.Worker.Concurrency*4, cfg.Worker.QueueDepth)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Server.Port = 9999
	cfg.Extraction.DecimalSeparator = "."
	config.ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, ".", cfg.Extraction.DecimalSeparator)
}

func TestApplyDefaults_NilIsNoop(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { config.ApplyDefaults(nil) })
}

//Personal.AI order the ending
