// Package config provides configuration loading, defaults, and validation for
// the SDB-Intelligence binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "SDB"

// newViper builds a pre-configured Viper instance: YAML file type, SDB_ env
// prefix, automatic env binding, and a key replacer that maps "." → "_" so
// that nested keys like "database.host" resolve to "SDB_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys(v)
	return v
}

// bindEnvKeys registers every known key so that AutomaticEnv can populate
// fields that are absent from the config file.  Viper only consults the
// environment for keys it already knows about during Unmarshal.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.mode", "server.basic_auth_user", "server.basic_auth_password", "server.token_secret",
		"server.cors_origins", "server.rate_limit", "server.rate_burst",
		"database.host", "database.port", "database.user", "database.password", "database.db_name",
		"database.ssl_mode", "database.max_conns", "database.auto_migrate", "database.migration_path",
		"redis.addr", "redis.password", "redis.db", "redis.key_prefix",
		"kafka.brokers", "kafka.group_id", "kafka.request_topic", "kafka.result_topic", "kafka.enable_dlq",
		"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.use_ssl", "minio.result_link_expiry",
		"worker.concurrency", "worker.max_retries", "worker.health_port",
		"reference.source_url", "reference.max_age", "reference.refresh_cron", "reference.max_entry_bytes",
		"extraction.decimal_separator", "extraction.strip_chars", "extraction.cache_ttl",
		"log.level", "log.format",
		"metrics.enabled", "metrics.namespace",
	} {
		_ = v.BindEnv(key)
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set.  Missing
// files are ignored so that production containers need no .env at all.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !isNotExist(err) {
			return fmt.Errorf("config: failed to load %s: %w", f, err)
		}
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Load reads the YAML file at configPath, merges any SDB_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from SDB_* environment variables,
// with no config file required.
//
// Environment variable naming convention:
//
//	SDB_<SECTION>_<FIELD>   e.g.  SDB_DATABASE_HOST, SDB_KAFKA_BROKERS
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrEnv loads configPath when it is non-empty and falls back to
// LoadFromEnv otherwise.
func LoadOrEnv(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  Only settings that are
// safe to change at runtime (log level, reference refresh schedule) should be
// applied by the callback.
//
// A change that fails to parse or validate is reported through onError (when
// non-nil) and onChange is not called.
func Watch(configPath string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers are expected to have called Load already.
	_ = v.ReadInConfig()

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("config: reload of %s rejected: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad is a convenience wrapper around Load that panics on any error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
