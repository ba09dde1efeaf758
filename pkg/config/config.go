// Package config loads lotcom settings from an optional file and LOTCOM_ environment variables.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. LOTCOM_LEDGER_DIR
const EnvPrefix = "LOTCOM"

// Backend names
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

type Config struct {
	LogLevel   string `mapstructure:"log_level"`
	PrettyLogs bool   `mapstructure:"pretty_logs"`
	// MetricsFile receives the Prometheus text exposition after each command, for a
	// node_exporter textfile collector. Empty disables it.
	MetricsFile string        `mapstructure:"metrics_file"`
	Ledger      LedgerConfig  `mapstructure:"ledger"`
	Lock        LockConfig    `mapstructure:"lock"`
	Lineage     LineageConfig `mapstructure:"lineage"`
	Cache       CacheConfig   `mapstructure:"cache"`
	Data        DataConfig    `mapstructure:"data"`
}

type LedgerConfig struct {
	Backend   string        `mapstructure:"backend"`
	Dir       string        `mapstructure:"dir"`
	JBKFile   string        `mapstructure:"jbk_file"`
	LotFile   string        `mapstructure:"lot_file"`
	BadgerDir string        `mapstructure:"badger_dir"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// JBKPath returns the JBK ledger file location
func (c LedgerConfig) JBKPath() string {
	return filepath.Join(c.Dir, c.JBKFile)
}

// LotPath returns the Lot ledger file location
func (c LedgerConfig) LotPath() string {
	return filepath.Join(c.Dir, c.LotFile)
}

type LockConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
	WaitTimeout   time.Duration `mapstructure:"wait_timeout"`
}

type LineageConfig struct {
	WindowDays int `mapstructure:"window_days"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type DataConfig struct {
	ProcessesFile string `mapstructure:"processes_file"`
	PartsFile     string `mapstructure:"parts_file"`
	EventsFile    string `mapstructure:"events_file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("pretty_logs", false)
	v.SetDefault("metrics_file", "")

	v.SetDefault("ledger.backend", BackendFile)
	v.SetDefault("ledger.dir", "./ledger")
	v.SetDefault("ledger.jbk_file", "jbk_queues.json")
	v.SetDefault("ledger.lot_file", "lot_queues.json")
	v.SetDefault("ledger.badger_dir", "./ledger/badger")
	v.SetDefault("ledger.timeout", 5*time.Second)

	v.SetDefault("lock.backend", BackendFile)
	v.SetDefault("lock.redis_addr", "localhost:6379")
	v.SetDefault("lock.redis_password", "")
	v.SetDefault("lock.redis_db", 0)
	v.SetDefault("lock.key_prefix", "lotcom:lock:")
	v.SetDefault("lock.ttl", 10*time.Second)
	v.SetDefault("lock.wait_timeout", 5*time.Second)

	v.SetDefault("lineage.window_days", 60)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("data.processes_file", "data/processes.csv")
	v.SetDefault("data.parts_file", "data/parts.csv")
	v.SetDefault("data.events_file", "data/events.csv")
}

// Load reads path (YAML, TOML or JSON by extension) when given, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and non-positive limits
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendFile:
		if c.Ledger.Dir == "" || c.Ledger.JBKFile == "" || c.Ledger.LotFile == "" {
			return errors.New("file ledger requires ledger.dir, ledger.jbk_file and ledger.lot_file")
		}
	case BackendBadger:
		if c.Ledger.BadgerDir == "" {
			return errors.New("badger ledger requires ledger.badger_dir")
		}
	default:
		return errors.Errorf("unknown ledger backend %q (expected file or badger)", c.Ledger.Backend)
	}

	switch c.Lock.Backend {
	case BackendFile:
	case BackendRedis:
		if c.Lock.RedisAddr == "" {
			return errors.New("redis lock requires lock.redis_addr")
		}
		if c.Lock.TTL <= 0 {
			return errors.Errorf("lock.ttl must be positive, got %s", c.Lock.TTL)
		}
	default:
		return errors.Errorf("unknown lock backend %q (expected file or redis)", c.Lock.Backend)
	}

	if c.Ledger.Timeout <= 0 {
		return errors.Errorf("ledger.timeout must be positive, got %s", c.Ledger.Timeout)
	}
	if c.Lock.WaitTimeout <= 0 {
		return errors.Errorf("lock.wait_timeout must be positive, got %s", c.Lock.WaitTimeout)
	}
	if c.Lineage.WindowDays <= 0 {
		return errors.Errorf("lineage.window_days must be positive, got %d", c.Lineage.WindowDays)
	}
	if c.Cache.TTL <= 0 {
		return errors.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}
