package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultPath is where LoadAndWatch looks when no explicit file is given.
const DefaultPath = "./configs/config.yaml"

// EnvPrefix prefixes every environment override, e.g. LOGWISE_GEMINI_API_KEY.
const EnvPrefix = "LOGWISE"

// Config holds all the configuration for the library and the logwise binary.
// The structure tags (mapstructure) tell Viper which YAML field maps to which Go struct field.
type Config struct {
	Logging   LoggingConfig      `mapstructure:"logging"`
	Gemini    GeminiConfig       `mapstructure:"gemini"`
	Cache     CacheConfig        `mapstructure:"cache"`
	Redis     RedisConfig        `mapstructure:"redis"`
	Breaker   BreakerConfig      `mapstructure:"breaker"`
	RateLimit RateLimitConfig    `mapstructure:"ratelimit"`
	Metrics   MetricsConfig      `mapstructure:"metrics"`
	Server    ServerConfig       `mapstructure:"server"`
	Models    map[string]float64 `mapstructure:"models"`
}

type LoggingConfig struct {
	// Level is the sink threshold: DEBUG, INFO, WARNING, ERROR or CRITICAL.
	Level string `mapstructure:"level"`
	// Name is the logger name rendered in every line.
	Name string `mapstructure:"name"`
	// Framework tags prompts with the host framework ("generic", "net/http", ...).
	Framework string `mapstructure:"framework"`
}

type GeminiConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	// Timeout of zero leaves the transport default (no deadline).
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	// Backend is "memory" (default) or "redis".
	Backend string `mapstructure:"backend"`
	// CacheErrors stores failed-call strings like successful recommendations.
	CacheErrors bool `mapstructure:"cache_errors"`
	// DedupeInflight collapses concurrent misses on the same key into one call.
	DedupeInflight bool   `mapstructure:"dedupe_inflight"`
	KeyPrefix      string `mapstructure:"key_prefix"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Backend is "local" (default) or "redis".
	Backend string  `mapstructure:"backend"`
	RPS     float64 `mapstructure:"requests_per_second"`
	Burst   int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	// CountTokens enables tiktoken prompt accounting. It may download BPE tables on first use.
	CountTokens bool   `mapstructure:"count_tokens"`
	TokenModel  string `mapstructure:"token_model"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// RPS throttles the demo's error route; zero disables the limit.
	RPS   float64 `mapstructure:"requests_per_second"`
	Burst int     `mapstructure:"burst"`
}

// Default returns the configuration used when no file or env override is present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "INFO",
			Name:      "LogWise",
			Framework: "generic",
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta/models",
			Model:   "gemini-1.5-flash",
		},
		Cache: CacheConfig{
			Backend:        "memory",
			CacheErrors:    true,
			DedupeInflight: true,
			KeyPrefix:      "logwise:rec:",
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Breaker: BreakerConfig{
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Backend: "local",
			RPS:     1,
			Burst:   1,
		},
		Metrics: MetricsConfig{
			TokenModel: "gpt-4",
		},
		Server: ServerConfig{
			Addr:  ":5000",
			RPS:   2,
			Burst: 5,
		},
		Models: map[string]float64{},
	}
}

// setDefaults registers every default on v so env overrides resolve without a file.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.name", d.Logging.Name)
	v.SetDefault("logging.framework", d.Logging.Framework)

	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.api_key", d.Gemini.APIKey)
	v.SetDefault("gemini.timeout", d.Gemini.Timeout)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.cache_errors", d.Cache.CacheErrors)
	v.SetDefault("cache.dedupe_inflight", d.Cache.DedupeInflight)
	v.SetDefault("cache.key_prefix", d.Cache.KeyPrefix)

	v.SetDefault("redis.address", d.Redis.Address)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)

	v.SetDefault("breaker.enabled", d.Breaker.Enabled)
	v.SetDefault("breaker.consecutive_failures", d.Breaker.ConsecutiveFailures)
	v.SetDefault("breaker.open_timeout", d.Breaker.OpenTimeout)

	v.SetDefault("ratelimit.enabled", d.RateLimit.Enabled)
	v.SetDefault("ratelimit.backend", d.RateLimit.Backend)
	v.SetDefault("ratelimit.requests_per_second", d.RateLimit.RPS)
	v.SetDefault("ratelimit.burst", d.RateLimit.Burst)

	v.SetDefault("metrics.count_tokens", d.Metrics.CountTokens)
	v.SetDefault("metrics.token_model", d.Metrics.TokenModel)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.requests_per_second", d.Server.RPS)
	v.SetDefault("server.burst", d.Server.Burst)
}

// Store wraps configuration with thread-safe access and hot-reload updates.
type Store struct {
	mu       sync.RWMutex
	cfg      *Config
	onChange []func(*Config)
}

// NewStore wraps a fixed configuration. Useful for callers that build Config in code.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

// Get returns a copy of the current configuration.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return nil
	}
	cpy := *s.cfg
	cpy.Models = maps.Clone(s.cfg.Models)
	return &cpy
}

// OnChange registers fn to run after every successful reload.
func (s *Store) OnChange(fn func(*Config)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Set replaces the configuration and runs the OnChange hooks.
func (s *Store) Set(cfg *Config) {
	s.mu.Lock()
	s.cfg = cfg
	hooks := append([]func(*Config){}, s.onChange...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(cfg)
	}
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readIn reads the config file, treating a missing file as "defaults + env only".
func readIn(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// LoadAndWatch loads the config and watches for on-disk changes.
func LoadAndWatch(path string) (*Store, error) {
	v := newViper(path)

	found, err := readIn(v)
	if err != nil {
		return nil, err
	}

	store := &Store{}
	if err := refresh(v, store); err != nil {
		return nil, err
	}

	if found {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			if err := refresh(v, store); err != nil {
				slog.Warn("config reload failed", "file", e.Name, "error", err)
			} else {
				slog.Info("config reloaded", "file", e.Name)
			}
		})
	}

	return store, nil
}

// Load reads the configuration once and does not watch.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if _, err := readIn(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func refresh(v *viper.Viper, store *Store) error {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	store.Set(&cfg)
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
