// Package logwise assembles a ready-to-use Capturer from configuration.
//
//	store, _ := config.LoadAndWatch("")
//	c, closeFn, err := logwise.NewFromStore(store)
//	defer closeFn()
//	slog.SetDefault(c.Logger())
//	rec, _ := c.Capture(ctx, "division by zero", capture.SeverityError, capture.Location{File: "app.go", Line: 10})
package logwise

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/ngoyal88/logwise/pkg/analysis"
	"github.com/ngoyal88/logwise/pkg/cache"
	"github.com/ngoyal88/logwise/pkg/capture"
	"github.com/ngoyal88/logwise/pkg/config"
	"github.com/ngoyal88/logwise/pkg/gemini"
	"github.com/ngoyal88/logwise/pkg/logsink"
	"github.com/ngoyal88/logwise/pkg/ratelimit"
)

// ErrUnknownBackend is returned when a cache or rate limit backend is unsupported.
var ErrUnknownBackend = errors.New("unknown backend")

// RateLimitKey is the Redis key shared by every process analyzing through one Redis.
const RateLimitKey = "logwise:ratelimit:gemini"

type options struct {
	w          io.Writer
	httpClient *http.Client
	cache      cache.Cache
	level      *slog.LevelVar
}

// Option overrides a component New would otherwise build from config.
type Option func(*options)

// WithWriter sends log lines to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.w = w }
}

// WithHTTPClient replaces the client used to reach the model endpoint.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithCache replaces the configured recommendation cache.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithLevelVar drives the sink threshold from lv, so it can change at runtime.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(o *options) { o.level = lv }
}

// New wires sink, cache, limiter, model client and analyzer from cfg. The
// returned func releases any Redis connection New opened.
func New(cfg *config.Config, opts ...Option) (*capture.Capturer, func() error, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &options{w: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}
	if o.level == nil {
		o.level = &slog.LevelVar{}
	}
	o.level.Set(logsink.ParseLevel(cfg.Logging.Level))

	logger := slog.New(logsink.NewHandler(o.w, &logsink.Options{
		Name:  cfg.Logging.Name,
		Level: o.level,
	}))

	// 1. Redis, shared by the cache and the limiter when either asks for it
	var rdb *cache.Client
	needRedis := (o.cache == nil && cfg.Cache.Backend == "redis") ||
		(cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis")
	if needRedis {
		var err error
		rdb, err = cache.NewRedis(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
	}
	closeFn := func() error {
		if rdb != nil {
			return rdb.Close()
		}
		return nil
	}
	fail := func(err error) (*capture.Capturer, func() error, error) {
		_ = closeFn()
		return nil, nil, err
	}

	// 2. Recommendation cache
	recCache := o.cache
	if recCache == nil {
		switch cfg.Cache.Backend {
		case "", "memory":
			recCache = cache.NewMemory()
		case "redis":
			recCache = cache.NewRedisCache(rdb, cfg.Cache.KeyPrefix)
		default:
			return fail(fmt.Errorf("%w: cache %q", ErrUnknownBackend, cfg.Cache.Backend))
		}
	}

	// 3. Model client
	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Gemini.Timeout}
	}
	clientOpts := []gemini.Option{gemini.WithHTTPClient(hc), gemini.WithLogger(logger)}
	if cfg.Breaker.Enabled {
		clientOpts = append(clientOpts, gemini.WithBreaker(cfg.Breaker.ConsecutiveFailures, cfg.Breaker.OpenTimeout))
	}
	if cfg.RateLimit.Enabled {
		lim, err := newLimiter(cfg.RateLimit, rdb)
		if err != nil {
			return fail(err)
		}
		clientOpts = append(clientOpts, gemini.WithLimiter(lim))
	}
	client := gemini.NewClient(cfg.Gemini.BaseURL, cfg.Gemini.Model, cfg.Gemini.APIKey, clientOpts...)

	// 4. Analyzer
	analyzerOpts := []analysis.Option{
		analysis.WithLogger(logger),
		analysis.WithCacheErrors(cfg.Cache.CacheErrors),
		analysis.WithDedupe(cfg.Cache.DedupeInflight),
	}
	if cfg.Metrics.CountTokens {
		analyzerOpts = append(analyzerOpts, analysis.WithTokenAccounting(cfg.Metrics.TokenModel, cfg.Models))
	}
	analyzer := analysis.New(recCache, client, analyzerOpts...)

	return capture.New(logger, analyzer, cfg.Logging.Framework), closeFn, nil
}

// NewFromStore is New with the current configuration of store. Later reloads
// update the sink threshold; other settings apply on the next NewFromStore.
func NewFromStore(store *config.Store, opts ...Option) (*capture.Capturer, func() error, error) {
	lv := &slog.LevelVar{}
	c, closeFn, err := New(store.Get(), append(opts, WithLevelVar(lv))...)
	if err != nil {
		return nil, nil, err
	}
	store.OnChange(func(cfg *config.Config) {
		lv.Set(logsink.ParseLevel(cfg.Logging.Level))
	})
	return c, closeFn, nil
}

func newLimiter(cfg config.RateLimitConfig, rdb *cache.Client) (ratelimit.Limiter, error) {
	switch cfg.Backend {
	case "", "local":
		return ratelimit.NewLocal(cfg.RPS, cfg.Burst)
	case "redis":
		lim, err := ratelimit.NewRedis(rdb.Redis(), RateLimitKey, cfg.RPS, cfg.Burst)
		if err != nil {
			return nil, err
		}
		return lim, nil
	default:
		return nil, fmt.Errorf("%w: ratelimit %q", ErrUnknownBackend, cfg.Backend)
	}
}
