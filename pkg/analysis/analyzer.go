// Package analysis turns error records into cached recommendations.
//
// Identical (file, line, message) triples reach the generator at most once
// per cache lifetime. Failed generations come back as their error text and,
// unless disabled, are cached like any other recommendation.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/ngoyal88/logwise/pkg/ai"
	"github.com/ngoyal88/logwise/pkg/cache"
	"github.com/ngoyal88/logwise/pkg/capture"
)

// Generator produces text for a prompt. *gemini.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CacheKey identifies an error occurrence class.
func CacheKey(file string, line int, message string) string {
	return file + ":" + strconv.Itoa(line) + ":" + message
}

// ErrNoGenerator is reported in place of a recommendation when the Analyzer
// was built without a Generator.
var ErrNoGenerator = errors.New("analysis: no generator configured")

// Analyzer implements capture.Analyzer.
type Analyzer struct {
	cache       cache.Cache
	gen         Generator
	logger      *slog.Logger
	cacheErrors bool
	dedupe      bool
	group       singleflight.Group

	countTokens bool
	tokenModel  string
	pricing     map[string]float64
}

var _ capture.Analyzer = (*Analyzer)(nil)

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger analysis results are written to.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithCacheErrors controls whether failed generations are stored. Default true.
func WithCacheErrors(enabled bool) Option {
	return func(a *Analyzer) { a.cacheErrors = enabled }
}

// WithDedupe collapses concurrent misses on one key into a single call. Default true.
func WithDedupe(enabled bool) Option {
	return func(a *Analyzer) { a.dedupe = enabled }
}

// WithTokenAccounting counts prompt tokens with model's encoding and prices
// them from pricing.
func WithTokenAccounting(model string, pricing map[string]float64) Option {
	return func(a *Analyzer) {
		a.countTokens = true
		a.tokenModel = model
		a.pricing = pricing
	}
}

// New creates an Analyzer. A nil cache uses an in-memory one. gen should not
// be nil; without it every miss answers with ErrNoGenerator's text, uncached.
func New(c cache.Cache, gen Generator, opts ...Option) *Analyzer {
	if c == nil {
		c = cache.NewMemory()
	}
	a := &Analyzer{
		cache:       c,
		gen:         gen,
		logger:      slog.New(slog.DiscardHandler),
		cacheErrors: true,
		dedupe:      true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns the recommendation for rec, consulting the cache first.
// It never fails: generator errors become the recommendation text.
//
// Cancelling ctx does not abort the analysis. The generation result is stored
// and shared with concurrent callers, so it must not depend on one caller's
// lifetime; the Generator's own timeout bounds the call instead.
func (a *Analyzer) Analyze(ctx context.Context, rec capture.Record) string {
	ctx = context.WithoutCancel(ctx)
	key := CacheKey(rec.File, rec.Line, rec.Message)
	attrs := append(rec.LogAttrs(), "capture_id", rec.ID)

	if v, ok := a.cached(ctx, key, attrs); ok {
		return v
	}

	if !a.dedupe {
		return a.generate(ctx, key, rec, attrs)
	}

	v, _, _ := a.group.Do(key, func() (interface{}, error) {
		// A flight that finished between our lookup and Do already stored it.
		if v, ok := a.cached(ctx, key, attrs); ok {
			return v, nil
		}
		return a.generate(ctx, key, rec, attrs), nil
	})
	return v.(string)
}

// cached reports a cache hit, logging and counting it.
func (a *Analyzer) cached(ctx context.Context, key string, attrs []any) (string, bool) {
	v, ok := a.lookup(ctx, key, attrs)
	if !ok {
		return "", false
	}
	cacheHits.Inc()
	a.logger.Info("Recommendation from cache: "+v, attrs...)
	return v, true
}

func (a *Analyzer) lookup(ctx context.Context, key string, attrs []any) (string, bool) {
	v, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("cache lookup failed: "+err.Error(), attrs...)
		return "", false
	}
	return v, ok
}

func (a *Analyzer) generate(ctx context.Context, key string, rec capture.Record, attrs []any) string {
	cacheMisses.Inc()
	if a.gen == nil {
		recommendationsTotal.WithLabelValues("error").Inc()
		a.logger.Error(ErrNoGenerator.Error(), attrs...)
		return ErrNoGenerator.Error()
	}

	prompt := BuildPrompt(rec)
	a.logger.Debug("Sending prompt to Gemini", append(attrs, "prompt", prompt)...)

	if a.countTokens {
		a.accountTokens(prompt, attrs)
	}

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		recommendationsTotal.WithLabelValues("error").Inc()
		text = err.Error()
	} else {
		recommendationsTotal.WithLabelValues("success").Inc()
	}

	if err == nil || a.cacheErrors {
		stored, cerr := a.cache.Add(ctx, key, text)
		if cerr != nil {
			a.logger.Warn("cache store failed: "+cerr.Error(), attrs...)
		} else {
			text = stored
		}
	}

	a.logger.Info("LLM recommendation: "+text, attrs...)
	return text
}

func (a *Analyzer) accountTokens(prompt string, attrs []any) {
	n, err := ai.CountTokens(a.tokenModel, prompt)
	if err != nil {
		a.logger.Warn("token counting failed: "+err.Error(), attrs...)
		return
	}
	cost := ai.EstimateCost(n, a.tokenModel, a.pricing)
	promptTokens.Observe(float64(n))
	promptCost.Add(cost)
	a.logger.Debug("prompt tokens", append(attrs, "tokens", n, "estimated_cost", cost)...)
}
