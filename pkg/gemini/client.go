// Package gemini calls the generateContent REST endpoint of a generative
// language model and returns the first candidate's text.
//
// A call makes exactly one attempt. Failures come back as *StatusError (the
// endpoint answered with a non-200 status) or *CallError (anything else);
// both render as the human-readable strings callers cache and display.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ngoyal88/logwise/pkg/ratelimit"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultModel   = "gemini-1.5-flash"

	// NoResponse is returned when a 200 response lacks candidates[0].content.parts[0].text.
	NoResponse = "No response"
)

// StatusError reports a non-200 answer from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Gemini error: %d - %s", e.StatusCode, e.Body)
}

// CallError reports a transport, encoding or decoding failure.
type CallError struct {
	Err error
}

func (e *CallError) Error() string {
	return "Error calling Gemini: " + e.Err.Error()
}

func (e *CallError) Unwrap() error { return e.Err }

// Client calls {BaseURL}/{Model}:generateContent with the API key in the query string.
type Client struct {
	BaseURL string
	Model   string
	APIKey  string

	http    *http.Client
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. The default http.Client has no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBreaker trips after consecutiveFailures failed calls and stays open for openTimeout.
func WithBreaker(consecutiveFailures uint32, openTimeout time.Duration) Option {
	return func(c *Client) {
		if consecutiveFailures == 0 {
			consecutiveFailures = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "gemini",
			Timeout: openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= consecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				breakerState.Set(float64(to))
				c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
}

// WithLimiter makes every call wait on l before sending.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a Client. Empty baseURL or model fall back to the defaults.
func NewClient(baseURL, model, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	c := &Client{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
		http:    &http.Client{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- generateContent request/response types ---

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// text extracts candidates[0].content.parts[0].text.
func (r *generateResponse) text() (string, bool) {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return "", false
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == nil {
		return "", false
	}
	return *parts[0].Text, true
}

// Generate sends prompt and returns the model's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, prompt)
	callLatency.Observe(time.Since(start).Seconds())

	var statusErr *StatusError
	switch {
	case err == nil:
		callsTotal.WithLabelValues(outcomeSuccess).Inc()
	case errors.As(err, &statusErr):
		callsTotal.WithLabelValues(outcomeHTTPError).Inc()
		c.logger.Error(err.Error())
	default:
		callsTotal.WithLabelValues(outcomeTransportError).Inc()
		c.logger.Error(err.Error())
	}
	return text, err
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &CallError{Err: err}
		}
	}

	if c.breaker == nil {
		return c.generateOnce(ctx, prompt)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generateOnce(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &CallError{Err: err}
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/%s:generateContent?key=%s", c.BaseURL, c.Model, url.QueryEscape(c.APIKey))
}

// redactedEndpoint is safe to log and to embed in cached error strings.
func (c *Client) redactedEndpoint() string {
	return fmt.Sprintf("%s/%s:generateContent", c.BaseURL, c.Model)
}

func (c *Client) generateOnce(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", &CallError{Err: fmt.Errorf("marshalling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", &CallError{Err: c.redact(err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &CallError{Err: c.redact(err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err != nil {
		return "", &CallError{Err: fmt.Errorf("reading response body: %w", err)}
	}

	var apiResp generateResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return "", &CallError{Err: fmt.Errorf("decoding response: %w", err)}
	}

	text, ok := apiResp.text()
	if !ok {
		text = NoResponse
	}
	c.logger.Debug("raw response from Gemini", "text", text)
	return text, nil
}

// redact strips the API key from *url.Error messages.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = c.redactedEndpoint()
	}
	return err
}
