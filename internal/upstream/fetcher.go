// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/metrics"
)

const (
	// DefaultMaxRetries is the attempt budget when Config.MaxRetries is unset.
	DefaultMaxRetries = 3

	maxErrorBodyLen = 512
	maxResponseSize = 32 << 20
)

// Doer is the subset of *http.Client the fetcher needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Fetcher.
type Config struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int

	// RequestsPerSecond paces outbound calls. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int

	Breaker BreakerSettings
}

// FetchOptions tune a single Fetch call.
type FetchOptions struct {
	// Name labels logs and metrics, usually the dataset name.
	Name string
	// AllowPartial accepts a body carrying both data and errors.
	AllowPartial bool
}

// Response is a decoded GraphQL response.
type Response struct {
	Data   json.RawMessage     `json:"data"`
	Errors []GraphQLErrorEntry `json:"errors,omitempty"`
	// Raw is the response body as received.
	Raw []byte `json:"-"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Fetcher posts GraphQL queries to the tarkov.dev API with bounded retries.
type Fetcher struct {
	url        string
	client     Doer
	maxRetries int
	limiter    *rate.Limiter
	breaker    *Breaker
	sleep      SleepFunc
	now        func() time.Time
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithDoer replaces the HTTP client.
func WithDoer(d Doer) Option {
	return func(f *Fetcher) { f.client = d }
}

// WithSleep replaces the backoff sleeper.
func WithSleep(s SleepFunc) Option {
	return func(f *Fetcher) { f.sleep = s }
}

// WithClock replaces the clock used for duration metrics.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// WithBreaker replaces the circuit breaker. A nil breaker disables it.
func WithBreaker(b *Breaker) Option {
	return func(f *Fetcher) { f.breaker = b }
}

// WithLimiter replaces the outbound rate limiter. A nil limiter disables it.
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// New creates a Fetcher from cfg.
func New(cfg Config, opts ...Option) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	f := &Fetcher{
		url:        cfg.URL,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		breaker:    NewBreaker(cfg.Breaker),
		sleep:      contextSleep,
		now:        time.Now,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MaxRetries returns the attempt budget per Fetch call.
func (f *Fetcher) MaxRetries() int {
	return f.maxRetries
}

// BreakerState reports the circuit breaker state for health checks.
func (f *Fetcher) BreakerState() string {
	return f.breaker.State()
}

// Fetch posts query with variables and returns the decoded response.
//
// A failed attempt is retried after BackoffDelay(attempt) until MaxRetries
// attempts have been made. Each retry logs one warning and the final failure
// logs one error with the sanitized variables. An open circuit fails
// immediately without spending the remaining attempts.
func (f *Fetcher) Fetch(ctx context.Context, query string, variables map[string]any, opts FetchOptions) (*Response, error) {
	name := opts.Name
	if name == "" {
		name = "graphql"
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	start := f.now()
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		attempts = attempt

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		resp, err := f.attempt(ctx, payload, opts.AllowPartial)
		if err == nil {
			metrics.RecordUpstreamAttempt(name, "success")
			metrics.UpstreamDuration.WithLabelValues(name).Observe(f.now().Sub(start).Seconds())
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil || attempt == f.maxRetries {
			break
		}

		delay := BackoffDelay(attempt)
		metrics.RecordUpstreamAttempt(name, "retry")
		logging.Ctx(ctx).Warn().
			Str("query", name).
			Int("attempt", attempt).
			Int("max_attempts", f.maxRetries).
			Dur("delay", delay).
			Str("error", logging.SanitizeError(err.Error())).
			Msg("Upstream request failed, retrying")

		if err := f.sleep(ctx, delay); err != nil {
			break
		}
	}

	metrics.RecordUpstreamAttempt(name, "failure")
	metrics.UpstreamDuration.WithLabelValues(name).Observe(f.now().Sub(start).Seconds())
	logging.Ctx(ctx).Error().
		Str("query", name).
		Int("attempts", attempts).
		Interface("variables", logging.SanitizeVariables(variables)).
		Str("error", logging.SanitizeError(lastErr.Error())).
		Msg("Upstream request failed")

	return nil, &FetchError{Query: name, Attempts: attempts, Err: lastErr}
}

// attempt performs one HTTP exchange. Only transport and status failures
// count against the breaker; a well-formed GraphQL error does not.
func (f *Fetcher) attempt(ctx context.Context, payload []byte, allowPartial bool) (*Response, error) {
	body, err := f.breaker.Execute(func() ([]byte, error) {
		return f.post(ctx, payload)
	})
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	resp.Raw = body

	hasData := len(resp.Data) > 0 && !bytes.Equal(resp.Data, []byte("null"))
	if len(resp.Errors) > 0 {
		if allowPartial && hasData {
			return &resp, nil
		}
		return nil, &GraphQLError{Errors: resp.Errors}
	}
	if !hasData {
		return nil, ErrMissingData
	}
	return &resp, nil
}

func (f *Fetcher) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := string(body)
		if len(text) > maxErrorBodyLen {
			text = text[:maxErrorBodyLen]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: text}
	}
	return body, nil
}
