// Package transport carries serialized gateway requests over HTTPS.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/infrastructure/observability"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Poster sends one request body and returns the status and response body.
type Poster interface {
	Post(ctx context.Context, url string, body []byte, contentType string) (int, []byte, error)
}

// BreakerConfig tunes the per-host circuit breaker.
type BreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

type Config struct {
	Timeout          time.Duration
	MaxResponseBytes int64
	Breaker          BreakerConfig
}

func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		MaxResponseBytes: 4 << 20,
		Breaker: BreakerConfig{
			MaxRequests:  5,
			Interval:     60 * time.Second,
			Timeout:      30 * time.Second,
			MinRequests:  10,
			FailureRatio: 0.6,
		},
	}
}

type response struct {
	status int
	body   []byte
}

// HTTPPoster posts over an instrumented, certificate-verifying client with
// one circuit breaker per host. It never retries.
type HTTPPoster struct {
	client  *http.Client
	cfg     Config
	logger  zerolog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*response]
}

type Option func(*HTTPPoster)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *HTTPPoster) { p.client = c }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(p *HTTPPoster) { p.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *HTTPPoster) { p.logger = l }
}

func NewHTTPPoster(cfg Config, opts ...Option) *HTTPPoster {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	p := &HTTPPoster{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		cfg:      cfg,
		logger:   zerolog.Nop(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[*response]),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *HTTPPoster) Post(ctx context.Context, rawURL string, body []byte, contentType string) (int, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, nil, domainErrors.NewGatewayError(fmt.Errorf("parse url %q: %w", rawURL, err))
	}

	cb := p.breaker(u.Host)
	resp, err := cb.Execute(func() (*response, error) {
		return p.do(ctx, rawURL, body, contentType)
	})
	p.recordResult(u.Host, err)
	if err != nil {
		if resp != nil {
			return resp.status, resp.body, err
		}
		return 0, nil, domainErrors.NewGatewayError(fmt.Errorf("post %s: %w", u.Host, err))
	}

	if resp.status < 200 || resp.status >= 300 {
		return resp.status, resp.body, domainErrors.NewGatewayError(
			fmt.Errorf("%w: %d from %s", domainErrors.ErrUnexpectedStatus, resp.status, u.Host))
	}
	return resp.status, resp.body, nil
}

func (p *HTTPPoster) do(ctx context.Context, rawURL string, body []byte, contentType string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	limit := p.cfg.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultConfig().MaxResponseBytes
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode >= 500 {
		return nil, domainErrors.NewGatewayError(
			fmt.Errorf("%w: %d from %s", domainErrors.ErrUnexpectedStatus, res.StatusCode, req.URL.Host))
	}
	return &response{status: res.StatusCode, body: data}, nil
}

func (p *HTTPPoster) breaker(host string) *gobreaker.CircuitBreaker[*response] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cb, ok := p.breakers[host]; ok {
		return cb
	}

	bc := p.cfg.Breaker
	cb := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        host,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= bc.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn().Str("host", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			if p.metrics != nil {
				p.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	p.breakers[host] = cb
	if p.metrics != nil {
		p.metrics.CircuitBreakerState.WithLabelValues(host).Set(float64(gobreaker.StateClosed))
	}
	return cb
}

func (p *HTTPPoster) recordResult(host string, err error) {
	if p.metrics == nil {
		return
	}
	result := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case err != nil:
		result = "failure"
	}
	p.metrics.CircuitBreakerRequests.WithLabelValues(host, result).Inc()
}

// State reports the breaker state for host.
func (p *HTTPPoster) State(host string) gobreaker.State {
	return p.breaker(host).State()
}
