// ABOUTME: Shared HTTP plumbing for upstream clients: base URL, timeout, circuit breaker.
// ABOUTME: Classifies failures into ErrUnavailable vs StatusError per the gateway taxonomy.

package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/auphere/auphere-gateway/internal/metrics"
)

// Response is a fully-read upstream HTTP response.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// client carries the per-upstream connection settings. It is stateless
// across requests and safe for concurrent use.
type client struct {
	name    string
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*Response]
	logger  *slog.Logger

	// static headers attached to every request
	header http.Header
}

func newClient(name, baseURL string, timeout time.Duration, logger *slog.Logger) *client {
	return &client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: newBreaker(name, logger),
		logger:  logger.With("component", "upstream", "upstream", name),
		header:  make(http.Header),
	}
}

// newBreaker builds the circuit breaker guarding one upstream. The
// breaker opens after a 60% failure rate across at least 10 requests
// and probes again after 30 seconds.
func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker[*Response] {
	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream circuit breaker state change",
				"upstream", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Caller disconnects are not upstream failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// do performs a request through the circuit breaker. Transport failures
// and an open breaker map to ErrUnavailable; a non-success status maps
// to *StatusError carrying the upstream's response verbatim; context
// cancellation is passed through as the context's error.
func (c *client) do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	start := time.Now()
	outcome := metrics.OutcomeOK
	defer func() {
		metrics.RecordUpstreamRequest(c.name, outcome, time.Since(start))
	}()

	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.roundTrip(ctx, method, path, query, body)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			c.logger.Warn("request rejected by open circuit", "path", path)
			outcome = metrics.OutcomeUnavailable
			return nil, fmt.Errorf("%s: %w", c.name, ErrUnavailable)
		case ctx.Err() != nil:
			outcome = metrics.OutcomeCanceled
			return nil, ctx.Err()
		default:
			c.logger.Error("upstream request failed", "path", path, "err", err)
			outcome = metrics.OutcomeUnavailable
			return nil, fmt.Errorf("%s: %w", c.name, ErrUnavailable)
		}
	}

	if resp.Status >= 400 {
		outcome = metrics.OutcomeUpstreamError
		return nil, &StatusError{Status: resp.Status, ContentType: resp.ContentType, Body: resp.Body}
	}

	return resp, nil
}

// roundTrip issues one HTTP request and reads the full response body.
// It reports every HTTP response as success; status classification
// happens in do so the breaker only counts transport failures.
func (c *client) roundTrip(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
