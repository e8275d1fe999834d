package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/country-explorer/internal/explorer"
)

// Config bundles what every provider client needs.
type Config struct {
	Client *http.Client

	// ProxyBaseURL is the root of the PHP proxy endpoints.
	ProxyBaseURL string

	// WikipediaURL is the root of the page summary REST API,
	// e.g. https://en.wikipedia.org/api/rest_v1.
	WikipediaURL string
}

// maxBodyBytes caps a single reply; the border collection is the largest.
const maxBodyBytes = 32 << 20

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// endpoint is one remote provider behind its own circuit breaker.
type endpoint struct {
	source  explorer.Source
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func newEndpoint(src explorer.Source, baseURL string, client *http.Client) endpoint {
	return endpoint{
		source:  src,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		circuit: newBreaker(string(src)),
	}
}

type reply struct {
	code int
	body []byte
}

func (r reply) ok() bool {
	return r.code >= 200 && r.code < 300
}

// get performs a single GET through the circuit breaker. Failed calls are
// never retried; an open circuit fails fast with a transport error.
func (e endpoint) get(ctx context.Context, path string, values url.Values) (reply, error) {
	if e.client == nil {
		return reply{}, explorer.TransportError(e.source, errNoHTTPClient)
	}

	u := e.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(values) > 0 {
		u = fmt.Sprintf("%s?%s", u, values.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return reply{}, explorer.TransportError(e.source, err)
	}
	req.Header.Set("Accept", "application/json")

	result, err := e.circuit.Execute(func() (interface{}, error) {
		resp, execErr := e.client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, readErr
		}
		r := reply{code: resp.StatusCode, body: body}

		// Count throttling and server errors against the breaker but keep
		// the body: the proxy may still have sent a status block.
		if resp.StatusCode == http.StatusTooManyRequests {
			return r, errRateLimited
		}
		if resp.StatusCode >= 500 {
			return r, errServerError
		}
		return r, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return reply{}, explorer.TransportError(e.source, fmt.Errorf("%w: %v", errCircuitOpen, err))
	}
	r, ok := result.(reply)
	if !ok {
		if err == nil {
			err = fmt.Errorf("unexpected result type from circuit breaker")
		}
		return reply{}, explorer.TransportError(e.source, err)
	}
	return r, nil
}

type envelopeStatus struct {
	Code        json.RawMessage `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
}

// decodeEnvelope validates the proxy status block and decodes the whole
// reply into payload.
func (e endpoint) decodeEnvelope(r reply, payload any) error {
	var env struct {
		Status *envelopeStatus `json:"status"`
	}
	if err := json.Unmarshal(r.body, &env); err != nil {
		if !r.ok() {
			return e.statusError(r)
		}
		return explorer.ShapeError(e.source, fmt.Errorf("decode envelope: %w", err))
	}
	if env.Status == nil {
		if !r.ok() {
			return e.statusError(r)
		}
		return e.missing("status")
	}
	if env.Status.Name != "ok" {
		return explorer.TransportError(e.source, fmt.Errorf("proxy status %q: %s", env.Status.Name, env.Status.Description))
	}
	if !r.ok() {
		return e.statusError(r)
	}
	if err := json.Unmarshal(r.body, payload); err != nil {
		return explorer.ShapeError(e.source, fmt.Errorf("decode payload: %w", err))
	}
	return nil
}

// decodePlain decodes a reply from an API reached without the proxy.
func (e endpoint) decodePlain(r reply, v any) error {
	if r.code == http.StatusNotFound {
		return explorer.EmptyResultError(e.source)
	}
	if !r.ok() {
		return e.statusError(r)
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return explorer.ShapeError(e.source, fmt.Errorf("decode payload: %w", err))
	}
	return nil
}

func (e endpoint) statusError(r reply) error {
	switch {
	case r.code == http.StatusTooManyRequests:
		return explorer.TransportError(e.source, errRateLimited)
	case r.code >= 500:
		return explorer.TransportError(e.source, fmt.Errorf("%w: %d", errServerError, r.code))
	}
	return explorer.TransportError(e.source, fmt.Errorf("%w: %d", errUnexpected, r.code))
}

func (e endpoint) missing(key string) error {
	return explorer.ShapeError(e.source, fmt.Errorf("missing %q", key))
}

func (e endpoint) empty() error {
	return explorer.EmptyResultError(e.source)
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%f", v)
}
