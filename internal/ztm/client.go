// Package ztm is the gateway to the Gdansk public transport (ZTM) open data
// feed. It fetches the stop directory and departure boards over HTTP with a
// per-call timeout, normalizes the loosely typed JSON, and keeps results in a
// TTL cache shared by all requests.
package ztm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
)

// Default upstream endpoints.
const (
	DefaultStopsURL      = "https://ckan.multimediagdansk.pl/dataset/c24aa637-3619-4dc2-a171-a23eec8f2172/resource/d3e96eb6-25ad-4d6c-8651-b1eb39155945/download/stopsingdansk.json"
	DefaultDeparturesURL = "https://ckan2.multimediagdansk.pl/departures"
)

// Policy is the cache lifetime and request timeout for one resource class.
type Policy struct {
	TTL     time.Duration
	Timeout time.Duration
}

// Default policies per resource class.
var (
	DefaultStopsPolicy         = Policy{TTL: 6 * time.Hour, Timeout: 10 * time.Second}
	DefaultDeparturesPolicy    = Policy{TTL: 20 * time.Second, Timeout: 8 * time.Second}
	DefaultAllDeparturesPolicy = Policy{TTL: 20 * time.Second, Timeout: 15 * time.Second}
)

// Option overrides a policy for a single call.
type Option func(*Policy)

// WithCacheTTL overrides how long a freshly fetched result is cached.
// A non-positive value skips caching the result.
func WithCacheTTL(d time.Duration) Option {
	return func(p *Policy) { p.TTL = d }
}

// WithTimeout overrides the upstream request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Policy) { p.Timeout = d }
}

// Config configures a Client. Zero values fall back to the defaults above.
type Config struct {
	HTTPClient    *http.Client
	StopsURL      string
	DeparturesURL string
	Cache         *FeedCache
	// Limiter throttles outgoing requests. Nil means unlimited.
	Limiter *rate.Limiter
	Logger  *slog.Logger

	Stops         Policy
	Departures    Policy
	AllDepartures Policy
}

// Client fetches and caches upstream feed data. It is safe for concurrent use.
type Client struct {
	http          *http.Client
	stopsURL      string
	departuresURL string
	cache         *FeedCache
	limiter       *rate.Limiter
	log           *slog.Logger

	stops         Policy
	departures    Policy
	allDepartures Policy
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	c := &Client{
		http:          cfg.HTTPClient,
		stopsURL:      cfg.StopsURL,
		departuresURL: cfg.DeparturesURL,
		cache:         cfg.Cache,
		limiter:       cfg.Limiter,
		log:           cfg.Logger,
		stops:         orDefault(cfg.Stops, DefaultStopsPolicy),
		departures:    orDefault(cfg.Departures, DefaultDeparturesPolicy),
		allDepartures: orDefault(cfg.AllDepartures, DefaultAllDeparturesPolicy),
	}
	if c.http == nil {
		// Timeouts are applied per request through the context.
		c.http = &http.Client{}
	}
	if c.stopsURL == "" {
		c.stopsURL = DefaultStopsURL
	}
	if c.departuresURL == "" {
		c.departuresURL = DefaultDeparturesURL
	}
	if c.cache == nil {
		c.cache = NewFeedCache(time.Minute)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

func orDefault(p, def Policy) Policy {
	if p.TTL == 0 {
		p.TTL = def.TTL
	}
	if p.Timeout == 0 {
		p.Timeout = def.Timeout
	}
	return p
}

// StopsPolicy, DeparturesPolicy and AllDeparturesPolicy report the policies
// in effect, so HTTP handlers can derive cache headers from them.
func (c *Client) StopsPolicy() Policy         { return c.stops }
func (c *Client) DeparturesPolicy() Policy    { return c.departures }
func (c *Client) AllDeparturesPolicy() Policy { return c.allDepartures }

// Stops returns the stop directory.
func (c *Client) Stops(ctx context.Context, opts ...Option) (domain.StopDirectory, error) {
	return fetch(ctx, c, resource[domain.StopDirectory]{
		key:       stopsKey,
		url:       c.stopsURL,
		policy:    apply(c.stops, opts),
		normalize: normalizeStops,
		mismatch:  "Upstream stops schema mismatch",
	})
}

// CachedStops returns the stop directory only if it is already cached. It
// never calls upstream.
func (c *Client) CachedStops() (domain.StopDirectory, bool) {
	return lookup[domain.StopDirectory](c.cache, stopsKey)
}

// Departures returns the departure board for a single stop.
func (c *Client) Departures(ctx context.Context, stopID int, opts ...Option) (domain.DepartureBundle, error) {
	u, err := url.Parse(c.departuresURL)
	if err != nil {
		return domain.DepartureBundle{}, upstreamError("Failed to fetch upstream data", err)
	}
	q := u.Query()
	q.Set("stopId", strconv.Itoa(stopID))
	u.RawQuery = q.Encode()

	return fetch(ctx, c, resource[domain.DepartureBundle]{
		key:       departuresKey(stopID),
		url:       u.String(),
		policy:    apply(c.departures, opts),
		normalize: normalizeDepartures,
		mismatch:  "Upstream departures schema mismatch",
	})
}

// AllDepartures returns the departure boards of every stop, keyed by stop id.
// The upstream payload is large; prefer Departures where possible.
func (c *Client) AllDepartures(ctx context.Context, opts ...Option) (domain.AllDepartures, error) {
	return fetch(ctx, c, resource[domain.AllDepartures]{
		key:       allDeparturesKey,
		url:       c.departuresURL,
		policy:    apply(c.allDepartures, opts),
		normalize: normalizeAllDepartures,
		mismatch:  "Upstream all-departures schema mismatch",
	})
}

func apply(p Policy, opts []Option) Policy {
	for _, o := range opts {
		o(&p)
	}
	return p
}

// resource describes one cacheable upstream document.
type resource[T any] struct {
	key       string
	url       string
	policy    Policy
	normalize func(any) (T, error)
	mismatch  string
}

// fetch serves r from cache, or downloads, validates and caches it.
func fetch[T any](ctx context.Context, c *Client, r resource[T]) (T, error) {
	var zero T

	if v, ok := lookup[T](c.cache, r.key); ok {
		return v, nil
	}

	body, err := c.get(ctx, r.url, r.policy.Timeout)
	if err != nil {
		c.log.WarnContext(ctx, "ztm fetch failed", "url", r.url, "error", err)
		return zero, err
	}

	raw, err := decodeJSON(body)
	if err != nil {
		return zero, invalidResponse("Upstream returned invalid JSON", err)
	}

	v, err := r.normalize(raw)
	if err != nil {
		c.log.WarnContext(ctx, "ztm schema mismatch", "url", r.url, "error", err)
		return zero, invalidResponse(r.mismatch, err)
	}

	c.cache.set(r.key, v, r.policy.TTL)
	return v, nil
}

// get performs one GET bounded by timeout. Running out of time anywhere,
// including while waiting on the rate limiter, is reported as a timeout.
// Cancellation by the caller is not.
func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, upstreamError("Upstream request cancelled", err)
			}
			return nil, timeoutError(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, upstreamError("Failed to fetch upstream data", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, upstreamError(fmt.Sprintf("Upstream returned HTTP %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	return body, nil
}

// transportError classifies a failed request. Only a passed deadline is a
// timeout; a caller that went away is an ordinary upstream failure.
func transportError(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err)
	}
	return upstreamError("Failed to fetch upstream data", err)
}
