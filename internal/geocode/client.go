package geocode

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"realty-backend/internal/geo"
	"realty-backend/internal/metrics"
)

var (
	ErrDisabled  = errors.New("geocode: no api key configured")
	ErrNoResults = errors.New("geocode: no results")
	ErrDenied    = errors.New("geocode: request denied")
)

type Result struct {
	Point            geo.Point `json:"point"`
	FormattedAddress string    `json:"formattedAddress,omitempty"`
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Result, error)
}

type Client struct {
	maps         *maps.Client
	baseURL      string
	regionSuffix string
	region       string
	hc           *http.Client
	maxAttempts  int
}

type Option func(*Client)

// WithBaseURL points the client at another Maps API host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithRegionSuffix appends e.g. ", Hyderabad, Telangana" to addresses that don't already name the city.
func WithRegionSuffix(suffix string) Option {
	return func(c *Client) {
		suffix = strings.TrimLeft(strings.TrimSpace(suffix), ", ")
		if suffix == "" {
			c.regionSuffix = ""
			return
		}
		c.regionSuffix = ", " + suffix
	}
}

// NewClient returns a client limited to rps requests per second. A blank key yields a
// client whose Geocode always returns ErrDisabled.
func NewClient(key string, rps int, opts ...Option) (*Client, error) {
	if rps <= 0 {
		rps = 10
	}
	c := &Client{
		region:      "in",
		hc:          &http.Client{Timeout: 10 * time.Second},
		maxAttempts: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return c, nil
	}

	hc := *c.hc
	hc.Transport = &metrics.Transport{Service: "google", Endpoint: "geocode", Base: c.hc.Transport}
	mapsOpts := []maps.ClientOption{
		maps.WithAPIKey(key),
		maps.WithRateLimit(rps),
		maps.WithHTTPClient(&hc),
	}
	if c.baseURL != "" {
		mapsOpts = append(mapsOpts, maps.WithBaseURL(c.baseURL))
	}
	mc, err := maps.NewClient(mapsOpts...)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	c.maps = mc
	return c, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.maps != nil
}

func (c *Client) Geocode(ctx context.Context, address string) (Result, error) {
	if !c.Enabled() {
		return Result{}, ErrDisabled
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return Result{}, ErrNoResults
	}
	if c.regionSuffix != "" && !strings.Contains(strings.ToLower(address), strings.ToLower(firstWord(c.regionSuffix))) {
		address += c.regionSuffix
	}
	req := &maps.GeocodingRequest{Address: address, Region: c.region}

	var lastErr error
	for i := 0; i < c.maxAttempts; i++ {
		res, retry, err := c.do(ctx, req)
		if err == nil {
			return res, nil
		}
		if !retry {
			return Result{}, err
		}
		lastErr = err
		if i < c.maxAttempts-1 && !sleepCtx(ctx, backoff(i)) {
			return Result{}, ctx.Err()
		}
	}
	return Result{}, lastErr
}

// do makes one lookup and reports whether a failure is worth retrying.
func (c *Client) do(ctx context.Context, req *maps.GeocodingRequest) (Result, bool, error) {
	results, err := c.maps.Geocode(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, false, ctx.Err()
		}
		msg := err.Error()
		switch {
		case strings.Contains(msg, "ZERO_RESULTS"):
			return Result{}, false, ErrNoResults
		case strings.Contains(msg, "REQUEST_DENIED"), strings.Contains(msg, "INVALID_REQUEST"):
			return Result{}, false, fmt.Errorf("%w: %s", ErrDenied, msg)
		}
		// transport errors, 5xx bodies, OVER_QUERY_LIMIT and UNKNOWN_ERROR
		return Result{}, true, fmt.Errorf("geocode: %w", err)
	}

	for _, r := range results {
		p := geo.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng}
		if p.Valid() {
			return Result{Point: p, FormattedAddress: r.FormattedAddress}, false, nil
		}
	}
	return Result{}, false, ErrNoResults
}

func firstWord(suffix string) string {
	s := strings.TrimLeft(suffix, ", ")
	if i := strings.IndexAny(s, ", "); i > 0 {
		return s[:i]
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoff doubles from 200ms with up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
