package geocode

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"realty-backend/internal/geo"
	"realty-backend/internal/metrics"
)

type Source string

const (
	SourceTable  Source = "table"
	SourceCache  Source = "cache"
	SourceGoogle Source = "google"
	SourceFuzzy  Source = "fuzzy"
)

type Resolution struct {
	Name   string    `json:"name"`
	Point  geo.Point `json:"point"`
	Source Source    `json:"source"`
}

type Resolver struct {
	table    *geo.Table
	cache    *FileCache
	geocoder Geocoder
	logger   *slog.Logger
}

// NewResolver wires the lookup chain; geocoder may be nil.
func NewResolver(table *geo.Table, cache *FileCache, geocoder Geocoder, logger *slog.Logger) *Resolver {
	if table == nil {
		table = geo.Neighborhoods()
	}
	if cache == nil {
		cache, _ = OpenFileCache("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{table: table, cache: cache, geocoder: geocoder, logger: logger}
}

// Resolve maps a location name to a point: the neighborhood table first, then the
// exact cache, then the geocoder (whose answer is cached), then a fuzzy cache match.
// Failures at any step fall through; false means the caller should search by text.
func (r *Resolver) Resolve(ctx context.Context, name string) (Resolution, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Resolution{}, false
	}

	if n, ok := r.table.Lookup(name); ok {
		return r.found(name, n.Point(), SourceTable), true
	}
	if e, ok := r.cache.Get(name); ok && e.Point().Valid() {
		return r.found(name, e.Point(), SourceCache), true
	}

	if r.geocoder != nil {
		res, err := r.geocoder.Geocode(ctx, name)
		switch {
		case err == nil:
			if putErr := r.cache.Put(name, res); putErr != nil {
				r.logger.Warn("geocode cache: write failed", slog.String("name", name), slog.String("error", putErr.Error()))
			}
			return r.found(name, res.Point, SourceGoogle), true
		case errors.Is(err, ErrDisabled):
		default:
			r.logger.Warn("geocode resolve: lookup failed", slog.String("name", name), slog.String("error", err.Error()))
		}
	}

	if e, ok := r.cache.Fuzzy(name); ok && e.Point().Valid() {
		return r.found(name, e.Point(), SourceFuzzy), true
	}
	metrics.ObserveResolution("unresolved")
	return Resolution{}, false
}

// ResolveText is like Resolve but also scans free text for a known locality,
// which suits property addresses ("Survey 12, Kokapet, Hyderabad").
func (r *Resolver) ResolveText(ctx context.Context, text string) (Resolution, bool) {
	if n, ok := r.table.Match(text); ok {
		return r.found(text, n.Point(), SourceTable), true
	}
	return r.Resolve(ctx, text)
}

func (r *Resolver) found(name string, p geo.Point, src Source) Resolution {
	metrics.ObserveResolution(string(src))
	return Resolution{Name: name, Point: p, Source: src}
}
