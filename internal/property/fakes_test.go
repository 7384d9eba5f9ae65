package property

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"realty-backend/internal/geo"
	"realty-backend/internal/geocode"
)

type fakeRepo struct {
	mu          sync.Mutex
	items       []Property
	findCalls   int
	lastFilter  bson.M
	distinct    map[string][]string
	bounds      PriceRange
	coordinates map[string]geo.Point
	attempted   map[string]time.Time
	failUpdate  map[string]bool
}

func (f *fakeRepo) Find(ctx context.Context, filter bson.M, limit, offset int64) ([]Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	f.lastFilter = filter
	out := append([]Property(nil), f.items...)
	if offset > 0 && int(offset) < len(out) {
		out = out[offset:]
	}
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) Count(ctx context.Context, filter bson.M) (int64, error) {
	return int64(len(f.items)), nil
}

func (f *fakeRepo) Get(ctx context.Context, id string) (Property, error) {
	for _, p := range f.items {
		if p.ID == id {
			return p, nil
		}
	}
	return Property{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) Create(ctx context.Context, doc bson.M) (string, error) {
	id := "new-" + strings.ToLower(doc["ProjectName"].(string))
	doc["_id"] = id
	f.items = append(f.items, Normalize(doc))
	return id, nil
}

func (f *fakeRepo) Update(ctx context.Context, id string, set bson.M) (Property, error) {
	for i, p := range f.items {
		if p.ID == id {
			set["_id"] = id
			f.items[i] = Normalize(set)
			return f.items[i], nil
		}
	}
	return Property{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) Delete(ctx context.Context, id string) (bool, error) {
	for i, p := range f.items {
		if p.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) DistinctStrings(ctx context.Context, fields ...string) ([]string, error) {
	var out []string
	for _, field := range fields {
		out = append(out, f.distinct[field]...)
	}
	return out, nil
}

func (f *fakeRepo) PriceBounds(ctx context.Context) (PriceRange, error) {
	return f.bounds, nil
}

// MissingCoordinates selects every listing not yet written or recently attempted,
// in id order. It ignores the stored point on purpose: the Mongo filter can only
// see the alias keys it names, so the backfiller must not trust it.
func (f *fakeRepo) MissingCoordinates(ctx context.Context, attemptedBefore time.Time, limit int64) ([]Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Property
	for _, p := range f.items {
		if _, done := f.coordinates[p.ID]; done {
			continue
		}
		if at, ok := f.attempted[p.ID]; ok && !at.Before(attemptedBefore) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) MarkCoordinatesAttempted(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempted == nil {
		f.attempted = map[string]time.Time{}
	}
	f.attempted[id] = at
	return nil
}

func (f *fakeRepo) UpdateCoordinates(ctx context.Context, id string, p geo.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate[id] {
		return mongo.ErrNoDocuments
	}
	if f.coordinates == nil {
		f.coordinates = map[string]geo.Point{}
	}
	f.coordinates[id] = p
	return nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

type fakeResolver struct {
	points map[string]geo.Point
}

func (f fakeResolver) Resolve(ctx context.Context, name string) (geocode.Resolution, bool) {
	p, ok := f.points[strings.ToLower(name)]
	if !ok {
		return geocode.Resolution{}, false
	}
	return geocode.Resolution{Name: name, Point: p, Source: geocode.SourceTable}, true
}

func (f fakeResolver) ResolveText(ctx context.Context, text string) (geocode.Resolution, bool) {
	for name, p := range f.points {
		if strings.Contains(strings.ToLower(text), name) {
			return geocode.Resolution{Name: name, Point: p, Source: geocode.SourceTable}, true
		}
	}
	return geocode.Resolution{}, false
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
