package property

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"realty-backend/internal/cache"
	"realty-backend/internal/geo"
	"realty-backend/internal/geocode"
	"realty-backend/internal/matching"
)

var (
	ErrNotFound           = errors.New("property not found")
	ErrInvalidPreferences = errors.New("invalid preferences")
	ErrNoLocations        = errors.New("no locations given")
)

const (
	cachePrefix        = "properties:"
	filterOptionsKey   = cachePrefix + "filter-options"
	priceRangeKey      = cachePrefix + "price-range"
	listCachePrefix    = cachePrefix + "list"
	matchTextFallback  = "text"
	matchRadius        = "radius"
	maxRadiusLocations = 10
)

// LocationResolver turns a location name into a point.
type LocationResolver interface {
	Resolve(ctx context.Context, name string) (geocode.Resolution, bool)
}

type Service struct {
	repo     Repository
	cache    cache.Cache
	ttl      time.Duration
	resolver LocationResolver
	table    *geo.Table
	location *time.Location
	log      *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, c cache.Cache, ttl time.Duration, resolver LocationResolver, location *time.Location, log *slog.Logger) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    c,
		ttl:      ttl,
		resolver: resolver,
		table:    geo.Neighborhoods(),
		location: location,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) List(ctx context.Context, q Query) ([]Property, int64, error) {
	filter := BuildFilter(q)
	items, err := s.repo.Find(ctx, filter, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(items))
	if q.Limit > 0 || q.Offset > 0 {
		total, err = s.repo.Count(ctx, filter)
		if err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

type ListPage struct {
	Items  []Property `json:"items"`
	Total  int64      `json:"total"`
	Limit  int64      `json:"limit"`
	Offset int64      `json:"offset"`
}

// Page is List behind the response cache. cached reports a cache hit.
func (s *Service) Page(ctx context.Context, q Query) (page ListPage, cached bool, err error) {
	key := ListCacheKey(q)
	if s.cachedJSON(ctx, key, &page) {
		return page, true, nil
	}
	items, total, err := s.List(ctx, q)
	if err != nil {
		return ListPage{}, false, err
	}
	page = ListPage{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}
	s.storeJSON(ctx, key, page)
	return page, false, nil
}

// ListCacheKey is the response-cache key for a listing query.
func ListCacheKey(q Query) string {
	return cache.QueryKey(listCachePrefix, q.Values())
}

func (s *Service) Get(ctx context.Context, id string) (Property, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Property{}, ErrNotFound
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return Property{}, ErrNotFound
		}
		return Property{}, err
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, req UpsertRequest) (Property, error) {
	doc := req.Document()
	now := s.now().In(s.location)
	doc["createdAt"] = now
	doc["updatedAt"] = now

	id, err := s.repo.Create(ctx, doc)
	if err != nil {
		return Property{}, err
	}
	s.invalidate(ctx)
	doc["_id"] = id
	return Normalize(doc), nil
}

func (s *Service) Update(ctx context.Context, id string, req UpsertRequest) (Property, error) {
	set := req.Document()
	set["updatedAt"] = s.now().In(s.location)

	updated, err := s.repo.Update(ctx, strings.TrimSpace(id), set)
	if err != nil {
		if isNotFound(err) {
			return Property{}, ErrNotFound
		}
		return Property{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, cachePrefix); err != nil {
		s.log.Warn("properties cache: invalidate failed", slog.String("error", err.Error()))
	}
}

func (s *Service) FilterOptions(ctx context.Context) (FilterOptions, error) {
	var opts FilterOptions
	if s.cachedJSON(ctx, filterOptionsKey, &opts) {
		return opts, nil
	}

	var err error
	if opts.Locations, err = s.distinct(ctx, locationKeys...); err != nil {
		return FilterOptions{}, err
	}
	if opts.PropertyTypes, err = s.distinct(ctx, typeKeys...); err != nil {
		return FilterOptions{}, err
	}
	if opts.Builders, err = s.distinct(ctx, builderKeys...); err != nil {
		return FilterOptions{}, err
	}
	if opts.ConstructionStatus, err = s.distinct(ctx, statusKeys...); err != nil {
		return FilterOptions{}, err
	}
	labels, err := s.repo.DistinctStrings(ctx, "configurations.type", "configurations.Type", "configurations")
	if err != nil {
		return FilterOptions{}, err
	}
	opts.Configurations = matching.DistinctConfigurations(labels)
	if opts.Configurations == nil {
		opts.Configurations = []string{}
	}

	s.storeJSON(ctx, filterOptionsKey, opts)
	return opts, nil
}

// distinct merges alias fields, trims, dedupes case-insensitively and sorts.
func (s *Service) distinct(ctx context.Context, fields ...string) ([]string, error) {
	values, err := s.repo.DistinctStrings(ctx, fields...)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.Join(strings.Fields(v), " ")
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out, nil
}

func (s *Service) PriceRange(ctx context.Context) (PriceRange, error) {
	var pr PriceRange
	if s.cachedJSON(ctx, priceRangeKey, &pr) {
		return pr, nil
	}
	pr, err := s.repo.PriceBounds(ctx)
	if err != nil {
		return PriceRange{}, err
	}
	s.storeJSON(ctx, priceRangeKey, pr)
	return pr, nil
}

func (s *Service) cachedJSON(ctx context.Context, key string, dst interface{}) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("properties cache: get failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (s *Service) storeJSON(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.log.Warn("properties cache: set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// RadiusSearch returns listings within radiusKm of any of the named locations.
// Names that cannot be resolved fall back to a substring match on the listing's
// location text; those hits come after every distance hit.
func (s *Service) RadiusSearch(ctx context.Context, locations []string, radiusKm float64) (RadiusResult, error) {
	if len(locations) == 0 {
		return RadiusResult{}, ErrNoLocations
	}
	if len(locations) > maxRadiusLocations {
		locations = locations[:maxRadiusLocations]
	}

	result := RadiusResult{RadiusKm: radiusKm, Items: []RadiusHit{}, Resolved: []Resolved{}, Unresolved: []string{}}
	type ref struct {
		name  string
		point geo.Point
	}
	var refs []ref
	for _, name := range locations {
		var res geocode.Resolution
		ok := false
		if s.resolver != nil {
			res, ok = s.resolver.Resolve(ctx, name)
		}
		if !ok {
			result.Unresolved = append(result.Unresolved, name)
			continue
		}
		refs = append(refs, ref{name: name, point: res.Point})
		result.Resolved = append(result.Resolved, Resolved{Name: name, Lat: res.Point.Lat, Lng: res.Point.Lng, Source: string(res.Source)})
	}

	items, err := s.repo.Find(ctx, bson.M{}, 0, 0)
	if err != nil {
		return RadiusResult{}, err
	}

	for _, p := range items {
		p.PatchCoordinates(s.table)

		best, nearest, found := 0.0, "", false
		for _, r := range refs {
			d, ok := geo.Within(r.point, p.Point(), radiusKm)
			if ok && (!found || d < best) {
				best, nearest, found = d, r.name, true
			}
		}
		if found {
			d := best
			result.Items = append(result.Items, RadiusHit{Property: p, DistanceKm: &d, Nearest: nearest, MatchedBy: matchRadius})
			continue
		}
		for _, name := range result.Unresolved {
			if containsFold(name, p.Location, p.ProjectName) {
				result.Items = append(result.Items, RadiusHit{Property: p, Nearest: name, MatchedBy: matchTextFallback})
				break
			}
		}
	}

	sort.SliceStable(result.Items, func(i, j int) bool {
		a, b := result.Items[i], result.Items[j]
		switch {
		case a.DistanceKm != nil && b.DistanceKm == nil:
			return true
		case a.DistanceKm == nil && b.DistanceKm != nil:
			return false
		case a.DistanceKm != nil && *a.DistanceKm != *b.DistanceKm:
			return *a.DistanceKm < *b.DistanceKm
		}
		return strings.ToLower(a.Property.ProjectName) < strings.ToLower(b.Property.ProjectName)
	})
	return result, nil
}

// Match runs the wizard preference filter over every listing. At most
// matching.DisplayCap listings are returned; Total counts all matches.
func (s *Service) Match(ctx context.Context, raw matching.RawPreferences) (MatchResult, error) {
	prefs, err := raw.Parse(s.now().In(s.location))
	if err != nil {
		return MatchResult{}, fmt.Errorf("%w: %s", ErrInvalidPreferences, err.Error())
	}
	items, err := s.repo.Find(ctx, bson.M{}, 0, 0)
	if err != nil {
		return MatchResult{}, err
	}
	matched := matching.Filter(items, prefs)
	total := len(matched)
	if len(matched) > matching.DisplayCap {
		matched = matched[:matching.DisplayCap]
	}
	return MatchResult{Items: matched, Total: total}, nil
}
