package property

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"realty-backend/internal/httpx"
	"realty-backend/internal/matching"
)

var ErrInvalidQuery = errors.New("invalid query")

// Query is the listing filter bag. Zero values are inactive.
type Query struct {
	Search             string  `json:"search,omitempty"`
	Location           string  `json:"location,omitempty"`
	PropertyType       string  `json:"propertyType,omitempty"`
	MinPrice           float64 `json:"minPrice,omitempty"`
	MaxPrice           float64 `json:"maxPrice,omitempty"`
	Configuration      string  `json:"configuration,omitempty"`
	ConstructionStatus string  `json:"constructionStatus,omitempty"`
	Builder            string  `json:"builder,omitempty"`
	Limit              int64   `json:"limit,omitempty"`
	Offset             int64   `json:"offset,omitempty"`
}

const (
	defaultLimit = 0
	maxLimit     = 1000
)

// ParseQuery reads filters from query parameters and from an optional JSON
// "filters" parameter. Explicit parameters override the JSON blob.
func ParseQuery(values url.Values) (Query, error) {
	var q Query
	if raw := strings.TrimSpace(values.Get("filters")); raw != "" {
		blob, err := parseFiltersBlob(raw)
		if err != nil {
			return Query{}, err
		}
		q = blob
	}

	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(values.Get(k)); v != "" && !isAll(v) {
				*dst = v
				return
			}
		}
	}
	setString(&q.Search, "search", "q")
	setString(&q.Location, "location", "area")
	setString(&q.PropertyType, "propertyType", "type")
	setString(&q.Configuration, "configuration", "bhk")
	setString(&q.ConstructionStatus, "constructionStatus", "status")
	setString(&q.Builder, "builder", "builderName")

	for key, dst := range map[string]*float64{"minPrice": &q.MinPrice, "maxPrice": &q.MaxPrice} {
		raw := strings.TrimSpace(values.Get(key))
		if raw == "" {
			continue
		}
		v, ok := parsePrice(raw)
		if !ok {
			return Query{}, fmt.Errorf("%w: %s", ErrInvalidQuery, key)
		}
		*dst = v
	}
	if q.MaxPrice > 0 && q.MinPrice > q.MaxPrice {
		return Query{}, fmt.Errorf("%w: minPrice above maxPrice", ErrInvalidQuery)
	}

	limit, offset, err := httpx.ParseLimitOffset(values, defaultLimit, maxLimit)
	if err != nil {
		return Query{}, fmt.Errorf("%w: %s", ErrInvalidQuery, err.Error())
	}
	q.Limit, q.Offset = limit, offset
	return q, nil
}

func parseFiltersBlob(raw string) (Query, error) {
	var blob map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		return Query{}, fmt.Errorf("%w: filters must be a JSON object", ErrInvalidQuery)
	}
	var q Query
	str := func(key string) string {
		if s, ok := blob[key].(string); ok && !isAll(s) {
			return strings.TrimSpace(s)
		}
		return ""
	}
	num := func(key string) float64 {
		switch v := blob[key].(type) {
		case float64:
			return v
		case string:
			f, _ := parsePrice(v)
			return f
		}
		return 0
	}
	q.Search = str("search")
	q.Location = str("location")
	q.PropertyType = str("propertyType")
	q.Configuration = str("configuration")
	q.ConstructionStatus = str("constructionStatus")
	q.Builder = str("builder")
	q.MinPrice = num("minPrice")
	q.MaxPrice = num("maxPrice")
	return q, nil
}

func parsePrice(raw string) (float64, bool) {
	if v, ok := httpx.ParseFloat(raw); ok {
		return v, v >= 0
	}
	return matching.ParseRupees(raw)
}

func isAll(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "any":
		return true
	}
	return false
}

func (q Query) Values() url.Values {
	v := url.Values{}
	add := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	add("search", q.Search)
	add("location", q.Location)
	add("propertyType", q.PropertyType)
	add("configuration", q.Configuration)
	add("constructionStatus", q.ConstructionStatus)
	add("builder", q.Builder)
	if q.MinPrice > 0 {
		v.Set("minPrice", strconv.FormatFloat(q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.FormatInt(q.Limit, 10))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.FormatInt(q.Offset, 10))
	}
	return v
}

func containsRegex(text string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}
}

func anyField(fields []string, cond interface{}) bson.M {
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: cond})
	}
	return bson.M{"$or": or}
}

// filterLocationFields are the fields a location filter inspects.
var filterLocationFields = []string{"Area", "AreaName", "location"}

// BuildFilter turns a Query into a Mongo filter. User text is always regex-escaped.
func BuildFilter(q Query) bson.M {
	var clauses bson.A

	if s := strings.TrimSpace(q.Search); s != "" {
		fields := append(append(append([]string{}, projectNameKeys...), builderKeys...), locationKeys...)
		clauses = append(clauses, anyField(fields, containsRegex(s)))
	}
	if s := strings.TrimSpace(q.Location); s != "" {
		clauses = append(clauses, anyField(filterLocationFields, containsRegex(s)))
	}
	if q.MinPrice > 0 || q.MaxPrice > 0 {
		bounds := bson.M{}
		if q.MinPrice > 0 {
			bounds["$gte"] = q.MinPrice
		}
		if q.MaxPrice > 0 {
			bounds["$lte"] = q.MaxPrice
		}
		clauses = append(clauses, bson.M{"configurations": bson.M{"$elemMatch": bson.M{"BaseProjectPrice": bounds}}})
	}
	if s := strings.TrimSpace(q.PropertyType); s != "" {
		clauses = append(clauses, anyField(typeKeys, containsRegex(s)))
	}
	if s := strings.TrimSpace(q.ConstructionStatus); s != "" {
		clauses = append(clauses, anyField(statusKeys, containsRegex(s)))
	}
	if s := strings.TrimSpace(q.Builder); s != "" {
		clauses = append(clauses, anyField(builderKeys, containsRegex(s)))
	}
	if key := matching.NormalizeConfiguration(q.Configuration); key != "" {
		clauses = append(clauses, anyField(
			[]string{"configurations.type", "configurations.Type", "configurations"},
			bson.M{"$regex": configurationPattern(key), "$options": "i"},
		))
	}

	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0].(bson.M)
	}
	return bson.M{"$and": clauses}
}

// configurationPattern matches any of the bedroom counts as a standalone number.
func configurationPattern(key string) string {
	counts := matching.ConfigurationCounts(key)
	quoted := make([]string, len(counts))
	for i, c := range counts {
		quoted[i] = regexp.QuoteMeta(c)
	}
	return `(^|[^0-9.])(` + strings.Join(quoted, "|") + `)([^0-9.]|$)`
}

func containsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(needle)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
