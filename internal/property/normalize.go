package property

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"realty-backend/internal/matching"
)

// Field aliases, most specific first. The first non-empty value wins.
var (
	projectNameKeys = []string{"ProjectName", "projectName", "name"}
	builderKeys     = []string{"BuilderName", "builderName", "builder"}
	locationKeys    = []string{"Area", "AreaName", "location", "Location"}
	cityKeys        = []string{"City", "city"}
	typeKeys        = []string{"PropertyType", "propertyType", "type"}
	statusKeys      = []string{"Construction_status", "constructionStatus", "ConstructionStatus"}
	possessionKeys  = []string{"Possession_date", "possessionDate", "possession"}
	latitudeKeys    = []string{"latitude", "Latitude", "lat"}
	longitudeKeys   = []string{"longitude", "Longitude", "lng"}
	priceKeys       = []string{"price", "Price"}
	perSqftKeys     = []string{"Price_per_sft", "pricePerSqft"}
	minBudgetKeys   = []string{"minBudget", "Min_budget"}
	maxBudgetKeys   = []string{"maxBudget", "Max_budget"}
	amenityKeys     = []string{"amenities", "Amenities"}
	imageKeys       = []string{"images", "Images"}
	reraKeys        = []string{"RERA_Number", "reraNumber"}

	configTypeKeys  = []string{"type", "Type"}
	configSizeKeys  = []string{"sizeRange", "Size", "size"}
	configPriceKeys = []string{"BaseProjectPrice", "basePrice"}
)

const defaultCity = "Hyderabad"

// Normalize maps a raw listing document onto Property. It never fails; fields it
// cannot read are left empty.
func Normalize(doc bson.M) Property {
	p := Property{
		ID:                 idString(doc["_id"]),
		ProjectName:        stringField(doc, projectNameKeys...),
		BuilderName:        stringField(doc, builderKeys...),
		Location:           stringField(doc, locationKeys...),
		City:               stringField(doc, cityKeys...),
		PropertyType:       stringField(doc, typeKeys...),
		ConstructionStatus: stringField(doc, statusKeys...),
		Possession:         stringField(doc, possessionKeys...),
		Price:              numberField(doc, priceKeys...),
		PricePerSqft:       numberField(doc, perSqftKeys...),
		MinBudget:          numberField(doc, minBudgetKeys...),
		MaxBudget:          numberField(doc, maxBudgetKeys...),
		Latitude:           numberField(doc, latitudeKeys...),
		Longitude:          numberField(doc, longitudeKeys...),
		Amenities:          listField(doc, amenityKeys...),
		Images:             listField(doc, imageKeys...),
		RERANumber:         stringField(doc, reraKeys...),
		GoogleRating:       numberField(doc, "google_place_rating"),
		GoogleRatingCount:  int(numberField(doc, "google_place_user_ratings_total")),
		CreatedAt:          timeField(doc, "createdAt", "created_at"),
		UpdatedAt:          timeField(doc, "updatedAt", "updated_at"),
	}
	if p.City == "" {
		p.City = defaultCity
	}
	if ym, ok := matching.ParsePossession(p.Possession); ok {
		p.PossessionAt = &ym
	}
	p.Configurations = configurations(doc["configurations"])
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p
}

func configurations(raw interface{}) []Configuration {
	out := []Configuration{}
	switch v := raw.(type) {
	case string:
		for _, label := range splitLabels(v) {
			out = append(out, Configuration{Type: label, BHK: matching.NormalizeConfiguration(label)})
		}
	case primitive.A:
		return configurationList([]interface{}(v))
	case []interface{}:
		return configurationList(v)
	}
	return out
}

func configurationList(items []interface{}) []Configuration {
	out := make([]Configuration, 0, len(items))
	for _, item := range items {
		if label, ok := item.(string); ok {
			label = strings.TrimSpace(label)
			if label != "" {
				out = append(out, Configuration{Type: label, BHK: matching.NormalizeConfiguration(label)})
			}
			continue
		}
		m, ok := asMap(item)
		if !ok {
			continue
		}
		c := Configuration{
			Type:      stringField(m, configTypeKeys...),
			Size:      stringField(m, configSizeKeys...),
			BasePrice: numberField(m, configPriceKeys...),
		}
		c.BHK = matching.NormalizeConfiguration(c.Type)
		if c.Type == "" && c.BasePrice == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// splitLabels turns "2, 3 BHK" into ["2 BHK", "3 BHK"] so each unit type stands alone.
func splitLabels(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	key := matching.NormalizeConfiguration(s)
	if key == "" {
		return []string{s}
	}
	counts := matching.ConfigurationCounts(key)
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c + " BHK"
	}
	return out
}

func asMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return bson.M(m), true
	case primitive.D:
		return m.Map(), true
	}
	return nil, false
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func stringField(doc bson.M, keys ...string) string {
	for _, k := range keys {
		switch v := doc[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case int32, int64, float64:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// numberField accepts numbers or price-like strings ("1,20,00,000", "85 L").
func numberField(doc bson.M, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := toFloat(doc[k]); ok {
			return v
		}
	}
	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n == 0 {
			return 0, false
		}
		return n, true
	case float32:
		return toFloat(float64(n))
	case int32:
		return toFloat(float64(n))
	case int64:
		return toFloat(float64(n))
	case int:
		return toFloat(float64(n))
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, false
		}
		return toFloat(f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return toFloat(f)
		}
		return matching.ParseRupees(s)
	}
	return 0, false
}

func listField(doc bson.M, keys ...string) []string {
	for _, k := range keys {
		var items []interface{}
		switch v := doc[k].(type) {
		case primitive.A:
			items = v
		case []interface{}:
			items = v
		case []string:
			if len(v) > 0 {
				return append([]string(nil), v...)
			}
			continue
		case string:
			if parts := splitComma(v); len(parts) > 0 {
				return parts
			}
			continue
		default:
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func timeField(doc bson.M, keys ...string) *time.Time {
	for _, k := range keys {
		switch v := doc[k].(type) {
		case primitive.DateTime:
			t := v.Time().UTC()
			return &t
		case time.Time:
			t := v.UTC()
			return &t
		case string:
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

// Document converts an admin payload to the stored field layout.
func (req UpsertRequest) Document() bson.M {
	configs := make(bson.A, 0, len(req.Configurations))
	for _, c := range req.Configurations {
		configs = append(configs, bson.M{
			"type":             strings.TrimSpace(c.Type),
			"sizeRange":        strings.TrimSpace(c.Size),
			"BaseProjectPrice": c.BasePrice,
		})
	}
	amenities := cleanList(req.Amenities)
	images := cleanList(req.Images)
	return bson.M{
		"ProjectName":         strings.TrimSpace(req.ProjectName),
		"BuilderName":         strings.TrimSpace(req.BuilderName),
		"Area":                strings.TrimSpace(req.Location),
		"City":                strings.TrimSpace(req.City),
		"PropertyType":        strings.TrimSpace(req.PropertyType),
		"Construction_status": strings.TrimSpace(req.ConstructionStatus),
		"Possession_date":     strings.TrimSpace(req.Possession),
		"configurations":      configs,
		"price":               req.Price,
		"Price_per_sft":       req.PricePerSqft,
		"latitude":            req.Latitude,
		"longitude":           req.Longitude,
		"amenities":           amenities,
		"images":              images,
		"RERA_Number":         strings.TrimSpace(req.RERANumber),
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
