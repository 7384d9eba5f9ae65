package property

import (
	"strings"
	"time"

	"realty-backend/internal/geo"
	"realty-backend/internal/matching"
)

type Configuration struct {
	Type      string  `json:"type"`
	BHK       string  `json:"bhk,omitempty"`
	Size      string  `json:"size,omitempty"`
	BasePrice float64 `json:"basePrice,omitempty"`
}

// Property is the canonical view of a listing document. Raw documents carry several
// aliases per field; Normalize is the only place that knows about them.
type Property struct {
	ID                 string              `json:"id"`
	ProjectName        string              `json:"projectName"`
	BuilderName        string              `json:"builderName,omitempty"`
	Location           string              `json:"location,omitempty"`
	City               string              `json:"city,omitempty"`
	PropertyType       string              `json:"propertyType,omitempty"`
	ConstructionStatus string              `json:"constructionStatus,omitempty"`
	Possession         string              `json:"possession,omitempty"`
	PossessionAt       *matching.YearMonth `json:"possessionAt,omitempty"`
	Configurations     []Configuration     `json:"configurations"`
	Price              float64             `json:"price,omitempty"`
	PricePerSqft       float64             `json:"pricePerSqft,omitempty"`
	MinBudget          float64             `json:"minBudget,omitempty"`
	MaxBudget          float64             `json:"maxBudget,omitempty"`
	Latitude           float64             `json:"latitude"`
	Longitude          float64             `json:"longitude"`
	CoordinatesPatched bool                `json:"coordinatesPatched,omitempty"`
	Amenities          []string            `json:"amenities"`
	Images             []string            `json:"images"`
	RERANumber         string              `json:"reraNumber,omitempty"`
	GoogleRating       float64             `json:"googleRating,omitempty"`
	GoogleRatingCount  int                 `json:"googleRatingCount,omitempty"`
	CreatedAt          *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time          `json:"updatedAt,omitempty"`
}

func (p Property) Point() geo.Point {
	return geo.Point{Lat: p.Latitude, Lng: p.Longitude}
}

// PatchCoordinates fills missing coordinates from the locality named in the
// location text. It reports whether anything changed.
func (p *Property) PatchCoordinates(table *geo.Table) bool {
	if p.Point().Valid() || table == nil {
		return false
	}
	n, ok := table.Match(p.Location)
	if !ok {
		n, ok = table.Match(p.ProjectName)
	}
	if !ok {
		return false
	}
	p.Latitude, p.Longitude = n.Lat, n.Lng
	p.CoordinatesPatched = true
	return true
}

// ResolvedPrices returns every positive price known for the listing.
func (p Property) ResolvedPrices() []float64 {
	prices := make([]float64, 0, len(p.Configurations)+3)
	for _, c := range p.Configurations {
		if c.BasePrice > 0 {
			prices = append(prices, c.BasePrice)
		}
	}
	for _, v := range []float64{p.Price, p.MinBudget, p.MaxBudget} {
		if v > 0 {
			prices = append(prices, v)
		}
	}
	return prices
}

func (p Property) PossessionMonth() (matching.YearMonth, bool) {
	if p.PossessionAt == nil {
		return matching.YearMonth{}, false
	}
	return *p.PossessionAt, true
}

func (p Property) ReadyToMove() bool {
	return matching.IsReadyMarker(p.ConstructionStatus) || matching.IsReadyMarker(p.Possession)
}

func (p Property) ConfigurationKeys() []string {
	keys := make([]string, 0, len(p.Configurations))
	for _, c := range p.Configurations {
		if c.BHK != "" {
			keys = append(keys, c.BHK)
		}
	}
	return keys
}

func (p Property) LocationText() string {
	return strings.TrimSpace(p.Location + " " + p.City)
}

type FilterOptions struct {
	Locations          []string `json:"locations"`
	PropertyTypes      []string `json:"propertyTypes"`
	Builders           []string `json:"builders"`
	ConstructionStatus []string `json:"constructionStatus"`
	Configurations     []string `json:"configurations"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type ConfigurationInput struct {
	Type      string  `json:"type" validate:"required,max=60"`
	Size      string  `json:"sizeRange,omitempty" validate:"max=60"`
	BasePrice float64 `json:"basePrice,omitempty" validate:"gte=0"`
}

// UpsertRequest is the admin payload; it is stored under the field names the
// import scripts use so imported and API-created listings look alike.
type UpsertRequest struct {
	ProjectName        string               `json:"projectName" validate:"required,max=200"`
	BuilderName        string               `json:"builderName" validate:"max=200"`
	Location           string               `json:"location" validate:"required,max=200"`
	City               string               `json:"city" validate:"max=100"`
	PropertyType       string               `json:"propertyType" validate:"max=100"`
	ConstructionStatus string               `json:"constructionStatus" validate:"max=100"`
	Possession         string               `json:"possession" validate:"max=40"`
	Configurations     []ConfigurationInput `json:"configurations" validate:"dive"`
	Price              float64              `json:"price" validate:"gte=0"`
	PricePerSqft       float64              `json:"pricePerSqft" validate:"gte=0"`
	Latitude           float64              `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude          float64              `json:"longitude" validate:"gte=-180,lte=180"`
	Amenities          []string             `json:"amenities"`
	Images             []string             `json:"images" validate:"dive,url"`
	RERANumber         string               `json:"reraNumber" validate:"max=100"`
}

type RadiusHit struct {
	Property   Property `json:"property"`
	DistanceKm *float64 `json:"distanceKm,omitempty"`
	Nearest    string   `json:"nearest,omitempty"`
	MatchedBy  string   `json:"matchedBy"`
}

type RadiusResult struct {
	RadiusKm   float64     `json:"radiusKm"`
	Items      []RadiusHit `json:"items"`
	Resolved   []Resolved  `json:"resolved"`
	Unresolved []string    `json:"unresolved"`
}

type Resolved struct {
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Source string  `json:"source"`
}

type MatchResult struct {
	Items []Property `json:"items"`
	Total int        `json:"total"`
}
