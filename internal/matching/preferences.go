package matching

import (
	"strings"
	"time"
)

// DisplayCap is how many wizard matches are shown; matches are otherwise unordered.
const DisplayCap = 6

// Listing is the view of a property the preference filter needs.
type Listing interface {
	ResolvedPrices() []float64
	PossessionMonth() (YearMonth, bool)
	ReadyToMove() bool
	ConfigurationKeys() []string
	LocationText() string
}

// Preferences are the wizard answers parsed once at the API boundary.
// A nil or empty field is inactive.
type Preferences struct {
	Budget        *BudgetRange      `json:"budget,omitempty"`
	Possession    *PossessionWindow `json:"-"`
	Configuration string            `json:"configuration,omitempty"`
	Locations     []string          `json:"locations,omitempty"`
}

type RawPreferences struct {
	Budget        string   `json:"budget"`
	Possession    string   `json:"possession"`
	Configuration string   `json:"configuration"`
	Locations     []string `json:"locations"`
}

// Parse converts bucket strings into typed filters. Unknown budget or timeline
// buckets are errors; an unrecognisable configuration is ignored.
func (r RawPreferences) Parse(now time.Time) (Preferences, error) {
	var p Preferences
	if strings.TrimSpace(r.Budget) != "" && !isAny(r.Budget) {
		b, err := ParseBudget(r.Budget)
		if err != nil {
			return Preferences{}, err
		}
		p.Budget = &b
	}
	if strings.TrimSpace(r.Possession) != "" && !isAny(r.Possession) {
		w, err := ParseTimeline(r.Possession, now)
		if err != nil {
			return Preferences{}, err
		}
		p.Possession = &w
	}
	if !isAny(r.Configuration) {
		p.Configuration = NormalizeConfiguration(r.Configuration)
	}
	for _, loc := range r.Locations {
		loc = strings.TrimSpace(loc)
		if loc != "" && !isAny(loc) {
			p.Locations = append(p.Locations, loc)
		}
	}
	return p, nil
}

func isAny(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any", "all", "no-preference":
		return true
	}
	return false
}

func (p Preferences) Active() bool {
	return p.Budget != nil || p.Possession != nil || p.Configuration != "" || len(p.Locations) > 0
}

// Matches reports whether l satisfies every active preference.
func (p Preferences) Matches(l Listing) bool {
	if p.Budget != nil && !p.Budget.ContainsAny(l.ResolvedPrices()) {
		return false
	}
	if p.Possession != nil {
		at, known := l.PossessionMonth()
		if !p.Possession.Contains(at, known, l.ReadyToMove()) {
			return false
		}
	}
	if p.Configuration != "" && !configurationMatches(p.Configuration, l.ConfigurationKeys()) {
		return false
	}
	if len(p.Locations) > 0 && !locationMatches(p.Locations, l.LocationText()) {
		return false
	}
	return true
}

func configurationMatches(want string, keys []string) bool {
	wanted := make(map[string]bool)
	for _, c := range ConfigurationCounts(want) {
		wanted[c] = true
	}
	for _, key := range keys {
		for _, c := range ConfigurationCounts(key) {
			if wanted[c] {
				return true
			}
		}
	}
	return false
}

func locationMatches(locations []string, text string) bool {
	text = strings.ToLower(text)
	if text == "" {
		return false
	}
	for _, loc := range locations {
		if strings.Contains(text, strings.ToLower(loc)) {
			return true
		}
	}
	return false
}

// Filter returns the listings that match p, preserving input order.
func Filter[T Listing](items []T, p Preferences) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if p.Matches(item) {
			out = append(out, item)
		}
	}
	return out
}
