package geo

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed neighborhoods.yaml
var neighborhoodsYAML []byte

type Neighborhood struct {
	Name    string   `yaml:"name" json:"name"`
	Lat     float64  `yaml:"lat" json:"lat"`
	Lng     float64  `yaml:"lng" json:"lng"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

func (n Neighborhood) Point() Point {
	return Point{Lat: n.Lat, Lng: n.Lng}
}

type Table struct {
	entries []Neighborhood
	byKey   map[string]int
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Neighborhoods returns the embedded locality table. It panics only if the embedded file is broken.
func Neighborhoods() *Table {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = ParseTable(neighborhoodsYAML)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultTable
}

func ParseTable(raw []byte) (*Table, error) {
	var entries []Neighborhood
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse neighborhoods: %w", err)
	}
	t := &Table{entries: entries, byKey: make(map[string]int, len(entries)*2)}
	for i, n := range entries {
		if !n.Point().Valid() {
			return nil, fmt.Errorf("neighborhood %q has invalid coordinates", n.Name)
		}
		for _, name := range append([]string{n.Name}, n.Aliases...) {
			key := NormalizeName(name)
			if key == "" {
				continue
			}
			if _, dup := t.byKey[key]; dup {
				return nil, fmt.Errorf("duplicate neighborhood name %q", name)
			}
			t.byKey[key] = i
		}
	}
	return t, nil
}

func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) All() []Neighborhood {
	out := make([]Neighborhood, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup matches a name or alias exactly, ignoring case and punctuation.
func (t *Table) Lookup(name string) (Neighborhood, bool) {
	idx, ok := t.byKey[NormalizeName(name)]
	if !ok {
		return Neighborhood{}, false
	}
	return t.entries[idx], true
}

// Match finds the locality mentioned in free text such as "Plot 12, Kokapet, Hyderabad".
// The longest matching name wins so "Financial District" beats a shorter overlap.
func (t *Table) Match(text string) (Neighborhood, bool) {
	norm := " " + NormalizeName(text) + " "
	if strings.TrimSpace(norm) == "" {
		return Neighborhood{}, false
	}
	best, bestLen := -1, 0
	for key, idx := range t.byKey {
		if len(key) < bestLen || (len(key) == bestLen && idx >= best) {
			continue
		}
		if strings.Contains(norm, " "+key+" ") {
			best, bestLen = idx, len(key)
		}
	}
	if best < 0 {
		return Neighborhood{}, false
	}
	return t.entries[best], true
}

// NormalizeName lowercases and reduces punctuation to single spaces.
func NormalizeName(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
