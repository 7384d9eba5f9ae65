package matching

import (
	"sort"
	"strconv"
	"strings"
)

var configurationSeparators = strings.NewReplacer(
	" and ", ",",
	"&", ",",
	"/", ",",
	"+", ",",
	"-", ",",
	";", ",",
)

// NormalizeConfiguration reduces a unit configuration label to its sorted bedroom
// counts: "2 BHK" -> "2", "3 & 2 BHK" -> "2,3", "2.5-BHK" -> "2.5".
// Labels without a bedroom count ("Villa", "Plot") normalize to "".
func NormalizeConfiguration(raw string) string {
	s := " " + strings.ToLower(raw) + " "
	s = strings.ReplaceAll(s, "bhk", " ")
	s = configurationSeparators.Replace(s)

	seen := make(map[float64]bool)
	var counts []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v <= 0 || v > 20 {
			continue
		}
		if !seen[v] {
			seen[v] = true
			counts = append(counts, v)
		}
	}
	sort.Float64s(counts)

	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = strconv.FormatFloat(c, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ConfigurationCounts splits a normalized key back into its bedroom counts.
func ConfigurationCounts(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, ",")
}

// DistinctConfigurations normalizes labels and returns the distinct non-empty keys
// ordered numerically: ["2 BHK", "2-BHK", "3,4 BHK"] -> ["2", "3,4"].
func DistinctConfigurations(labels []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, label := range labels {
		key := NormalizeConfiguration(label)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessConfiguration(out[i], out[j])
	})
	return out
}

func lessConfiguration(a, b string) bool {
	pa, pb := ConfigurationCounts(a), ConfigurationCounts(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		va, _ := strconv.ParseFloat(pa[i], 64)
		vb, _ := strconv.ParseFloat(pb[i], 64)
		if va != vb {
			return va < vb
		}
	}
	return len(pa) < len(pb)
}
