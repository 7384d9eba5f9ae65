package matching

import (
	"errors"
	"strconv"
	"strings"
)

const (
	Lakh  = 100_000.0
	Crore = 10_000_000.0
)

var ErrUnknownBudget = errors.New("unknown budget range")

// BudgetRange is an inclusive rupee range; Max <= 0 means no upper bound.
type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max,omitempty"`
}

func (b BudgetRange) Contains(price float64) bool {
	if price <= 0 {
		return false
	}
	if price < b.Min {
		return false
	}
	return b.Max <= 0 || price <= b.Max
}

// ContainsAny reports whether any of the listing's prices fall in range.
func (b BudgetRange) ContainsAny(prices []float64) bool {
	for _, p := range prices {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

// ParseBudget understands the wizard bucket slugs ("under-50-lakhs", "50-75-lakhs",
// "75-1-crore", "1-1.5-crore", "above-2-crore", "50-lakhs-1-crore") and raw rupee
// ranges ("5000000-10000000", "5000000-", "-10000000").
func ParseBudget(raw string) (BudgetRange, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("₹", "", ",", "", " ", "-", "_", "-").Replace(s)
	if s == "" {
		return BudgetRange{}, ErrUnknownBudget
	}

	if r, ok := parseRawRange(s); ok {
		return r, nil
	}

	tokens := strings.FieldsFunc(s, func(r rune) bool { return r == '-' })
	if len(tokens) == 0 {
		return BudgetRange{}, ErrUnknownBudget
	}

	switch tokens[0] {
	case "under", "below", "upto", "up", "less":
		amount, ok := amountFrom(tokens[1:])
		if !ok {
			return BudgetRange{}, ErrUnknownBudget
		}
		return BudgetRange{Min: 0, Max: amount}, nil
	case "above", "over", "more", "beyond":
		amount, ok := amountFrom(tokens[1:])
		if !ok {
			return BudgetRange{}, ErrUnknownBudget
		}
		return BudgetRange{Min: amount}, nil
	}

	if last := tokens[len(tokens)-1]; last == "plus" || last == "above" {
		amount, ok := amountFrom(tokens[:len(tokens)-1])
		if !ok {
			return BudgetRange{}, ErrUnknownBudget
		}
		return BudgetRange{Min: amount}, nil
	}

	return parseBetween(tokens)
}

func parseRawRange(s string) (BudgetRange, bool) {
	idx := strings.Index(s, "-")
	if idx < 0 {
		return BudgetRange{}, false
	}
	left, right := s[:idx], s[idx+1:]
	if strings.Contains(right, "-") {
		return BudgetRange{}, false
	}
	var r BudgetRange
	if left != "" {
		v, err := strconv.ParseFloat(left, 64)
		if err != nil {
			return BudgetRange{}, false
		}
		r.Min = v
	}
	if right != "" {
		v, err := strconv.ParseFloat(right, 64)
		if err != nil {
			return BudgetRange{}, false
		}
		r.Max = v
	}
	if left == "" && right == "" {
		return BudgetRange{}, false
	}
	// small numbers without a unit are bucket slugs like "50-75", not rupees
	if r.Min < Lakh && r.Max < Lakh {
		return BudgetRange{}, false
	}
	if r.Max > 0 && r.Min > r.Max {
		return BudgetRange{}, false
	}
	return r, true
}

// parseBetween handles "A-B-unit" and "A-unitA-B-unitB".
func parseBetween(tokens []string) (BudgetRange, error) {
	switch len(tokens) {
	case 3:
		a, errA := strconv.ParseFloat(tokens[0], 64)
		b, errB := strconv.ParseFloat(tokens[1], 64)
		unit, ok := unitValue(tokens[2])
		if errA != nil || errB != nil || !ok {
			return BudgetRange{}, ErrUnknownBudget
		}
		lowUnit := unit
		// "75-1-crore": the lower bound is in lakhs
		if unit == Crore && a > b {
			lowUnit = Lakh
		}
		r := BudgetRange{Min: a * lowUnit, Max: b * unit}
		if r.Min > r.Max {
			return BudgetRange{}, ErrUnknownBudget
		}
		return r, nil
	case 4:
		low, okLow := amountFrom(tokens[:2])
		high, okHigh := amountFrom(tokens[2:])
		if !okLow || !okHigh || low > high {
			return BudgetRange{}, ErrUnknownBudget
		}
		return BudgetRange{Min: low, Max: high}, nil
	}
	return BudgetRange{}, ErrUnknownBudget
}

func amountFrom(tokens []string) (float64, bool) {
	if len(tokens) == 0 || len(tokens) > 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil || v < 0 {
		return 0, false
	}
	if len(tokens) == 1 {
		return v, v >= Lakh
	}
	unit, ok := unitValue(tokens[1])
	if !ok {
		return 0, false
	}
	return v * unit, true
}

func unitValue(token string) (float64, bool) {
	switch token {
	case "l", "lac", "lacs", "lakh", "lakhs":
		return Lakh, true
	case "cr", "crore", "crores":
		return Crore, true
	}
	return 0, false
}

// ParseRupees reads a price written as a number, an Indian-grouped number
// ("1,20,00,000") or with a lakh/crore suffix ("85 L", "1.2 Cr").
func ParseRupees(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("₹", "", ",", "", "/-", "").Replace(s)
	for _, prefix := range []string{"rs.", "rs", "inr"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	multiplier := 1.0
	for _, suffix := range []string{"crores", "crore", "cr", "lakhs", "lakh", "lacs", "lac", "l"} {
		if strings.HasSuffix(s, suffix) {
			multiplier, _ = unitValue(suffix)
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * multiplier, true
}
