package matching

import (
	"errors"
	"math"
	"testing"
)

func TestParseBudgetBuckets(t *testing.T) {
	cases := []struct {
		in       string
		min, max float64
	}{
		{"under-50-lakhs", 0, 5_000_000},
		{"50-75-lakhs", 5_000_000, 7_500_000},
		{"75-1-crore", 7_500_000, 10_000_000},
		{"1-1.5-crore", 10_000_000, 15_000_000},
		{"above-2-crore", 20_000_000, 0},
		{"2-crore-plus", 20_000_000, 0},
		{"50-lakhs-1-crore", 5_000_000, 10_000_000},
		{"5000000-10000000", 5_000_000, 10_000_000},
		{"5000000-", 5_000_000, 0},
		{"-10000000", 0, 10_000_000},
	}
	for _, tc := range cases {
		got, err := ParseBudget(tc.in)
		if err != nil {
			t.Fatalf("ParseBudget(%q) error: %v", tc.in, err)
		}
		if math.Abs(got.Min-tc.min) > 1 || math.Abs(got.Max-tc.max) > 1 {
			t.Fatalf("ParseBudget(%q) = %+v, want [%v, %v]", tc.in, got, tc.min, tc.max)
		}
	}
}

func TestParseBudgetRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "banana", "50-75", "10000000-5000000"} {
		if _, err := ParseBudget(in); !errors.Is(err, ErrUnknownBudget) {
			t.Fatalf("ParseBudget(%q) err = %v, want ErrUnknownBudget", in, err)
		}
	}
}

func TestUnderFiftyLakhs(t *testing.T) {
	b, err := ParseBudget("under-50-lakhs")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, p := range []float64{1, 2_500_000, 5_000_000} {
		if !b.Contains(p) {
			t.Fatalf("expected %v in range", p)
		}
	}
	for _, p := range []float64{0, -10, 5_000_001} {
		if b.Contains(p) {
			t.Fatalf("expected %v out of range", p)
		}
	}
}

func TestAboveTwoCrore(t *testing.T) {
	b, err := ParseBudget("above-2-crore")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !b.Contains(20_000_000) || !b.Contains(95_000_000) {
		t.Fatalf("expected prices at or above 2 crore to match")
	}
	if b.Contains(19_999_999) {
		t.Fatalf("expected price below 2 crore to miss")
	}
	if !b.ContainsAny([]float64{1_000_000, 25_000_000}) {
		t.Fatalf("ContainsAny should match any price")
	}
}

func TestParseRupees(t *testing.T) {
	cases := map[string]float64{
		"1,20,00,000":   12_000_000,
		"85 L":          8_500_000,
		"1.2 Cr":        12_000_000,
		"2 crores":      20_000_000,
		"Rs. 45,00,000": 4_500_000,
		"₹ 90 Lakhs":    9_000_000,
		"7500000":       7_500_000,
	}
	for in, want := range cases {
		got, ok := ParseRupees(in)
		if !ok || math.Abs(got-want) > 1 {
			t.Fatalf("ParseRupees(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "on request", "0", "-5"} {
		if _, ok := ParseRupees(in); ok {
			t.Fatalf("ParseRupees(%q) should fail", in)
		}
	}
}
