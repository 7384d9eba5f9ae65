package httpx

import (
	"net/url"
	"strings"
	"testing"
)

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	if err := DecodeJSON(strings.NewReader(`{"name":"a"}{"name":"b"}`), &v); err == nil {
		t.Fatalf("expected error for two objects")
	}
	if err := DecodeJSON(strings.NewReader(`{"name":"a","extra":1}`), &v); err == nil {
		t.Fatalf("expected error for unknown field")
	}
	if err := DecodeJSON(strings.NewReader(`{"name":"a"}`), &v); err != nil || v.Name != "a" {
		t.Fatalf("unexpected decode: %v %+v", err, v)
	}
}

func TestParseLimitOffset(t *testing.T) {
	limit, offset, err := ParseLimitOffset(url.Values{"limit": {"500"}, "offset": {"20"}}, 20, 100)
	if err != nil {
		t.Fatalf("ParseLimitOffset error: %v", err)
	}
	if limit != 100 || offset != 20 {
		t.Fatalf("unexpected limit/offset: %d/%d", limit, offset)
	}
	if _, _, err := ParseLimitOffset(url.Values{"limit": {"-1"}}, 20, 100); err == nil {
		t.Fatalf("expected invalid limit")
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV([]string{"Gachibowli, Kondapur", "", "Kokapet,"})
	if len(got) != 3 || got[0] != "Gachibowli" || got[1] != "Kondapur" || got[2] != "Kokapet" {
		t.Fatalf("unexpected split: %v", got)
	}
}

func TestParseFloat(t *testing.T) {
	if v, ok := ParseFloat("1,00,00,000"); !ok || v != 10000000 {
		t.Fatalf("unexpected parse: %v %v", v, ok)
	}
	if _, ok := ParseFloat("abc"); ok {
		t.Fatalf("expected failure")
	}
}
