package property

import (
	"errors"
	"net/url"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestPriceAndLocationFilter(t *testing.T) {
	values, _ := url.ParseQuery("minPrice=5000000&maxPrice=10000000&location=Gachibowli")
	q, err := ParseQuery(values)
	if err != nil {
		t.Fatalf("ParseQuery error: %v", err)
	}

	got := BuildFilter(q)
	regex := bson.M{"$regex": "Gachibowli", "$options": "i"}
	want := bson.M{"$and": bson.A{
		bson.M{"$or": bson.A{
			bson.M{"Area": regex},
			bson.M{"AreaName": regex},
			bson.M{"location": regex},
		}},
		bson.M{"configurations": bson.M{"$elemMatch": bson.M{"BaseProjectPrice": bson.M{
			"$gte": 5_000_000.0,
			"$lte": 10_000_000.0,
		}}}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected filter:\n got %#v\nwant %#v", got, want)
	}
}

func TestBuildFilterEscapesUserText(t *testing.T) {
	f := BuildFilter(Query{Search: "a.b(c)"})
	or, ok := f["$or"].(bson.A)
	if !ok || len(or) == 0 {
		t.Fatalf("expected $or clause, got %#v", f)
	}
	first := or[0].(bson.M)
	for _, cond := range first {
		if cond.(bson.M)["$regex"] != `a\.b\(c\)` {
			t.Fatalf("regex not escaped: %#v", cond)
		}
	}
	if len(BuildFilter(Query{})) != 0 {
		t.Fatalf("empty query should produce empty filter")
	}
}

func TestConfigurationFilterPattern(t *testing.T) {
	f := BuildFilter(Query{Configuration: "3 BHK"})
	or := f["$or"].(bson.A)
	cond := or[0].(bson.M)["configurations.type"].(bson.M)
	if cond["$regex"] != `(^|[^0-9.])(3)([^0-9.]|$)` {
		t.Fatalf("unexpected pattern %v", cond["$regex"])
	}
}

func TestParseQueryFiltersBlob(t *testing.T) {
	values := url.Values{}
	values.Set("filters", `{"location":"Kokapet","propertyType":"Villa","minPrice":"50 L","builder":"all"}`)
	values.Set("location", "Narsingi")

	q, err := ParseQuery(values)
	if err != nil {
		t.Fatalf("ParseQuery error: %v", err)
	}
	if q.Location != "Narsingi" {
		t.Fatalf("explicit param should win, got %q", q.Location)
	}
	if q.PropertyType != "Villa" || q.MinPrice != 5_000_000 || q.Builder != "" {
		t.Fatalf("unexpected query %+v", q)
	}
}

func TestParseQueryRejectsBadInput(t *testing.T) {
	cases := []string{
		"minPrice=abc",
		"minPrice=9000000&maxPrice=100",
		"filters=not-json",
		"limit=-1",
	}
	for _, raw := range cases {
		values, _ := url.ParseQuery(raw)
		if _, err := ParseQuery(values); !errors.Is(err, ErrInvalidQuery) {
			t.Fatalf("ParseQuery(%q) err = %v, want ErrInvalidQuery", raw, err)
		}
	}
}

func TestListCacheKeyStable(t *testing.T) {
	a := ListCacheKey(Query{Location: "Kokapet", MinPrice: 1})
	b := ListCacheKey(Query{MinPrice: 1, Location: "Kokapet"})
	c := ListCacheKey(Query{Location: "Narsingi", MinPrice: 1})
	if a != b || a == c {
		t.Fatalf("cache keys: %s %s %s", a, b, c)
	}
}
