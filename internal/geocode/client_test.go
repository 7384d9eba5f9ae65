package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, key string, rps int, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(key, rps, opts...)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return c
}

func TestClientGeocodeOK(t *testing.T) {
	var gotAddress, gotKey, gotRegion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddress = r.URL.Query().Get("address")
		gotKey = r.URL.Query().Get("key")
		gotRegion = r.URL.Query().Get("region")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Kokapet, Hyderabad","geometry":{"location":{"lat":17.395,"lng":78.33}}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, "k123", 50, WithBaseURL(srv.URL), WithRegionSuffix(", Hyderabad, Telangana"))
	res, err := c.Geocode(context.Background(), "Kokapet")
	if err != nil {
		t.Fatalf("Geocode error: %v", err)
	}
	if res.Point.Lat != 17.395 || res.Point.Lng != 78.33 || res.FormattedAddress != "Kokapet, Hyderabad" {
		t.Fatalf("unexpected result %+v", res)
	}
	if gotAddress != "Kokapet, Hyderabad, Telangana" || gotKey != "k123" || gotRegion != "in" {
		t.Fatalf("unexpected query address=%q key=%q region=%q", gotAddress, gotKey, gotRegion)
	}

	if _, err := c.Geocode(context.Background(), "Madhapur, Hyderabad"); err != nil {
		t.Fatalf("Geocode error: %v", err)
	}
	if gotAddress != "Madhapur, Hyderabad" {
		t.Fatalf("suffix should not be repeated, got %q", gotAddress)
	}
}

func TestClientZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, "k", 50, WithBaseURL(srv.URL))
	if _, err := c.Geocode(context.Background(), "Nowhere"); !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestClientDenied(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, "k", 50, WithBaseURL(srv.URL))
	if _, err := c.Geocode(context.Background(), "Kokapet"); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("denied requests must not be retried, hits=%d", hits.Load())
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":17.44,"lng":78.35}}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, "k", 50, WithBaseURL(srv.URL))
	res, err := c.Geocode(context.Background(), "Gachibowli")
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if hits.Load() != 2 || !res.Point.Valid() {
		t.Fatalf("hits=%d res=%+v", hits.Load(), res)
	}
}

func TestClientDisabledWithoutKey(t *testing.T) {
	c := newTestClient(t, "  ", 0)
	if c.Enabled() {
		t.Fatalf("client without key should be disabled")
	}
	if _, err := c.Geocode(context.Background(), "Kokapet"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
