package cache

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedis(mr.Addr(), "", 0), mr
}

func TestRedisGetSetDelete(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "filter-options", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	val, ok, err := c.Get(ctx, "filter-options")
	if err != nil || !ok || string(val) != `{"a":1}` {
		t.Fatalf("unexpected get: %q ok=%v err=%v", val, ok, err)
	}
	if err := c.Delete(ctx, "filter-options"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "filter-options"); ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestRedisTTL(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()
	if err := c.Set(ctx, "price-range", []byte("x"), time.Second); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, ok, _ := c.Get(ctx, "price-range"); ok {
		t.Fatalf("expected key to expire")
	}
}

func TestRedisDeletePrefix(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()
	for _, k := range []string{"properties:a", "properties:b", "blog:a"} {
		if err := c.Set(ctx, k, []byte("1"), time.Minute); err != nil {
			t.Fatalf("Set error: %v", err)
		}
	}
	if err := c.DeletePrefix(ctx, "properties:"); err != nil {
		t.Fatalf("DeletePrefix error: %v", err)
	}
	if mr.Exists("properties:a") || mr.Exists("properties:b") {
		t.Fatalf("expected properties keys removed")
	}
	if !mr.Exists("blog:a") {
		t.Fatalf("expected unrelated key to stay")
	}
}

func TestQueryKeyIgnoresOrder(t *testing.T) {
	a := url.Values{"location": {"Kokapet"}, "minPrice": {"5000000"}}
	b := url.Values{"minPrice": {"5000000"}, "location": {"Kokapet"}}
	if QueryKey("properties", a) != QueryKey("properties", b) {
		t.Fatalf("expected equal keys")
	}
	c := url.Values{"location": {"Kondapur"}}
	if QueryKey("properties", a) == QueryKey("properties", c) {
		t.Fatalf("expected different keys")
	}
}
