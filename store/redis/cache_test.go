package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/prabhatkmr/beema-sub003/layout"
	"github.com/prabhatkmr/beema-sub003/value"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client), mr
}

func testResolution() *layout.Resolution {
	return &layout.Resolution{
		Schema: value.Object{
			"type": value.String("grid"),
			"columns": value.Array(
				value.String("broker"),
				value.String("premium"),
			),
		},
		Metadata: layout.Metadata{
			LayoutName: "policy-detail-de",
			Context:    "detail",
			ObjectType: "policy",
		},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key := layout.Request{Context: "detail", ObjectType: "policy", MarketContext: "de"}.CacheKey()
	want := testResolution()
	if err := cache.PutResolution(ctx, key, want, time.Minute); err != nil {
		t.Fatal(err)
	}

	got, hit, err := cache.GetResolution(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("expected a hit")
	}
	if got.Metadata != want.Metadata {
		t.Errorf("metadata = %+v, want %+v", got.Metadata, want.Metadata)
	}
	if !got.Schema.Equal(want.Schema) {
		t.Errorf("schema = %v, want %v", got.Schema, want.Schema)
	}
}

func TestCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	_, hit, err := cache.GetResolution(context.Background(), "layout:unknown")
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("expected a miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.PutResolution(ctx, "layout:k", testResolution(), time.Minute); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)

	_, hit, err := cache.GetResolution(ctx, "layout:k")
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("expected expiry")
	}
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t)

	if err := mr.Set("layout:k", "not msgpack"); err != nil {
		t.Fatal(err)
	}
	_, hit, err := cache.GetResolution(context.Background(), "layout:k")
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("corrupt entry should be a miss")
	}
}

func TestDefaultResolutionCaches(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	req := layout.Request{Context: "detail", ObjectType: "claim", MarketContext: "de"}
	want := layout.DefaultResolution(req)
	if err := cache.PutResolution(ctx, req.CacheKey(), &want, time.Minute); err != nil {
		t.Fatal(err)
	}

	got, hit, err := cache.GetResolution(ctx, req.CacheKey())
	if err != nil {
		t.Fatal(err)
	}
	if !hit || !got.Metadata.Default {
		t.Errorf("hit = %v, metadata = %+v", hit, got.Metadata)
	}
}
