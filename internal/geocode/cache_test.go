package geocode

import (
	"context"
	"fmt"
	"testing"
)

// countingResolver is a fake inner resolver that counts calls.
type countingResolver struct {
	nameCalls  int
	coordCalls int
	loc        *Location
	err        error
}

func (c *countingResolver) ResolveByName(ctx context.Context, name string) (*Location, error) {
	c.nameCalls++
	return c.loc, c.err
}

func (c *countingResolver) ResolveByCoordinates(ctx context.Context, lat, lon float64) (*Location, error) {
	c.coordCalls++
	return c.loc, c.err
}

func TestCachedResolver_NameHit(t *testing.T) {
	inner := &countingResolver{loc: &Location{DisplayName: "London"}}
	cached := NewCachedResolver(inner, 8)

	for i := 0; i < 3; i++ {
		loc, err := cached.ResolveByName(context.Background(), "London")
		if err != nil {
			t.Fatalf("ResolveByName: %v", err)
		}
		if loc.DisplayName != "London" {
			t.Fatalf("DisplayName = %q", loc.DisplayName)
		}
	}

	if inner.nameCalls != 1 {
		t.Errorf("inner called %d times, want 1", inner.nameCalls)
	}
}

func TestCachedResolver_MissNotCached(t *testing.T) {
	inner := &countingResolver{loc: nil}
	cached := NewCachedResolver(inner, 8)

	for i := 0; i < 2; i++ {
		loc, err := cached.ResolveByCoordinates(context.Background(), 1, 2)
		if err != nil {
			t.Fatalf("ResolveByCoordinates: %v", err)
		}
		if loc != nil {
			t.Fatalf("expected nil location")
		}
	}

	// nil results are the degraded path and must be retried, not cached.
	if inner.coordCalls != 2 {
		t.Errorf("inner called %d times, want 2", inner.coordCalls)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	cache := newLRUCache(2)

	cache.put("a", &Location{DisplayName: "A"})
	cache.put("b", &Location{DisplayName: "B"})

	// Touch "a" so "b" is the eviction candidate.
	if _, ok := cache.get("a"); !ok {
		t.Fatal("expected a to be cached")
	}

	cache.put("c", &Location{DisplayName: "C"})

	if _, ok := cache.get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := cache.get("a"); !ok {
		t.Error("expected a to survive")
	}
	if _, ok := cache.get("c"); !ok {
		t.Error("expected c to be cached")
	}
}

func TestLRUCacheManyEntries(t *testing.T) {
	cache := newLRUCache(16)
	for i := 0; i < 100; i++ {
		cache.put(fmt.Sprintf("k%d", i), &Location{})
	}
	if len(cache.entries) != 16 {
		t.Errorf("cache holds %d entries, want 16", len(cache.entries))
	}
}
