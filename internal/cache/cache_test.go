package cache

import (
	"testing"
	"time"
)

func TestGetSetAndExpiry(t *testing.T) {
	c := New("test", time.Minute)
	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	if _, ok := c.Get("k"); ok {
		t.Fatal("hit on empty cache")
	}

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got.(string) != "v" {
		t.Fatalf("got %v %v, want v true", got, ok)
	}

	// Just before the TTL boundary the entry survives; at the boundary it
	// expires.
	current = current.Add(time.Minute - time.Second)
	if _, ok = c.Get("k"); !ok {
		t.Fatal("expired early")
	}
	current = current.Add(time.Second)
	if _, ok = c.Get("k"); ok {
		t.Fatal("entry survived its TTL")
	}
}

func TestInvalidate(t *testing.T) {
	c := New("test", time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("invalidated key still present")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("unrelated key removed")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New("test", time.Minute)
	c.Set("models_all", 1)
	c.Set("models_reasoning", 2)
	c.Set("profile_1", 3)

	if removed := c.InvalidatePrefix("models_"); removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}
	if _, ok := c.Get("profile_1"); !ok {
		t.Fatal("prefix invalidation removed unrelated key")
	}
}

func TestClearAndStats(t *testing.T) {
	c := New("profiles", 30*time.Second)
	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	if stats.Name != "profiles" || stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.HitRate != "50.0%" {
		t.Fatalf("hit rate = %q, want 50.0%%", stats.HitRate)
	}
	if stats.TTLSeconds != 30 {
		t.Fatalf("ttl seconds = %d", stats.TTLSeconds)
	}

	if dropped := c.Clear(); dropped != 1 {
		t.Fatalf("dropped %d, want 1", dropped)
	}
	if c.Stats().Size != 0 {
		t.Fatal("cache not empty after clear")
	}
}
