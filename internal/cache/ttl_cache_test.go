package cache

import (
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("k", 42, 10*time.Millisecond)

	if got, ok := c.Get("k"); !ok || got != 42 {
		t.Fatalf("expected hit with 42, got %v %v", got, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("k", "v", 0)
	if got, ok := c.Get("k"); !ok || got != "v" {
		t.Fatalf("expected persistent entry, got %v %v", got, ok)
	}
}
