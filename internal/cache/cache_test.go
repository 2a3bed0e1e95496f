package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := NewTTL(time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got != "v" {
		t.Errorf("expected v, got %v", got)
	}
}

func TestExpiry(t *testing.T) {
	c := NewTTL(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("k", 1)

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry removed on access, have %d entries", c.Len())
	}
}

func TestClear(t *testing.T) {
	c := NewTTL(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, have %d entries", c.Len())
	}
}
