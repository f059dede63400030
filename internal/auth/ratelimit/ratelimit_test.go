package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesTokens(t *testing.T) {
	l := New(time.Second)
	for i := 0; i < 3; i++ {
		if !l.Allow("key", 3) {
			t.Fatalf("request %d: expected allowed within limit", i)
		}
	}
	if l.Allow("key", 3) {
		t.Fatal("expected 4th request within the same window to be denied")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := New(100 * time.Millisecond)
	if !l.Allow("key", 1) {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("key", 1) {
		t.Fatal("second immediate request should be denied")
	}
	time.Sleep(150 * time.Millisecond)
	if !l.Allow("key", 1) {
		t.Fatal("request after refill window should be allowed")
	}
}

func TestAllowTracksKeysIndependently(t *testing.T) {
	l := New(time.Second)
	if !l.Allow("a", 1) {
		t.Fatal("key a should be allowed")
	}
	if !l.Allow("b", 1) {
		t.Fatal("key b should be allowed independently of key a")
	}
}

func TestReset(t *testing.T) {
	l := New(time.Second)
	l.Allow("key", 1)
	if l.Allow("key", 1) {
		t.Fatal("expected second request to be denied before reset")
	}
	l.Reset("key")
	if !l.Allow("key", 1) {
		t.Fatal("expected request to be allowed after reset")
	}
}
