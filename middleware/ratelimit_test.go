package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("Allow() request %d = false, want true", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("Allow() request 4 = true, want false")
	}

	// A different key has its own budget.
	if !limiter.Allow("10.0.0.2") {
		t.Error("Allow() for a fresh key = false, want true")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("Allow() first request = false, want true")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("Allow() second request inside window = true, want false")
	}

	time.Sleep(15 * time.Millisecond)
	if !limiter.Allow("10.0.0.1") {
		t.Error("Allow() after window expiry = false, want true")
	}
}
