package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestHostLimiter_PerHost(t *testing.T) {
	l := NewHostLimiter(1, 1)
	ctx := context.Background()

	if err := l.Wait(ctx, "https://a.example/1.png"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	// a different host has its own bucket
	if err := l.Wait(ctx, "https://b.example/1.png"); err != nil {
		t.Fatalf("other host: %v", err)
	}
	if got := l.Hosts(); got != 2 {
		t.Errorf("Hosts() = %d, want 2", got)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(short, "https://a.example/2.png"); err == nil {
		t.Error("second request to the same host should have been held back")
	}
}

func TestHostLimiter_Unlimited(t *testing.T) {
	l := NewHostLimiter(0, 0)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if err := l.Wait(ctx, "https://cdn.example/x.png"); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
}

func TestHostLimiter_NoHost(t *testing.T) {
	l := NewHostLimiter(1, 1)
	if err := l.Wait(context.Background(), "not a url"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := l.Hosts(); got != 0 {
		t.Errorf("Hosts() = %d, want 0", got)
	}
}
