// internal/utils/rate_limiter_test.go

package utils

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterUnlimitedNeverBlocks(t *testing.T) {
	rl := NewRateLimiter(0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	for i := 0; i < 50; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait failed on iteration %d: %v", i, err)
		}
	}
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}
	cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("expected error from Wait with canceled context")
	}
}
