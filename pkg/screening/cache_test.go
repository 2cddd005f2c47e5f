package screening

import (
	"context"
	"testing"
	"time"
)

func TestTrialCacheWithoutRedisPassesThrough(t *testing.T) {
	source := &stubTrialSource{trial: testTrial()}
	cache := NewTrialCache(nil, source, time.Minute)

	trial, err := cache.GetTrial(context.Background(), "DM2-2024-001")
	if err != nil {
		t.Fatalf("GetTrial returned error: %v", err)
	}
	if trial.ID != "DM2-2024-001" {
		t.Fatalf("unexpected trial %s", trial.ID)
	}
	if source.calls != 1 {
		t.Fatalf("source calls = %d, want 1", source.calls)
	}

	if err := cache.Invalidate(context.Background(), "DM2-2024-001"); err != nil {
		t.Fatalf("Invalidate without redis should be a no-op, got %v", err)
	}
}
