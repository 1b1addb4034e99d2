package llm

import (
	"errors"
	"testing"
	"time"
)

func TestLLMStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record("gpt-4o-mini", 100)
	stats.Record("gpt-4o-mini", 200)
	stats.Record("gpt-4o-mini", 300)
	stats.Record("gpt-4o-mini", 400)
	stats.Record("gpt-4o-mini", 500)

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 {
		t.Fatalf("expected min=100, got %d", snap.MinMs)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %d", snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestLLMStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewLLMStats(10 * time.Millisecond)
	stats.Record("gpt-4o-mini", 100)
	time.Sleep(25 * time.Millisecond)

	snap := stats.Snapshot()
	if snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record("gpt-4o-mini", 200)
	snap = stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestLLMStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record("gpt-4o-mini", -10)
	snap := stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestLLMStatsObserveCountsFailuresSeparately(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Observe("gpt-4o-mini", time.Now(), nil)
	stats.Observe("gpt-4o-mini", time.Now(), errors.New("boom"))
	stats.Observe("gpt-4o-mini", time.Now(), errors.New("boom"))

	snap := stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.Failed != 2 {
		t.Fatalf("expected failed=2, got %d", snap.Failed)
	}
}

func TestLLMStatsOnlyFailures(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Observe("gpt-4o-mini", time.Now(), errors.New("boom"))

	snap := stats.Snapshot()
	if snap.Count != 0 || snap.Failed != 1 {
		t.Fatalf("expected count=0 failed=1, got %+v", snap)
	}
}

func TestLLMStatsBreaksDownByModel(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record("gpt-4o-mini", 100)
	stats.Record("gpt-4o-mini", 300)
	stats.Record("gpt-4o", 900)
	stats.Observe("gpt-4o", time.Now(), errors.New("boom"))

	snap := stats.Snapshot()
	if snap.Count != 3 || snap.Failed != 1 {
		t.Fatalf("expected count=3 failed=1 overall, got %+v", snap)
	}
	if len(snap.Models) != 2 {
		t.Fatalf("expected 2 models, got %v", snap.Models)
	}
	mini := snap.Models["gpt-4o-mini"]
	if mini.Count != 2 || mini.AvgMs != 200 || mini.Failed != 0 {
		t.Fatalf("unexpected gpt-4o-mini stats: %+v", mini)
	}
	full := snap.Models["gpt-4o"]
	if full.Count != 1 || full.MaxMs != 900 || full.Failed != 1 {
		t.Fatalf("unexpected gpt-4o stats: %+v", full)
	}
	if mini.Models != nil || full.Models != nil {
		t.Fatal("expected per-model entries without a nested breakdown")
	}
}

func TestLLMStatsUnlabelledSamplesHaveNoBreakdown(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record("", 50)

	snap := stats.Snapshot()
	if snap.Count != 1 || snap.Models != nil {
		t.Fatalf("expected count=1 without models, got %+v", snap)
	}
}
