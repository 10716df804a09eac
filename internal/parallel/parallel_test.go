package parallel

import (
	"sync/atomic"
	"testing"
)

func TestForChunks(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 10}

	var counter int64
	n := 1000
	seen := make([]int32, n)

	ForChunks(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&seen[i], 1)
			atomic.AddInt64(&counter, 1)
		}
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
	for i, c := range seen {
		if c != 1 {
			t.Fatalf("Index %d visited %d times", i, c)
		}
	}
}

func TestForChunks_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	calls := 0
	ForChunks(100, func(start, end int) {
		calls++
		if start != 0 || end != 100 {
			t.Errorf("Expected [0, 100), got [%d, %d)", start, end)
		}
	}, cfg)

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestForChunks_SmallInput(t *testing.T) {
	// Inputs below two chunks run inline.
	cfg := Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}

	calls := 0
	ForChunks(100, func(_, _ int) {
		calls++
	}, cfg)

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestForChunks_Empty(t *testing.T) {
	ForChunks(0, func(_, _ int) {
		t.Error("f must not be called for n == 0")
	}, DefaultConfig())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.NumWorkers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.NumWorkers)
	}
	if cfg.Enabled != (cfg.NumWorkers > 1) {
		t.Errorf("Enabled=%v inconsistent with NumWorkers=%d", cfg.Enabled, cfg.NumWorkers)
	}
}
