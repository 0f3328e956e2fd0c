package memory

import (
	"context"
	"testing"
	"time"

	"github.com/startupscout/scout/internal/core/domain"
)

func answer(text string) *domain.Answer {
	return &domain.Answer{Question: "q", Text: text}
}

func TestSetAndGet(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "k", answer("hello"), time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok || got.Text != "hello" {
		t.Fatalf("expected cached answer, got %v ok=%v", got, ok)
	}
}

func TestGetExpiredEntryIsAMiss(t *testing.T) {
	c := New()
	ctx := context.Background()

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set(ctx, "k", answer("stale soon"), time.Second)
	current = current.Add(2 * time.Second)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expired entry must not be served")
	}

	stats := c.Stats(ctx)
	if stats.Entries != 0 {
		t.Fatalf("expired entry should be evicted on read, %d left", stats.Entries)
	}
}

func TestSetPrunesExpiredEntries(t *testing.T) {
	c := New()
	ctx := context.Background()

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set(ctx, "old", answer("old"), time.Second)
	current = current.Add(2 * time.Second)
	c.Set(ctx, "new", answer("new"), time.Minute)

	stats := c.Stats(ctx)
	if stats.Entries != 1 {
		t.Fatalf("expected only the fresh entry, got %d", stats.Entries)
	}
}

func TestSetIgnoresNilAnswerAndZeroTTL(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "nil", nil, time.Minute)
	c.Set(ctx, "zero", answer("x"), 0)

	if stats := c.Stats(ctx); stats.Entries != 0 {
		t.Fatalf("expected nothing stored, got %d entries", stats.Entries)
	}
}

func TestClearResetsEntriesAndCounters(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "k", answer("x"), time.Minute)
	c.Get(ctx, "k")
	c.Get(ctx, "missing")

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	stats := c.Stats(ctx)
	if stats.Entries != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Fatalf("clear should reset stats, got %+v", stats)
	}
}

func TestStatsCountsHitsAndMisses(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "k", answer("x"), time.Minute)
	c.Get(ctx, "k")
	c.Get(ctx, "k")
	c.Get(ctx, "missing")

	stats := c.Stats(ctx)
	if stats.Backend != "memory" {
		t.Fatalf("backend = %q", stats.Backend)
	}
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Fatalf("hits=%d misses=%d", stats.Hits, stats.Misses)
	}
}
