package store_test

import (
	"context"
	"testing"

	"github.com/skillup-labs/skillup/backend/internal/store"
)

func TestMemoryInsertPreservesOrder(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	records := []store.Record{
		{Content: "hello", IsAssistant: false, UserID: "u1"},
		{Content: "hi there", IsAssistant: true, UserID: "u1"},
		{Content: "bye", IsAssistant: false, UserID: "u1"},
	}
	for _, rec := range records {
		if err := mem.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert err: %v", err)
		}
	}

	got := mem.Records()
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, rec := range got {
		if rec.Content != records[i].Content {
			t.Fatalf("record %d out of order: %q", i, rec.Content)
		}
		if rec.CreatedAt.IsZero() {
			t.Fatalf("record %d missing timestamp", i)
		}
	}
}

func TestMemoryRecordsReturnsCopy(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	mem.Insert(ctx, store.Record{Content: "original", UserID: "u1"})

	snapshot := mem.Records()
	snapshot[0].Content = "mutated"

	if got := mem.Records()[0].Content; got != "original" {
		t.Fatalf("snapshot mutation leaked into store: %q", got)
	}
}
