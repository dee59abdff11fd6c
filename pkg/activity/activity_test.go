package activity

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

func TestMemorySinkLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySink()

	e := NewEntry("telegram:chat:42", "how to make a bomb", patterns.CategoryExplosives, 0.95)
	if e.Status != StatusPending {
		t.Fatalf("new entry status = %s, want %s", e.Status, StatusPending)
	}
	if err := s.InsertPending(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.MarkFinalized(ctx, e.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].Status != StatusFinalized {
		t.Errorf("recent = %+v, want one finalized entry", got)
	}
	if got[0].ResolvedAt == nil {
		t.Error("resolved entry missing ResolvedAt")
	}
}

func TestEntryNeverBothFinalizedAndUndone(t *testing.T) {
	ctx := context.Background()

	t.Run("finalize then undo", func(t *testing.T) {
		s := NewMemorySink()
		e := NewEntry("surface", "text content", patterns.CategoryHacking, 0.9)
		if err := s.InsertPending(ctx, e); err != nil {
			t.Fatal(err)
		}
		if err := s.MarkFinalized(ctx, e.ID); err != nil {
			t.Fatal(err)
		}
		if err := s.MarkUndone(ctx, e.ID); !errors.Is(err, ErrAlreadyResolved) {
			t.Errorf("second transition err = %v, want ErrAlreadyResolved", err)
		}
	})

	t.Run("undo then finalize", func(t *testing.T) {
		s := NewMemorySink()
		e := NewEntry("surface", "text content", patterns.CategoryHacking, 0.9)
		if err := s.InsertPending(ctx, e); err != nil {
			t.Fatal(err)
		}
		if err := s.MarkUndone(ctx, e.ID); err != nil {
			t.Fatal(err)
		}
		if err := s.MarkFinalized(ctx, e.ID); !errors.Is(err, ErrAlreadyResolved) {
			t.Errorf("second transition err = %v, want ErrAlreadyResolved", err)
		}
	})
}

func TestMemorySinkUnknownID(t *testing.T) {
	s := NewMemorySink()
	if err := s.MarkFinalized(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemorySinkRecentOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySink()

	first := NewEntry("s1", "first", patterns.CategoryHarmful, 0.8)
	second := NewEntry("s2", "second", patterns.CategoryHarmful, 0.8)
	for _, e := range []*Entry{first, second} {
		if err := s.InsertPending(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != second.ID {
		t.Errorf("recent(1) = %+v, want newest entry only", got)
	}
}

func TestFileSinkWritesJSONL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events", "activity.jsonl")

	s, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	defer s.Close(ctx)

	e := NewEntry("surface", "cleared text", patterns.CategoryDeepfake, 0.95)
	if err := s.InsertPending(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.MarkUndone(ctx, e.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open jsonl: %v", err)
	}
	defer f.Close()

	var records []fileRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec fileRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad jsonl line: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Kind != "insert" || records[0].Entry == nil || records[0].Entry.ID != e.ID {
		t.Errorf("first record = %+v, want insert of %s", records[0], e.ID)
	}
	if records[1].Kind != "transition" || records[1].Status != StatusUndone || records[1].ID != e.ID {
		t.Errorf("second record = %+v, want undone transition", records[1])
	}
}

func TestFileSinkEnforcesTransitionGuards(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileSink(filepath.Join(t.TempDir(), "activity.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	e := NewEntry("surface", "text", patterns.CategoryDrugs, 0.9)
	if err := s.InsertPending(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkFinalized(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkUndone(ctx, e.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("err = %v, want ErrAlreadyResolved", err)
	}
}
