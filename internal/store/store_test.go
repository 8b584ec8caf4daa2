package store

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"onair/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "onair.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() returned error: %v", err)
		}
	})

	return s
}

func TestStore_FindOverrideMissing(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.FindOverride(context.Background(), "No Such - Key")
	if err != nil {
		t.Fatalf("FindOverride() returned error: %v", err)
	}
	if rec != nil {
		t.Errorf("FindOverride() = %+v, want nil", rec)
	}
}

func TestStore_AddAndFindOverride(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.AddOverride(ctx, &core.OverrideRecord{
		RawMetadata: "Artist - Song",
		NewArtist:   "Better Artist",
		NewTitle:    "Better Song",
		NewArtURL:   "http://art/x.jpg",
	})
	if err != nil {
		t.Fatalf("AddOverride() returned error: %v", err)
	}
	if id == 0 {
		t.Error("AddOverride() returned id 0")
	}

	rec, err := s.FindOverride(ctx, "Artist - Song")
	if err != nil {
		t.Fatalf("FindOverride() returned error: %v", err)
	}
	if rec == nil {
		t.Fatal("FindOverride() = nil, want record")
	}
	if rec.ID != id {
		t.Errorf("record id = %d, want %d", rec.ID, id)
	}
	if rec.NewArtist != "Better Artist" || rec.NewTitle != "Better Song" || rec.NewArtURL != "http://art/x.jpg" {
		t.Errorf("record = %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("record createdAt is zero")
	}
}

func TestStore_DuplicateKeyMostRecentWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.AddOverride(ctx, &core.OverrideRecord{RawMetadata: "A - B", NewTitle: "First"}); err != nil {
		t.Fatalf("AddOverride() returned error: %v", err)
	}
	second, err := s.AddOverride(ctx, &core.OverrideRecord{RawMetadata: "A - B", NewTitle: "Second"})
	if err != nil {
		t.Fatalf("AddOverride() returned error: %v", err)
	}

	rec, err := s.FindOverride(ctx, "A - B")
	if err != nil {
		t.Fatalf("FindOverride() returned error: %v", err)
	}
	if rec == nil || rec.ID != second || rec.NewTitle != "Second" {
		t.Errorf("FindOverride() = %+v, want the later row", rec)
	}
}

func TestStore_FindOverrideExactMatchOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.AddOverride(ctx, &core.OverrideRecord{RawMetadata: "Artist - Song"}); err != nil {
		t.Fatalf("AddOverride() returned error: %v", err)
	}

	rec, err := s.FindOverride(ctx, "artist - song")
	if err != nil {
		t.Fatalf("FindOverride() returned error: %v", err)
	}
	if rec != nil {
		t.Errorf("FindOverride() matched a differently cased key: %+v", rec)
	}
}

func TestStore_ListOverrides(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, raw := range []string{"A - 1", "B - 2", "C - 3"} {
		if _, err := s.AddOverride(ctx, &core.OverrideRecord{RawMetadata: raw}); err != nil {
			t.Fatalf("AddOverride() returned error: %v", err)
		}
	}

	records, err := s.ListOverrides(ctx, 2)
	if err != nil {
		t.Fatalf("ListOverrides() returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListOverrides() returned %d records, want 2", len(records))
	}
	if records[0].RawMetadata != "C - 3" || records[1].RawMetadata != "B - 2" {
		t.Errorf("ListOverrides() order = %q, %q, want newest first",
			records[0].RawMetadata, records[1].RawMetadata)
	}
}

func TestStore_HistoryEmptyMostRecent(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.MostRecent(context.Background())
	if err != nil {
		t.Fatalf("MostRecent() returned error: %v", err)
	}
	if rec != nil {
		t.Errorf("MostRecent() = %+v, want nil for empty history", rec)
	}
}

func TestStore_HistoryAppendAndRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "First Song", "First Artist", "", "First Artist - First Song"); err != nil {
		t.Fatalf("Append() returned error: %v", err)
	}
	if err := s.Append(ctx, "Second Song", "Second Artist", "http://art/2.jpg", "Second Artist - Second Song"); err != nil {
		t.Fatalf("Append() returned error: %v", err)
	}

	rec, err := s.MostRecent(ctx)
	if err != nil {
		t.Fatalf("MostRecent() returned error: %v", err)
	}
	if rec == nil {
		t.Fatal("MostRecent() = nil, want record")
	}
	if rec.SongName != "Second Song" || rec.ArtistName != "Second Artist" {
		t.Errorf("MostRecent() = %+v, want the latest record", rec)
	}
	if rec.AlbumArtURL != "http://art/2.jpg" {
		t.Errorf("albumArtUrl = %q", rec.AlbumArtURL)
	}

	records, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Recent() returned %d records, want 2", len(records))
	}
	if records[0].SongName != "Second Song" || records[1].SongName != "First Song" {
		t.Errorf("Recent() order = %q, %q, want newest first",
			records[0].SongName, records[1].SongName)
	}
}
