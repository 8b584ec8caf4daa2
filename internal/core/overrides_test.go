package core

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type mockOverrideStore struct {
	records map[string]*OverrideRecord
	err     error
	queries int
}

func (m *mockOverrideStore) FindOverride(_ context.Context, rawMetadata string) (*OverrideRecord, error) {
	m.queries++
	if m.err != nil {
		return nil, m.err
	}
	return m.records[rawMetadata], nil
}

func TestOverrideResolver_BlankKey(t *testing.T) {
	store := &mockOverrideStore{}
	resolver := NewOverrideResolver(store, zap.NewNop())

	for _, key := range []string{"", "   ", "\t"} {
		record, err := resolver.Resolve(context.Background(), key)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", key, err)
		}
		if record != nil {
			t.Errorf("Resolve(%q) = %+v, want nil", key, record)
		}
	}

	if store.queries != 0 {
		t.Errorf("blank keys reached the store %d times, want 0", store.queries)
	}
}

func TestOverrideResolver_CachesHit(t *testing.T) {
	store := &mockOverrideStore{
		records: map[string]*OverrideRecord{
			"Artist - Song": {ID: 7, RawMetadata: "Artist - Song", NewTitle: "Better Song"},
		},
	}
	resolver := NewOverrideResolver(store, zap.NewNop())

	for i := 0; i < 3; i++ {
		record, err := resolver.Resolve(context.Background(), "Artist - Song")
		if err != nil {
			t.Fatalf("Resolve() returned error: %v", err)
		}
		if record == nil || record.ID != 7 {
			t.Fatalf("Resolve() = %+v, want record with ID 7", record)
		}
	}

	if store.queries != 1 {
		t.Errorf("store queried %d times, want 1", store.queries)
	}
}

func TestOverrideResolver_CachesMiss(t *testing.T) {
	store := &mockOverrideStore{}
	resolver := NewOverrideResolver(store, zap.NewNop())

	for i := 0; i < 3; i++ {
		record, err := resolver.Resolve(context.Background(), "Unknown - Track")
		if err != nil {
			t.Fatalf("Resolve() returned error: %v", err)
		}
		if record != nil {
			t.Fatalf("Resolve() = %+v, want nil", record)
		}
	}

	if store.queries != 1 {
		t.Errorf("store queried %d times, want 1 (miss should be cached)", store.queries)
	}
}

func TestOverrideResolver_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("database locked")
	store := &mockOverrideStore{err: storeErr}
	resolver := NewOverrideResolver(store, zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "Artist - Song")
	if !errors.Is(err, storeErr) {
		t.Fatalf("Resolve() error = %v, want wrapped %v", err, storeErr)
	}

	// Errors are not cached; the next call hits the store again.
	store.err = nil
	if _, err := resolver.Resolve(context.Background(), "Artist - Song"); err != nil {
		t.Fatalf("Resolve() after recovery returned error: %v", err)
	}
	if store.queries != 2 {
		t.Errorf("store queried %d times, want 2", store.queries)
	}
}

func TestOverrideResolver_DistinctKeysQueriedSeparately(t *testing.T) {
	store := &mockOverrideStore{
		records: map[string]*OverrideRecord{
			"A - One": {ID: 1, RawMetadata: "A - One"},
			"B - Two": {ID: 2, RawMetadata: "B - Two"},
		},
	}
	resolver := NewOverrideResolver(store, zap.NewNop())

	first, err := resolver.Resolve(context.Background(), "A - One")
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), "B - Two")
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("Resolve() returned IDs %d and %d, want 1 and 2", first.ID, second.ID)
	}
	if store.queries != 2 {
		t.Errorf("store queried %d times, want 2", store.queries)
	}
}
