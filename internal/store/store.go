// Package store persists operator overrides and resolved track history in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"onair/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS metadata_overrides (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	raw_metadata TEXT NOT NULL,
	new_name     TEXT NOT NULL DEFAULT '',
	new_artist   TEXT NOT NULL DEFAULT '',
	new_art_url  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_overrides_raw ON metadata_overrides (raw_metadata);

CREATE TABLE IF NOT EXISTS track_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	song_name     TEXT NOT NULL,
	artist_name   TEXT NOT NULL,
	album_art_url TEXT NOT NULL DEFAULT '',
	raw_metadata  TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_history_created ON track_history (created_at);
`

// Store backs both the override table and the track history with one SQLite
// database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ core.OverrideStore = (*Store)(nil)
	_ core.HistoryStore  = (*Store)(nil)
)

// Open connects to (or creates) the SQLite database at path and ensures the
// schema exists.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FindOverride returns the most recent override row matching rawMetadata
// exactly, or nil when none exists.
func (s *Store) FindOverride(ctx context.Context, rawMetadata string) (*core.OverrideRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, raw_metadata, new_name, new_artist, new_art_url, created_at
		FROM metadata_overrides
		WHERE raw_metadata = ?
		ORDER BY id DESC
		LIMIT 1`, rawMetadata)

	var rec core.OverrideRecord
	err := row.Scan(&rec.ID, &rec.RawMetadata, &rec.NewTitle, &rec.NewArtist, &rec.NewArtURL, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query override: %w", err)
	}

	return &rec, nil
}

// AddOverride inserts a new override row. Later rows win over earlier ones
// for the same raw key.
func (s *Store) AddOverride(ctx context.Context, rec *core.OverrideRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata_overrides (raw_metadata, new_name, new_artist, new_art_url)
		VALUES (?, ?, ?, ?)`,
		rec.RawMetadata, rec.NewTitle, rec.NewArtist, rec.NewArtURL)
	if err != nil {
		return 0, fmt.Errorf("insert override: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read override id: %w", err)
	}

	s.logger.Info("Override added",
		zap.Int64("id", id),
		zap.String("raw", rec.RawMetadata))

	return id, nil
}

// ListOverrides returns the newest overrides first, capped at limit.
func (s *Store) ListOverrides(ctx context.Context, limit int) ([]core.OverrideRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, raw_metadata, new_name, new_artist, new_art_url, created_at
		FROM metadata_overrides
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var records []core.OverrideRecord
	for rows.Next() {
		var rec core.OverrideRecord
		if err := rows.Scan(&rec.ID, &rec.RawMetadata, &rec.NewTitle, &rec.NewArtist, &rec.NewArtURL, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}

	return records, nil
}

// Append persists one resolved track record.
func (s *Store) Append(ctx context.Context, songName, artistName, albumArtURL, rawMetadata string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO track_history (song_name, artist_name, album_art_url, raw_metadata)
		VALUES (?, ?, ?, ?)`,
		songName, artistName, albumArtURL, rawMetadata)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// MostRecent returns the latest history record, or nil when the history is
// empty.
func (s *Store) MostRecent(ctx context.Context) (*core.HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT song_name, artist_name, album_art_url, raw_metadata, created_at
		FROM track_history
		ORDER BY id DESC
		LIMIT 1`)

	var rec core.HistoryRecord
	err := row.Scan(&rec.SongName, &rec.ArtistName, &rec.AlbumArtURL, &rec.RawMetadata, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	return &rec, nil
}

// Recent returns the newest history records first, capped at limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]core.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT song_name, artist_name, album_art_url, raw_metadata, created_at
		FROM track_history
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []core.HistoryRecord
	for rows.Next() {
		var rec core.HistoryRecord
		if err := rows.Scan(&rec.SongName, &rec.ArtistName, &rec.AlbumArtURL, &rec.RawMetadata, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return records, nil
}
