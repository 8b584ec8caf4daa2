package core

import (
	"context"
	"time"
)

// FeedItem is the raw upstream "now playing" record. Any field may be empty;
// the extractor copes with all of them missing.
type FeedItem struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Art    string `json:"art"`
}

// ExtractedMetadata is the best-effort artist/title/raw triple derived from a
// feed item. Raw is never empty and doubles as the override lookup key and
// the change-gate key.
type ExtractedMetadata struct {
	Artist string
	Title  string
	Raw    string
}

// SanitizedMetadata is an artist/title pair after noise removal and
// featured-artist relocation.
type SanitizedMetadata struct {
	Artist string
	Title  string
}

// OverrideRecord is an operator-supplied correction for one raw metadata key.
// Blank fields leave the sanitized value untouched. Rows are ordered by ID;
// the most recent row wins when a key has duplicates.
type OverrideRecord struct {
	ID          int64     `json:"id"`
	RawMetadata string    `json:"rawMetadata"`
	NewArtist   string    `json:"newArtist"`
	NewTitle    string    `json:"newName"`
	NewArtURL   string    `json:"newArtUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HistoryRecord is one persisted resolved track.
type HistoryRecord struct {
	SongName    string    `json:"songName"`
	ArtistName  string    `json:"artistName"`
	AlbumArtURL string    `json:"albumArtUrl"`
	RawMetadata string    `json:"rawMetadata"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LookupResult is a successful "found" answer from the song lookup service.
type LookupResult struct {
	SpotifyID string
	CoverArt  string
}

// FieldChange is one before/after entry in the sanitisation change log.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// ResolvedPayload is the pipeline's output and the sole externally observable
// contract of the resolution core.
type ResolvedPayload struct {
	Artist           string        `json:"artist"`
	Title            string        `json:"title"`
	CoverArt         string        `json:"coverArt"`
	RawMetadata      string        `json:"rawMetadata"`
	OverrideApplied  bool          `json:"overrideApplied"`
	SpotifyAttempted bool          `json:"spotifyAttempted"`
	SpotifyFound     bool          `json:"spotifyFound"`
	SpotifyID        string        `json:"spotifyId,omitempty"`
	Saved            bool          `json:"saved"`
	SkippedSave      bool          `json:"skippedSave"`
	Sanitised        []FieldChange `json:"sanitised"`
	Notice           string        `json:"notice,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
}

// FeedClient fetches the upstream now-playing document for a station.
type FeedClient interface {
	NowPlaying(ctx context.Context, stationID int) (*FeedItem, error)
}

// OverrideStore answers "most recent override row for this exact raw key".
type OverrideStore interface {
	FindOverride(ctx context.Context, rawMetadata string) (*OverrideRecord, error)
}

// HistoryStore persists resolved tracks and supplies the most recent one as
// an idle-track fallback.
type HistoryStore interface {
	Append(ctx context.Context, songName, artistName, albumArtURL, rawMetadata string) error
	MostRecent(ctx context.Context) (*HistoryRecord, error)
}

// LookupClient queries an external song-metadata service for canonical cover
// art. A nil result with a nil error means "not found".
type LookupClient interface {
	Lookup(ctx context.Context, title, artist string) (*LookupResult, error)
}

// Notifier delivers a now-playing notification for a resolved payload.
type Notifier interface {
	NowPlaying(ctx context.Context, payload *ResolvedPayload) error
}
