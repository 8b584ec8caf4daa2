package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"
)

// TrialNotice prefixes every trial-station response.
const TrialNotice = "Trial station: this resolution was not persisted."

// NoHistoryTitle fills the synthesized payload when the station is idle and
// nothing was ever resolved or persisted.
const NoHistoryTitle = "No track history yet"

const (
	distinctTrackEstimate  = 10000
	distinctTrackErrorRate = 0.001
)

// PipelineState is the process-wide change-gate state: the raw key and
// payload of the last non-skipped resolution, shared between the main and
// trial stations. It is constructed once at process start and lives for the
// process lifetime; only the orchestrator mutates it.
//
// The mutex guards field access only. It is never held across outbound
// calls, so two requests racing to completion may both decide "key changed"
// and both persist and notify; duplicate suppression is best effort.
type PipelineState struct {
	mu          sync.Mutex
	lastRawKey  string
	lastPayload *ResolvedPayload
	seen        *bloom.BloomFilter
}

func NewPipelineState() *PipelineState {
	return &PipelineState{
		seen: bloom.NewWithEstimates(distinctTrackEstimate, distinctTrackErrorRate),
	}
}

// DistinctTracks approximates how many distinct raw keys this process has
// resolved. Observability only; it never influences gating.
func (s *PipelineState) DistinctTracks() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen.ApproximatedSize()
}

func (s *PipelineState) snapshot() (string, *ResolvedPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRawKey, s.lastPayload
}

func (s *PipelineState) commit(rawKey string, payload *ResolvedPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRawKey = rawKey
	s.lastPayload = payload
	s.seen.AddString(rawKey)
}

// Orchestrator sequences extraction, sanitization, override application,
// cover-art lookup, and the change gate for each resolution request.
type Orchestrator struct {
	config    *Config
	feed      FeedClient
	overrides *OverrideResolver
	lookup    LookupClient
	history   HistoryStore
	notifier  Notifier
	state     *PipelineState
	logger    *zap.Logger
}

// NewOrchestrator wires the pipeline. lookup and notifier may be nil, which
// disables cover-art enrichment and notifications respectively.
func NewOrchestrator(
	config *Config,
	feed FeedClient,
	overrides *OverrideResolver,
	lookup LookupClient,
	history HistoryStore,
	notifier Notifier,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		config:    config,
		feed:      feed,
		overrides: overrides,
		lookup:    lookup,
		history:   history,
		notifier:  notifier,
		state:     NewPipelineState(),
		logger:    logger,
	}
}

// Resolve runs one full resolution pass against the main station.
func (o *Orchestrator) Resolve(ctx context.Context) (*ResolvedPayload, error) {
	return o.resolve(ctx, o.config.Station.StationID, false)
}

// ResolveTrial runs the same pipeline against the trial station. A trial run
// shares the change gate with the main station but never persists, and its
// response carries the trial notice.
func (o *Orchestrator) ResolveTrial(ctx context.Context) (*ResolvedPayload, error) {
	return o.resolve(ctx, o.config.Station.TrialStationID, true)
}

// DistinctTracks exposes the approximate distinct-track count for metrics.
func (o *Orchestrator) DistinctTracks() uint32 {
	return o.state.DistinctTracks()
}

func (o *Orchestrator) resolve(ctx context.Context, stationID int, trial bool) (*ResolvedPayload, error) {
	item, err := o.feed.NowPlaying(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("fetch now playing: %w", err)
	}

	ext := Extract(*item)

	if o.isIdleTrack(ext.Artist) {
		return o.idlePayload(ctx, trial)
	}

	return o.resolveTrack(ctx, ext, item.Art, trial)
}

// isIdleTrack reports whether the feed is announcing the station itself
// instead of a track.
func (o *Orchestrator) isIdleTrack(artist string) bool {
	return strings.EqualFold(strings.TrimSpace(artist), o.config.Station.Name)
}

// idlePayload serves the idle-track short circuit: last in-memory payload,
// else the most recent history record, else a synthesized placeholder. This
// path never persists and never notifies.
func (o *Orchestrator) idlePayload(ctx context.Context, trial bool) (*ResolvedPayload, error) {
	if _, last := o.state.snapshot(); last != nil {
		return o.finish(last, trial), nil
	}

	record, err := o.history.MostRecent(ctx)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if record != nil {
		return o.finish(&ResolvedPayload{
			Artist:      record.ArtistName,
			Title:       record.SongName,
			CoverArt:    record.AlbumArtURL,
			RawMetadata: record.RawMetadata,
			Timestamp:   record.CreatedAt,
		}, trial), nil
	}

	return o.finish(&ResolvedPayload{
		Artist:    o.config.Station.Name,
		Title:     NoHistoryTitle,
		Timestamp: time.Now().UTC(),
	}, trial), nil
}

func (o *Orchestrator) resolveTrack(ctx context.Context, ext ExtractedMetadata, feedArt string, trial bool) (*ResolvedPayload, error) {
	var changes []FieldChange

	sanitized := Sanitize(ext.Artist, ext.Title)
	changes = appendChanges(changes, ext.Artist, ext.Title, sanitized)

	override, err := o.overrides.Resolve(ctx, ext.Raw)
	if err != nil {
		return nil, err
	}

	artist, title := sanitized.Artist, sanitized.Title
	coverArt := feedArt

	if override != nil {
		if override.NewArtist != "" {
			artist = override.NewArtist
		}
		if override.NewTitle != "" {
			title = override.NewTitle
		}
		if override.NewArtURL != "" {
			coverArt = override.NewArtURL
		}

		// Override values are noisy operator input; they go through the
		// sanitizer just like the feed values did.
		resanitized := Sanitize(artist, title)
		changes = appendChanges(changes, artist, title, resanitized)
		artist, title = resanitized.Artist, resanitized.Title
	}

	payload := &ResolvedPayload{
		Artist:          artist,
		Title:           title,
		CoverArt:        coverArt,
		RawMetadata:     ext.Raw,
		OverrideApplied: override != nil,
		Sanitised:       changes,
		Timestamp:       time.Now().UTC(),
	}

	if o.lookup != nil && (override == nil || override.NewArtURL == "") {
		payload.SpotifyAttempted = true
		if result := o.lookupCover(ctx, title, artist); result != nil {
			payload.SpotifyFound = true
			payload.SpotifyID = result.SpotifyID
			if result.CoverArt != "" {
				payload.CoverArt = result.CoverArt
			}
		}
	}

	lastKey, lastPayload := o.state.snapshot()
	if ext.Raw == lastKey {
		o.logger.Debug("Raw key unchanged, skipping persistence",
			zap.String("raw", ext.Raw))
		if lastPayload != nil {
			return o.finish(lastPayload, trial), nil
		}
		payload.SkippedSave = true
		return o.finish(payload, trial), nil
	}

	if !trial {
		if err := o.history.Append(ctx, title, artist, payload.CoverArt, ext.Raw); err != nil {
			return nil, fmt.Errorf("append history: %w", err)
		}
		payload.Saved = true
	}

	o.state.commit(ext.Raw, payload)
	o.dispatchNotification(payload, trial)

	o.logger.Info("Resolved now playing",
		zap.String("artist", artist),
		zap.String("title", title),
		zap.Bool("override", payload.OverrideApplied),
		zap.Bool("trial", trial))

	return o.finish(payload, trial), nil
}

// lookupCover swallows every lookup failure: the enrichment service being
// down must not fail a resolution.
func (o *Orchestrator) lookupCover(ctx context.Context, title, artist string) *LookupResult {
	result, err := o.lookup.Lookup(ctx, title, artist)
	if err != nil {
		o.logger.Warn("Cover lookup failed",
			zap.String("title", title),
			zap.String("artist", artist),
			zap.Error(err))
		return nil
	}
	return result
}

// dispatchNotification fires the notifier without waiting on it. Delivery
// failures are logged and dropped; they never fail a resolution.
func (o *Orchestrator) dispatchNotification(payload *ResolvedPayload, trial bool) {
	if o.notifier == nil {
		return
	}

	notified := payload
	if trial {
		copied := *payload
		copied.Notice = TrialNotice
		notified = &copied
	}

	go func() {
		if err := o.notifier.NowPlaying(context.Background(), notified); err != nil {
			o.logger.Warn("Now-playing notification failed", zap.Error(err))
		}
	}()
}

// finish stamps the trial notice onto a copy so the payload cached in
// PipelineState never carries it.
func (o *Orchestrator) finish(payload *ResolvedPayload, trial bool) *ResolvedPayload {
	if !trial {
		return payload
	}
	copied := *payload
	copied.Notice = TrialNotice
	return &copied
}

func appendChanges(changes []FieldChange, artist, title string, out SanitizedMetadata) []FieldChange {
	if out.Artist != artist {
		changes = append(changes, FieldChange{Field: "artist", Before: artist, After: out.Artist})
	}
	if out.Title != title {
		changes = append(changes, FieldChange{Field: "title", Before: title, After: out.Title})
	}
	return changes
}
