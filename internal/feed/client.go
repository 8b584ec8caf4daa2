// Package feed fetches the upstream "now playing" document for a station.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"onair/internal/core"
)

const requestTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ core.FeedClient = (*Client)(nil)

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

type nowPlayingResponse struct {
	Song core.FeedItem `json:"song"`
}

// NowPlaying fetches the current now-playing record for the given station id.
// Any transport failure, non-200 status, or undecodable body is an error;
// the caller decides how fatal that is.
func (c *Client) NowPlaying(ctx context.Context, stationID int) (*core.FeedItem, error) {
	endpoint := fmt.Sprintf("%s/%d", c.baseURL, stationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch now playing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("now playing feed returned %d", resp.StatusCode)
	}

	var payload nowPlayingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode now playing: %w", err)
	}

	c.logger.Debug("Fetched now playing",
		zap.Int("station", stationID),
		zap.String("artist", payload.Song.Artist),
		zap.String("title", payload.Song.Title))

	return &payload.Song, nil
}
