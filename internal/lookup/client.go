// Package lookup queries external song-metadata services for canonical
// cover art. Two providers are available: the song-data JSON API and the
// Spotify Web API.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"onair/internal/core"
)

const requestTimeout = 10 * time.Second

// Client talks to the song-data lookup API: a GET with title and artist
// query parameters returning {error, found, result}.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ core.LookupClient = (*Client)(nil)

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

type songDataResponse struct {
	Error  bool `json:"error"`
	Found  bool `json:"found"`
	Result struct {
		SpotifyID string `json:"spotifyId"`
		Covers    struct {
			Big string `json:"big"`
		} `json:"covers"`
	} `json:"result"`
}

// Lookup queries the service by title and artist. A nil result with a nil
// error means the song is not known to the service.
func (c *Client) Lookup(ctx context.Context, title, artist string) (*core.LookupResult, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse lookup url: %w", err)
	}

	params := url.Values{}
	params.Set("title", title)
	params.Set("artist", artist)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("song lookup returned %d", resp.StatusCode)
	}

	var payload songDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}

	if payload.Error {
		return nil, errors.New("song lookup reported an error")
	}
	if !payload.Found {
		return nil, nil
	}

	return &core.LookupResult{
		SpotifyID: payload.Result.SpotifyID,
		CoverArt:  payload.Result.Covers.Big,
	}, nil
}
