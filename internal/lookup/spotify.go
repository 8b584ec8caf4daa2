package lookup

import (
	"context"
	"fmt"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"onair/internal/core"
)

// SpotifyClient resolves cover art directly against the Spotify Web API
// using the client-credentials flow. It is the alternative to the song-data
// API when an operator has Spotify application credentials.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	logger       *zap.Logger

	mu     sync.Mutex
	client *spotify.Client
}

var _ core.LookupClient = (*SpotifyClient)(nil)

func NewSpotifyClient(clientID, clientSecret string, logger *zap.Logger) *SpotifyClient {
	return &SpotifyClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
	}
}

// Lookup searches for the track and maps the best hit to its Spotify id and
// largest album image. A nil result with a nil error means no hit.
func (c *SpotifyClient) Lookup(ctx context.Context, title, artist string) (*core.LookupResult, error) {
	client := c.apiClient()

	query := fmt.Sprintf("track:%s artist:%s", title, artist)
	results, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}

	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, nil
	}

	track := results.Tracks.Tracks[0]
	result := &core.LookupResult{SpotifyID: string(track.ID)}

	// Spotify orders album images largest first.
	if len(track.Album.Images) > 0 {
		result.CoverArt = track.Album.Images[0].URL
	}

	c.logger.Debug("Spotify lookup hit",
		zap.String("query", query),
		zap.String("spotify_id", result.SpotifyID))

	return result, nil
}

func (c *SpotifyClient) apiClient() *spotify.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		config := &clientcredentials.Config{
			ClientID:     c.clientID,
			ClientSecret: c.clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		}
		// The token source refreshes itself; the background context keeps it
		// alive beyond the first request.
		c.client = spotify.New(config.Client(context.Background()))
	}

	return c.client
}
