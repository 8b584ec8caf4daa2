// Package notify delivers now-playing notifications over a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"onair/internal/core"
)

const userAgent = "OnAir/1.0"

const requestTimeout = 10 * time.Second

// Embed colors by resolution outcome, checked in precedence order.
const (
	colorOverride = 0x9B59B6
	colorTrial    = 0xE67E22
	colorFound    = 0x1DB954
	colorFallback = 0x95A5A6
)

// NewService builds a Discord-webhook notifier. When no webhook URL is
// configured a noop implementation is returned.
func NewService(cfg *core.NotifyConfig, logger *zap.Logger) core.Notifier {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return noopService{}
	}

	return &webhookService{
		url:      webhookURL,
		username: cfg.Username,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger,
	}
}

type webhookService struct {
	url      string
	username string
	client   *http.Client
	logger   *zap.Logger
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Color       int        `json:"color"`
	Thumbnail   *thumbnail `json:"thumbnail,omitempty"`
	Timestamp   string     `json:"timestamp"`
}

type thumbnail struct {
	URL string `json:"url"`
}

// NowPlaying posts one embed describing the resolved track.
func (s *webhookService) NowPlaying(ctx context.Context, payload *core.ResolvedPayload) error {
	description := fmt.Sprintf("%s - %s", payload.Artist, payload.Title)
	if payload.Notice != "" {
		description = payload.Notice + "\n" + description
	}

	body := webhookPayload{
		Username: s.username,
		Embeds: []embed{{
			Title:       payload.Title,
			Description: description,
			Color:       embedColor(payload),
			Timestamp:   payload.Timestamp.UTC().Format(time.RFC3339),
		}},
	}
	if payload.CoverArt != "" {
		body.Embeds[0].Thumbnail = &thumbnail{URL: payload.CoverArt}
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func embedColor(payload *core.ResolvedPayload) int {
	switch {
	case payload.OverrideApplied:
		return colorOverride
	case payload.Notice != "":
		return colorTrial
	case payload.SpotifyFound:
		return colorFound
	default:
		return colorFallback
	}
}

type noopService struct{}

func (noopService) NowPlaying(context.Context, *core.ResolvedPayload) error { return nil }
