package core

import (
	"time"
)

const (
	// DefaultServerPort is the HTTP listen port when none is configured.
	DefaultServerPort = 8080
	// DefaultStationID is the main upstream station feed id.
	DefaultStationID = 1
	// DefaultTrialStationID is the trial upstream station feed id.
	DefaultTrialStationID = 2
)

type Config struct {
	Station StationConfig
	Lookup  LookupConfig
	Notify  NotifyConfig
	Store   StoreConfig
	Server  ServerConfig
	Log     LogConfig
}

type StationConfig struct {
	FeedURL        string
	StationID      int
	TrialStationID int
	// Name is the placeholder artist the feed reports when nothing is
	// playing; a match short-circuits the pipeline.
	Name string
}

type LookupConfig struct {
	Provider            string
	BaseURL             string
	SpotifyClientID     string
	SpotifyClientSecret string
}

type NotifyConfig struct {
	WebhookURL string
	Username   string
}

type StoreConfig struct {
	Path string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Station: StationConfig{
			StationID:      DefaultStationID,
			TrialStationID: DefaultTrialStationID,
		},
		Lookup: LookupConfig{
			Provider: "none",
		},
		Notify: NotifyConfig{
			Username: "OnAir",
		},
		Store: StoreConfig{
			Path: "./onair.db",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
