// Package main provides the OnAir service entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"onair/internal/core"
	"onair/internal/feed"
	httpserver "onair/internal/http"
	"onair/internal/lookup"
	"onair/internal/notify"
	"onair/internal/store"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "onair",
	Short: "OnAir - radio now-playing metadata resolver",
	Long: `OnAir resolves the noisy now-playing feed of a radio station into clean,
display-ready artist/title/cover-art records, applying operator overrides and
external cover-art lookups, and notifies a webhook on track changes.`,
	RunE: runOnAir,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("feed-url", "", "base URL of the now-playing feed")
	rootCmd.PersistentFlags().Int("station-id", core.DefaultStationID, "main station feed id")
	rootCmd.PersistentFlags().Int("trial-station-id", core.DefaultTrialStationID, "trial station feed id")
	rootCmd.PersistentFlags().String("station-name", "", "station name the feed reports when idle")
	rootCmd.PersistentFlags().String("db-path", "./onair.db", "SQLite database path")
	rootCmd.PersistentFlags().String("lookup-provider", "none", "cover-art lookup provider (songdata, spotify, none)")
	rootCmd.PersistentFlags().String("lookup-url", "", "song-data lookup API base URL")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("discord-webhook-url", "", "Discord webhook URL for notifications")
	rootCmd.PersistentFlags().String("server-host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", core.DefaultServerPort, "HTTP server port")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("ONAIR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Station.FeedURL = viper.GetString("feed-url")
	cfg.Station.StationID = viper.GetInt("station-id")
	if cfg.Station.StationID == 0 {
		cfg.Station.StationID = core.DefaultStationID
	}
	cfg.Station.TrialStationID = viper.GetInt("trial-station-id")
	if cfg.Station.TrialStationID == 0 {
		cfg.Station.TrialStationID = core.DefaultTrialStationID
	}
	cfg.Station.Name = viper.GetString("station-name")

	cfg.Lookup.Provider = viper.GetString("lookup-provider")
	if cfg.Lookup.Provider == "" {
		cfg.Lookup.Provider = "none"
	}
	cfg.Lookup.BaseURL = viper.GetString("lookup-url")
	cfg.Lookup.SpotifyClientID = viper.GetString("spotify-client-id")
	cfg.Lookup.SpotifyClientSecret = viper.GetString("spotify-client-secret")

	cfg.Notify.WebhookURL = viper.GetString("discord-webhook-url")

	cfg.Store.Path = viper.GetString("db-path")
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./onair.db"
	}

	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	cfg.Server.Port = viper.GetInt("server-port")
	if cfg.Server.Port == 0 {
		cfg.Server.Port = core.DefaultServerPort
	}

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runOnAir(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting OnAir",
		zap.String("feed_url", config.Station.FeedURL),
		zap.Int("station_id", config.Station.StationID),
		zap.String("lookup_provider", config.Lookup.Provider))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	db, err := store.Open(config.Store.Path, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}()

	feedClient := feed.NewClient(config.Station.FeedURL, logger.Named("feed"))

	var lookupClient core.LookupClient
	switch config.Lookup.Provider {
	case "songdata":
		lookupClient = lookup.NewClient(config.Lookup.BaseURL, logger.Named("lookup"))
	case "spotify":
		lookupClient = lookup.NewSpotifyClient(
			config.Lookup.SpotifyClientID,
			config.Lookup.SpotifyClientSecret,
			logger.Named("lookup"),
		)
	}

	notifier := notify.NewService(&config.Notify, logger.Named("notify"))

	orchestrator := core.NewOrchestrator(
		config,
		feedClient,
		core.NewOverrideResolver(db, logger.Named("overrides")),
		lookupClient,
		db,
		notifier,
		logger.Named("orchestrator"),
	)

	httpServer := httpserver.NewServer(&config.Server, orchestrator, db, db, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				httpServer.SetDistinctTracks(orchestrator.DistinctTracks())
			}
		}
	})

	logger.Info("OnAir started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("OnAir stopped with error", zap.Error(err))
		return err
	}

	logger.Info("OnAir stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.Station.FeedURL == "" {
		return fmt.Errorf("feed URL is required")
	}

	if config.Station.Name == "" {
		return fmt.Errorf("station name is required")
	}

	switch config.Lookup.Provider {
	case "none", "":
	case "songdata":
		if config.Lookup.BaseURL == "" {
			return fmt.Errorf("lookup URL is required for the songdata provider")
		}
	case "spotify":
		if config.Lookup.SpotifyClientID == "" || config.Lookup.SpotifyClientSecret == "" {
			return fmt.Errorf("spotify client ID and secret are required for the spotify provider")
		}
	default:
		return fmt.Errorf("unknown lookup provider: %s", config.Lookup.Provider)
	}

	return nil
}
