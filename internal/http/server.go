// Package http exposes the resolution pipeline, override administration, and
// observability endpoints.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"onair/internal/core"
)

const defaultListLimit = 50

// Resolver runs the resolution pipeline for the main or trial station.
type Resolver interface {
	Resolve(ctx context.Context) (*core.ResolvedPayload, error)
	ResolveTrial(ctx context.Context) (*core.ResolvedPayload, error)
	DistinctTracks() uint32
}

// OverrideAdmin maintains the operator override table.
type OverrideAdmin interface {
	AddOverride(ctx context.Context, rec *core.OverrideRecord) (int64, error)
	ListOverrides(ctx context.Context, limit int) ([]core.OverrideRecord, error)
}

// HistoryReader lists recently resolved tracks.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]core.HistoryRecord, error)
}

type Server struct {
	config   *core.ServerConfig
	logger   *zap.Logger
	server   *http.Server
	resolver Resolver
	metrics  *Metrics
}

type Metrics struct {
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	DistinctTracks     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onair_resolutions_total",
				Help: "Total number of resolution requests",
			},
			[]string{"station", "outcome"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "onair_resolution_duration_seconds",
				Help:    "Time spent resolving now-playing metadata",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"station"},
		),
		DistinctTracks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "onair_distinct_tracks",
				Help: "Approximate number of distinct tracks resolved this process",
			},
		),
	}

	reg.MustRegister(
		metrics.ResolutionsTotal,
		metrics.ResolutionDuration,
		metrics.DistinctTracks,
	)

	return metrics
}

func NewServer(
	config *core.ServerConfig,
	resolver Resolver,
	admin OverrideAdmin,
	history HistoryReader,
	logger *zap.Logger,
) *Server {
	metrics := newMetrics(prometheus.DefaultRegisterer)
	mux := newRouter(logger, resolver, admin, history, metrics)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return &Server{
		config:   config,
		logger:   logger,
		server:   server,
		resolver: resolver,
		metrics:  metrics,
	}
}

func newRouter(
	logger *zap.Logger,
	resolver Resolver,
	admin OverrideAdmin,
	history HistoryReader,
	metrics *Metrics,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/nowplaying", nowPlayingHandler(logger, resolver, metrics, false))
	mux.HandleFunc("/api/nowplaying/trial", nowPlayingHandler(logger, resolver, metrics, true))
	mux.HandleFunc("/api/overrides", overridesHandler(logger, admin))
	mux.HandleFunc("/api/history", historyHandler(logger, history))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"onair"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"onair"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>OnAir</title></head>
<body>
    <h1>OnAir</h1>
    <p>Radio now-playing metadata resolver.</p>
    <ul>
        <li><a href="/api/nowplaying">/api/nowplaying</a> - resolved metadata (main station)</li>
        <li><a href="/api/nowplaying/trial">/api/nowplaying/trial</a> - resolved metadata (trial station)</li>
        <li><a href="/api/overrides">/api/overrides</a> - operator overrides</li>
        <li><a href="/api/history">/api/history</a> - recent tracks</li>
        <li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
        <li><a href="/healthz">/healthz</a> - health check</li>
        <li><a href="/readyz">/readyz</a> - readiness check</li>
    </ul>
</body>
</html>`))
	})

	return mux
}

func nowPlayingHandler(logger *zap.Logger, resolver Resolver, metrics *Metrics, trial bool) http.HandlerFunc {
	station := "main"
	if trial {
		station = "trial"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		start := time.Now()

		var (
			payload *core.ResolvedPayload
			err     error
		)
		if trial {
			payload, err = resolver.ResolveTrial(r.Context())
		} else {
			payload, err = resolver.Resolve(r.Context())
		}

		metrics.ResolutionDuration.WithLabelValues(station).Observe(time.Since(start).Seconds())

		if err != nil {
			logger.Error("Resolution failed", zap.String("station", station), zap.Error(err))
			metrics.ResolutionsTotal.WithLabelValues(station, "error").Inc()
			writeJSON(logger, w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}

		metrics.ResolutionsTotal.WithLabelValues(station, outcomeLabel(payload)).Inc()
		writeJSON(logger, w, http.StatusOK, payload)
	}
}

func outcomeLabel(payload *core.ResolvedPayload) string {
	switch {
	case payload.Saved:
		return "saved"
	case payload.SkippedSave:
		return "skipped"
	default:
		return "cached"
	}
}

func overridesHandler(logger *zap.Logger, admin OverrideAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			records, err := admin.ListOverrides(r.Context(), listLimit(r))
			if err != nil {
				logger.Error("Failed to list overrides", zap.Error(err))
				writeJSON(logger, w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			if records == nil {
				records = []core.OverrideRecord{}
			}
			writeJSON(logger, w, http.StatusOK, records)

		case http.MethodPost:
			var rec core.OverrideRecord
			if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
				writeJSON(logger, w, http.StatusBadRequest, map[string]string{"error": "invalid override body"})
				return
			}
			if rec.RawMetadata == "" {
				writeJSON(logger, w, http.StatusBadRequest, map[string]string{"error": "rawMetadata is required"})
				return
			}

			id, err := admin.AddOverride(r.Context(), &rec)
			if err != nil {
				logger.Error("Failed to add override", zap.Error(err))
				writeJSON(logger, w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(logger, w, http.StatusCreated, map[string]int64{"id": id})

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func historyHandler(logger *zap.Logger, history HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		records, err := history.Recent(r.Context(), listLimit(r))
		if err != nil {
			logger.Error("Failed to list history", zap.Error(err))
			writeJSON(logger, w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if records == nil {
			records = []core.HistoryRecord{}
		}
		writeJSON(logger, w, http.StatusOK, records)
	}
}

func listLimit(r *http.Request) int {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// SetDistinctTracks refreshes the distinct-tracks gauge.
func (s *Server) SetDistinctTracks(count uint32) {
	s.metrics.DistinctTracks.Set(float64(count))
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}
