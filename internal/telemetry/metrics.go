/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing for
// the player engine.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Playback branch labels.
const (
	BranchLiveAudio = "live_audio"
	BranchLiveVideo = "live_video"
	BranchPlaylist  = "playlist"
)

var (
	// PlayStartsTotal counts successful playback starts per branch.
	PlayStartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lava_play_starts_total",
		Help: "Successful playback starts by branch.",
	}, []string{"branch"})

	// PlayErrorsTotal counts rejected play attempts per branch.
	PlayErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lava_play_errors_total",
		Help: "Rejected play attempts by branch.",
	}, []string{"branch"})

	// StationSelectionsTotal counts station switches by station type.
	StationSelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lava_station_selections_total",
		Help: "Station selections by station type.",
	}, []string{"type"})

	// HLSSessionsTotal counts software HLS session constructions.
	HLSSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lava_hls_sessions_total",
		Help: "Software HLS sessions created.",
	})

	// HLSFatalErrorsTotal counts fatal HLS session failures.
	HLSFatalErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lava_hls_fatal_errors_total",
		Help: "Fatal HLS session failures.",
	})

	// VisualizerFramesTotal counts rendered visualizer frames.
	VisualizerFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lava_visualizer_frames_total",
		Help: "Visualizer frames rendered.",
	})

	// CacheNotificationsTotal counts offline cache requests sent to the worker.
	CacheNotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lava_cache_notifications_total",
		Help: "Offline cache requests published.",
	})

	// HistoryWritesTotal counts history sink writes by outcome.
	HistoryWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lava_history_writes_total",
		Help: "Playback history writes by outcome.",
	}, []string{"outcome"})

	// APIRequestsTotal counts control-plane HTTP requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lava_api_requests_total",
		Help: "Control API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes control-plane request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lava_api_request_duration_seconds",
		Help:    "Control API request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight control-plane requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lava_api_active_connections",
		Help: "In-flight control API requests.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
