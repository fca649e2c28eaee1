/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the engine's control plane: a small REST API
// for transport and tuning plus a websocket feed of visualizer frames.
// Prometheus metrics are served on their own listener by cmd.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/events"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/player"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/telemetry"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/visualizer"
)

// Server hosts the control API.
type Server struct {
	logger   zerolog.Logger
	player   *player.Controller
	renderer *visualizer.Renderer
	bus      *events.Bus

	http *http.Server
}

// New wires the router.
func New(addr string, ctrl *player.Controller, renderer *visualizer.Renderer, bus *events.Bus, logger zerolog.Logger) *Server {
	s := &Server{
		logger:   logger.With().Str("component", "server").Logger(),
		player:   ctrl,
		renderer: renderer,
		bus:      bus,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.MetricsMiddleware)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/stations", s.handleStations)
		r.Post("/power", s.handlePower)
		r.Post("/play", s.handlePlay)
		r.Post("/pause", s.handlePause)
		r.Post("/next", s.handleNext)
		r.Post("/prev", s.handlePrev)
		r.Post("/select/{id}", s.handleSelect)
		r.Post("/track/{index}", s.handleTrack)
		r.Post("/volume", s.handleVolume)
		r.Post("/eq", s.handleEQ)
	})
	r.Get("/ws/visualizer", s.handleVisualizerWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.http = &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(r, "control-api"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("Control API listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("control api: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
