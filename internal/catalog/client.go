/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/models"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/telemetry"
)

// Client talks to the station directory REST API. A non-nil cache is
// consulted before the network and refreshed after it.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *Cache
	logger  zerolog.Logger
}

// NewClient builds a catalog client. cache may be nil.
func NewClient(baseURL string, timeout time.Duration, cache *Cache, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// Stations fetches the station list, sorted by sort order.
func (c *Client) Stations(ctx context.Context) ([]models.Station, error) {
	if c.cache != nil {
		if stations, ok := c.cache.GetStations(ctx); ok {
			return stations, nil
		}
	}

	var stations []models.Station
	if err := c.getJSON(ctx, "/api/stations", &stations); err != nil {
		return nil, err
	}
	sort.SliceStable(stations, func(i, j int) bool {
		return stations[i].SortOrder < stations[j].SortOrder
	})

	if c.cache != nil {
		c.cache.SetStations(ctx, stations)
	}
	return stations, nil
}

// Tracks fetches the playlist of a user station.
func (c *Client) Tracks(ctx context.Context, stationID int64) ([]models.Track, error) {
	if c.cache != nil {
		if tracks, ok := c.cache.GetTracks(ctx, stationID); ok {
			return tracks, nil
		}
	}

	var tracks []models.Track
	if err := c.getJSON(ctx, fmt.Sprintf("/api/stations/%d/tracks", stationID), &tracks); err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.SetTracks(ctx, stationID, tracks)
	}
	return tracks, nil
}

// AppendHistory posts one history entry. The entry gets an ID and
// timestamp if the caller left them zero.
func (c *Client) AppendHistory(ctx context.Context, entry models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.PlayedAt.IsZero() {
		entry.PlayedAt = time.Now().UTC()
	}

	body, err := json.Marshal(entry)
	if err != nil {
		telemetry.HistoryWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("encoding history entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/history", bytes.NewReader(body))
	if err != nil {
		telemetry.HistoryWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("building history request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		telemetry.HistoryWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("posting history entry: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		telemetry.HistoryWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("posting history entry: unexpected status %d", resp.StatusCode)
	}

	telemetry.HistoryWritesTotal.WithLabelValues("ok").Inc()
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
