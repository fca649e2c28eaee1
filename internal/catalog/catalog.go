/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog supplies station and track data to the engine. The
// REST client talks to the station directory service with a Redis
// read-through cache in front; the seed source serves a static YAML
// file for development and air-gapped installs.
package catalog

import (
	"context"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/models"
)

// Source is where the engine gets stations, playlists and history
// persistence. Implementations must be safe for concurrent use.
type Source interface {
	// Stations returns all known stations in display order.
	Stations(ctx context.Context) ([]models.Station, error)

	// Tracks returns the playlist for a user station. An empty slice
	// is a valid answer, not an error.
	Tracks(ctx context.Context, stationID int64) ([]models.Track, error)

	// AppendHistory records one listening history entry.
	AppendHistory(ctx context.Context, entry models.HistoryEntry) error
}

// ActiveStations filters and returns only stations flagged active,
// preserving order.
func ActiveStations(stations []models.Station) []models.Station {
	out := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out
}
