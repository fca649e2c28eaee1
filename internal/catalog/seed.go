/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/models"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/telemetry"
)

// seedFile is the on-disk catalog format.
type seedFile struct {
	Stations []seedStation `yaml:"stations"`
}

type seedStation struct {
	models.Station `yaml:",inline"`
	Tracks         []models.Track `yaml:"tracks,omitempty"`
}

// SeedSource serves a catalog loaded from a YAML file. History is kept
// in memory; installs that need durable history point the engine at
// the directory service instead.
type SeedSource struct {
	logger   zerolog.Logger
	stations []models.Station
	tracks   map[int64][]models.Track

	mu      sync.Mutex
	history []models.HistoryEntry
}

// LoadSeed reads and validates a seed catalog.
func LoadSeed(path string, logger zerolog.Logger) (*SeedSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	if len(seed.Stations) == 0 {
		return nil, fmt.Errorf("seed file %s: no stations", path)
	}

	src := &SeedSource{
		logger: logger.With().Str("component", "catalog_seed").Logger(),
		tracks: make(map[int64][]models.Track),
	}
	seen := make(map[int64]bool)
	for _, s := range seed.Stations {
		if s.ID == 0 {
			return nil, fmt.Errorf("seed file %s: station %q has no id", path, s.Name)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("seed file %s: duplicate station id %d", path, s.ID)
		}
		seen[s.ID] = true
		src.stations = append(src.stations, s.Station)
		if len(s.Tracks) > 0 {
			src.tracks[s.ID] = s.Tracks
		}
	}
	sort.SliceStable(src.stations, func(i, j int) bool {
		return src.stations[i].SortOrder < src.stations[j].SortOrder
	})

	src.logger.Info().Int("stations", len(src.stations)).Str("path", path).Msg("Seed catalog loaded")
	return src, nil
}

func (s *SeedSource) Stations(ctx context.Context) ([]models.Station, error) {
	return append([]models.Station(nil), s.stations...), nil
}

func (s *SeedSource) Tracks(ctx context.Context, stationID int64) ([]models.Track, error) {
	return append([]models.Track(nil), s.tracks[stationID]...), nil
}

func (s *SeedSource) AppendHistory(ctx context.Context, entry models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.PlayedAt.IsZero() {
		entry.PlayedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.history = append(s.history, entry)
	s.mu.Unlock()
	telemetry.HistoryWritesTotal.WithLabelValues("ok").Inc()
	return nil
}

// History returns recorded entries, newest last.
func (s *SeedSource) History() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HistoryEntry(nil), s.history...)
}

var _ Source = (*SeedSource)(nil)
var _ Source = (*Client)(nil)
