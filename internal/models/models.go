/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// StationType discriminates the two station variants.
type StationType string

const (
	// StationExternal is backed by a continuously live stream URL.
	StationExternal StationType = "external"
	// StationUser is backed by an explicit ordered track list.
	StationUser StationType = "user"
)

// MediaType discriminates track payloads.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// Station is the union of external live-stream stations and user playlist
// stations. Type selects the variant; StreamURL/VideoStreamURL are only
// meaningful for external stations, the fetched track list only for user
// stations.
type Station struct {
	ID             int64       `json:"id" yaml:"id"`
	Type           StationType `json:"type" yaml:"type"`
	Name           string      `json:"name" yaml:"name"`
	Description    string      `json:"description,omitempty" yaml:"description,omitempty"`
	StreamURL      string      `json:"streamUrl,omitempty" yaml:"streamUrl,omitempty"`
	VideoStreamURL string      `json:"videoStreamUrl,omitempty" yaml:"videoStreamUrl,omitempty"`
	LogoURL        string      `json:"logoUrl,omitempty" yaml:"logoUrl,omitempty"`
	Genre          string      `json:"genre,omitempty" yaml:"genre,omitempty"`
	PresetNumber   int         `json:"presetNumber,omitempty" yaml:"presetNumber,omitempty"` // 1-5, unique slot, 0 = none
	IsActive       bool        `json:"isActive" yaml:"isActive"`
	SortOrder      int         `json:"sortOrder" yaml:"sortOrder"`
}

// IsVideo reports whether selecting this station routes to the video branch.
// A configured video stream takes precedence over the plain stream URL.
func (s *Station) IsVideo() bool {
	return s.Type == StationExternal && s.VideoStreamURL != ""
}

// Track is one entry of a user station's ordered playlist.
type Track struct {
	ID       int64     `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Artist   string    `json:"artist,omitempty" yaml:"artist,omitempty"`
	MediaURL string    `json:"mediaUrl" yaml:"mediaUrl"`
	Type     MediaType `json:"mediaType" yaml:"mediaType"`
	Duration float64   `json:"duration,omitempty" yaml:"duration,omitempty"` // seconds
}

// HistoryEntry is the denormalized snapshot written once per successful play
// transition. The player never reads these back except to re-select a station
// from a chosen history row.
type HistoryEntry struct {
	ID          string    `json:"id"`
	StationID   int64     `json:"stationId"`
	StationName string    `json:"stationName"`
	LogoURL     string    `json:"logoUrl,omitempty"`
	TrackTitle  string    `json:"trackTitle,omitempty"`
	TrackArtist string    `json:"trackArtist,omitempty"`
	PlayedAt    time.Time `json:"playedAt"`
}

// EQSettings carries the three band gains, each in [-6,6]. The signal graph
// doubles them to decibels.
type EQSettings struct {
	Bass   float64 `json:"bass"`
	Mid    float64 `json:"mid"`
	Treble float64 `json:"treble"`
}

// Clamp returns a copy with every band forced into [-6,6].
func (e EQSettings) Clamp() EQSettings {
	clamp := func(v float64) float64 {
		if v < -6 {
			return -6
		}
		if v > 6 {
			return 6
		}
		return v
	}
	return EQSettings{Bass: clamp(e.Bass), Mid: clamp(e.Mid), Treble: clamp(e.Treble)}
}
