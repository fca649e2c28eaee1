/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mediasession projects now-playing metadata and transport
// controls to the host platform. The Sink abstraction covers whatever
// integration is compiled in; the default sink mirrors everything onto
// the event bus for embedding front ends.
package mediasession

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/events"
)

// Transport actions a platform can invoke.
const (
	ActionPlay     = "play"
	ActionPause    = "pause"
	ActionPrevious = "previoustrack"
	ActionNext     = "nexttrack"
)

// artworkSizes are the square raster sizes advertised for station
// logos, smallest to largest, so the platform can pick a fit.
var artworkSizes = []int{96, 128, 192, 256, 384, 512}

// Metadata is what the platform shows for the current playback.
type Metadata struct {
	Title      string
	Artist     string
	Album      string
	ArtworkURL string
}

// Artwork is one advertised artwork variant.
type Artwork struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// Handlers binds transport actions to engine operations. Nil fields
// deregister the action.
type Handlers struct {
	OnPlay     func()
	OnPause    func()
	OnPrevious func()
	OnNext     func()
}

// Sink is the platform side of the bridge.
type Sink interface {
	SetMetadata(meta Metadata, artwork []Artwork)
	SetPlaybackState(playing bool)
	SetHandler(action string, fn func())
}

// ArtworkSet expands one artwork URL into the advertised size ladder.
// An empty URL yields nil so callers can pass it through untouched.
func ArtworkSet(src string) []Artwork {
	if src == "" {
		return nil
	}
	out := make([]Artwork, 0, len(artworkSizes))
	for _, s := range artworkSizes {
		out = append(out, Artwork{
			Src:   src,
			Sizes: fmt.Sprintf("%dx%d", s, s),
			Type:  "image/png",
		})
	}
	return out
}

// Bridge pushes engine state into a Sink. Handlers are re-registered
// on every update; stale closures from a previous track must never
// survive a track change.
type Bridge struct {
	logger zerolog.Logger

	mu   sync.Mutex
	sink Sink
}

func NewBridge(sink Sink, logger zerolog.Logger) *Bridge {
	return &Bridge{
		logger: logger.With().Str("component", "media_session").Logger(),
		sink:   sink,
	}
}

// Update publishes metadata, playback state and fresh handlers.
func (b *Bridge) Update(meta Metadata, playing bool, h Handlers) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sink == nil {
		return
	}
	b.sink.SetMetadata(meta, ArtworkSet(meta.ArtworkURL))
	b.sink.SetPlaybackState(playing)
	b.sink.SetHandler(ActionPlay, h.OnPlay)
	b.sink.SetHandler(ActionPause, h.OnPause)
	b.sink.SetHandler(ActionPrevious, h.OnPrevious)
	b.sink.SetHandler(ActionNext, h.OnNext)
}

// SetPlaybackState pushes only the play/pause flag, leaving metadata
// and handlers as they are.
func (b *Bridge) SetPlaybackState(playing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sink == nil {
		return
	}
	b.sink.SetPlaybackState(playing)
}

// Clear wipes metadata and deregisters every action.
func (b *Bridge) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sink == nil {
		return
	}
	b.sink.SetMetadata(Metadata{}, nil)
	b.sink.SetPlaybackState(false)
	b.sink.SetHandler(ActionPlay, nil)
	b.sink.SetHandler(ActionPause, nil)
	b.sink.SetHandler(ActionPrevious, nil)
	b.sink.SetHandler(ActionNext, nil)
}

// BusSink mirrors session state onto the event bus and keeps the
// registered handlers callable via Invoke, which is how embedded
// front ends drive the transport.
type BusSink struct {
	bus *events.Bus

	mu       sync.Mutex
	handlers map[string]func()
}

func NewBusSink(bus *events.Bus) *BusSink {
	return &BusSink{bus: bus, handlers: make(map[string]func())}
}

func (s *BusSink) SetMetadata(meta Metadata, artwork []Artwork) {
	s.bus.Publish(events.EventNowPlaying, events.Payload{
		"title":   meta.Title,
		"artist":  meta.Artist,
		"album":   meta.Album,
		"artwork": artwork,
	})
}

func (s *BusSink) SetPlaybackState(playing bool) {
	s.bus.Publish(events.EventPlayerState, events.Payload{
		"playing": playing,
	})
}

func (s *BusSink) SetHandler(action string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.handlers, action)
		return
	}
	s.handlers[action] = fn
}

// Invoke runs the registered handler for action, returning false when
// none is registered.
func (s *BusSink) Invoke(action string) bool {
	s.mu.Lock()
	fn := s.handlers[action]
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}
