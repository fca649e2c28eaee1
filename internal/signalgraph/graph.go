/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package signalgraph routes decoded audio through a three-band
// equalizer and a frequency analyser. One graph serves the whole
// engine; it rebinds between playback elements as stations change.
package signalgraph

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/media"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/models"
)

const (
	bassFreq   = 200.0
	midFreq    = 1000.0
	midQ       = 0.5
	trebleFreq = 3000.0

	// eqGainScale maps the UI range [-6, 6] onto filter gain in dB.
	eqGainScale = 2.0
)

// Graph owns the processing chain: source tap, bass low shelf, mid
// peaking filter, treble high shelf, then the analyser. The chain
// mutates element samples in place, so the equalizer is audible.
type Graph struct {
	logger     zerolog.Logger
	sampleRate float64

	mu       sync.Mutex
	element  media.Element
	bass     *biquad
	mid      *biquad
	treble   *biquad
	analyser *Analyser
	eq       models.EQSettings
	running  bool
	closed   bool
}

// New builds a graph at the engine mix rate. Analyser construction
// failure is not fatal: the equalizer still works and the visualizer
// falls back to its idle frame.
func New(logger zerolog.Logger) *Graph {
	g := &Graph{
		logger:     logger.With().Str("component", "signal_graph").Logger(),
		sampleRate: float64(media.MixRate),
	}
	g.bass = newLowShelf(g.sampleRate, bassFreq, 0)
	g.mid = newPeaking(g.sampleRate, midFreq, midQ, 0)
	g.treble = newHighShelf(g.sampleRate, trebleFreq, 0)

	analyser, err := NewAnalyser(DefaultFFTSize, DefaultSmoothing)
	if err != nil {
		g.logger.Error().Err(err).Msg("Analyser construction failed, visualizer disabled")
	} else {
		g.analyser = analyser
	}
	return g
}

// Connect binds the graph to an element's sample stream. Connecting
// the already-bound element is a no-op; otherwise the previous binding
// is torn down first. The previous element keeps playing unprocessed.
func (g *Graph) Connect(el media.Element) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return fmt.Errorf("signalgraph: graph closed")
	}
	if g.element == el {
		return nil
	}

	if g.element != nil {
		if err := g.element.SetTap(nil); err != nil {
			g.logger.Warn().Err(err).Msg("Releasing previous element tap failed")
		}
		g.resetLocked()
	}

	if err := el.SetTap(g.process); err != nil {
		return fmt.Errorf("binding element: %w", err)
	}
	g.element = el
	g.running = true
	g.logger.Debug().Msg("Signal graph connected")
	return nil
}

// UpdateEQ applies new band gains. Values are clamped to the UI range
// and doubled into dB. Filter state carries over, so adjustment while
// playing does not click more than coefficient stepping already does.
func (g *Graph) UpdateEQ(eq models.EQSettings) {
	eq = eq.Clamp()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.eq = eq
	g.bass.setLowShelf(g.sampleRate, bassFreq, eq.Bass*eqGainScale)
	g.mid.setPeaking(g.sampleRate, midFreq, midQ, eq.Mid*eqGainScale)
	g.treble.setHighShelf(g.sampleRate, trebleFreq, eq.Treble*eqGainScale)
}

// EQ returns the active settings.
func (g *Graph) EQ() models.EQSettings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.eq
}

// Analyser returns the graph's analyser, or nil when construction
// failed.
func (g *Graph) Analyser() *Analyser {
	return g.analyser
}

// Resume (re)enables processing. Output stacks commonly start
// suspended until playback intent is explicit; call this on every play
// so the chain is live. Resuming a running graph is a no-op.
func (g *Graph) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.running {
		return
	}
	g.running = true
}

// Suspend halts processing without unbinding the element. Samples pass
// through unprocessed while suspended.
func (g *Graph) Suspend() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
}

// Close unbinds the element and stops processing permanently.
func (g *Graph) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.running = false
	if g.element != nil {
		if err := g.element.SetTap(nil); err != nil {
			g.logger.Warn().Err(err).Msg("Releasing element tap failed")
		}
		g.element = nil
	}
}

func (g *Graph) resetLocked() {
	g.bass.reset()
	g.mid.reset()
	g.treble.reset()
	if g.analyser != nil {
		g.analyser.Reset()
	}
}

// process runs on the audio output path.
func (g *Graph) process(samples [][2]float64) {
	g.mu.Lock()
	if !g.running || g.closed {
		g.mu.Unlock()
		return
	}
	g.bass.process(samples)
	g.mid.process(samples)
	g.treble.process(samples)
	analyser := g.analyser
	g.mu.Unlock()

	if analyser != nil {
		analyser.Feed(samples)
	}
}
