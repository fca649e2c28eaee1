/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package visualizer turns analyser output into bar frames for
// whatever front end is attached, streamed over the event bus.
package visualizer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/events"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/telemetry"
)

// frameInterval is roughly 30 frames per second, plenty for bar
// animation without burning a core.
const frameInterval = 33 * time.Millisecond

// maxBarRatio caps bar height so the tallest bar never touches the top
// edge of the canvas.
const maxBarRatio = 0.9

// idleBarRatio is the flat bar height rendered when nothing plays.
const idleBarRatio = 0.04

// Gradient is the bar fill, bottom to top.
type Gradient struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DefaultGradient matches the house style.
var DefaultGradient = Gradient{From: "#f97316", To: "#fde047"}

// Frame is one rendered visualizer frame.
type Frame struct {
	Bars     []int    `json:"bars"`
	Height   int      `json:"height"`
	Gradient Gradient `json:"gradient"`
	Idle     bool     `json:"idle"`
}

// FrequencySource is the slice of the analyser the renderer needs.
type FrequencySource interface {
	ByteFrequencyData(dst []byte) int
	BinCount() int
}

// Renderer samples a FrequencySource on a fixed cadence and publishes
// frames. When disabled it renders a single idle frame and stops the
// loop entirely so a hidden or stopped player costs nothing.
type Renderer struct {
	logger   zerolog.Logger
	bus      *events.Bus
	source   FrequencySource
	bars     int
	height   int
	gradient Gradient

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	last   Frame
	closed bool
}

// New builds a renderer. source may be nil, in which case only idle
// frames are produced.
func New(source FrequencySource, bus *events.Bus, bars, height int, logger zerolog.Logger) *Renderer {
	r := &Renderer{
		logger:   logger.With().Str("component", "visualizer").Logger(),
		bus:      bus,
		source:   source,
		bars:     bars,
		height:   height,
		gradient: DefaultGradient,
	}
	r.last = r.idleFrame()
	return r
}

// SetActive starts the frame loop when active and stops it otherwise.
// Deactivating publishes one idle frame so the display clears instead
// of freezing on the last live frame.
func (r *Renderer) SetActive(active bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	if active {
		if r.cancel != nil {
			r.mu.Unlock()
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		r.wg.Add(1)
		r.mu.Unlock()
		go r.loop(ctx)
		return
	}

	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		r.wg.Wait()
	}
	r.publish(r.idleFrame())
}

// Frame returns the most recently rendered frame.
func (r *Renderer) Frame() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.last
	f.Bars = append([]int(nil), f.Bars...)
	return f
}

// Close stops the loop permanently.
func (r *Renderer) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		r.wg.Wait()
	}
}

func (r *Renderer) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	bins := 0
	if r.source != nil {
		bins = r.source.BinCount()
	}
	if bins == 0 {
		r.publish(r.idleFrame())
		return
	}
	freq := make([]byte, bins)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := r.source.ByteFrequencyData(freq)
			r.publish(r.render(freq[:n]))
		}
	}
}

// render buckets frequency bins into bars. Each bar takes the peak of
// its bucket, scaled into the capped pixel range.
func (r *Renderer) render(freq []byte) Frame {
	bars := make([]int, r.bars)
	if len(freq) == 0 {
		return Frame{Bars: bars, Height: r.height, Gradient: r.gradient}
	}

	bucket := len(freq) / r.bars
	if bucket < 1 {
		bucket = 1
	}
	maxPx := float64(r.height) * maxBarRatio
	for i := range bars {
		start := i * bucket
		if start >= len(freq) {
			break
		}
		end := start + bucket
		if end > len(freq) {
			end = len(freq)
		}
		var peak byte
		for _, v := range freq[start:end] {
			if v > peak {
				peak = v
			}
		}
		bars[i] = int(float64(peak) / 255 * maxPx)
	}
	return Frame{Bars: bars, Height: r.height, Gradient: r.gradient}
}

func (r *Renderer) idleFrame() Frame {
	bars := make([]int, r.bars)
	px := int(float64(r.height) * idleBarRatio)
	if px < 1 {
		px = 1
	}
	for i := range bars {
		bars[i] = px
	}
	return Frame{Bars: bars, Height: r.height, Gradient: r.gradient, Idle: true}
}

func (r *Renderer) publish(f Frame) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.last = f
	r.mu.Unlock()

	telemetry.VisualizerFramesTotal.Inc()
	if r.bus != nil {
		r.bus.Publish(events.EventVisualizerFrame, events.Payload{
			"bars":     f.Bars,
			"height":   f.Height,
			"idle":     f.Idle,
			"gradient": f.Gradient,
		})
	}
}
