/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/media"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/mediasession"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/models"
)

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fakeElement is a scriptable playback slot.
type fakeElement struct {
	mu      sync.Mutex
	src     string
	gain    float64
	playErr error
	gate    chan error // non-nil makes Play block until fed
	plays   int
	stops   int
	pauses  int
	playing bool
	onEnded func()
	onError func(error)
	tap     media.Tap
}

func newFakeElement() *fakeElement { return &fakeElement{gain: 1} }

func (f *fakeElement) Load(src string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if src == f.src {
		return
	}
	f.src = src
}

func (f *fakeElement) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src
}

func (f *fakeElement) Play(ctx context.Context) error {
	f.mu.Lock()
	f.plays++
	gate := f.gate
	err := f.playErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case err = <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.playing = err == nil
	f.mu.Unlock()
	return err
}

func (f *fakeElement) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	f.playing = false
}

func (f *fakeElement) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.playing = false
	f.src = ""
}

func (f *fakeElement) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gain = v
}

func (f *fakeElement) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gain
}

func (f *fakeElement) SetTap(t media.Tap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t != nil && f.tap != nil {
		return media.ErrTapBound
	}
	f.tap = t
	return nil
}

func (f *fakeElement) OnEnded(fn func()) { f.onEnded = fn }

func (f *fakeElement) OnError(fn func(error)) { f.onError = fn }

func (f *fakeElement) Close() {}

func (f *fakeElement) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}

func (f *fakeElement) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// fakeSource serves canned stations and tracks. Track responses can be
// held back through the release channel.
type fakeSource struct {
	mu       sync.Mutex
	stations []models.Station
	tracks   map[int64][]models.Track
	hold     map[int64]chan struct{}
	history  []models.HistoryEntry
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		tracks: make(map[int64][]models.Track),
		hold:   make(map[int64]chan struct{}),
	}
}

func (f *fakeSource) Stations(ctx context.Context) ([]models.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Station(nil), f.stations...), nil
}

func (f *fakeSource) Tracks(ctx context.Context, stationID int64) ([]models.Track, error) {
	f.mu.Lock()
	gate := f.hold[stationID]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Track(nil), f.tracks[stationID]...), nil
}

func (f *fakeSource) AppendHistory(ctx context.Context, entry models.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, entry)
	return nil
}

func (f *fakeSource) historyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history)
}

// fakeGraph records connections.
type fakeGraph struct {
	mu        sync.Mutex
	connected media.Element
	eq        models.EQSettings
	resumes   int
}

func (g *fakeGraph) Connect(el media.Element) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = el
	return nil
}

func (g *fakeGraph) UpdateEQ(eq models.EQSettings) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.eq = eq.Clamp()
}

func (g *fakeGraph) EQ() models.EQSettings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.eq
}

func (g *fakeGraph) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resumes++
}

func (g *fakeGraph) Close() {}

// fakeBridge records the last session update.
type fakeBridge struct {
	mu       sync.Mutex
	meta     mediasession.Metadata
	playing  bool
	handlers mediasession.Handlers
	cleared  bool
}

func (b *fakeBridge) Update(meta mediasession.Metadata, playing bool, h mediasession.Handlers) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meta = meta
	b.playing = playing
	b.handlers = h
}

func (b *fakeBridge) SetPlaybackState(playing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = playing
}

func (b *fakeBridge) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleared = true
}

// fakeNotifier records cache requests.
type fakeNotifier struct {
	mu     sync.Mutex
	active bool
	urls   []string
}

func (n *fakeNotifier) Active() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

func (n *fakeNotifier) CacheAudioForOffline(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
}

func (n *fakeNotifier) requested() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}

// fakeRenderer records activation flips.
type fakeRenderer struct {
	mu     sync.Mutex
	active bool
}

func (r *fakeRenderer) SetActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = active
}

func (r *fakeRenderer) isActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// fakeHLS is a scriptable session.
type fakeHLS struct {
	mu        sync.Mutex
	url       string
	startErr  error
	started   bool
	destroyed bool
	onFatal   func(error)
}

func (h *fakeHLS) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = true
	return h.startErr
}

func (h *fakeHLS) OnFatal(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFatal = fn
}

func (h *fakeHLS) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = true
}

func (h *fakeHLS) isDestroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// hlsRecorder is an HLSFactory capturing every built session.
type hlsRecorder struct {
	mu       sync.Mutex
	sessions []*fakeHLS
	startErr error
}

func (r *hlsRecorder) factory(url string, lowLatency bool) HLSSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &fakeHLS{url: url, startErr: r.startErr}
	r.sessions = append(r.sessions, s)
	return s
}

func (r *hlsRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *hlsRecorder) session(i int) *fakeHLS {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[i]
}
