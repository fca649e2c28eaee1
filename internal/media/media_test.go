/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/rs/zerolog"
)

func TestAudioElementTapBinding(t *testing.T) {
	e := NewAudioElement(zerolog.Nop())
	defer e.Close()

	if err := e.SetTap(func(samples [][2]float64) {}); err != nil {
		t.Fatalf("first bind failed: %v", err)
	}
	if err := e.SetTap(func(samples [][2]float64) {}); !errors.Is(err, ErrTapBound) {
		t.Fatalf("expected ErrTapBound on second bind, got %v", err)
	}
	if err := e.SetTap(nil); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := e.SetTap(func(samples [][2]float64) {}); err != nil {
		t.Fatalf("rebind after release failed: %v", err)
	}
}

func TestAudioElementPlayWithoutSource(t *testing.T) {
	e := NewAudioElement(zerolog.Nop())
	defer e.Close()

	if err := e.Play(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}

func TestAudioElementLoadKeepsUnchangedSource(t *testing.T) {
	e := NewAudioElement(zerolog.Nop())
	defer e.Close()

	e.Load("http://example.com/a.mp3")
	e.Load("http://example.com/a.mp3")
	if got := e.Source(); got != "http://example.com/a.mp3" {
		t.Fatalf("unexpected source %q", got)
	}
	e.Stop()
	if got := e.Source(); got != "" {
		t.Fatalf("source not cleared after stop: %q", got)
	}
}

func TestTapStreamerRunsBoundTap(t *testing.T) {
	var tapped int
	tap := Tap(func(samples [][2]float64) { tapped += len(samples) })

	e := NewAudioElement(zerolog.Nop())
	defer e.Close()
	if err := e.SetTap(tap); err != nil {
		t.Fatal(err)
	}

	src := &countingStreamer{remaining: 100}
	ts := &tapStreamer{inner: src, tap: &e.tap}
	buf := make([][2]float64, 64)

	n, ok := ts.Stream(buf)
	if n != 64 || !ok {
		t.Fatalf("Stream() = %d, %v", n, ok)
	}
	if tapped != 64 {
		t.Fatalf("tap saw %d samples, want 64", tapped)
	}
}

func TestApplyGain(t *testing.T) {
	vol := &effects.Volume{Base: 2}

	applyGain(vol, 0)
	if !vol.Silent {
		t.Fatal("zero gain should mute")
	}

	applyGain(vol, 1)
	if vol.Silent || vol.Volume != 0 {
		t.Fatalf("unit gain should map to volume 0, got silent=%v volume=%v", vol.Silent, vol.Volume)
	}

	applyGain(vol, 0.5)
	if vol.Volume != -1 {
		t.Fatalf("half gain should map to volume -1, got %v", vol.Volume)
	}
}

func TestVideoElementDirectPlayback(t *testing.T) {
	payload := make([]byte, 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	e := NewVideoElement(zerolog.Nop(), false)
	defer e.Close()

	ended := make(chan struct{})
	e.OnEnded(func() { close(ended) })

	e.Load(srv.URL)
	if err := e.Play(context.Background()); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not drain")
	}
	if e.BytesRead() != int64(len(payload)) {
		t.Fatalf("read %d bytes, want %d", e.BytesRead(), len(payload))
	}
}

func TestVideoElementRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewVideoElement(zerolog.Nop(), false)
	defer e.Close()

	e.Load(srv.URL)
	if err := e.Play(context.Background()); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestVideoElementStopClearsSource(t *testing.T) {
	e := NewVideoElement(zerolog.Nop(), false)
	defer e.Close()

	e.Load("http://example.com/live.m3u8")
	e.Stop()
	if e.Source() != "" {
		t.Fatal("source survived stop")
	}
}

type countingStreamer struct {
	remaining int
}

func (c *countingStreamer) Stream(samples [][2]float64) (int, bool) {
	if c.remaining <= 0 {
		return 0, false
	}
	n := len(samples)
	if n > c.remaining {
		n = c.remaining
	}
	c.remaining -= n
	return n, true
}

func (c *countingStreamer) Err() error { return nil }

var _ beep.Streamer = (*countingStreamer)(nil)
