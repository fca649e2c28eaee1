/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package visualizer

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/events"
)

// staticSource always reports the same magnitudes.
type staticSource struct {
	bins []byte
}

func (s *staticSource) BinCount() int { return len(s.bins) }

func (s *staticSource) ByteFrequencyData(dst []byte) int {
	n := copy(dst, s.bins)
	return n
}

func fullScale(bins int) *staticSource {
	s := &staticSource{bins: make([]byte, bins)}
	for i := range s.bins {
		s.bins[i] = 255
	}
	return s
}

func TestRendererCapsBarHeight(t *testing.T) {
	r := New(fullScale(128), nil, 20, 100, zerolog.Nop())
	defer r.Close()

	f := r.render(fullScale(128).bins)
	for i, h := range f.Bars {
		if h > 90 {
			t.Fatalf("bar %d height %d exceeds 90%% cap", i, h)
		}
		if h != 90 {
			t.Fatalf("bar %d height %d, want 90 for full-scale input", i, h)
		}
	}
}

func TestRendererBucketsUsePeak(t *testing.T) {
	src := &staticSource{bins: make([]byte, 128)}
	src.bins[5] = 255

	r := New(src, nil, 16, 100, zerolog.Nop())
	defer r.Close()

	f := r.render(src.bins)
	// 128 bins over 16 bars puts bin 5 in bar 0.
	if f.Bars[0] != 90 {
		t.Fatalf("bar 0 = %d, want 90", f.Bars[0])
	}
	for i := 1; i < len(f.Bars); i++ {
		if f.Bars[i] != 0 {
			t.Fatalf("bar %d = %d, want 0", i, f.Bars[i])
		}
	}
}

func TestRendererIdleFrameIsFlatAndLow(t *testing.T) {
	r := New(nil, nil, 10, 100, zerolog.Nop())
	defer r.Close()

	f := r.Frame()
	if !f.Idle {
		t.Fatal("initial frame not idle")
	}
	for _, h := range f.Bars {
		if h != f.Bars[0] {
			t.Fatal("idle frame is not flat")
		}
		if h > 10 {
			t.Fatalf("idle bar height %d is not low", h)
		}
	}
}

func TestRendererPublishesFramesWhileActive(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventVisualizerFrame)

	r := New(fullScale(128), bus, 10, 100, zerolog.Nop())
	defer r.Close()

	r.SetActive(true)
	select {
	case p := <-sub:
		if p["idle"].(bool) {
			t.Fatal("active renderer published idle frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame published")
	}

	r.SetActive(false)
	f := r.Frame()
	if !f.Idle {
		t.Fatal("deactivation did not render idle frame")
	}
}

func TestRendererSetActiveIsIdempotent(t *testing.T) {
	r := New(fullScale(128), nil, 10, 100, zerolog.Nop())
	defer r.Close()

	r.SetActive(true)
	r.SetActive(true)
	r.SetActive(false)
	r.SetActive(false)
}
