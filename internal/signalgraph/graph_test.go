/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package signalgraph

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/media"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/models"
)

// fakeElement records tap bindings without producing audio.
type fakeElement struct {
	tap media.Tap
}

func (f *fakeElement) Load(src string)                 {}
func (f *fakeElement) Source() string                  { return "" }
func (f *fakeElement) Play(ctx context.Context) error  { return nil }
func (f *fakeElement) Pause()                          {}
func (f *fakeElement) Stop()                           {}
func (f *fakeElement) SetVolume(v float64)             {}
func (f *fakeElement) Volume() float64                 { return 1 }
func (f *fakeElement) OnEnded(fn func())               {}
func (f *fakeElement) OnError(fn func(error))          {}
func (f *fakeElement) Close()                          {}

func (f *fakeElement) SetTap(t media.Tap) error {
	if t != nil && f.tap != nil {
		return media.ErrTapBound
	}
	f.tap = t
	return nil
}

func sine(freq, sampleRate float64, n int) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		v := 0.5 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
		out[i] = [2]float64{v, v}
	}
	return out
}

func rms(samples [][2]float64) float64 {
	var sum float64
	for i := range samples {
		sum += samples[i][0] * samples[i][0]
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestBiquadIsTransparentAtZeroGain(t *testing.T) {
	f := newLowShelf(44100, 200, 0)
	in := sine(100, 44100, 4096)
	want := rms(in)
	f.process(in)
	got := rms(in)
	if math.Abs(got-want) > want*0.01 {
		t.Fatalf("zero-gain shelf altered signal: rms %v -> %v", want, got)
	}
}

func TestBassBoostRaisesLowFrequencies(t *testing.T) {
	in := sine(100, 44100, 8192)
	ref := rms(in)

	f := newLowShelf(44100, 200, 12)
	f.process(in)
	boosted := rms(in)

	// +12 dB is a factor of ~3.98 in amplitude.
	if boosted < ref*3 {
		t.Fatalf("low shelf boost too weak: %v -> %v", ref, boosted)
	}

	high := sine(8000, 44100, 8192)
	refHigh := rms(high)
	f2 := newLowShelf(44100, 200, 12)
	f2.process(high)
	if got := rms(high); got > refHigh*1.2 {
		t.Fatalf("low shelf leaked into high band: %v -> %v", refHigh, got)
	}
}

func TestGraphDoublesBandGain(t *testing.T) {
	g := New(zerolog.Nop())
	el := &fakeElement{}
	if err := g.Connect(el); err != nil {
		t.Fatal(err)
	}
	g.UpdateEQ(models.EQSettings{Bass: 6})

	in := sine(100, float64(media.MixRate), 8192)
	ref := rms(sine(100, float64(media.MixRate), 8192))
	el.tap(in)

	// Bass 6 maps to +12 dB, so the band roughly quadruples.
	if got := rms(in); got < ref*3 {
		t.Fatalf("expected doubled gain boost, rms %v -> %v", ref, got)
	}
}

func TestGraphClampsEQ(t *testing.T) {
	g := New(zerolog.Nop())
	g.UpdateEQ(models.EQSettings{Bass: 40, Mid: -9, Treble: 2})
	eq := g.EQ()
	if eq.Bass != 6 || eq.Mid != -6 || eq.Treble != 2 {
		t.Fatalf("clamp failed: %+v", eq)
	}
}

func TestGraphConnectIsIdempotent(t *testing.T) {
	g := New(zerolog.Nop())
	el := &fakeElement{}
	if err := g.Connect(el); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(el); err != nil {
		t.Fatalf("reconnect of same element failed: %v", err)
	}
	if el.tap == nil {
		t.Fatal("tap released on idempotent reconnect")
	}
}

func TestGraphRebindsBetweenElements(t *testing.T) {
	g := New(zerolog.Nop())
	a, b := &fakeElement{}, &fakeElement{}

	if err := g.Connect(a); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(b); err != nil {
		t.Fatalf("rebind failed: %v", err)
	}
	if a.tap != nil {
		t.Fatal("previous element still tapped")
	}
	if b.tap == nil {
		t.Fatal("new element not tapped")
	}
}

func TestGraphRejectsElementBoundElsewhere(t *testing.T) {
	g := New(zerolog.Nop())
	el := &fakeElement{tap: func(samples [][2]float64) {}}
	if err := g.Connect(el); err == nil {
		t.Fatal("expected error binding an element that already has a tap")
	}
}

func TestGraphCloseReleasesElement(t *testing.T) {
	g := New(zerolog.Nop())
	el := &fakeElement{}
	if err := g.Connect(el); err != nil {
		t.Fatal(err)
	}
	g.Close()
	if el.tap != nil {
		t.Fatal("tap survived close")
	}
	if err := g.Connect(el); err == nil {
		t.Fatal("connect after close should fail")
	}
}

func TestGraphSuspendPassesSamplesThrough(t *testing.T) {
	g := New(zerolog.Nop())
	el := &fakeElement{}
	if err := g.Connect(el); err != nil {
		t.Fatal(err)
	}
	g.UpdateEQ(models.EQSettings{Bass: 6})
	g.Suspend()

	in := sine(100, float64(media.MixRate), 2048)
	ref := rms(in)
	el.tap(in)
	if got := rms(in); math.Abs(got-ref) > ref*0.001 {
		t.Fatalf("suspended graph altered signal: %v -> %v", ref, got)
	}

	g.Resume()
	el.tap(in)
	if got := rms(in); got <= ref {
		t.Fatal("resumed graph did not process")
	}
}
