/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package signalgraph

import (
	"math"
	"testing"
)

func TestNewAnalyserValidatesArguments(t *testing.T) {
	if _, err := NewAnalyser(200, 0.8); err == nil {
		t.Fatal("non-power-of-two size accepted")
	}
	if _, err := NewAnalyser(16, 0.8); err == nil {
		t.Fatal("undersized fft accepted")
	}
	if _, err := NewAnalyser(256, 1.0); err == nil {
		t.Fatal("smoothing 1.0 accepted")
	}
	if _, err := NewAnalyser(256, 0.8); err != nil {
		t.Fatalf("valid arguments rejected: %v", err)
	}
}

func TestAnalyserFindsDominantBin(t *testing.T) {
	a, err := NewAnalyser(256, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Bin 16 of a 256-point FFT at 44.1 kHz is 2756.25 Hz.
	const sampleRate = 44100.0
	freq := 16 * sampleRate / 256
	a.Feed(sine(freq, sampleRate, 256))

	bins := make([]byte, a.BinCount())
	if n := a.ByteFrequencyData(bins); n != 128 {
		t.Fatalf("got %d bins, want 128", n)
	}

	// Spectral leakage can push the neighbors of bin 16 onto the same
	// clamped ceiling, so assert membership in the peak plateau rather
	// than a strict argmax.
	peak := maxByte(bins)
	if peak == 0 {
		t.Fatal("spectrum is empty")
	}
	if bins[16] != peak {
		t.Fatalf("bins[16] = %d, want peak %d", bins[16], peak)
	}
	for i, v := range bins {
		if v == peak && (i < 13 || i > 19) {
			t.Fatalf("peak magnitude in unrelated bin %d", i)
		}
	}
}

func TestAnalyserSmoothingRampsUp(t *testing.T) {
	a, err := NewAnalyser(256, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	a.Feed(sine(1000, 44100, 256))

	bins := make([]byte, a.BinCount())
	a.ByteFrequencyData(bins)
	first := maxByte(bins)
	a.ByteFrequencyData(bins)
	second := maxByte(bins)

	if second <= first {
		t.Fatalf("smoothed magnitude should rise while signal persists: %d then %d", first, second)
	}
}

func TestAnalyserSilenceMapsToZero(t *testing.T) {
	a, err := NewAnalyser(256, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	bins := make([]byte, a.BinCount())
	a.ByteFrequencyData(bins)
	for i, v := range bins {
		if v != 0 {
			t.Fatalf("bin %d = %d for silence", i, v)
		}
	}
}

func TestAnalyserResetClearsState(t *testing.T) {
	a, err := NewAnalyser(256, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	a.Feed(sine(1000, 44100, 256))
	bins := make([]byte, a.BinCount())
	a.ByteFrequencyData(bins)

	a.Reset()
	a.ByteFrequencyData(bins)
	if maxByte(bins) != 0 {
		t.Fatal("reset left residual magnitudes")
	}
}

func TestAnalyserClampsDestinationLength(t *testing.T) {
	a, err := NewAnalyser(256, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	big := make([]byte, 512)
	if n := a.ByteFrequencyData(big); n != 128 {
		t.Fatalf("n = %d, want 128", n)
	}
	small := make([]byte, 10)
	if n := a.ByteFrequencyData(small); n != 10 {
		t.Fatalf("n = %d, want 10", n)
	}
}

func TestFFTMatchesDirectTransform(t *testing.T) {
	a, err := NewAnalyser(64, 0)
	if err != nil {
		t.Fatal(err)
	}

	input := make([]float64, 64)
	for i := range input {
		input[i] = math.Sin(float64(i)*0.3) + 0.5*math.Cos(float64(i)*1.7)
	}

	re := append([]float64(nil), input...)
	im := make([]float64, 64)
	a.fft(re, im)

	for k := 0; k < 32; k += 7 {
		var wr, wi float64
		for n := 0; n < 64; n++ {
			phi := -2 * math.Pi * float64(k) * float64(n) / 64
			wr += input[n] * math.Cos(phi)
			wi += input[n] * math.Sin(phi)
		}
		if math.Abs(re[k]-wr) > 1e-9 || math.Abs(im[k]-wi) > 1e-9 {
			t.Fatalf("bin %d: fft (%v, %v) vs direct (%v, %v)", k, re[k], im[k], wr, wi)
		}
	}
}

func maxByte(b []byte) byte {
	var m byte
	for _, v := range b {
		if v > m {
			m = v
		}
	}
	return m
}
