/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package signalgraph

import "math"

// biquad is a stereo second-order IIR filter using the Audio EQ
// Cookbook coefficient formulas. State is kept per channel so the two
// channels filter independently.
type biquad struct {
	b0, b1, b2, a1, a2 float64

	x1, x2 [2]float64
	y1, y2 [2]float64
}

func newLowShelf(sampleRate, freq, gainDB float64) *biquad {
	f := &biquad{}
	f.setLowShelf(sampleRate, freq, gainDB)
	return f
}

func newPeaking(sampleRate, freq, q, gainDB float64) *biquad {
	f := &biquad{}
	f.setPeaking(sampleRate, freq, q, gainDB)
	return f
}

func newHighShelf(sampleRate, freq, gainDB float64) *biquad {
	f := &biquad{}
	f.setHighShelf(sampleRate, freq, gainDB)
	return f
}

func (f *biquad) setLowShelf(sampleRate, freq, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / 2 * math.Sqrt2
	sqA := 2 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) - (a-1)*cosw + sqA)
	b1 := 2 * a * ((a - 1) - (a+1)*cosw)
	b2 := a * ((a + 1) - (a-1)*cosw - sqA)
	a0 := (a + 1) + (a-1)*cosw + sqA
	a1 := -2 * ((a - 1) + (a+1)*cosw)
	a2 := (a + 1) + (a-1)*cosw - sqA
	f.normalize(b0, b1, b2, a0, a1, a2)
}

func (f *biquad) setHighShelf(sampleRate, freq, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / 2 * math.Sqrt2
	sqA := 2 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) + (a-1)*cosw + sqA)
	b1 := -2 * a * ((a - 1) + (a+1)*cosw)
	b2 := a * ((a + 1) + (a-1)*cosw - sqA)
	a0 := (a + 1) - (a-1)*cosw + sqA
	a1 := 2 * ((a - 1) - (a+1)*cosw)
	a2 := (a + 1) - (a-1)*cosw - sqA
	f.normalize(b0, b1, b2, a0, a1, a2)
}

func (f *biquad) setPeaking(sampleRate, freq, q, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / (2 * q)

	b0 := 1 + alpha*a
	b1 := -2 * cosw
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosw
	a2 := 1 - alpha/a
	f.normalize(b0, b1, b2, a0, a1, a2)
}

func (f *biquad) normalize(b0, b1, b2, a0, a1, a2 float64) {
	f.b0 = b0 / a0
	f.b1 = b1 / a0
	f.b2 = b2 / a0
	f.a1 = a1 / a0
	f.a2 = a2 / a0
}

// process filters the buffer in place.
func (f *biquad) process(samples [][2]float64) {
	for i := range samples {
		for ch := 0; ch < 2; ch++ {
			x := samples[i][ch]
			y := f.b0*x + f.b1*f.x1[ch] + f.b2*f.x2[ch] - f.a1*f.y1[ch] - f.a2*f.y2[ch]
			f.x2[ch], f.x1[ch] = f.x1[ch], x
			f.y2[ch], f.y1[ch] = f.y1[ch], y
			samples[i][ch] = y
		}
	}
}

func (f *biquad) reset() {
	f.x1, f.x2 = [2]float64{}, [2]float64{}
	f.y1, f.y2 = [2]float64{}, [2]float64{}
}
