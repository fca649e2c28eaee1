/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package signalgraph

import (
	"fmt"
	"math"
	"math/bits"
	"sync"
)

const (
	// DefaultFFTSize matches the frame the visualizer is tuned for:
	// 128 frequency bins.
	DefaultFFTSize = 256

	DefaultSmoothing = 0.8

	minDecibels = -100.0
	maxDecibels = -30.0
)

// Analyser tracks the most recent FFTSize mono samples and converts
// them to smoothed byte-scaled frequency magnitudes on demand.
type Analyser struct {
	fftSize   int
	smoothing float64

	window   []float64
	twiddleR []float64
	twiddleI []float64

	mu     sync.Mutex
	ring   []float64
	pos    int
	smooth []float64
}

// NewAnalyser returns an analyser for the given FFT size, which must
// be a power of two of at least 32.
func NewAnalyser(fftSize int, smoothing float64) (*Analyser, error) {
	if fftSize < 32 || bits.OnesCount(uint(fftSize)) != 1 {
		return nil, fmt.Errorf("analyser: fft size %d is not a power of two >= 32", fftSize)
	}
	if smoothing < 0 || smoothing >= 1 {
		return nil, fmt.Errorf("analyser: smoothing %v out of range [0, 1)", smoothing)
	}

	a := &Analyser{
		fftSize:   fftSize,
		smoothing: smoothing,
		window:    make([]float64, fftSize),
		twiddleR:  make([]float64, fftSize/2),
		twiddleI:  make([]float64, fftSize/2),
		ring:      make([]float64, fftSize),
		smooth:    make([]float64, fftSize/2),
	}
	for i := range a.window {
		// Blackman window.
		x := 2 * math.Pi * float64(i) / float64(fftSize-1)
		a.window[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	for i := range a.twiddleR {
		phi := -2 * math.Pi * float64(i) / float64(fftSize)
		a.twiddleR[i] = math.Cos(phi)
		a.twiddleI[i] = math.Sin(phi)
	}
	return a, nil
}

// BinCount is the number of frequency bins returned by
// ByteFrequencyData.
func (a *Analyser) BinCount() int { return a.fftSize / 2 }

// Feed pushes stereo frames into the ring, downmixed to mono.
func (a *Analyser) Feed(samples [][2]float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range samples {
		a.ring[a.pos] = (samples[i][0] + samples[i][1]) / 2
		a.pos = (a.pos + 1) % a.fftSize
	}
}

// Reset clears accumulated samples and smoothing state.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.ring {
		a.ring[i] = 0
	}
	for i := range a.smooth {
		a.smooth[i] = 0
	}
	a.pos = 0
}

// ByteFrequencyData fills dst with byte-scaled magnitudes for the
// first min(len(dst), BinCount()) bins and returns that count. The
// mapping window is [-100 dB, -30 dB], with temporal smoothing applied
// before conversion.
func (a *Analyser) ByteFrequencyData(dst []byte) int {
	n := len(dst)
	if n > a.fftSize/2 {
		n = a.fftSize / 2
	}

	re := make([]float64, a.fftSize)
	im := make([]float64, a.fftSize)

	a.mu.Lock()
	for i := 0; i < a.fftSize; i++ {
		re[i] = a.ring[(a.pos+i)%a.fftSize] * a.window[i]
	}
	a.fft(re, im)

	scale := 1 / float64(a.fftSize)
	for k := 0; k < n; k++ {
		mag := math.Hypot(re[k], im[k]) * scale
		a.smooth[k] = a.smoothing*a.smooth[k] + (1-a.smoothing)*mag

		db := minDecibels
		if a.smooth[k] > 0 {
			db = 20 * math.Log10(a.smooth[k])
		}
		v := 255 * (db - minDecibels) / (maxDecibels - minDecibels)
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		dst[k] = byte(v)
	}
	a.mu.Unlock()
	return n
}

// fft runs an in-place iterative radix-2 transform.
func (a *Analyser) fft(re, im []float64) {
	n := a.fftSize

	// Bit-reversal permutation.
	shift := bits.UintSize - bits.Len(uint(n-1))
	for i := 0; i < n; i++ {
		j := int(bits.Reverse(uint(i)) >> shift)
		if j > i {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		step := n / size
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				wr, wi := a.twiddleR[k*step], a.twiddleI[k*step]
				i, j := start+k, start+k+half
				tr := wr*re[j] - wi*im[j]
				ti := wr*im[j] + wi*re[j]
				re[j] = re[i] - tr
				im[j] = im[i] - ti
				re[i] += tr
				im[i] += ti
			}
		}
	}
}
