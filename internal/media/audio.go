/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog"
)

// MixRate is the fixed output sample rate. Decoded streams are
// resampled to it so downstream processing sees one rate.
const MixRate = beep.SampleRate(44100)

var speakerOnce sync.Once

func initSpeaker() (err error) {
	speakerOnce.Do(func() {
		err = speaker.Init(MixRate, MixRate.N(time.Second/10))
	})
	return err
}

// AudioElement plays MP3 sources, remote or local, through the shared
// speaker. One pipeline is alive at a time; loading a new source while
// another plays tears the old pipeline down on the next Play.
type AudioElement struct {
	logger zerolog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	client  *http.Client

	tap atomic.Pointer[Tap]

	mu      sync.Mutex
	src     string
	gain    float64
	pipe    *audioPipe
	onEnded func()
	onError func(error)
	closed  bool
}

type audioPipe struct {
	src      string
	streamer beep.StreamSeekCloser
	body     io.Closer
	vol      *effects.Volume
	ctrl     *beep.Ctrl
}

// NewAudioElement returns an element with volume 1 and no source.
func NewAudioElement(logger zerolog.Logger) *AudioElement {
	ctx, cancel := context.WithCancel(context.Background())
	return &AudioElement{
		logger:  logger.With().Str("component", "audio_element").Logger(),
		baseCtx: ctx,
		cancel:  cancel,
		client:  &http.Client{},
		gain:    1,
	}
}

func (e *AudioElement) Load(src string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if src == e.src {
		return
	}
	e.src = src
}

func (e *AudioElement) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

func (e *AudioElement) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrPlayRejected
	}
	src := e.src
	if src == "" {
		e.mu.Unlock()
		return ErrNoSource
	}
	if p := e.pipe; p != nil && p.src == src {
		speaker.Lock()
		p.ctrl.Paused = false
		speaker.Unlock()
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if err := initSpeaker(); err != nil {
		return fmt.Errorf("initializing speaker: %w", err)
	}

	streamer, format, body, err := e.open(src)
	if err != nil {
		return err
	}

	var chain beep.Streamer = streamer
	if format.SampleRate != MixRate {
		chain = beep.Resample(4, format.SampleRate, MixRate, chain)
	}
	chain = &tapStreamer{inner: chain, tap: &e.tap}
	vol := &effects.Volume{Streamer: chain, Base: 2}
	ctrl := &beep.Ctrl{Streamer: vol}

	pipe := &audioPipe{src: src, streamer: streamer, body: body, vol: vol, ctrl: ctrl}

	e.mu.Lock()
	if e.closed || e.src != src {
		e.mu.Unlock()
		pipe.release()
		return ErrPlayRejected
	}
	old := e.pipe
	e.pipe = pipe
	applyGain(vol, e.gain)
	e.mu.Unlock()

	speaker.Clear()
	if old != nil {
		old.release()
	}
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		e.drained(pipe)
	})))

	e.logger.Debug().Str("src", src).Msg("Audio playback started")
	return nil
}

// drained runs on the speaker goroutine when a pipeline plays to the
// end of its stream.
func (e *AudioElement) drained(pipe *audioPipe) {
	e.mu.Lock()
	if e.pipe != pipe {
		e.mu.Unlock()
		return
	}
	e.pipe = nil
	streamErr := pipe.streamer.Err()
	onEnded, onError := e.onEnded, e.onError
	e.mu.Unlock()

	pipe.release()

	if streamErr != nil {
		e.logger.Warn().Err(streamErr).Str("src", pipe.src).Msg("Audio stream failed")
		if onError != nil {
			go onError(streamErr)
		}
		return
	}
	if onEnded != nil {
		go onEnded()
	}
}

func (e *AudioElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pipe == nil {
		return
	}
	speaker.Lock()
	e.pipe.ctrl.Paused = true
	speaker.Unlock()
}

func (e *AudioElement) Stop() {
	e.mu.Lock()
	pipe := e.pipe
	e.pipe = nil
	e.src = ""
	e.mu.Unlock()

	if pipe != nil {
		speaker.Clear()
		pipe.release()
	}
}

func (e *AudioElement) SetVolume(v float64) {
	v = clampUnit(v)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gain = v
	if e.pipe != nil {
		speaker.Lock()
		applyGain(e.pipe.vol, v)
		speaker.Unlock()
	}
}

func (e *AudioElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gain
}

func (e *AudioElement) SetTap(t Tap) error {
	if t == nil {
		e.tap.Store(nil)
		return nil
	}
	if e.tap.Load() != nil {
		return ErrTapBound
	}
	e.tap.Store(&t)
	return nil
}

func (e *AudioElement) OnEnded(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEnded = fn
}

func (e *AudioElement) OnError(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = fn
}

func (e *AudioElement) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	pipe := e.pipe
	e.pipe = nil
	e.src = ""
	e.mu.Unlock()

	e.cancel()
	if pipe != nil {
		speaker.Clear()
		pipe.release()
	}
}

func (e *AudioElement) open(src string) (beep.StreamSeekCloser, beep.Format, io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(e.baseCtx, http.MethodGet, src, nil)
		if err != nil {
			return nil, beep.Format{}, nil, fmt.Errorf("building stream request: %w", err)
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, beep.Format{}, nil, fmt.Errorf("opening stream %s: %w", src, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, beep.Format{}, nil, fmt.Errorf("opening stream %s: unexpected status %d", src, resp.StatusCode)
		}
		streamer, format, err := mp3.Decode(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, beep.Format{}, nil, fmt.Errorf("decoding stream %s: %w", src, err)
		}
		return streamer, format, resp.Body, nil
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, beep.Format{}, nil, fmt.Errorf("opening file %s: %w", src, err)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, nil, fmt.Errorf("decoding file %s: %w", src, err)
	}
	return streamer, format, f, nil
}

func (p *audioPipe) release() {
	p.streamer.Close()
	if p.body != nil {
		p.body.Close()
	}
}

func applyGain(vol *effects.Volume, gain float64) {
	if gain <= 0 {
		vol.Silent = true
		return
	}
	vol.Silent = false
	vol.Volume = math.Log2(gain)
}

// tapStreamer hands each buffer to the bound tap after decoding and
// resampling, before gain is applied.
type tapStreamer struct {
	inner beep.Streamer
	tap   *atomic.Pointer[Tap]
}

func (t *tapStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.inner.Stream(samples)
	if n > 0 {
		if fn := t.tap.Load(); fn != nil {
			(*fn)(samples[:n])
		}
	}
	return n, ok
}

func (t *tapStreamer) Err() error {
	return t.inner.Err()
}
