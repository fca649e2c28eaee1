/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// VideoElement is the video playback slot. In native mode it pulls the
// assigned source directly; HLS manifests are normally driven by a
// session layered on top, in which case the element only tracks source
// assignment, volume and exclusivity.
//
// The daemon has no display surface, so "playback" here means keeping
// the transport alive and accounting for it. Frame decode is out of
// scope.
type VideoElement struct {
	logger    zerolog.Logger
	client    *http.Client
	nativeHLS bool

	bytesRead atomic.Int64

	mu      sync.Mutex
	src     string
	gain    float64
	cancel  context.CancelFunc
	onEnded func()
	onError func(error)
	closed  bool
}

func NewVideoElement(logger zerolog.Logger, nativeHLS bool) *VideoElement {
	return &VideoElement{
		logger:    logger.With().Str("component", "video_element").Logger(),
		client:    &http.Client{},
		nativeHLS: nativeHLS,
		gain:      1,
	}
}

// SupportsHLS reports whether the element can play HLS manifests
// directly, without a session driving it.
func (e *VideoElement) SupportsHLS() bool {
	return e.nativeHLS
}

// BytesRead returns the total payload bytes pulled in direct mode.
func (e *VideoElement) BytesRead() int64 {
	return e.bytesRead.Load()
}

func (e *VideoElement) Load(src string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if src == e.src {
		return
	}
	e.src = src
}

func (e *VideoElement) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

func (e *VideoElement) Play(ctx context.Context) error {
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
	if e.cancel != nil {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	pullCtx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(pullCtx, http.MethodGet, src, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("building video request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("opening video stream %s: %w", src, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("opening video stream %s: unexpected status %d", src, resp.StatusCode)
	}

	e.mu.Lock()
	if e.closed || e.src != src {
		e.mu.Unlock()
		resp.Body.Close()
		cancel()
		return ErrPlayRejected
	}
	e.cancel = cancel
	e.mu.Unlock()

	go e.pull(pullCtx, src, resp.Body)

	e.logger.Debug().Str("src", src).Msg("Video transport started")
	return nil
}

func (e *VideoElement) pull(ctx context.Context, src string, body io.ReadCloser) {
	defer body.Close()

	buf := make([]byte, 64*1024)
	for {
		n, err := body.Read(buf)
		e.bytesRead.Add(int64(n))
		if err == nil {
			continue
		}

		e.mu.Lock()
		active := e.cancel != nil && e.src == src
		if active {
			e.cancel = nil
		}
		onEnded, onError := e.onEnded, e.onError
		e.mu.Unlock()

		if !active || ctx.Err() != nil {
			return
		}
		if err == io.EOF {
			if onEnded != nil {
				onEnded()
			}
			return
		}
		e.logger.Warn().Err(err).Str("src", src).Msg("Video stream failed")
		if onError != nil {
			onError(err)
		}
		return
	}
}

// Pause tears down the transport but keeps the source; a later Play
// redials. Live streams have no resumable position.
func (e *VideoElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *VideoElement) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.src = ""
}

func (e *VideoElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gain = clampUnit(v)
}

func (e *VideoElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gain
}

// SetTap accepts a tap for interface symmetry. The video slot decodes
// no audio, so a bound tap never fires.
func (e *VideoElement) SetTap(t Tap) error {
	return nil
}

func (e *VideoElement) OnEnded(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEnded = fn
}

func (e *VideoElement) OnError(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = fn
}

func (e *VideoElement) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.src = ""
}
