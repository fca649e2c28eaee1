/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package media provides the playback elements the engine drives. An
// Element owns one decode-and-output pipeline at a time; the controller
// arbitrates which element is audible.
package media

import (
	"context"
	"errors"
)

var (
	// ErrNoSource is returned by Play when no source has been loaded.
	ErrNoSource = errors.New("media: no source loaded")

	// ErrTapBound is returned by SetTap when a different tap is already
	// attached. An element feeds at most one signal graph; the previous
	// graph must release the element before a new one can bind it.
	ErrTapBound = errors.New("media: element already bound to a signal tap")

	// ErrPlayRejected is returned when a playback attempt is superseded
	// or cancelled before output starts.
	ErrPlayRejected = errors.New("media: play rejected")
)

// Tap observes and may mutate decoded samples in place before they
// reach the output device. Samples are interleaved stereo frames.
type Tap func(samples [][2]float64)

// Element is a single playback slot. Implementations are safe for
// concurrent use.
type Element interface {
	// Load assigns the source URL. Reassigning the same URL is a no-op
	// so an in-flight pipeline is not torn down needlessly.
	Load(src string)

	// Source returns the currently assigned source, or "" after Stop.
	Source() string

	// Play starts or resumes playback of the loaded source. It returns
	// once output has started, or an error if the source could not be
	// opened. Callers that need non-blocking starts run it in a
	// goroutine and inspect the error there.
	Play(ctx context.Context) error

	// Pause halts output but keeps the pipeline so Play can resume.
	Pause()

	// Stop halts output, tears down the pipeline and clears the source.
	Stop()

	// SetVolume sets the output gain in [0, 1].
	SetVolume(v float64)
	Volume() float64

	// SetTap binds a sample tap. Passing nil releases the binding.
	// Binding while another tap is attached returns ErrTapBound.
	SetTap(t Tap) error

	// OnEnded registers a callback fired when the source drains
	// naturally. It is not fired for Pause, Stop or Close.
	OnEnded(fn func())

	// OnError registers a callback fired when an established pipeline
	// fails mid-playback.
	OnError(fn func(error))

	Close()
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
