/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mediasession

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/events"
)

type recordingSink struct {
	meta     Metadata
	artwork  []Artwork
	playing  bool
	handlers map[string]func()
}

func newRecordingSink() *recordingSink {
	return &recordingSink{handlers: make(map[string]func())}
}

func (s *recordingSink) SetMetadata(meta Metadata, artwork []Artwork) {
	s.meta = meta
	s.artwork = artwork
}

func (s *recordingSink) SetPlaybackState(playing bool) { s.playing = playing }

func (s *recordingSink) SetHandler(action string, fn func()) {
	if fn == nil {
		delete(s.handlers, action)
		return
	}
	s.handlers[action] = fn
}

func TestArtworkSetCoversSizeLadder(t *testing.T) {
	set := ArtworkSet("https://cdn.example.com/logo.png")
	if len(set) != 6 {
		t.Fatalf("got %d artwork entries, want 6", len(set))
	}
	if set[0].Sizes != "96x96" || set[len(set)-1].Sizes != "512x512" {
		t.Fatalf("size ladder wrong: %s .. %s", set[0].Sizes, set[len(set)-1].Sizes)
	}
	for _, a := range set {
		if a.Src != "https://cdn.example.com/logo.png" {
			t.Fatalf("artwork src rewritten: %s", a.Src)
		}
	}
	if ArtworkSet("") != nil {
		t.Fatal("empty URL should yield no artwork")
	}
}

func TestBridgeUpdateReplacesHandlers(t *testing.T) {
	sink := newRecordingSink()
	b := NewBridge(sink, zerolog.Nop())

	firstCalled := false
	b.Update(Metadata{Title: "Song A"}, true, Handlers{
		OnNext: func() { firstCalled = true },
	})
	if len(sink.handlers) != 1 {
		t.Fatalf("got %d handlers, want 1", len(sink.handlers))
	}

	secondCalled := false
	b.Update(Metadata{Title: "Song B"}, true, Handlers{
		OnNext:  func() { secondCalled = true },
		OnPause: func() {},
	})
	sink.handlers[ActionNext]()
	if firstCalled {
		t.Fatal("stale handler from previous update fired")
	}
	if !secondCalled {
		t.Fatal("replacement handler did not fire")
	}
	if sink.meta.Title != "Song B" {
		t.Fatalf("metadata not updated: %q", sink.meta.Title)
	}
}

func TestBridgeClearDeregistersEverything(t *testing.T) {
	sink := newRecordingSink()
	b := NewBridge(sink, zerolog.Nop())

	b.Update(Metadata{Title: "Song", ArtworkURL: "https://cdn.example.com/l.png"}, true, Handlers{
		OnPlay: func() {}, OnPause: func() {}, OnPrevious: func() {}, OnNext: func() {},
	})
	b.Clear()

	if len(sink.handlers) != 0 {
		t.Fatalf("%d handlers survived clear", len(sink.handlers))
	}
	if sink.playing {
		t.Fatal("playback state survived clear")
	}
	if sink.meta.Title != "" || sink.artwork != nil {
		t.Fatal("metadata survived clear")
	}
}

func TestBusSinkInvoke(t *testing.T) {
	bus := events.NewBus()
	sink := NewBusSink(bus)

	invoked := false
	sink.SetHandler(ActionPause, func() { invoked = true })

	if !sink.Invoke(ActionPause) {
		t.Fatal("registered action not invocable")
	}
	if !invoked {
		t.Fatal("handler did not run")
	}
	if sink.Invoke(ActionNext) {
		t.Fatal("unregistered action reported as handled")
	}

	sink.SetHandler(ActionPause, nil)
	if sink.Invoke(ActionPause) {
		t.Fatal("deregistered action still handled")
	}
}

func TestBusSinkPublishesNowPlaying(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventNowPlaying)
	sink := NewBusSink(bus)

	sink.SetMetadata(Metadata{Title: "Song", Artist: "Artist"}, nil)
	select {
	case p := <-sub:
		if p["title"] != "Song" || p["artist"] != "Artist" {
			t.Fatalf("unexpected payload: %v", p)
		}
	default:
		t.Fatal("no now-playing event published")
	}
}
