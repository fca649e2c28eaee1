/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package events is the in-process pubsub spine between the engine
// and its surfaces. Delivery is best effort; a subscriber that stops
// draining loses frames, never blocks the publisher.
package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventNowPlaying      EventType = "now_playing"
	EventPlayerState     EventType = "player.state"
	EventPlayerError     EventType = "player.error"
	EventStationSelected EventType = "player.station_selected"
	EventTrackChange     EventType = "player.track_change"
	EventVisualizerFrame EventType = "visualizer.frame"
	EventCacheRequest    EventType = "cache.request"
	EventHLSFatal        EventType = "hls.fatal"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

const subscriberBuffer = 8

// Bus fans events out to per-type subscriber lists.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a new subscriber channel for one event type.
// The caller must Unsubscribe when done or the bus keeps feeding a
// dead channel.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	sub := make(Subscriber, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventType] = append(b.subs[eventType], sub)
	return sub
}

// Publish delivers payload to every subscriber of eventType. Full
// channels are skipped.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes sub from eventType's list and closes it.
// Unknown subscribers are ignored but still closed.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[eventType]
	for i := range list {
		if list[i] == sub {
			b.subs[eventType] = append(list[:i], list[i+1:]...)
			break
		}
	}
	close(sub)
}
