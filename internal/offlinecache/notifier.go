/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package offlinecache hands track URLs to the offline cache worker.
// Notifications are fire and forget: playback never waits on caching
// and never fails because of it.
package offlinecache

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/events"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/telemetry"
)

// MessageTypeCacheAudio identifies a cache request on the wire.
const MessageTypeCacheAudio = "CACHE_AUDIO"

// Message is the cache request envelope.
type Message struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Notifier publishes cache requests to the worker's subject. A
// notifier with no broker connection stays inert and reports inactive,
// mirroring a platform where no cache worker is installed.
type Notifier struct {
	logger  zerolog.Logger
	bus     *events.Bus
	conn    *nats.Conn
	subject string
	enabled bool
}

// NewNotifier connects to the broker. Connection failure is logged and
// tolerated; the notifier simply stays inactive.
func NewNotifier(natsURL, subject string, enabled bool, bus *events.Bus, logger zerolog.Logger) *Notifier {
	n := &Notifier{
		logger:  logger.With().Str("component", "offline_cache").Logger(),
		bus:     bus,
		subject: subject,
		enabled: enabled,
	}
	if !enabled || natsURL == "" {
		return n
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("lavabyteradio-offline-cache"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		n.logger.Warn().Err(err).Str("url", natsURL).Msg("Offline cache broker unavailable")
		return n
	}
	n.conn = conn
	n.logger.Info().Str("subject", subject).Msg("Offline cache notifier connected")
	return n
}

// Active reports whether a cache worker can receive requests.
func (n *Notifier) Active() bool {
	return n.enabled && n.conn != nil && n.conn.IsConnected()
}

// CacheAudioForOffline requests caching of the given track URL. Errors
// are logged and dropped.
func (n *Notifier) CacheAudioForOffline(url string) {
	if url == "" || !n.Active() {
		return
	}

	data, err := json.Marshal(Message{Type: MessageTypeCacheAudio, URL: url})
	if err != nil {
		n.logger.Error().Err(err).Msg("Encoding cache request failed")
		return
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		n.logger.Warn().Err(err).Str("url", url).Msg("Publishing cache request failed")
		return
	}

	telemetry.CacheNotificationsTotal.Inc()
	if n.bus != nil {
		n.bus.Publish(events.EventCacheRequest, events.Payload{"url": url})
	}
	n.logger.Debug().Str("url", url).Msg("Cache request sent")
}

// Close drains and closes the broker connection.
func (n *Notifier) Close() {
	if n.conn == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
	n.conn = nil
}
