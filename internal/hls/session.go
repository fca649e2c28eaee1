/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hls

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/telemetry"
)

const (
	defaultWorkers     = 2
	defaultMaxFailures = 3

	// liveEdgeSegments is how far behind the newest segment a session
	// starts. Low-latency sessions hold right at the edge.
	liveEdgeSegments           = 3
	lowLatencyLiveEdgeSegments = 1

	minRefreshInterval = 500 * time.Millisecond
)

// Config tunes a Session. The zero value is usable.
type Config struct {
	// LowLatency starts at the live edge and refreshes the playlist on
	// the part target cadence when the stream advertises one.
	LowLatency bool

	// Workers is the number of concurrent segment fetchers.
	Workers int

	// MaxFailures is the number of consecutive manifest or segment
	// failures tolerated before the session gives up.
	MaxFailures int

	// RefreshInterval overrides the derived playlist refresh cadence.
	RefreshInterval time.Duration

	Client *http.Client
}

// Session pulls a live HLS stream: it polls the media playlist and
// fetches new segments through a small worker pool. A session plays one
// manifest for its whole life; station changes create a fresh session.
type Session struct {
	manifestURL string
	cfg         Config
	client      *http.Client
	logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	segCh  chan Segment

	bytes    atomic.Int64
	segments atomic.Int64
	segFails atomic.Int64

	fatalOnce   sync.Once
	destroyOnce sync.Once

	mu      sync.Mutex
	onFatal func(error)
	started bool
}

// NewSession prepares a session for the given manifest URL. Start must
// be called before segments flow.
func NewSession(manifestURL string, cfg Config, logger zerolog.Logger) *Session {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		manifestURL: manifestURL,
		cfg:         cfg,
		client:      client,
		logger:      logger.With().Str("component", "hls_session").Str("manifest", manifestURL).Logger(),
		ctx:         ctx,
		cancel:      cancel,
		segCh:       make(chan Segment, 16),
	}
}

// OnFatal registers the callback fired once when the session fails
// beyond recovery. Register before Start.
func (s *Session) OnFatal(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFatal = fn
}

// Bytes returns total media payload bytes fetched so far.
func (s *Session) Bytes() int64 { return s.bytes.Load() }

// SegmentCount returns the number of segments fetched so far.
func (s *Session) SegmentCount() int64 { return s.segments.Load() }

// Start fetches the manifest and begins pulling segments. The passed
// context bounds the initial fetch only; the session then runs until
// Destroy or a fatal error.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("hls: session already started")
	}
	s.started = true
	s.mu.Unlock()

	base, err := url.Parse(s.manifestURL)
	if err != nil {
		return fmt.Errorf("parsing manifest URL: %w", err)
	}

	pl, err := s.fetchPlaylist(ctx, base)
	if err != nil {
		return err
	}
	if pl.IsMaster() {
		base, err = url.Parse(pl.Variants[0])
		if err != nil {
			return fmt.Errorf("parsing variant URL: %w", err)
		}
		if pl, err = s.fetchPlaylist(ctx, base); err != nil {
			return err
		}
	}
	if len(pl.Segments) == 0 {
		return fmt.Errorf("manifest %s: no segments", s.manifestURL)
	}

	telemetry.HLSSessionsTotal.Inc()

	edge := liveEdgeSegments
	if s.cfg.LowLatency {
		edge = lowLatencyLiveEdgeSegments
	}
	initial := pl.Segments
	if len(initial) > edge {
		initial = initial[len(initial)-edge:]
	}
	lastSeq := s.enqueue(initial, -1)

	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	if pl.Ended {
		close(s.segCh)
	} else {
		s.wg.Add(1)
		go s.refreshLoop(base, pl, lastSeq)
	}

	s.logger.Info().
		Bool("low_latency", s.cfg.LowLatency).
		Int("workers", s.cfg.Workers).
		Dur("target_duration", pl.TargetDuration).
		Msg("HLS session started")
	return nil
}

// Destroy stops all session work and waits for it to finish. It is
// safe to call more than once and after a fatal error.
func (s *Session) Destroy() {
	s.destroyOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.logger.Debug().
			Int64("segments", s.segments.Load()).
			Int64("bytes", s.bytes.Load()).
			Msg("HLS session destroyed")
	})
}

func (s *Session) refreshLoop(base *url.URL, pl *Playlist, lastSeq int64) {
	defer s.wg.Done()
	defer close(s.segCh)

	interval := s.refreshInterval(pl)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		next, err := s.fetchPlaylist(s.ctx, base)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			failures++
			s.logger.Warn().Err(err).Int("failures", failures).Msg("Playlist refresh failed")
			if failures >= s.cfg.MaxFailures {
				s.fatal(fmt.Errorf("refreshing playlist: %w", err))
				return
			}
			continue
		}
		failures = 0

		lastSeq = s.enqueue(next.Segments, lastSeq)
		if next.Ended {
			return
		}
		if ni := s.refreshInterval(next); ni != interval {
			interval = ni
			ticker.Reset(interval)
		}
	}
}

func (s *Session) refreshInterval(pl *Playlist) time.Duration {
	if s.cfg.RefreshInterval > 0 {
		return s.cfg.RefreshInterval
	}
	interval := pl.TargetDuration / 2
	if s.cfg.LowLatency {
		if pl.PartTarget > 0 {
			interval = pl.PartTarget
		} else {
			interval = pl.TargetDuration / 4
		}
	}
	if interval < minRefreshInterval {
		interval = minRefreshInterval
	}
	return interval
}

// enqueue pushes segments newer than lastSeq and returns the new high
// water mark.
func (s *Session) enqueue(segs []Segment, lastSeq int64) int64 {
	for _, seg := range segs {
		if seg.Sequence <= lastSeq {
			continue
		}
		select {
		case s.segCh <- seg:
			lastSeq = seg.Sequence
		case <-s.ctx.Done():
			return lastSeq
		}
	}
	return lastSeq
}

func (s *Session) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case seg, ok := <-s.segCh:
			if !ok {
				return
			}
			if err := s.fetchSegment(seg); err != nil {
				if s.ctx.Err() != nil {
					return
				}
				fails := s.segFails.Add(1)
				s.logger.Warn().Err(err).Int64("sequence", seg.Sequence).Msg("Segment fetch failed")
				if fails >= int64(s.cfg.MaxFailures) {
					s.fatal(fmt.Errorf("fetching segment %d: %w", seg.Sequence, err))
					return
				}
				continue
			}
			s.segFails.Store(0)
		}
	}
}

func (s *Session) fetchSegment(seg Segment) error {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, seg.URI, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	n, err := io.Copy(io.Discard, resp.Body)
	s.bytes.Add(n)
	if err != nil {
		return err
	}
	s.segments.Add(1)
	return nil
}

func (s *Session) fetchPlaylist(ctx context.Context, u *url.URL) (*Playlist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building playlist request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching playlist %s: unexpected status %d", u, resp.StatusCode)
	}
	return Parse(u, resp.Body)
}

func (s *Session) fatal(err error) {
	s.fatalOnce.Do(func() {
		telemetry.HLSFatalErrorsTotal.Inc()
		s.logger.Error().Err(err).Msg("HLS session failed")
		s.mu.Lock()
		fn := s.onFatal
		s.mu.Unlock()
		s.cancel()
		if fn != nil {
			go fn(err)
		}
	})
}
