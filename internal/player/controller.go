/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player is the playback engine core: it owns the station
// selection state machine, arbitrates the audio and video slots, and
// drives every side effect of a play transition.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/catalog"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/events"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/hls"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/media"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/mediasession"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/models"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/telemetry"
)

var (
	// ErrPoweredOff is returned by transport operations while power is
	// off. Power and volume remain available.
	ErrPoweredOff = errors.New("player: powered off")

	// ErrUnknownStation is returned for selection of an id not in the
	// loaded station list.
	ErrUnknownStation = errors.New("player: unknown station")
)

// SignalGraph is the audio processing chain the controller routes
// elements through.
type SignalGraph interface {
	Connect(el media.Element) error
	UpdateEQ(eq models.EQSettings)
	EQ() models.EQSettings
	Resume()
	Close()
}

// CacheNotifier hands track URLs to the offline cache worker.
type CacheNotifier interface {
	Active() bool
	CacheAudioForOffline(url string)
}

// SessionBridge projects now-playing state to the platform.
type SessionBridge interface {
	Update(meta mediasession.Metadata, playing bool, h mediasession.Handlers)
	SetPlaybackState(playing bool)
	Clear()
}

// FrameRenderer is the visualizer's on/off switch.
type FrameRenderer interface {
	SetActive(active bool)
}

// HLSSession is one live video pull session.
type HLSSession interface {
	Start(ctx context.Context) error
	OnFatal(fn func(error))
	Destroy()
}

// HLSFactory builds a session for a manifest URL. Exactly one session
// exists per video selection; the controller destroys the previous one
// before calling the factory again.
type HLSFactory func(manifestURL string, lowLatency bool) HLSSession

// DefaultHLSFactory builds real sessions.
func DefaultHLSFactory(logger zerolog.Logger) HLSFactory {
	return func(manifestURL string, lowLatency bool) HLSSession {
		return hls.NewSession(manifestURL, hls.Config{LowLatency: lowLatency}, logger)
	}
}

// Config wires a Controller.
type Config struct {
	Bus      *events.Bus
	Source   catalog.Source
	Audio    media.Element
	Video    media.Element
	Graph    SignalGraph
	Bridge   SessionBridge
	Notifier CacheNotifier
	Renderer FrameRenderer

	HLSFactory HLSFactory
	// NativeHLS marks the video slot as able to play manifests
	// directly, skipping the software session.
	NativeHLS bool

	DefaultVolume  float64
	AutoplayPreset int

	Logger zerolog.Logger
}

// Status is a point-in-time snapshot for the control API.
type Status struct {
	State      string            `json:"state"`
	PoweredOn  bool              `json:"poweredOn"`
	IsPlaying  bool              `json:"isPlaying"`
	IsLoading  bool              `json:"isLoading"`
	Volume     float64           `json:"volume"`
	EQ         models.EQSettings `json:"eq"`
	Station    *models.Station   `json:"station,omitempty"`
	TrackIndex int               `json:"trackIndex"`
	Track      *models.Track     `json:"track,omitempty"`
}

// Controller is the engine core. All mutation happens under one lock;
// playback attempts complete asynchronously and the latest completion
// wins, even when a newer selection has already superseded it.
type Controller struct {
	logger zerolog.Logger
	bus    *events.Bus
	source catalog.Source

	audio    media.Element
	video    media.Element
	graph    SignalGraph
	bridge   SessionBridge
	notifier CacheNotifier
	renderer FrameRenderer

	hlsFactory HLSFactory
	nativeHLS  bool
	preset     int

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	state          State
	stations       []models.Station
	current        *models.Station
	tracks         []models.Track
	trackIndex     int
	prevTrackIndex int
	pendingStation int64
	poweredOn      bool
	volume         float64
	hls            HLSSession
	closed         bool
}

// NewController builds the controller and registers element callbacks.
func NewController(cfg Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		logger:         cfg.Logger.With().Str("component", "player").Logger(),
		bus:            cfg.Bus,
		source:         cfg.Source,
		audio:          cfg.Audio,
		video:          cfg.Video,
		graph:          cfg.Graph,
		bridge:         cfg.Bridge,
		notifier:       cfg.Notifier,
		renderer:       cfg.Renderer,
		hlsFactory:     cfg.HLSFactory,
		nativeHLS:      cfg.NativeHLS,
		preset:         cfg.AutoplayPreset,
		ctx:            ctx,
		cancel:         cancel,
		state:          StateIdle,
		prevTrackIndex: -1,
		poweredOn:      true,
		volume:         clampUnit(cfg.DefaultVolume),
	}
	if c.preset == 0 {
		c.preset = 1
	}

	c.audio.OnEnded(c.handleAudioEnded)
	c.audio.OnError(c.handleElementError)
	c.video.OnEnded(c.handleVideoEnded)
	c.video.OnError(c.handleElementError)

	c.audio.SetVolume(c.volume)
	c.video.SetVolume(c.volume)
	return c
}

// RefreshStations pulls the station list from the catalog and feeds it
// to SetStations.
func (c *Controller) RefreshStations(ctx context.Context) error {
	stations, err := c.source.Stations(ctx)
	if err != nil {
		return fmt.Errorf("refreshing stations: %w", err)
	}
	c.SetStations(stations)
	return nil
}

// SetStations installs the station list. On first arrival the preset
// station is selected automatically, falling back to the first active
// station when no station holds the preset slot.
func (c *Controller) SetStations(stations []models.Station) {
	c.mu.Lock()
	c.stations = append([]models.Station(nil), stations...)

	if c.current != nil || !c.poweredOn {
		c.mu.Unlock()
		return
	}

	active := catalog.ActiveStations(c.stations)
	if len(active) == 0 {
		c.mu.Unlock()
		return
	}
	pick := active[0]
	for _, s := range active {
		if s.PresetNumber == c.preset {
			pick = s
			break
		}
	}
	c.selectLocked(pick)
	c.mu.Unlock()
}

// SelectStation switches to the station with the given id and starts
// its branch.
func (c *Controller) SelectStation(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.poweredOn {
		return ErrPoweredOff
	}
	for _, s := range c.stations {
		if s.ID == id {
			c.selectLocked(s)
			return nil
		}
	}
	return ErrUnknownStation
}

// NextStation advances through active stations, wrapping at the end.
func (c *Controller) NextStation() error { return c.step(1) }

// PrevStation steps backwards through active stations, wrapping at the
// start.
func (c *Controller) PrevStation() error { return c.step(-1) }

func (c *Controller) step(dir int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.poweredOn {
		return ErrPoweredOff
	}
	active := catalog.ActiveStations(c.stations)
	if len(active) == 0 {
		return nil
	}

	idx := -1
	if c.current != nil {
		for i, s := range active {
			if s.ID == c.current.ID {
				idx = i
				break
			}
		}
	}
	var next models.Station
	if idx < 0 {
		next = active[0]
	} else {
		next = active[(idx+dir+len(active))%len(active)]
	}
	// Stepping only keeps playing if something was playing; while
	// paused it just moves the selection.
	if c.state == StatePlaying || c.state.IsLoading() {
		c.selectLocked(next)
	} else {
		c.tuneLocked(next)
	}
	return nil
}

// Play resumes or starts playback of the current station. With no
// station selected it is a no-op.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.poweredOn {
		return ErrPoweredOff
	}
	if c.current == nil {
		return nil
	}
	c.startBranchLocked()
	return nil
}

// Pause halts the active slot without losing the selection.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.poweredOn {
		return ErrPoweredOff
	}
	c.pauseLocked()
	return nil
}

// PowerToggle flips the power flag. Turning off pauses; turning on
// never auto-resumes.
func (c *Controller) PowerToggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.poweredOn {
		c.pauseLocked()
		c.poweredOn = false
	} else {
		c.poweredOn = true
		c.publishStateLocked()
	}
	return c.poweredOn
}

// SetVolume applies gain to both slots so it survives branch changes.
// Volume works regardless of power.
func (c *Controller) SetVolume(v float64) {
	v = clampUnit(v)
	c.mu.Lock()
	c.volume = v
	c.mu.Unlock()
	c.audio.SetVolume(v)
	c.video.SetVolume(v)
}

// SetEQ updates the equalizer bands.
func (c *Controller) SetEQ(eq models.EQSettings) {
	c.graph.UpdateEQ(eq)
}

// SetTrackIndex jumps the current playlist to index i. Out-of-range
// indexes and non-playlist stations are no-ops.
func (c *Controller) SetTrackIndex(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.poweredOn || c.current == nil || c.current.Type != models.StationUser {
		return
	}
	if i < 0 || i >= len(c.tracks) {
		return
	}
	// An attempt for this exact index is already in flight.
	if i == c.trackIndex && c.prevTrackIndex >= 0 && c.state.IsLoading() {
		return
	}
	c.startTrackLocked(i)
}

// Status snapshots the controller for the API.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		State:      c.state.String(),
		PoweredOn:  c.poweredOn,
		IsPlaying:  c.state == StatePlaying,
		IsLoading:  c.state.IsLoading(),
		Volume:     c.volume,
		EQ:         c.graph.EQ(),
		TrackIndex: c.trackIndex,
	}
	if c.current != nil {
		s := *c.current
		st.Station = &s
	}
	if c.current != nil && c.current.Type == models.StationUser && c.trackIndex < len(c.tracks) {
		t := c.tracks[c.trackIndex]
		st.Track = &t
	}
	return st
}

// Stations returns the loaded station list.
func (c *Controller) Stations() []models.Station {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Station(nil), c.stations...)
}

// Close tears the engine down.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.destroyHLSLocked()
	c.mu.Unlock()

	c.cancel()
	c.audio.Close()
	c.video.Close()
	c.graph.Close()
	if c.bridge != nil {
		c.bridge.Clear()
	}
	if c.renderer != nil {
		c.renderer.SetActive(false)
	}
}

// selectLocked is the entry point for explicit station switches. It
// installs the selection and kicks off playback.
func (c *Controller) selectLocked(s models.Station) {
	c.installStationLocked(s)
	c.state = StateSelecting
	c.startBranchLocked()
}

// tuneLocked moves the selection without starting playback. Paused
// prev/next lands here; the next Play picks the new station up.
func (c *Controller) tuneLocked(s models.Station) {
	c.installStationLocked(s)
	c.state = StatePaused
	c.publishStateLocked()
}

func (c *Controller) installStationLocked(s models.Station) {
	c.current = &s
	c.tracks = nil
	c.trackIndex = 0
	c.prevTrackIndex = -1
	c.pendingStation = 0

	telemetry.StationSelectionsTotal.WithLabelValues(string(s.Type)).Inc()
	c.logger.Info().Int64("station_id", s.ID).Str("name", s.Name).Msg("Station selected")
	if c.bus != nil {
		c.bus.Publish(events.EventStationSelected, events.Payload{
			"stationId": s.ID,
			"name":      s.Name,
		})
	}
}

// startBranchLocked routes the current station into its branch. Video
// stations take the video slot, user stations the playlist flow, and
// everything else plain live audio.
func (c *Controller) startBranchLocked() {
	s := c.current
	switch {
	case s.Type == models.StationUser:
		c.startPlaylistLocked()
	case s.IsVideo():
		c.startLiveVideoLocked()
	default:
		c.startLiveAudioLocked()
	}
	c.publishStateLocked()
}

func (c *Controller) startLiveAudioLocked() {
	s := *c.current
	c.state = StateLoadingLiveAudio
	c.video.Stop()
	c.destroyHLSLocked()

	c.audio.Load(s.StreamURL)
	c.audio.SetVolume(c.volume)
	c.connectGraphLocked(c.audio)

	go c.attemptAudio(s, nil, telemetry.BranchLiveAudio)
}

func (c *Controller) startLiveVideoLocked() {
	s := *c.current
	c.state = StateLoadingLiveVideo
	c.audio.Stop()
	c.destroyHLSLocked()

	url := s.VideoStreamURL
	c.video.Load(url)
	c.video.SetVolume(c.volume)
	c.connectGraphLocked(c.video)

	if hls.IsManifestURL(url) && !c.nativeHLS && c.hlsFactory != nil {
		sess := c.hlsFactory(url, true)
		sess.OnFatal(c.handleHLSFatal)
		c.hls = sess
		go func() {
			err := sess.Start(c.ctx)
			c.completePlay(telemetry.BranchLiveVideo, s, nil, err)
		}()
		return
	}

	go func() {
		err := c.video.Play(c.ctx)
		c.completePlay(telemetry.BranchLiveVideo, s, nil, err)
	}()
}

// startPlaylistLocked begins the user station flow: remember the
// intent, fetch tracks, and let the load callback start playback only
// if the intent still stands when the response lands.
func (c *Controller) startPlaylistLocked() {
	s := *c.current
	c.audio.Stop()
	c.video.Stop()
	c.destroyHLSLocked()

	if len(c.tracks) > 0 {
		c.startTrackLocked(c.trackIndex)
		return
	}

	c.pendingStation = s.ID
	go func() {
		tracks, err := c.source.Tracks(c.ctx, s.ID)
		c.tracksLoaded(s.ID, tracks, err)
	}()
}

// startTrackLocked loads and plays tracks[i], recording the index
// change for replay detection.
func (c *Controller) startTrackLocked(i int) {
	s := *c.current
	track := c.tracks[i]
	c.prevTrackIndex = c.trackIndex
	c.trackIndex = i
	c.state = StateLoadingPlaylistTrack

	c.video.Stop()
	c.destroyHLSLocked()

	c.audio.Load(track.MediaURL)
	c.audio.SetVolume(c.volume)
	c.connectGraphLocked(c.audio)

	if c.notifier != nil && c.notifier.Active() {
		c.notifier.CacheAudioForOffline(track.MediaURL)
	}
	if c.bus != nil {
		c.bus.Publish(events.EventTrackChange, events.Payload{
			"stationId": s.ID,
			"index":     i,
			"title":     track.Title,
		})
	}

	go c.attemptAudio(s, &track, telemetry.BranchPlaylist)
	c.publishStateLocked()
}

// tracksLoaded is the playlist fetch callback. The pending intent
// guard drops responses that arrive after the user has moved on.
func (c *Controller) tracksLoaded(stationID int64, tracks []models.Track, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != stationID {
		c.logger.Debug().Int64("station_id", stationID).Msg("Dropping stale track response")
		return
	}
	if err != nil {
		c.failLocked(telemetry.BranchPlaylist, fmt.Errorf("loading tracks: %w", err))
		return
	}

	c.tracks = tracks
	if c.pendingStation != stationID {
		return
	}
	c.pendingStation = 0

	if len(tracks) == 0 {
		// A station with no tracks is selectable but not playable.
		c.logger.Info().Int64("station_id", stationID).Msg("Station has an empty playlist")
		c.state = StatePaused
		c.publishStateLocked()
		return
	}
	c.startTrackLocked(0)
}

func (c *Controller) attemptAudio(s models.Station, track *models.Track, branch string) {
	err := c.audio.Play(c.ctx)
	c.completePlay(branch, s, track, err)
}

// completePlay applies the outcome of a playback attempt. The latest
// completion always wins; there is no generation check.
func (c *Controller) completePlay(branch string, s models.Station, track *models.Track, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if errors.Is(err, media.ErrPlayRejected) {
		// The element superseded this attempt itself; whoever took
		// the slot over reports its own outcome.
		c.logger.Debug().Str("branch", branch).Msg("Superseded play attempt dropped")
		c.mu.Unlock()
		return
	}
	if err != nil {
		telemetry.PlayErrorsTotal.WithLabelValues(branch).Inc()
		c.failLocked(branch, err)
		c.mu.Unlock()
		return
	}

	telemetry.PlayStartsTotal.WithLabelValues(branch).Inc()
	c.state = StatePlaying
	c.publishStateLocked()
	c.mu.Unlock()

	c.logger.Info().Str("branch", branch).Int64("station_id", s.ID).Msg("Playback started")

	meta := mediasession.Metadata{
		Title:      s.Name,
		Artist:     s.Genre,
		ArtworkURL: s.LogoURL,
	}
	entry := models.HistoryEntry{
		StationID:   s.ID,
		StationName: s.Name,
		LogoURL:     s.LogoURL,
	}
	if track != nil {
		meta.Title = track.Title
		meta.Artist = track.Artist
		meta.Album = s.Name
		entry.TrackTitle = track.Title
		entry.TrackArtist = track.Artist
	}

	if c.bridge != nil {
		c.bridge.Update(meta, true, mediasession.Handlers{
			OnPlay:     func() { _ = c.Play() },
			OnPause:    func() { _ = c.Pause() },
			OnPrevious: func() { _ = c.PrevStation() },
			OnNext:     func() { _ = c.NextStation() },
		})
	}
	if c.renderer != nil {
		c.renderer.SetActive(true)
	}
	if c.bus != nil {
		c.bus.Publish(events.EventNowPlaying, events.Payload{
			"title":     meta.Title,
			"artist":    meta.Artist,
			"stationId": s.ID,
		})
	}

	// History is best effort and never blocks playback.
	go func() {
		if err := c.source.AppendHistory(c.ctx, entry); err != nil {
			c.logger.Warn().Err(err).Msg("History write failed")
		}
	}()
}

// handleAudioEnded advances the playlist. A single-track playlist
// replays the same track explicitly rather than relying on modulo
// arithmetic producing the same index.
func (c *Controller) handleAudioEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.current == nil {
		return
	}
	if c.current.Type != models.StationUser {
		// A drained live stream just stops.
		c.state = StatePaused
		c.publishStateLocked()
		return
	}
	n := len(c.tracks)
	switch {
	case n == 0:
		return
	case n == 1:
		c.startTrackLocked(c.trackIndex)
	default:
		c.startTrackLocked((c.trackIndex + 1) % n)
	}
}

func (c *Controller) handleVideoEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.current == nil {
		return
	}
	c.state = StatePaused
	c.publishStateLocked()
}

func (c *Controller) handleElementError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.failLocked("element", err)
}

func (c *Controller) handleHLSFatal(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.destroyHLSLocked()
	c.video.Stop()
	if c.bus != nil {
		c.bus.Publish(events.EventHLSFatal, events.Payload{"error": err.Error()})
	}
	c.failLocked(telemetry.BranchLiveVideo, err)
}

// failLocked surfaces a playback error: the station stays selected,
// nothing retries, and the user decides what happens next.
func (c *Controller) failLocked(branch string, err error) {
	c.state = StateError
	c.logger.Error().Err(err).Str("branch", branch).Msg("Playback failed")
	if c.bus != nil {
		c.bus.Publish(events.EventPlayerError, events.Payload{
			"branch": branch,
			"error":  err.Error(),
		})
	}
	if c.bridge != nil {
		c.bridge.SetPlaybackState(false)
	}
	if c.renderer != nil {
		c.renderer.SetActive(false)
	}
	c.publishStateLocked()
}

func (c *Controller) pauseLocked() {
	c.audio.Pause()
	c.video.Pause()
	c.destroyHLSLocked()
	c.state = StatePaused
	if c.bridge != nil {
		c.bridge.SetPlaybackState(false)
	}
	if c.renderer != nil {
		c.renderer.SetActive(false)
	}
	c.publishStateLocked()
}

func (c *Controller) connectGraphLocked(el media.Element) {
	if err := c.graph.Connect(el); err != nil {
		c.logger.Warn().Err(err).Msg("Signal graph connect failed")
		return
	}
	c.graph.Resume()
}

func (c *Controller) destroyHLSLocked() {
	if c.hls == nil {
		return
	}
	sess := c.hls
	c.hls = nil
	sess.Destroy()
}

func (c *Controller) publishStateLocked() {
	if c.bus == nil {
		return
	}
	payload := events.Payload{
		"state":     c.state.String(),
		"poweredOn": c.poweredOn,
		"playing":   c.state == StatePlaying,
	}
	if c.current != nil {
		payload["stationId"] = c.current.ID
	}
	c.bus.Publish(events.EventPlayerState, payload)
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
