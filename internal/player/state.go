/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

// State is the playback state machine. Every transition goes through
// the controller under its lock; there is no hidden intermediate
// state.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateLoadingLiveAudio
	StateLoadingLiveVideo
	StateLoadingPlaylistTrack
	StatePlaying
	StatePaused
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateLoadingLiveAudio:
		return "loading_live_audio"
	case StateLoadingLiveVideo:
		return "loading_live_video"
	case StateLoadingPlaylistTrack:
		return "loading_playlist_track"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsLoading reports whether the state is one of the loading phases.
func (s State) IsLoading() bool {
	switch s {
	case StateSelecting, StateLoadingLiveAudio, StateLoadingLiveVideo, StateLoadingPlaylistTrack:
		return true
	}
	return false
}
