/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/models"
	"github.com/DOMyLinc/lavabyteradio-sub000/internal/player"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.Status())
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.Stations())
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	on := s.player.PowerToggle()
	writeJSON(w, http.StatusOK, map[string]bool{"poweredOn": on})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.writeTransportResult(w, s.player.Play())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.writeTransportResult(w, s.player.Pause())
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.writeTransportResult(w, s.player.NextStation())
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.writeTransportResult(w, s.player.PrevStation())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return
	}
	s.writeTransportResult(w, s.player.SelectStation(id))
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || idx < 0 {
		writeError(w, http.StatusBadRequest, "invalid track index")
		return
	}
	s.player.SetTrackIndex(idx)
	writeJSON(w, http.StatusOK, s.player.Status())
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid volume payload")
		return
	}
	s.player.SetVolume(body.Volume)
	writeJSON(w, http.StatusOK, s.player.Status())
}

func (s *Server) handleEQ(w http.ResponseWriter, r *http.Request) {
	var eq models.EQSettings
	if err := json.NewDecoder(r.Body).Decode(&eq); err != nil {
		writeError(w, http.StatusBadRequest, "invalid eq payload")
		return
	}
	s.player.SetEQ(eq)
	writeJSON(w, http.StatusOK, s.player.Status())
}

// writeTransportResult maps controller errors onto API status codes.
// Power-off rejections are client errors, everything else is a plain
// success with the new status.
func (s *Server) writeTransportResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.player.Status())
	case errors.Is(err, player.ErrPoweredOff):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, player.ErrUnknownStation):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Transport operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
