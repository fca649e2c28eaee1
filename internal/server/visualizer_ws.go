/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"net/http"

	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DOMyLinc/lavabyteradio-sub000/internal/events"
)

// handleVisualizerWS streams rendered frames to a front end. The
// current frame is sent immediately so a client connecting while idle
// still gets something to draw.
func (s *Server) handleVisualizerWS(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	ctx := r.Context()
	sub := s.bus.Subscribe(events.EventVisualizerFrame)
	defer s.bus.Unsubscribe(events.EventVisualizerFrame, sub)

	if err := wsjson.Write(ctx, conn, s.renderer.Frame()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "done")
			return
		case frame, ok := <-sub:
			if !ok {
				conn.Close(ws.StatusNormalClosure, "done")
				return
			}
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				s.logger.Debug().Err(err).Msg("visualizer client dropped")
				return
			}
		}
	}
}
