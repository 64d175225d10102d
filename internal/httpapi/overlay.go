package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/streamtasks/internal/protocol"
)

type widgetLoadRequest struct {
	FieldData map[string]any `json:"fieldData"`
}

func (s *Server) handleGetBoard(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.board.View())
}

func (s *Server) handleWidgetLoad(w http.ResponseWriter, r *http.Request) {
	var req widgetLoadRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.applyFields(req.FieldData); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_field_data", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.board.View())
}

// handleOverlayWS pushes a board_snapshot on connect and after every change.
// Chat feedback is forwarded too so the overlay can flash it.
func (s *Server) handleOverlayWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.hub.Subscribe()
	s.observeOverlayClients()
	defer func() {
		unsubscribe()
		s.observeOverlayClients()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The overlay never sends anything meaningful; reading only notices the
	// close and keeps pong handling alive.
	go func() {
		defer cancel()
		conn.SetReadLimit(4 << 10)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !s.writeWS(conn, protocol.NewBoardSnapshot(s.board.View())) {
		return
	}

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			if !s.writeWS(conn, msg) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) observeOverlayClients() {
	if s.metrics == nil || s.hub == nil {
		return
	}
	s.metrics.OverlayClients.Set(float64(s.hub.Count()))
}
