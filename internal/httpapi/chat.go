package httpapi

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/streamtasks/internal/fields"
	"github.com/ent0n29/streamtasks/internal/protocol"
)

type chatMessageResponse struct {
	Handled bool   `json:"handled"`
	Reply   string `json:"reply,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var msg protocol.ChatMessage
	if err := decodeJSON(r, &msg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	msg.DisplayName = strings.TrimSpace(msg.DisplayName)
	if msg.DisplayName == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "displayName is required")
		return
	}
	msg.Type = protocol.TypeChatMessage
	s.observeWS("inbound", protocol.TypeChatMessage)

	reply, ok := s.dispatcher.Handle(r.Context(), msg)
	respondJSON(w, http.StatusOK, chatMessageResponse{
		Handled: ok,
		Reply:   reply.Text,
		IsError: reply.IsError,
	})
}

// handleChatWS is the chat bridge: each text frame is a chat_message or a
// load_fields event, and command feedback goes back on the same socket.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			if !s.writeWS(conn, protocol.NewErrorEvent("invalid_client_message", "chat", err.Error(), false)) {
				return
			}
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.observeWS("inbound", t)
		}

		var out any
		switch m := parsed.(type) {
		case protocol.ChatMessage:
			reply, ok := s.dispatcher.Handle(ctx, m)
			if !ok {
				continue
			}
			out = protocol.NewChatReply(reply.Text, reply.IsError)
		case protocol.LoadFields:
			if err := s.applyFields(m.FieldData); err != nil {
				out = protocol.NewErrorEvent("invalid_field_data", "chat", err.Error(), false)
			} else {
				out = protocol.NewBoardSnapshot(s.board.View())
			}
		default:
			continue
		}
		if !s.writeWS(conn, out) {
			return
		}
	}
}

// applyFields re-runs the configuration step. The default board is only
// installed when there is nothing to keep.
func (s *Server) applyFields(raw map[string]any) error {
	f, err := fields.FromMap(raw)
	if err != nil {
		return err
	}
	s.board.SetConfig(f)
	if len(s.board.Lists()) == 0 {
		log.Printf("widget load: board empty, installing default lists")
		s.board.InitializeDefault(f)
	}
	return nil
}

func (s *Server) writeWS(conn *websocket.Conn, msg any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		if s.metrics != nil {
			s.metrics.WSMessages.WithLabelValues("outbound", "write_error").Inc()
		}
		return false
	}
	if t, ok := messageTypeOf(msg); ok {
		s.observeWS("outbound", t)
	}
	return true
}

func (s *Server) observeWS(direction string, t protocol.MessageType) {
	if s.metrics == nil {
		return
	}
	s.metrics.WSMessages.WithLabelValues(direction, string(t)).Inc()
}
