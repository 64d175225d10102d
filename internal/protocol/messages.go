package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/streamtasks/internal/board"
	"github.com/ent0n29/streamtasks/internal/policy"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatMessage   MessageType = "chat_message"
	TypeLoadFields    MessageType = "load_fields"
	TypeChatReply     MessageType = "chat_reply"
	TypeBoardSnapshot MessageType = "board_snapshot"
	TypeErrorEvent    MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ChatMessage is one chat line as delivered by the platform.
type ChatMessage struct {
	Type        MessageType `json:"type,omitempty"`
	Text        string      `json:"text"`
	DisplayName string      `json:"displayName"`
	Tags        policy.Tags `json:"tags"`
}

// LoadFields carries widget field data, as sent on a configuration reload.
type LoadFields struct {
	Type      MessageType    `json:"type"`
	FieldData map[string]any `json:"fieldData"`
}

type ChatReply struct {
	Type    MessageType `json:"type"`
	Text    string      `json:"text"`
	IsError bool        `json:"is_error,omitempty"`
}

type BoardSnapshot struct {
	Type  MessageType `json:"type"`
	Board board.View  `json:"board"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatMessage:
		var msg ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.DisplayName) == "" {
			return nil, errors.New("invalid chat_message: displayName is required")
		}
		return msg, nil
	case TypeLoadFields:
		var msg LoadFields
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.FieldData == nil {
			msg.FieldData = map[string]any{}
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, env.Type)
	}
}

func NewChatReply(text string, isError bool) ChatReply {
	return ChatReply{Type: TypeChatReply, Text: text, IsError: isError}
}

func NewBoardSnapshot(v board.View) BoardSnapshot {
	return BoardSnapshot{Type: TypeBoardSnapshot, Board: v}
}

func NewErrorEvent(code, source, detail string, retryable bool) ErrorEvent {
	return ErrorEvent{
		Type:      TypeErrorEvent,
		Code:      code,
		Source:    source,
		Retryable: retryable,
		Detail:    detail,
	}
}
