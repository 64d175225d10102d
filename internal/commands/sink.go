package commands

import (
	"context"
	"log"

	"github.com/ent0n29/streamtasks/internal/policy"
)

// Reply is the feedback line sent back to chat.
type Reply struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error,omitempty"`
}

// Sink delivers feedback to the chat surface.
type Sink interface {
	Say(ctx context.Context, reply Reply) error
}

type SinkFunc func(ctx context.Context, reply Reply) error

func (f SinkFunc) Say(ctx context.Context, reply Reply) error {
	return f(ctx, reply)
}

// LogSink writes feedback to the process log.
type LogSink struct{}

func (LogSink) Say(_ context.Context, reply Reply) error {
	text, _ := policy.RedactPII(reply.Text)
	if reply.IsError {
		log.Printf("[FEEDBACK][ERROR] %s", text)
		return nil
	}
	log.Printf("[FEEDBACK] %s", text)
	return nil
}

// MultiSink fans a reply out to every sink and returns the first error.
type MultiSink []Sink

func (m MultiSink) Say(ctx context.Context, reply Reply) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Say(ctx, reply); err != nil && first == nil {
			first = err
		}
	}
	return first
}
