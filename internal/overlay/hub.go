package overlay

import (
	"context"
	"sync"

	"github.com/ent0n29/streamtasks/internal/board"
	"github.com/ent0n29/streamtasks/internal/commands"
	"github.com/ent0n29/streamtasks/internal/protocol"
)

const subscriberBuffer = 64

// Hub fans protocol messages out to connected overlay clients. Publish never
// blocks: a subscriber that falls behind loses messages and is counted.
type Hub struct {
	mu      sync.Mutex
	subs    map[int]chan any
	nextID  int
	dropped int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan any)}
}

func (h *Hub) Subscribe() (<-chan any, func()) {
	ch := make(chan any, subscriberBuffer)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *Hub) Publish(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.dropped++
		}
	}
}

// PublishView is shaped to be a board change hook.
func (h *Hub) PublishView(v board.View) {
	h.Publish(protocol.NewBoardSnapshot(v))
}

// Say lets the hub act as a feedback sink so overlays can show replies.
func (h *Hub) Say(_ context.Context, reply commands.Reply) error {
	h.Publish(protocol.NewChatReply(reply.Text, reply.IsError))
	return nil
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
