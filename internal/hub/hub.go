// Package hub tracks the viewers connected to each post and fans broadcasts
// out to them.
package hub

import (
	"errors"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/Baalavignesh/DiggerMan/internal/protocol"
)

// outboxSize is how many messages may wait for one viewer before it is
// dropped.
const outboxSize = 64

var (
	ErrViewerClosed = errors.New("viewer closed")
	ErrSlowViewer   = errors.New("viewer outbox full")
)

// Sender delivers one message to a connected viewer. A Sender that also
// implements io.Closer is closed when its viewer is dropped for falling
// behind.
type Sender interface {
	Send(msg protocol.Outbound) error
}

// Viewer is one connection watching a post. Messages are queued and written
// in order by the viewer's own writer.
type Viewer struct {
	ID     string
	PostID string
	UserID string

	hub    *Hub
	sender Sender
	outbox chan protocol.Outbound

	mu     sync.Mutex
	closed bool
}

// Send queues msg for the viewer. A viewer whose outbox is full is dropped
// from the hub.
func (v *Viewer) Send(msg protocol.Outbound) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewerClosed
	}
	select {
	case v.outbox <- msg:
		v.mu.Unlock()
		return nil
	default:
	}
	v.mu.Unlock()

	log.Printf("[Hub] Viewer %s on post %s fell behind, dropping", v.ID, v.PostID)
	v.hub.Leave(v)
	if c, ok := v.sender.(io.Closer); ok {
		// Close may wait for a stuck write.
		go c.Close()
	}
	return ErrSlowViewer
}

func (v *Viewer) writeLoop() {
	for msg := range v.outbox {
		if err := v.sender.Send(msg); err != nil {
			log.Printf("[Hub] Failed to send %s to viewer %s: %v", msg.Type, v.ID, err)
			v.hub.Leave(v)
			return
		}
	}
}

func (v *Viewer) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	close(v.outbox)
}

// Hub is the registry of connected viewers, keyed by post.
type Hub struct {
	mu    sync.RWMutex
	posts map[string]map[string]*Viewer
}

// New returns an empty hub.
func New() *Hub {
	return &Hub{posts: make(map[string]map[string]*Viewer)}
}

// Join registers a viewer of postID, starts its writer and returns it.
func (h *Hub) Join(postID, userID string, sender Sender) *Viewer {
	v := &Viewer{
		ID:     uuid.NewString(),
		PostID: postID,
		UserID: userID,
		hub:    h,
		sender: sender,
		outbox: make(chan protocol.Outbound, outboxSize),
	}
	go v.writeLoop()

	h.mu.Lock()
	defer h.mu.Unlock()
	viewers, ok := h.posts[postID]
	if !ok {
		viewers = make(map[string]*Viewer)
		h.posts[postID] = viewers
	}
	viewers[v.ID] = v
	return v
}

// Leave removes v and stops its writer. Messages still queued are discarded.
// Leaving twice is a no-op.
func (h *Hub) Leave(v *Viewer) {
	v.close()

	h.mu.Lock()
	defer h.mu.Unlock()
	viewers, ok := h.posts[v.PostID]
	if !ok {
		return
	}
	delete(viewers, v.ID)
	if len(viewers) == 0 {
		delete(h.posts, v.PostID)
	}
}

// Count returns the number of viewers of postID.
func (h *Hub) Count(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.posts[postID])
}

// Broadcast queues msg for every viewer of postID without waiting for any
// of them to write it.
func (h *Hub) Broadcast(postID string, msg protocol.Outbound) {
	h.mu.RLock()
	viewers := make([]*Viewer, 0, len(h.posts[postID]))
	for _, v := range h.posts[postID] {
		viewers = append(viewers, v)
	}
	h.mu.RUnlock()

	for _, v := range viewers {
		if err := v.Send(msg); err != nil {
			log.Printf("[Hub] Failed to queue %s for viewer %s: %v", msg.Type, v.ID, err)
		}
	}
}
