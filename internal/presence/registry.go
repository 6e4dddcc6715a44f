// Package presence maps authenticated users to their live socket
// connections. The registry is process-local: state is lost on restart
// and rebuilt as clients reconnect, which is acceptable because live
// push is best-effort and the stores remain the source of truth.
package presence

import (
	"sync"

	"github.com/taskhive/messaging-platform/internal/model"
)

// Conn is a live connection capable of receiving events. The websocket
// session implements it; tests substitute fakes.
type Conn interface {
	SendEvent(event *model.Event) error
}

type connState struct {
	// joined is the set of peer ids this connection has entered a
	// conversation with, used to route read receipts.
	joined map[string]struct{}
}

// Registry is an injected, explicitly-owned presence map. A user may
// hold several concurrent connections (multi-device).
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[Conn]*connState
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]map[Conn]*connState),
	}
}

// Register adds a connection for a user.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[userID] == nil {
		r.conns[userID] = make(map[Conn]*connState)
	}
	r.conns[userID][conn] = &connState{joined: make(map[string]struct{})}
}

// Unregister removes a connection; the user goes offline when the last
// one is gone.
func (r *Registry) Unregister(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conns, ok := r.conns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.conns, userID)
		}
	}
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// ConnectionsFor returns the user's live connections, possibly empty.
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns[userID]))
	for conn := range r.conns[userID] {
		conns = append(conns, conn)
	}
	return conns
}

// Join records that a connection has entered the conversation with
// peerID. Unknown connections are ignored.
func (r *Registry) Join(userID string, conn Conn, peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.conns[userID][conn]; ok {
		state.joined[peerID] = struct{}{}
	}
}

// Leave records that a connection has left the conversation with peerID.
func (r *Registry) Leave(userID string, conn Conn, peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.conns[userID][conn]; ok {
		delete(state.joined, peerID)
	}
}

// HasJoined reports whether any of the user's connections has entered
// the conversation with peerID.
func (r *Registry) HasJoined(userID, peerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, state := range r.conns[userID] {
		if _, ok := state.joined[peerID]; ok {
			return true
		}
	}
	return false
}

// OnlineCount returns the number of users with at least one connection.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Reset drops all registered connections, for process shutdown.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = make(map[string]map[Conn]*connState)
}
