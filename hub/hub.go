// Package hub fans events out to broadcast scopes. A scope is a session's
// member set, or the single shared scope in global-leadership deployments.
package hub

import (
	"log/slog"
	"sync"

	"github.com/Ruiisuuu/weebparty-server/domain"
)

type scope struct {
	members map[string]domain.Connection
	mu      sync.RWMutex
}

type Hub struct {
	scopes map[string]*scope
	mu     sync.RWMutex
}

func New() *Hub {
	return &Hub{
		scopes: make(map[string]*scope),
	}
}

// Join binds a connection into a scope, creating the scope on first use.
func (h *Hub) Join(scopeID, userID string, conn domain.Connection) {
	h.mu.Lock()
	s, exists := h.scopes[scopeID]
	if !exists {
		s = &scope{members: make(map[string]domain.Connection)}
		h.scopes[scopeID] = s
	}
	h.mu.Unlock()

	s.mu.Lock()
	s.members[userID] = conn
	count := len(s.members)
	s.mu.Unlock()

	slog.Debug("scope joined", "scope", scopeID, "userId", userID, "members", count)
}

// Leave unbinds a connection from a scope and drops the scope once empty.
func (h *Hub) Leave(scopeID, userID string) {
	h.mu.RLock()
	s, exists := h.scopes[scopeID]
	h.mu.RUnlock()

	if !exists {
		return
	}

	s.mu.Lock()
	delete(s.members, userID)
	count := len(s.members)
	s.mu.Unlock()

	slog.Debug("scope left", "scope", scopeID, "userId", userID, "members", count)

	if count == 0 {
		h.mu.Lock()
		delete(h.scopes, scopeID)
		h.mu.Unlock()
		slog.Debug("scope removed", "scope", scopeID)
	}
}

// Broadcast delivers an event to every member of a scope except the sender.
// Delivery is fire-and-forget: a failed send is logged, never retried, and
// says nothing about the other recipients.
func (h *Hub) Broadcast(scopeID, senderID, event string, payload any) {
	h.mu.RLock()
	s, exists := h.scopes[scopeID]
	h.mu.RUnlock()

	if !exists {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, conn := range s.members {
		if id == senderID {
			continue
		}
		if err := conn.Send(event, payload); err != nil {
			slog.Warn("broadcast send failed", "scope", scopeID, "userId", id, "error", err)
		}
	}
}

// Stats reports the number of live scopes and bound connections.
func (h *Hub) Stats() (scopes, members int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	scopes = len(h.scopes)
	for _, s := range h.scopes {
		s.mu.RLock()
		members += len(s.members)
		s.mu.RUnlock()
	}
	return scopes, members
}
