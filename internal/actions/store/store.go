// Package store persists pending actions between turns and serializes turns
// per conversation.
package store

import (
	"context"
	"sync"

	"action-engine/internal/actions/slots"
)

// PendingStore holds at most one pending action per conversation.
type PendingStore interface {
	// Get returns nil when the conversation has no pending action.
	Get(ctx context.Context, conversationID string) (*slots.PendingAction, error)
	// Save replaces the pending action. A nil action clears it.
	Save(ctx context.Context, conversationID string, p *slots.PendingAction) error
	Delete(ctx context.Context, conversationID string) error
}

// Unlock releases a turn lock.
type Unlock func(ctx context.Context) error

// Locker grants one in-flight turn per conversation.
type Locker interface {
	Acquire(ctx context.Context, conversationID string) (Unlock, error)
}

// MemoryStore keeps pending actions in process. Used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string]*slots.PendingAction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pending: make(map[string]*slots.PendingAction)}
}

func (s *MemoryStore) Get(_ context.Context, conversationID string) (*slots.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[conversationID].Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, conversationID string, p *slots.PendingAction) error {
	if p == nil {
		return s.Delete(ctx, conversationID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[conversationID] = p.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, conversationID)
	return nil
}
