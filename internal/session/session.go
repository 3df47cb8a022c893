package session

import (
	"sync"

	"shopbot/internal/domain"
)

// Conversation is an append-only log of turns for one chat session.
type Conversation struct {
	mu    sync.RWMutex
	turns []domain.Turn
}

func New() *Conversation { return &Conversation{} }

func (c *Conversation) Append(role domain.Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, domain.Turn{Role: role, Content: content})
}

// Turns returns a copy of the log in order.
func (c *Conversation) Turns() []domain.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Reset empties the log.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}
