package conversation

import (
	"context"
	"sync"
)

// MemoryStore keeps conversation history in process memory. History
// lives for the process lifetime only.
type MemoryStore struct {
	maxExchanges int

	mu    sync.RWMutex
	users map[string]*history
}

type history struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryStore(maxExchanges int) *MemoryStore {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	return &MemoryStore{
		maxExchanges: maxExchanges,
		users:        make(map[string]*history),
	}
}

func (s *MemoryStore) GetHistory(ctx context.Context, userID string) ([]Message, error) {
	s.mu.RLock()
	h, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out, nil
}

func (s *MemoryStore) AddMessage(ctx context.Context, userID string, msg Message) error {
	h := s.userHistory(userID)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
	if max := s.maxExchanges * 2; len(h.messages) > max {
		h.messages = h.messages[len(h.messages)-max:]
	}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

func (s *MemoryStore) ActiveCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *MemoryStore) userHistory(userID string) *history {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.users[userID]
	if !ok {
		h = &history{}
		s.users[userID] = h
	}
	return h
}
