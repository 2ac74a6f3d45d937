package sessions

import (
	"context"
	"sync"

	"habitbot/types"
)

// MemoryStore keeps encoded states in process. Values go through the codec so
// it behaves like the redis store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[types.ConversationID][]byte

	// Set by tests to simulate an unreachable store
	PutErr error
	GetErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[types.ConversationID][]byte),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id types.ConversationID) (types.SessionState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.GetErr != nil {
		return types.SessionState{}, false, s.GetErr
	}

	b, ok := s.sessions[id]
	if !ok {
		return types.SessionState{}, false, nil
	}

	state, err := Decode(b)
	if err != nil {
		return types.SessionState{}, false, err
	}

	return state, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, id types.ConversationID, state types.SessionState) error {
	b, err := Encode(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PutErr != nil {
		return s.PutErr
	}

	s.sessions[id] = b
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id types.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
