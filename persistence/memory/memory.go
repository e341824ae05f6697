// Package memory implements persistence.Store in-process, for tests and the
// cmd/machinectl demo (SPEC_FULL.md §C.1).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/persistence"
	"github.com/chartrun/machine/serializer"
)

// Store is a mutex-guarded, map-backed persistence.Store.
type Store struct {
	mu       sync.Mutex
	sessions map[string]persistence.Session
	turns    map[string]persistence.Turn
	steps    map[string][]persistence.StepRecord
	messages map[string][]persistence.MessageRecord
	idemSeen map[string]bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		sessions: map[string]persistence.Session{},
		turns:    map[string]persistence.Turn{},
		steps:    map[string][]persistence.StepRecord{},
		messages: map[string][]persistence.MessageRecord{},
		idemSeen: map[string]bool{},
	}
}

func (s *Store) Sessions() persistence.SessionStore { return sessionStore{s} }
func (s *Store) Turns() persistence.TurnStore       { return turnStore{s} }
func (s *Store) Steps() persistence.StepStore       { return stepStore{s} }
func (s *Store) Messages() persistence.MessageStore { return messageStore{s} }

type sessionStore struct{ s *Store }

func (ss sessionStore) CreateSession(_ context.Context, id string, createdAt time.Time) (persistence.Session, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if existing, ok := ss.s.sessions[id]; ok {
		return existing, nil
	}
	sess := persistence.Session{ID: id, CreatedAt: createdAt, UpdatedAt: createdAt}
	ss.s.sessions[id] = sess
	return sess, nil
}

func (ss sessionStore) GetSession(_ context.Context, id string) (persistence.Session, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	sess, ok := ss.s.sessions[id]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return sess, nil
}

func (ss sessionStore) PatchSession(_ context.Context, id string, currentTurnID string) (persistence.Session, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	sess, ok := ss.s.sessions[id]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	sess.CurrentTurnID = currentTurnID
	sess.UpdatedAt = time.Now()
	ss.s.sessions[id] = sess
	return sess, nil
}

type turnStore struct{ s *Store }

func (ts turnStore) CreateTurn(_ context.Context, t persistence.Turn) (persistence.Turn, error) {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	ts.s.turns[t.ID] = t
	return t, nil
}

func (ts turnStore) GetTurn(_ context.Context, id string) (persistence.Turn, error) {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	t, ok := ts.s.turns[id]
	if !ok {
		return persistence.Turn{}, persistence.ErrNotFound
	}
	return t, nil
}

func (ts turnStore) ListTurnsBySession(_ context.Context, sessionID string) ([]persistence.Turn, error) {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	var out []persistence.Turn
	for _, t := range ts.s.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (ts turnStore) PatchTurn(_ context.Context, id string, inst serializer.SerializedInstance, messages []charter.Message) (persistence.Turn, error) {
	ts.s.mu.Lock()
	defer ts.s.mu.Unlock()
	t, ok := ts.s.turns[id]
	if !ok {
		return persistence.Turn{}, persistence.ErrNotFound
	}
	t.Instance = inst
	t.Messages = messages
	ts.s.turns[id] = t
	return t, nil
}

type stepStore struct{ s *Store }

func (ss stepStore) AddStep(_ context.Context, st persistence.StepRecord) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now()
	}
	ss.s.steps[st.TurnID] = append(ss.s.steps[st.TurnID], st)
	return nil
}

func (ss stepStore) ListStepsByTurn(_ context.Context, turnID string) ([]persistence.StepRecord, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	return append([]persistence.StepRecord{}, ss.s.steps[turnID]...), nil
}

type messageStore struct{ s *Store }

func (ms messageStore) AddMessage(_ context.Context, m persistence.MessageRecord) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	if m.IdempotencyKey != "" {
		key := m.SessionID + "/" + m.IdempotencyKey
		if ms.s.idemSeen[key] {
			return nil
		}
		ms.s.idemSeen[key] = true
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	ms.s.messages[m.SessionID] = append(ms.s.messages[m.SessionID], m)
	return nil
}

func (ms messageStore) ListMessagesBySession(_ context.Context, sessionID string) ([]persistence.MessageRecord, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	return append([]persistence.MessageRecord{}, ms.s.messages[sessionID]...), nil
}

func (ms messageStore) ListMessagesUpToTurn(ctx context.Context, sessionID, turnID string) ([]persistence.MessageRecord, error) {
	chain, err := persistence.TurnChain(ctx, ms.s.Turns(), turnID)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(chain))
	for _, id := range chain {
		allowed[id] = true
	}
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	var out []persistence.MessageRecord
	for _, m := range ms.s.messages[sessionID] {
		if allowed[m.TurnID] {
			out = append(out, m)
		}
	}
	return out, nil
}
