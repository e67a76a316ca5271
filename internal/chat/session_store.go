package chat

import (
	"sync"
	"time"
)

const (
	// maxHistory bounds per-user conversation memory; the oldest entries are
	// dropped first.
	maxHistory = 10

	// defaultIdleTimeout is how long a session may sit untouched before the
	// sweep removes it.
	defaultIdleTimeout = time.Hour

	emptyContentPlaceholder = "(empty reply)"
)

type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

type sessionState struct {
	history    []Message
	processing bool
	requestID  string
	lastActive time.Time
}

// Snapshot is a point-in-time copy of one user's session, safe to read after
// the store lock is released.
type Snapshot struct {
	History    []Message
	Processing bool
	RequestID  string
	LastActive time.Time
}

// SessionStore holds per-user conversation state in memory. All state is
// process-local: a restart loses history and in-flight markers. The lock is
// held only for map and slice manipulation, never across network calls.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*sessionState
	idleTimeout time.Duration
	now         func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*sessionState),
		idleTimeout: defaultIdleTimeout,
		now:         time.Now,
	}
}

// session returns the state for userID, creating it lazily. Caller must hold
// the lock.
func (s *SessionStore) session(userID string) *sessionState {
	state, ok := s.sessions[userID]
	if !ok {
		state = &sessionState{lastActive: s.now()}
		s.sessions[userID] = state
	}
	return state
}

func (s *SessionStore) append(state *sessionState, role, content string) {
	if content == "" {
		content = emptyContentPlaceholder
	}
	state.history = append(state.history, Message{Role: role, Content: content, Timestamp: s.now()})
	if len(state.history) > maxHistory {
		state.history = state.history[len(state.history)-maxHistory:]
	}
	state.lastActive = s.now()
}

// Begin atomically checks that no request is in flight for userID, appends the
// user's question, and marks the session as processing under requestID. When a
// request is already in flight it returns its id and false with no state
// change. On success it returns a copy of the history to send upstream.
func (s *SessionStore) Begin(userID, requestID, question string) ([]Message, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.session(userID)
	if state.processing {
		return nil, state.requestID, false
	}

	s.append(state, "user", question)
	state.processing = true
	state.requestID = requestID

	history := make([]Message, len(state.history))
	copy(history, state.history)
	return history, requestID, true
}

// Finish appends the assistant's answer (or an error placeholder) and clears
// the in-flight marker. It must run on every worker exit path so a session
// can never stay stuck in processing.
func (s *SessionStore) Finish(userID, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.session(userID)
	s.append(state, "assistant", answer)
	state.processing = false
	state.requestID = ""
}

func (s *SessionStore) Snapshot(userID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.session(userID)
	history := make([]Message, len(state.history))
	copy(history, state.history)
	return Snapshot{
		History:    history,
		Processing: state.processing,
		RequestID:  state.requestID,
		LastActive: state.lastActive,
	}
}

// Clear drops a user's history but keeps the session record, matching the
// behavior of the clear endpoint: an in-flight request is unaffected.
func (s *SessionStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.sessions[userID]; ok {
		state.history = nil
		state.lastActive = s.now()
	}
}

// Sweep removes every session idle longer than the eviction threshold and
// returns how many were evicted.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	cutoff := s.now().Add(-s.idleTimeout)
	for userID, state := range s.sessions {
		if state.lastActive.Before(cutoff) {
			delete(s.sessions, userID)
			evicted++
		}
	}
	return evicted
}
