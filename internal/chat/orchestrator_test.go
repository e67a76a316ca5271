package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrhlh/nonye/internal/spark"
)

type stubCompleter struct {
	mu      sync.Mutex
	answer  string
	err     error
	block   chan struct{}
	gotMsgs []spark.Message
}

func (c *stubCompleter) Complete(ctx context.Context, messages []spark.Message) (string, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.gotMsgs = messages
	c.mu.Unlock()
	return c.answer, c.err
}

func waitIdle(t *testing.T, store *SessionStore, userID string) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return !store.Snapshot(userID).Processing
	}, 2*time.Second, 5*time.Millisecond)
	return store.Snapshot(userID)
}

func TestAskRecordsAnswer(t *testing.T) {
	completer := &stubCompleter{answer: "plant more beans"}
	orchestrator := NewOrchestrator(NewSessionStore(), completer)

	requestID, err := orchestrator.Ask("alice", "what should I plant")
	require.NoError(t, err)
	assert.NotEmpty(t, requestID)

	snapshot := waitIdle(t, orchestrator.Store(), "alice")
	require.Len(t, snapshot.History, 2)
	assert.Equal(t, "what should I plant", snapshot.History[0].Content)
	assert.Equal(t, "plant more beans", snapshot.History[1].Content)
	assert.Empty(t, snapshot.RequestID)

	completer.mu.Lock()
	defer completer.mu.Unlock()
	require.Len(t, completer.gotMsgs, 1)
	assert.Equal(t, "user", completer.gotMsgs[0].Role)
}

func TestAskWhileProcessingReturnsBusy(t *testing.T) {
	completer := &stubCompleter{answer: "ok", block: make(chan struct{})}
	orchestrator := NewOrchestrator(NewSessionStore(), completer)

	first, err := orchestrator.Ask("alice", "question one")
	require.NoError(t, err)

	_, err = orchestrator.Ask("alice", "question two")
	var busy *BusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, first, busy.RequestID)

	// The rejected request leaves no trace in history.
	snapshot := orchestrator.Store().Snapshot("alice")
	assert.Len(t, snapshot.History, 1)

	close(completer.block)
	waitIdle(t, orchestrator.Store(), "alice")
}

func TestWorkerFailureClearsProcessing(t *testing.T) {
	completer := &stubCompleter{err: errors.New("empty answer from AI")}
	orchestrator := NewOrchestrator(NewSessionStore(), completer)

	_, err := orchestrator.Ask("alice", "question")
	require.NoError(t, err)

	snapshot := waitIdle(t, orchestrator.Store(), "alice")
	require.Len(t, snapshot.History, 2)
	assert.Equal(t, "assistant", snapshot.History[1].Role)
	assert.Contains(t, snapshot.History[1].Content, "Sorry, the AI request failed")
	assert.Contains(t, snapshot.History[1].Content, "empty answer from AI")
	assert.False(t, snapshot.Processing)
	assert.Empty(t, snapshot.RequestID)
}

func TestWorkerCompletionSweepsIdleSessions(t *testing.T) {
	store := NewSessionStore()

	current := time.Unix(1700000000, 0)
	store.now = func() time.Time { return current }

	store.Begin("stale", "req_0", "old question")
	store.Finish("stale", "old answer")
	current = current.Add(2 * time.Hour)

	completer := &stubCompleter{answer: "fresh answer"}
	orchestrator := NewOrchestrator(store, completer)

	_, err := orchestrator.Ask("alice", "new question")
	require.NoError(t, err)
	waitIdle(t, store, "alice")

	store.mu.Lock()
	_, staleExists := store.sessions["stale"]
	store.mu.Unlock()
	assert.False(t, staleExists)
}
