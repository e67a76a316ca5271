package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jrhlh/nonye/internal/spark"
)

const sweepInterval = time.Hour

// Completer is the transport boundary: one call resolves a message list into
// a single answer, with retries handled inside.
type Completer interface {
	Complete(ctx context.Context, messages []spark.Message) (string, error)
}

// BusyError signals that a request is already in flight for the user.
type BusyError struct {
	RequestID string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("request %s already in progress", e.RequestID)
}

// Orchestrator mediates between inbound chat requests and the transport,
// enforcing one in-flight request per user. Accepted requests run on a
// background goroutine; callers poll history/status for the outcome. There is
// no cancellation once a worker is dispatched.
type Orchestrator struct {
	store     *SessionStore
	completer Completer
}

func NewOrchestrator(store *SessionStore, completer Completer) *Orchestrator {
	return &Orchestrator{store: store, completer: completer}
}

func (o *Orchestrator) Store() *SessionStore {
	return o.store
}

// Ask accepts a question for userID and dispatches a background worker.
// It returns the minted request id immediately; a *BusyError is returned when
// the user already has a request in flight.
func (o *Orchestrator) Ask(userID, question string) (string, error) {
	requestID := "req_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]

	history, priorID, ok := o.store.Begin(userID, requestID, question)
	if !ok {
		return "", &BusyError{RequestID: priorID}
	}

	go o.process(userID, requestID, history)

	return requestID, nil
}

func (o *Orchestrator) process(userID, requestID string, history []Message) {
	start := time.Now()
	slog.Info("processing AI request", "request_id", requestID, "user_id", userID)

	answer := ""
	defer func() {
		if r := recover(); r != nil {
			slog.Error("AI worker panicked", "request_id", requestID, "panic", r)
			answer = fmt.Sprintf("error while handling request: %v", r)
		}

		o.store.Finish(userID, answer)

		if evicted := o.store.Sweep(); evicted > 0 {
			slog.Info("evicted idle chat sessions", "count", evicted)
		}
	}()

	messages := make([]spark.Message, len(history))
	for i, msg := range history {
		messages[i] = spark.Message{Role: msg.Role, Content: msg.Content}
	}

	result, err := o.completer.Complete(context.Background(), messages)
	if err != nil {
		slog.Error("AI request failed", "request_id", requestID, "error", err)
		answer = fmt.Sprintf("Sorry, the AI request failed: %v", err)
		return
	}

	slog.Info("AI request completed", "request_id", requestID, "duration", time.Since(start))
	answer = result
}

// StartSweeper periodically evicts idle sessions until ctx is cancelled. The
// opportunistic sweep after each worker covers active deployments; this one
// covers quiet ones.
func (o *Orchestrator) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := o.store.Sweep(); evicted > 0 {
					slog.Info("evicted idle chat sessions", "count", evicted)
				}
			}
		}
	}()
}
