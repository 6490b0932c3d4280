// ABOUTME: Detached job scheduler for AI replies to user messages
// ABOUTME: Jobs outlive the submitting connection; results persist as BOT messages and broadcast

package ai

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atendeai/chat-gateway/internal/store"
)

// MessageStore is the slice of the store the scheduler needs.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *store.Message) error
}

// Broadcaster delivers a persisted message to its conversation room.
// A broadcast into a room with no members is a no-op.
type Broadcaster interface {
	BroadcastNewMessage(conversationID int64, msg *store.Message)
}

// Policy controls how a reply job handles provider failure.
type Policy struct {
	// MaxAttempts is the total number of completion attempts per job.
	// 1 means fire-and-forget: a failure logs and the job ends silently.
	MaxAttempts int
	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration
	// RequestTimeout bounds each completion attempt.
	RequestTimeout time.Duration
}

// Scheduler runs AI reply jobs detached from the connections that submit
// them: a job started by a user who then disconnects still completes,
// persists, and broadcasts.
type Scheduler struct {
	completer   Completer
	store       MessageStore
	broadcaster Broadcaster
	policy      Policy
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// NewScheduler creates a scheduler with the given failure policy.
func NewScheduler(completer Completer, st MessageStore, broadcaster Broadcaster, policy Policy, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Scheduler{
		completer:   completer,
		store:       st,
		broadcaster: broadcaster,
		policy:      policy,
		logger:      logger.With("component", "ai"),
	}
}

// Submit queues a reply job for the prompt. It returns immediately; the
// job runs on its own goroutine with its own context, so it is unaffected
// by the submitting connection closing. The caller gets no signal about
// the outcome.
func (s *Scheduler) Submit(userID, conversationID int64, prompt string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(userID, conversationID, prompt)
	}()
}

func (s *Scheduler) run(userID, conversationID int64, prompt string) {
	logger := s.logger.With("user_id", userID, "conversation_id", conversationID)

	reply, err := s.complete(prompt)
	if err != nil {
		logger.Error("ai reply failed, giving up", "attempts", s.policy.MaxAttempts, "error", err)
		return
	}

	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Sender:         store.SenderBot,
		Content:        reply,
		CreatedAt:      time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		// Never broadcast a message that is not in the store.
		logger.Error("failed to persist ai reply", "error", err)
		return
	}

	s.broadcaster.BroadcastNewMessage(conversationID, msg)
	logger.Debug("ai reply delivered", "message_id", msg.ID)
}

// complete runs the completion attempts under the failure policy.
func (s *Scheduler) complete(prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(s.policy.RetryBackoff)
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.policy.RequestTimeout)
		reply, err := s.completer.Complete(ctx, prompt)
		cancel()
		if err == nil {
			return reply, nil
		}

		lastErr = err
		s.logger.Warn("ai completion attempt failed", "attempt", attempt, "max_attempts", s.policy.MaxAttempts, "error", err)
	}
	return "", lastErr
}

// Close waits for in-flight jobs to finish, up to the timeout. Used by
// graceful shutdown.
func (s *Scheduler) Close(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}
