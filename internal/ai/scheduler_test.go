// ABOUTME: Tests for the AI reply scheduler: retry policy, persistence gating, and shutdown
// ABOUTME: Uses a scripted completer so no provider is contacted

package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendeai/chat-gateway/internal/store"
)

// scriptedCompleter returns the queued results in order.
type scriptedCompleter struct {
	mu      sync.Mutex
	results []completion
	calls   int
}

type completion struct {
	reply string
	err   error
}

func (c *scriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(c.results) == 0 {
		return "", errors.New("no scripted result")
	}
	next := c.results[0]
	c.results = c.results[1:]
	return next.reply, next.err
}

func (c *scriptedCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type capturingBroadcaster struct {
	mu       sync.Mutex
	messages []*store.Message
}

func (b *capturingBroadcaster) BroadcastNewMessage(conversationID int64, msg *store.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *capturingBroadcaster) all() []*store.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*store.Message(nil), b.messages...)
}

func testPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		RetryBackoff:   time.Millisecond,
		RequestTimeout: time.Second,
	}
}

func TestSchedulerPersistsAndBroadcastsReply(t *testing.T) {
	st := store.NewMockStore()
	broadcaster := &capturingBroadcaster{}
	completer := &scriptedCompleter{results: []completion{{reply: "Olá! Como posso ajudar?"}}}
	sched := NewScheduler(completer, st, broadcaster, testPolicy(1), nil)

	sched.Submit(1, 42, "olá")
	require.NoError(t, sched.Close(time.Second))

	msgs, err := st.ListMessagesByConversation(context.Background(), 42, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, store.SenderBot, msgs[0].Sender)
	assert.Equal(t, "Olá! Como posso ajudar?", msgs[0].Content)
	assert.NotEmpty(t, msgs[0].ID)

	delivered := broadcaster.all()
	require.Len(t, delivered, 1)
	assert.Equal(t, msgs[0].ID, delivered[0].ID)
}

func TestSchedulerFireAndForgetFailure(t *testing.T) {
	st := store.NewMockStore()
	broadcaster := &capturingBroadcaster{}
	completer := &scriptedCompleter{results: []completion{{err: errors.New("provider down")}}}
	sched := NewScheduler(completer, st, broadcaster, testPolicy(1), nil)

	sched.Submit(1, 42, "olá")
	require.NoError(t, sched.Close(time.Second))

	// Default policy is one attempt: failure ends the job silently.
	assert.Equal(t, 1, completer.callCount())
	msgs, err := st.ListMessagesByConversation(context.Background(), 42, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Empty(t, broadcaster.all())
}

func TestSchedulerRetriesThenSucceeds(t *testing.T) {
	st := store.NewMockStore()
	broadcaster := &capturingBroadcaster{}
	completer := &scriptedCompleter{results: []completion{
		{err: errors.New("transient")},
		{reply: "segunda tentativa"},
	}}
	sched := NewScheduler(completer, st, broadcaster, testPolicy(2), nil)

	sched.Submit(1, 42, "olá")
	require.NoError(t, sched.Close(time.Second))

	assert.Equal(t, 2, completer.callCount())
	msgs, err := st.ListMessagesByConversation(context.Background(), 42, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "segunda tentativa", msgs[0].Content)
	assert.Len(t, broadcaster.all(), 1)
}

func TestSchedulerExhaustsAttempts(t *testing.T) {
	st := store.NewMockStore()
	broadcaster := &capturingBroadcaster{}
	completer := &scriptedCompleter{results: []completion{
		{err: errors.New("down")},
		{err: errors.New("still down")},
		{err: errors.New("dead")},
	}}
	sched := NewScheduler(completer, st, broadcaster, testPolicy(3), nil)

	sched.Submit(1, 42, "olá")
	require.NoError(t, sched.Close(time.Second))

	assert.Equal(t, 3, completer.callCount())
	assert.Empty(t, broadcaster.all())
}

func TestSchedulerPersistFailureSuppressesBroadcast(t *testing.T) {
	st := store.NewMockStore()
	st.CreateMessageErr = errors.New("disk full")
	broadcaster := &capturingBroadcaster{}
	completer := &scriptedCompleter{results: []completion{{reply: "resposta"}}}
	sched := NewScheduler(completer, st, broadcaster, testPolicy(1), nil)

	sched.Submit(1, 42, "olá")
	require.NoError(t, sched.Close(time.Second))

	assert.Empty(t, broadcaster.all())
}

func TestSchedulerCloseTimesOutOnStuckJob(t *testing.T) {
	st := store.NewMockStore()
	broadcaster := &capturingBroadcaster{}
	blocker := &blockingCompleter{release: make(chan struct{})}
	sched := NewScheduler(blocker, st, broadcaster, Policy{
		MaxAttempts:    1,
		RequestTimeout: time.Minute,
	}, nil)

	sched.Submit(1, 42, "olá")

	err := sched.Close(20 * time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(blocker.release)
	require.NoError(t, sched.Close(time.Second))
}

type blockingCompleter struct {
	release chan struct{}
}

func (b *blockingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return "", errors.New("released")
}
