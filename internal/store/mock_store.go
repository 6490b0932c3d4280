// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject failures

package store

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu            sync.RWMutex
	conversations map[int64]*Conversation
	messages      map[int64][]*Message // keyed by conversation ID
	nextID        int64

	// Injectable errors, returned by the corresponding method when set
	CreateConversationErr error
	ListConversationsErr  error
	OwnershipErr          error
	CreateMessageErr      error
	ListMessagesErr       error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		conversations: make(map[int64]*Conversation),
		messages:      make(map[int64][]*Message),
		nextID:        1,
	}
}

// CreateConversation stores a new conversation and assigns it an ID.
func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	if m.CreateConversationErr != nil {
		return m.CreateConversationErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if conv.ID == 0 {
		conv.ID = m.nextID
		m.nextID++
	} else if conv.ID >= m.nextID {
		m.nextID = conv.ID + 1
	}

	// Make a copy to avoid external modification
	c := *conv
	m.conversations[c.ID] = &c
	return nil
}

// GetConversation retrieves a conversation by ID.
func (m *MockStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *conv
	return &c, nil
}

// ListConversationsByUser returns the user's conversations, newest first.
func (m *MockStore) ListConversationsByUser(ctx context.Context, userID int64) ([]*Conversation, error) {
	if m.ListConversationsErr != nil {
		return nil, m.ListConversationsErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Conversation
	for _, conv := range m.conversations {
		if conv.UserID == userID {
			c := *conv
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// ConversationOwnedBy reports whether the conversation exists and belongs to the user.
func (m *MockStore) ConversationOwnedBy(ctx context.Context, conversationID, userID int64) (bool, error) {
	if m.OwnershipErr != nil {
		return false, m.OwnershipErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[conversationID]
	return ok && conv.UserID == userID, nil
}

// CreateMessage stores a new message.
func (m *MockStore) CreateMessage(ctx context.Context, msg *Message) error {
	if m.CreateMessageErr != nil {
		return m.CreateMessageErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msgCopy := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &msgCopy)
	return nil
}

// ListMessagesByConversation returns messages in chronological order.
func (m *MockStore) ListMessagesByConversation(ctx context.Context, conversationID int64, limit int) ([]*Message, error) {
	if m.ListMessagesErr != nil {
		return nil, m.ListMessagesErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	result := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		msgCopy := *msg
		result = append(result, &msgCopy)
	}
	return result, nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
