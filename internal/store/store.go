// ABOUTME: Store interface and data types for chat-gateway persistence
// ABOUTME: Defines Conversation, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Sender identifies who authored a message.
type Sender string

// Sender values
const (
	SenderUser Sender = "USER"
	SenderBot  Sender = "BOT"
)

// Conversation represents a chat conversation owned by a single user
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	CompanyID int64     `json:"companyId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message represents a single message within a conversation
type Message struct {
	ID             string    `json:"id"`
	ConversationID int64     `json:"conversationId"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store defines the interface for conversation and message persistence.
// The gateway consumes it through this narrow surface; the REST CRUD
// service shares the same database but is not part of this process.
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	ListConversationsByUser(ctx context.Context, userID int64) ([]*Conversation, error)

	// ConversationOwnedBy reports whether the conversation exists and
	// belongs to the given user. A missing conversation is not an error;
	// it is simply not owned.
	ConversationOwnedBy(ctx context.Context, conversationID, userID int64) (bool, error)

	// Messages
	CreateMessage(ctx context.Context, msg *Message) error
	ListMessagesByConversation(ctx context.Context, conversationID int64, limit int) ([]*Message, error)

	// Close releases database resources
	Close() error
}
