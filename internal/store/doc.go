// Package store provides persistence for chat-gateway.
//
// # Overview
//
// The gateway persists two entity types:
//
//   - Conversation: a chat conversation owned by exactly one user
//   - Message: a single message inside a conversation, authored by
//     either the user ("USER") or the AI assistant ("BOT")
//
// The live gateway only needs a narrow slice of the database: listing a
// user's conversations on connect, checking conversation ownership on
// join/send, and appending messages. The full CRUD surface (users,
// companies, conversation management) lives in a separate REST service
// that shares the same database.
//
// # Implementations
//
//   - SQLiteStore: production implementation backed by modernc.org/sqlite
//     with WAL mode and automatic schema creation
//   - MockStore: in-memory implementation for tests, with injectable
//     per-method errors
//
// # Ownership Semantics
//
// ConversationOwnedBy returns (false, nil) both when the conversation
// belongs to another user and when it does not exist at all. Callers that
// need to distinguish the two cases use GetConversation, which returns
// ErrNotFound.
package store
