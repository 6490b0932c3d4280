// ABOUTME: Package chat implements the WebSocket chat surface of the gateway
// ABOUTME: Hub authenticates and registers connections, Rooms fan events out per conversation

// Package chat provides the real-time chat layer: authenticated WebSocket
// connections, per-conversation rooms, and the event dispatch that relays
// messages and typing indicators between them.
//
// The Hub is the entry point. It verifies the caller's token before the
// WebSocket upgrade, registers the connection in the presence registry,
// subscribes it to a room per conversation the user owns, and routes every
// subsequent client event through a panic-bounded dispatch loop. Handler
// failures are reported to the offending connection as an error event and
// never terminate the connection or affect other clients.
package chat
