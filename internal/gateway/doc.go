// ABOUTME: Package gateway assembles and runs the chat-gateway server
// ABOUTME: Construction wires store, auth, hub, and scheduler; Run owns the HTTP lifecycle

// Package gateway wires the chat-gateway's components together and runs
// the HTTP server that fronts them.
//
// Component graph:
//
//	config → store (SQLite)
//	       → JWT verifier
//	       → presence registry
//	       → rooms
//	       → chat hub  ──── /chat (WebSocket)
//	       → ai scheduler  (replies flow back through the hub)
//	       → admin REST    /api/* (ADMIN bearer token)
//
// Shutdown order matters: the HTTP server stops accepting first, then
// live WebSocket clients are closed, then in-flight AI jobs drain, and
// the store closes last so a draining job can still persist its reply.
package gateway
