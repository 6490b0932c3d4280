// ABOUTME: Central coordinator for chat connections: handshake auth, registration, and event dispatch
// ABOUTME: Relays messages with ownership checks and hands prompts to the AI reply scheduler

package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/atendeai/chat-gateway/internal/auth"
	"github.com/atendeai/chat-gateway/internal/presence"
	"github.com/atendeai/chat-gateway/internal/store"
)

// storeTimeout bounds each per-event store call.
const storeTimeout = 5 * time.Second

// ReplyScheduler accepts AI reply jobs. Submission never blocks and the
// outcome is not awaited by the relay.
type ReplyScheduler interface {
	Submit(userID, conversationID int64, prompt string)
}

// Hub owns the live side of the chat service: it authenticates handshakes,
// registers connections, subscribes them to their conversation rooms, and
// dispatches client events.
type Hub struct {
	verifier  auth.TokenVerifier
	store     store.Store
	presence  *presence.Registry
	rooms     *Rooms
	scheduler ReplyScheduler
	upgrader  websocket.Upgrader
	logger    *slog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates a hub. allowedOrigins lists origins accepted during the
// WebSocket upgrade; empty means gorilla's same-origin default.
func NewHub(verifier auth.TokenVerifier, st store.Store, registry *presence.Registry, rooms *Rooms, allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		verifier: verifier,
		store:    st,
		presence: registry,
		rooms:    rooms,
		logger:   logger.With("component", "chat"),
		clients:  make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(allowedOrigins))
		for _, origin := range allowedOrigins {
			allowed[origin] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
	return h
}

// SetReplyScheduler wires the AI reply scheduler. A nil scheduler disables
// AI replies; messages still relay normally.
func (h *Hub) SetReplyScheduler(s ReplyScheduler) {
	h.scheduler = s
}

// ServeHTTP handles the chat handshake. Authentication failure is the only
// error that terminates the connection itself: the handshake is rejected
// before the upgrade, so no event is ever emitted to an unauthenticated
// peer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		h.logger.Debug("handshake without token", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Debug("handshake token rejected", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		h.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(h, conn, identity)
	h.register(client)

	go client.writePump()
	go client.readPump()
}

// register records the connection, marks the user present, and subscribes
// the connection to one room per conversation the user currently owns.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.presence.Register(c)
	h.joinOwnedConversations(c)

	c.logger.Info("user connected to chat")
}

// joinOwnedConversations bulk-joins the caller's conversation rooms. The
// list is already scoped to the user, so no per-room ownership re-check is
// needed. A store failure leaves the connection up with no subscriptions;
// the client can still join rooms explicitly.
func (h *Hub) joinOwnedConversations(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	conversations, err := h.store.ListConversationsByUser(ctx, c.UserID())
	if err != nil {
		c.logger.Error("failed to load conversations on connect", "error", err)
		return
	}

	for _, conv := range conversations {
		h.rooms.Join(c, RoomID(conv.ID))
	}

	c.logger.Debug("joined owned conversations", "count", len(conversations))
}

// disconnect tears a connection down: deregister (compare-and-remove, so a
// stale disconnect cannot erase a newer registration), discard the room
// set, and close the transport. No departure notification is sent.
func (h *Hub) disconnect(c *Client) {
	h.mu.Lock()
	_, known := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if !known {
		return
	}

	h.presence.Unregister(c)
	h.rooms.LeaveAll(c)
	c.shutdown()

	c.logger.Info("user disconnected from chat")
}

// dispatch handles one inbound event. Failures are caught here and become
// a scoped error event on the same connection; no event can take down the
// process or affect other connections.
func (h *Hub) dispatch(c *Client, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in event handler", "panic", r)
			c.SendError(errMsgEventFailed)
		}
	}()

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Debug("malformed event", "error", err)
		c.SendError(errMsgBadPayload)
		return
	}

	switch env.Event {
	case EventJoinConversation:
		h.handleJoinConversation(c, env.Data)
	case EventLeaveConversation:
		h.handleLeaveConversation(c, env.Data)
	case EventSendMessage:
		h.handleSendMessage(c, env.Data)
	case EventTypingStart:
		h.handleTyping(c, env.Data, true)
	case EventTypingStop:
		h.handleTyping(c, env.Data, false)
	default:
		c.logger.Debug("unknown event", "event", env.Event)
		c.SendError(errMsgUnknownEvent)
	}
}

// handleJoinConversation re-verifies ownership against the store before
// subscribing; membership is never trusted on its own.
func (h *Hub) handleJoinConversation(c *Client, data json.RawMessage) {
	var payload ConversationRef
	if err := json.Unmarshal(data, &payload); err != nil {
		c.SendError(errMsgBadPayload)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	owned, err := h.store.ConversationOwnedBy(ctx, payload.ConversationID, c.UserID())
	if err != nil {
		c.logger.Error("ownership check failed on join", "conversation_id", payload.ConversationID, "error", err)
		c.SendError(errMsgJoinFailed)
		return
	}
	if !owned {
		c.SendError(errMsgAccessDenied)
		return
	}

	h.rooms.Join(c, RoomID(payload.ConversationID))
	c.Send(EventJoinedConversation, &ConversationRef{ConversationID: payload.ConversationID})
}

// handleLeaveConversation unsubscribes; leaving a room the connection is
// not in is a no-op, not an error.
func (h *Hub) handleLeaveConversation(c *Client, data json.RawMessage) {
	var payload ConversationRef
	if err := json.Unmarshal(data, &payload); err != nil {
		c.SendError(errMsgBadPayload)
		return
	}

	h.rooms.Leave(c, RoomID(payload.ConversationID))
	c.Send(EventLeftConversation, &ConversationRef{ConversationID: payload.ConversationID})
}

// handleSendMessage relays a chat message through ordered hard gates:
// ownership, persistence, broadcast, then AI reply submission. Each gate
// aborts the rest on failure. The user's message is always broadcast
// before any AI reply for the same exchange because the job is submitted
// only after the broadcast completes.
func (h *Hub) handleSendMessage(c *Client, data json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.SendError(errMsgBadPayload)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	owned, err := h.store.ConversationOwnedBy(ctx, payload.ConversationID, c.UserID())
	if err != nil {
		c.logger.Error("ownership check failed on send", "conversation_id", payload.ConversationID, "error", err)
		c.SendError(errMsgAccessDenied)
		return
	}
	if !owned {
		c.SendError(errMsgAccessDenied)
		return
	}

	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: payload.ConversationID,
		Sender:         store.SenderUser,
		Content:        payload.Content,
		CreatedAt:      time.Now(),
	}
	if err := h.store.CreateMessage(ctx, msg); err != nil {
		c.logger.Error("failed to persist message", "conversation_id", payload.ConversationID, "error", err)
		c.SendError(errMsgSendFailed)
		return
	}

	h.rooms.Broadcast(RoomID(payload.ConversationID), EventNewMessage, &MessagePayload{
		Message:        msg,
		ConversationID: payload.ConversationID,
	})

	if h.scheduler != nil {
		h.scheduler.Submit(c.UserID(), payload.ConversationID, payload.Content)
	}
}

// handleTyping relays typing indicators to the rest of the room. This is a
// stateless pass-through: nothing is persisted and, beyond requiring an
// authenticated connection, no ownership check is performed.
func (h *Hub) handleTyping(c *Client, data json.RawMessage, isTyping bool) {
	var payload ConversationRef
	if err := json.Unmarshal(data, &payload); err != nil {
		c.SendError(errMsgBadPayload)
		return
	}

	h.rooms.BroadcastExcept(RoomID(payload.ConversationID), c, EventUserTyping, &UserTypingPayload{
		UserID:         c.UserID(),
		ConversationID: payload.ConversationID,
		IsTyping:       isTyping,
	})
}

// BroadcastNewMessage pushes a persisted message into its conversation
// room. The AI scheduler uses it to deliver bot replies.
func (h *Hub) BroadcastNewMessage(conversationID int64, msg *store.Message) {
	h.rooms.Broadcast(RoomID(conversationID), EventNewMessage, &MessagePayload{
		Message:        msg,
		ConversationID: conversationID,
	})
}

// NotifyNewConversation tells a user's live connection about a
// conversation created outside the socket (e.g. by an admin) and joins the
// connection to its room. Returns false when the user is offline.
func (h *Hub) NotifyNewConversation(userID, conversationID int64) bool {
	conn, ok := h.presence.Get(userID)
	if !ok {
		return false
	}
	client, ok := conn.(*Client)
	if !ok {
		return false
	}

	h.rooms.Join(client, RoomID(conversationID))
	client.Send(EventNewConversation, &ConversationRef{ConversationID: conversationID})
	return true
}

// NotifyAdminMessage broadcasts an admin-authored message to a
// conversation's room.
func (h *Hub) NotifyAdminMessage(conversationID int64, msg *store.Message) {
	h.rooms.Broadcast(RoomID(conversationID), EventAdminMessage, &MessagePayload{
		Message:        msg,
		ConversationID: conversationID,
	})
}

// Shutdown closes every live connection. In-flight AI jobs are owned by
// the scheduler and are not cancelled here.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.disconnect(c)
	}

	h.logger.Info("chat hub shut down", "closed_connections", len(clients))
}
