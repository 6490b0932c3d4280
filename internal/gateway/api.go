// ABOUTME: Admin REST handlers: presence queries and conversation pushes
// ABOUTME: Serves /api/presence and the notify/admin-message endpoints

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/atendeai/chat-gateway/internal/store"
)

// PresenceListResponse is the JSON response for GET /api/presence.
type PresenceListResponse struct {
	Online []int64 `json:"online"`
	Count  int     `json:"count"`
}

// PresenceResponse is the JSON response for GET /api/presence/{userID}.
type PresenceResponse struct {
	UserID int64 `json:"userId"`
	Online bool  `json:"online"`
}

// NotifyResponse is the JSON response for POST /api/conversations/{id}/notify.
// Delivered is false when the conversation's owner has no live connection.
type NotifyResponse struct {
	ConversationID int64 `json:"conversationId"`
	UserID         int64 `json:"userId"`
	Delivered      bool  `json:"delivered"`
}

// AdminMessageRequest is the JSON request body for
// POST /api/conversations/{id}/admin-message.
type AdminMessageRequest struct {
	Content string `json:"content"`
}

// AdminMessageResponse echoes the persisted message.
type AdminMessageResponse struct {
	Message *store.Message `json:"message"`
}

func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (g *Gateway) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handlePresenceList handles GET /api/presence. It returns the user IDs
// with a live connection, sorted ascending.
func (g *Gateway) handlePresenceList(w http.ResponseWriter, r *http.Request) {
	online := g.presence.ListOnline()
	g.sendJSON(w, PresenceListResponse{Online: online, Count: len(online)})
}

// handlePresenceGet handles GET /api/presence/{userID}.
func (g *Gateway) handlePresenceGet(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	g.sendJSON(w, PresenceResponse{UserID: userID, Online: g.presence.IsOnline(userID)})
}

// handleNotifyConversation handles POST /api/conversations/{id}/notify.
// It pushes a new_conversation event to the owner's live connection and
// joins that connection to the conversation's room. Offline owners are
// not an error; delivered is false.
func (g *Gateway) handleNotifyConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	conv, err := g.store.GetConversation(r.Context(), conversationID)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		g.logger.Error("failed to load conversation", "conversation_id", conversationID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	delivered := g.hub.NotifyNewConversation(conv.UserID, conv.ID)
	g.sendJSON(w, NotifyResponse{ConversationID: conv.ID, UserID: conv.UserID, Delivered: delivered})
}

// handleAdminMessage handles POST /api/conversations/{id}/admin-message.
// The message is persisted before broadcast, same as the WebSocket relay.
func (g *Gateway) handleAdminMessage(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req AdminMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		g.sendJSONError(w, http.StatusBadRequest, "content is required")
		return
	}

	if _, err := g.store.GetConversation(r.Context(), conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "conversation not found")
			return
		}
		g.logger.Error("failed to load conversation", "conversation_id", conversationID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Sender:         store.SenderBot,
		Content:        req.Content,
		CreatedAt:      time.Now(),
	}
	if err := g.store.CreateMessage(r.Context(), msg); err != nil {
		g.logger.Error("failed to persist admin message", "conversation_id", conversationID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.hub.NotifyAdminMessage(conversationID, msg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(AdminMessageResponse{Message: msg})
}
