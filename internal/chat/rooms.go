// ABOUTME: In-memory room manager grouping connections into per-conversation broadcast rooms
// ABOUTME: Membership is process-local and rebuilt from conversation ownership on reconnect

package chat

import (
	"log/slog"
	"sort"
	"sync"
)

// Rooms maintains, per connection, the set of conversation rooms it is
// subscribed to, and performs broadcast fan-out to a room's subscribers.
// Membership is never persisted; it is not a source of truth for
// authorization.
type Rooms struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{} // roomID -> subscribers
	byClient map[*Client]map[string]struct{} // client -> subscribed roomIDs
	logger   *slog.Logger
}

// NewRooms creates a room manager. Pass nil logger for default.
func NewRooms(logger *slog.Logger) *Rooms {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rooms{
		rooms:    make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
		logger:   logger.With("component", "rooms"),
	}
}

// Join subscribes the client to a room. Joining a room twice is a no-op.
func (r *Rooms) Join(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = make(map[*Client]struct{})
	}
	r.rooms[roomID][c] = struct{}{}

	if _, ok := r.byClient[c]; !ok {
		r.byClient[c] = make(map[string]struct{})
	}
	r.byClient[c][roomID] = struct{}{}

	r.logger.Debug("subscriber added", "room", roomID, "user_id", c.UserID())
}

// Leave unsubscribes the client from a room. Absence is a no-op, not an error.
func (r *Rooms) Leave(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(c, roomID)
}

// LeaveAll discards the client's whole subscription set, used on disconnect.
func (r *Rooms) LeaveAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.byClient[c] {
		r.removeLocked(c, roomID)
	}
}

// removeLocked removes one membership edge. Caller holds the write lock.
func (r *Rooms) removeLocked(c *Client, roomID string) {
	if subs, ok := r.rooms[roomID]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if set, ok := r.byClient[c]; ok {
		delete(set, roomID)
		if len(set) == 0 {
			delete(r.byClient, c)
		}
	}
}

// Broadcast delivers an event to every connection subscribed to the room,
// including the sender. Broadcasting to an unknown room is a no-op.
func (r *Rooms) Broadcast(roomID, event string, data any) {
	r.broadcast(roomID, nil, event, data)
}

// BroadcastExcept delivers an event to every subscriber except the sender,
// used for self-excluding events like typing indicators.
func (r *Rooms) BroadcastExcept(roomID string, sender *Client, event string, data any) {
	r.broadcast(roomID, sender, event, data)
}

func (r *Rooms) broadcast(roomID string, exclude *Client, event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		r.logger.Error("failed to encode broadcast", "room", roomID, "event", event, "error", err)
		return
	}

	r.mu.RLock()
	subs, ok := r.rooms[roomID]
	if !ok || len(subs) == 0 {
		r.mu.RUnlock()
		return
	}

	// Copy targets under read lock to avoid holding it during sends
	targets := make([]*Client, 0, len(subs))
	for c := range subs {
		if exclude != nil && c == exclude {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(payload) {
			// Subscriber queue full — drop event for this connection
			r.logger.Debug("dropped event for slow subscriber",
				"room", roomID,
				"event", event,
				"user_id", c.UserID())
		}
	}
}

// Contains reports whether the client is subscribed to the room.
func (r *Rooms) Contains(c *Client, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byClient[c][roomID]
	return ok
}

// RoomsOf returns a sorted snapshot of the client's subscribed rooms.
func (r *Rooms) RoomsOf(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byClient[c]))
	for roomID := range r.byClient[c] {
		ids = append(ids, roomID)
	}
	sort.Strings(ids)
	return ids
}

// Members returns a snapshot of the room's subscribers.
func (r *Rooms) Members(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Client, 0, len(r.rooms[roomID]))
	for c := range r.rooms[roomID] {
		members = append(members, c)
	}
	return members
}
