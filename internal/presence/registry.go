// ABOUTME: Process-wide registry mapping user ids to their live connection
// ABOUTME: Single source for presence queries, guarded by a RWMutex

package presence

import (
	"log/slog"
	"sort"
	"sync"
)

// Conn is a live client connection tracked by the registry. The registry
// only needs the identity of the connected user; the concrete type is the
// gateway's client.
type Conn interface {
	UserID() int64
}

// Registry tracks which user is attached to which live connection.
// At most one connection is registered per user: a new registration for
// the same user overwrites the previous one, so multi-device users appear
// present only via their most recent connection.
type Registry struct {
	mu     sync.RWMutex
	conns  map[int64]Conn
	logger *slog.Logger
}

// NewRegistry creates a registry. Pass nil logger for default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:  make(map[int64]Conn),
		logger: logger.With("component", "presence"),
	}
}

// Register records conn as the user's current connection, unconditionally
// replacing any prior entry for the same user.
func (r *Registry) Register(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := conn.UserID()
	if _, replaced := r.conns[userID]; replaced {
		r.logger.Debug("connection superseded", "user_id", userID)
	}
	r.conns[userID] = conn

	r.logger.Info("user connected",
		"user_id", userID,
		"total_online", len(r.conns),
	)
}

// Unregister removes the user's entry only if the stored connection is the
// given one. A stale disconnect from a superseded connection must not erase
// the newer registration.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := conn.UserID()
	if current, ok := r.conns[userID]; !ok || current != conn {
		return
	}

	delete(r.conns, userID)
	r.logger.Info("user disconnected",
		"user_id", userID,
		"total_online", len(r.conns),
	)
}

// IsOnline reports whether the user currently has a registered connection.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conns[userID]
	return ok
}

// Get returns the user's current connection, if any.
func (r *Registry) Get(userID int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// ListOnline returns a sorted snapshot of currently registered user ids.
func (r *Registry) ListOnline() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
