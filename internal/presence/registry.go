// Package presence tracks which users currently hold a live connection.
//
// A user maps to at most one connection: a newer connection for the same user
// replaces the older one, and only the connection on file can remove the entry.
// Every change is pushed to all registered connections as a getOnlineUsers event.
package presence

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/ageniuscoder/guffgaff/backend/internal/wire"
	"github.com/samber/lo"
)

// Conn is one live session as seen by the registry.
type Conn interface {
	// ID is unique per session and never reused.
	ID() string
	// Send enqueues payload without blocking. It reports false when the
	// connection is closed or cannot keep up.
	Send(payload []byte) bool
	// Close is idempotent.
	Close()
}

// Observer receives the full online list after every change, while the
// registry lock is held. Implementations must not block.
type Observer interface {
	PresenceChanged(online []string)
}

type Registry struct {
	log       *slog.Logger
	observers []Observer

	mu       sync.Mutex
	conns    map[string]Conn   // userID -> current connection
	byHandle map[string]string // connection ID -> userID
}

func NewRegistry(log *slog.Logger, observers ...Observer) *Registry {
	return &Registry{
		log:       log,
		observers: observers,
		conns:     make(map[string]Conn),
		byHandle:  make(map[string]string),
	}
}

// Register maps userID to conn, replacing any previous connection for that
// user. A connection without a user id is closed and never registered.
func (r *Registry) Register(userID string, conn Conn) bool {
	if userID == "" {
		r.log.Warn("connection without user id, closing", "conn", conn.ID())
		conn.Close()
		return false
	}

	r.mu.Lock()
	if prev, ok := r.conns[userID]; ok {
		delete(r.byHandle, prev.ID())
		r.log.Debug("connection superseded", "user", userID, "old", prev.ID(), "new", conn.ID())
	}
	r.conns[userID] = conn
	r.byHandle[conn.ID()] = userID
	failed := r.broadcastLocked()
	r.mu.Unlock()

	r.log.Info("user connected", "user", userID, "conn", conn.ID())
	r.dropAll(failed)
	return true
}

// Unregister removes conn if it is still the connection on file for its
// user. A superseded or unknown connection is ignored and false is returned.
func (r *Registry) Unregister(conn Conn) bool {
	r.mu.Lock()
	userID, ok := r.byHandle[conn.ID()]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.byHandle, conn.ID())
	delete(r.conns, userID)
	failed := r.broadcastLocked()
	r.mu.Unlock()

	r.log.Info("user disconnected", "user", userID, "conn", conn.ID())
	r.dropAll(failed)
	return true
}

// Drop unregisters and closes a connection that failed a send.
func (r *Registry) Drop(conn Conn) {
	r.log.Warn("dropping unresponsive connection", "conn", conn.ID())
	r.Unregister(conn)
	conn.Close()
}

// SendTo pushes payload to userID's connection if there is one. A failed
// send drops the connection.
func (r *Registry) SendTo(userID string, payload []byte) bool {
	conn, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	if !conn.Send(payload) {
		r.Drop(conn)
		return false
	}
	return true
}

func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// OnlineUserIDs returns the online users sorted by id.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onlineLocked()
}

func (r *Registry) onlineLocked() []string {
	ids := lo.Keys(r.conns)
	slices.Sort(ids)
	return ids
}

// broadcastLocked sends the online list to every connection. Sends never
// block, so holding the lock keeps every connection's view in change order.
// Connections that refused the frame are returned for dropping.
func (r *Registry) broadcastLocked() []Conn {
	online := r.onlineLocked()
	for _, o := range r.observers {
		o.PresenceChanged(online)
	}

	payload, err := wire.Encode(wire.EventOnlineUsers, online)
	if err != nil {
		r.log.Error("encode online users", "error", err)
		return nil
	}
	var failed []Conn
	for _, conn := range r.conns {
		if !conn.Send(payload) {
			failed = append(failed, conn)
		}
	}
	return failed
}

func (r *Registry) dropAll(conns []Conn) {
	for _, conn := range conns {
		r.Drop(conn)
	}
}
