// Package delivery pushes events to a user's live connection, if any.
//
// Delivery is best effort and at most once: offline users get nothing and
// catch up from the conversation store, nothing is queued or retried.
package delivery

import (
	"log/slog"

	"github.com/ageniuscoder/guffgaff/backend/internal/messages"
	"github.com/ageniuscoder/guffgaff/backend/internal/wire"
)

// Sender is the send-if-online operation of the presence registry.
type Sender interface {
	SendTo(userID string, payload []byte) bool
}

type Router struct {
	log    *slog.Logger
	sender Sender
}

func NewRouter(log *slog.Logger, sender Sender) *Router {
	return &Router{log: log, sender: sender}
}

// Deliver pushes m to its receiver as a newMessage event.
func (r *Router) Deliver(m messages.Message) bool {
	return r.Notify(m.ReceiverID, wire.EventNewMessage, m)
}

// Notify pushes an event to userID and reports whether it was handed to a
// live connection.
func (r *Router) Notify(userID, eventType string, payload any) bool {
	frame, err := wire.Encode(eventType, payload)
	if err != nil {
		r.log.Error("encode push event", "type", eventType, "error", err)
		return false
	}
	if !r.sender.SendTo(userID, frame) {
		r.log.Debug("push skipped, user offline", "user", userID, "type", eventType)
		return false
	}
	return true
}
