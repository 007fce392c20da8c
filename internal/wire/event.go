// Package wire defines the JSON frames pushed to websocket clients.
package wire

import "encoding/json"

// Push event names understood by the browser client.
const (
	EventOnlineUsers             = "getOnlineUsers"
	EventNewMessage              = "newMessage"
	EventConversationDeleted     = "conversationDeleted"
	EventConversationHardDeleted = "conversationHardDeleted"
)

// Event is the envelope of every server push.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ConversationEvent tells the counterpart who deleted the conversation.
type ConversationEvent struct {
	UserID string `json:"userId"`
}

func Encode(eventType string, data any) ([]byte, error) {
	return json.Marshal(Event{Type: eventType, Data: data})
}
