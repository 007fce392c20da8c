package messages

import (
	"errors"
	"time"

	"github.com/samber/lo"
)

var (
	ErrEmptyMessage     = errors.New("message has no text, image or voice")
	ErrSelfConversation = errors.New("sender and receiver must differ")
)

// Message is immutable after creation except for HiddenFor, which only grows
// until the message is purged.
type Message struct {
	ID         int64     `json:"_id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	Voice      string    `json:"voice,omitempty"`
	HiddenFor  []string  `json:"hiddenFor"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (m Message) HiddenBy(userID string) bool {
	return lo.Contains(m.HiddenFor, userID)
}

// PairKey identifies the conversation between two users regardless of
// which one is asking.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
