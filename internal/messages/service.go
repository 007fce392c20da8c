package messages

import (
	"context"
	"log/slog"
	"strings"
)

// Deliverer pushes a stored message to its receiver if they are online.
type Deliverer interface {
	Deliver(m Message) bool
}

type SendInput struct {
	Text  string
	Image string
	Voice string
}

type Service struct {
	log       *slog.Logger
	store     Store
	locks     *PairLocks
	deliverer Deliverer
}

func NewService(log *slog.Logger, store Store, locks *PairLocks, deliverer Deliverer) *Service {
	return &Service{log: log, store: store, locks: locks, deliverer: deliverer}
}

// Send stores a message and pushes it to the receiver's live connection.
// The pair lock is held across both steps so a concurrent conversation
// delete never sees the message half way and pushes keep append order.
func (s *Service) Send(ctx context.Context, senderID, receiverID string, in SendInput) (Message, bool, error) {
	if senderID == receiverID {
		return Message{}, false, ErrSelfConversation
	}
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" && in.Image == "" && in.Voice == "" {
		return Message{}, false, ErrEmptyMessage
	}

	unlock := s.locks.Lock(senderID, receiverID)
	defer unlock()

	m, err := s.store.Append(ctx, Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       in.Text,
		Image:      in.Image,
		Voice:      in.Voice,
	})
	if err != nil {
		return Message{}, false, err
	}

	delivered := s.deliverer.Deliver(m)
	if !delivered {
		s.log.Debug("receiver offline, message stored only", "message", m.ID, "receiver", receiverID)
	}
	return m, delivered, nil
}

func (s *Service) List(ctx context.Context, viewerID, otherID string) ([]Message, error) {
	return s.store.ListVisibleTo(ctx, viewerID, otherID)
}
