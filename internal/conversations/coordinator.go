package conversations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ageniuscoder/guffgaff/backend/internal/messages"
	"github.com/ageniuscoder/guffgaff/backend/internal/wire"
)

const (
	MsgPermanentlyDeleted = "Conversation permanently deleted"
	MsgDeletedForYou      = "Conversation deleted for you"
)

// Notifier pushes an event to a user if they are online.
type Notifier interface {
	Notify(userID, eventType string, payload any) bool
}

// Outcome is what the requester is told after a delete.
type Outcome struct {
	Message string `json:"message"`
	Deleted bool   `json:"deleted"`
}

type Coordinator struct {
	log      *slog.Logger
	store    messages.Store
	locks    *messages.PairLocks
	notifier Notifier
}

func NewCoordinator(log *slog.Logger, store messages.Store, locks *messages.PairLocks, notifier Notifier) *Coordinator {
	return &Coordinator{log: log, store: store, locks: locks, notifier: notifier}
}

// RequestDelete hides the conversation with otherID for requesterID. When
// that leaves every message hidden by both users the conversation is purged
// and the other side is told it is gone for good; otherwise the other side
// is told requesterID deleted it. Nothing is pushed if a store step fails.
func (co *Coordinator) RequestDelete(ctx context.Context, requesterID, otherID string) (Outcome, error) {
	if requesterID == otherID {
		return Outcome{}, messages.ErrSelfConversation
	}

	unlock := co.locks.Lock(requesterID, otherID)
	defer unlock()

	if err := co.store.MarkHiddenForAll(ctx, requesterID, otherID, requesterID); err != nil {
		return Outcome{}, fmt.Errorf("hide conversation: %w", err)
	}
	msgs, err := co.store.ListConversation(ctx, requesterID, otherID)
	if err != nil {
		return Outcome{}, fmt.Errorf("reload conversation: %w", err)
	}

	state := Evaluate(msgs, requesterID, otherID)
	evt := wire.ConversationEvent{UserID: requesterID}

	if state != HiddenByBoth {
		co.notifier.Notify(otherID, wire.EventConversationDeleted, evt)
		co.log.Info("conversation hidden", "by", requesterID, "other", otherID, "state", state.String())
		return Outcome{Message: MsgDeletedForYou, Deleted: false}, nil
	}

	n, err := co.store.PurgeFullyHidden(ctx, requesterID, otherID)
	if err != nil {
		return Outcome{}, fmt.Errorf("purge conversation: %w", err)
	}
	if n > 0 {
		co.notifier.Notify(otherID, wire.EventConversationHardDeleted, evt)
	}
	co.log.Info("conversation purged", "by", requesterID, "other", otherID, "messages", n)
	return Outcome{Message: MsgPermanentlyDeleted, Deleted: true}, nil
}
