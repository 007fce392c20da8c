// Package conversations decides what happens when a user deletes a
// two-party conversation: hide it for them, or purge it once both sides
// have hidden it.
package conversations

import (
	"github.com/ageniuscoder/guffgaff/backend/internal/messages"
	"github.com/samber/lo"
)

type State int

const (
	// Visible means at least one message is hidden by neither side.
	Visible State = iota
	// HiddenByOne means one side hid everything but the other has not.
	HiddenByOne
	// HiddenByBoth means every message is hidden by both sides.
	HiddenByBoth
)

func (s State) String() string {
	switch s {
	case Visible:
		return "visible"
	case HiddenByOne:
		return "hidden-by-one"
	case HiddenByBoth:
		return "hidden-by-both"
	default:
		return "unknown"
	}
}

// Evaluate classifies the conversation between a and b. The rule is
// conversation wide: it is HiddenByBoth only if every message is hidden by
// both users. An empty conversation counts as HiddenByBoth.
func Evaluate(msgs []messages.Message, a, b string) State {
	byA := lo.EveryBy(msgs, func(m messages.Message) bool { return m.HiddenBy(a) })
	byB := lo.EveryBy(msgs, func(m messages.Message) bool { return m.HiddenBy(b) })
	switch {
	case byA && byB:
		return HiddenByBoth
	case byA || byB:
		return HiddenByOne
	default:
		return Visible
	}
}
