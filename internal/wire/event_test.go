package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	b, err := Encode(EventConversationDeleted, ConversationEvent{UserID: "alice"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"conversationDeleted","data":{"userId":"alice"}}`, string(b))

	b, err = Encode(EventOnlineUsers, []string{"a", "b"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"getOnlineUsers","data":["a","b"]}`, string(b))
}
