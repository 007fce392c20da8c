package messages

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPairLocks_SameConversationIsSerialized(t *testing.T) {
	req := require.New(t)
	locks := NewPairLocks()

	unlock := locks.Lock("alice", "bob")
	acquired := make(chan struct{})
	go func() {
		// Same pair, other order
		u := locks.Lock("bob", "alice")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		req.Fail("lock acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		req.Fail("lock never released")
	}
}

func TestPairLocks_OtherConversationsDoNotWait(t *testing.T) {
	locks := NewPairLocks()
	unlock := locks.Lock("alice", "bob")
	defer unlock()

	done := make(chan struct{})
	go func() {
		locks.Lock("alice", "carol")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "unrelated conversation blocked")
	}
}

func TestPairLocks_EntriesAreReleased(t *testing.T) {
	locks := NewPairLocks()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("alice", "bob")()
		}()
	}
	wg.Wait()

	require.Zero(t, locks.size())
}
