package presence

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

const mirrorWriteTimeout = 2 * time.Second

// RedisMirror copies the online list into a Redis set so other processes can
// read it. Only the latest snapshot is kept; intermediate ones are skipped.
type RedisMirror struct {
	log    *slog.Logger
	write  func(ctx context.Context, online []string) error
	latest chan []string
	done   chan struct{}
}

func NewRedisMirror(log *slog.Logger, client redis.Cmdable, key string) *RedisMirror {
	return newMirror(log, func(ctx context.Context, online []string) error {
		_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if len(online) > 0 {
				pipe.SAdd(ctx, key, lo.ToAnySlice(online)...)
			}
			return nil
		})
		return err
	})
}

func newMirror(log *slog.Logger, write func(ctx context.Context, online []string) error) *RedisMirror {
	return &RedisMirror{
		log:    log,
		write:  write,
		latest: make(chan []string, 1),
		done:   make(chan struct{}),
	}
}

// PresenceChanged replaces any pending snapshot. Called with the registry
// lock held, so there is a single producer.
func (m *RedisMirror) PresenceChanged(online []string) {
	snapshot := slices.Clone(online)
	for {
		select {
		case m.latest <- snapshot:
			return
		default:
		}
		select {
		case <-m.latest:
		default:
		}
	}
}

// Run writes snapshots until ctx is done, then clears the set. Done is
// closed once the clearing write has returned.
func (m *RedisMirror) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case online := <-m.latest:
			m.flush(ctx, online)
		case <-ctx.Done():
			m.flush(context.Background(), nil)
			return
		}
	}
}

// Done is closed when Run has returned.
func (m *RedisMirror) Done() <-chan struct{} {
	return m.done
}

func (m *RedisMirror) flush(ctx context.Context, online []string) {
	wctx, cancel := context.WithTimeout(ctx, mirrorWriteTimeout)
	defer cancel()
	if err := m.write(wctx, online); err != nil {
		m.log.Warn("presence mirror write failed", "error", err, "online", len(online))
	}
}
