package messages

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ageniuscoder/guffgaff/backend/internal/storage"
)

// Store is the persisted log of two-party conversations.
type Store interface {
	// Append persists m with a fresh id and timestamp.
	Append(ctx context.Context, m Message) (Message, error)
	// ListVisibleTo returns the conversation between viewerID and otherID in
	// creation order, without the messages viewerID has hidden.
	ListVisibleTo(ctx context.Context, viewerID, otherID string) ([]Message, error)
	// ListConversation returns the whole conversation, hidden messages included.
	ListConversation(ctx context.Context, a, b string) ([]Message, error)
	// MarkHiddenForAll adds hidingUserID to every message of the conversation.
	MarkHiddenForAll(ctx context.Context, a, b, hidingUserID string) error
	// PurgeFullyHidden deletes the messages hidden by both a and b and
	// returns how many were removed.
	PurgeFullyHidden(ctx context.Context, a, b string) (int64, error)
}

const markHiddenQuery = `
		INSERT INTO message_hidden (message_id, user_id)
		SELECT id, CAST(? AS TEXT) FROM messages WHERE pair_key = ?
		ON CONFLICT DO NOTHING`

type SQLStore struct {
	db      *sql.DB
	dialect storage.Dialect
	now     func() time.Time
}

func NewSQLStore(db storage.Database) *SQLStore {
	return &SQLStore{
		db:      db.Handle(),
		dialect: db.Dialect(),
		now:     time.Now,
	}
}

func (s *SQLStore) q(query string) string {
	return storage.Rebind(s.dialect, query)
}

func (s *SQLStore) Append(ctx context.Context, m Message) (Message, error) {
	createdAt := s.now().UTC()
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO messages (pair_key, sender_id, receiver_id, text, image, voice, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		PairKey(m.SenderID, m.ReceiverID), m.SenderID, m.ReceiverID,
		m.Text, m.Image, m.Voice, createdAt.UnixNano(),
	).Scan(&m.ID)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	m.CreatedAt = time.Unix(0, createdAt.UnixNano()).UTC()
	m.HiddenFor = []string{}
	return m, nil
}

func (s *SQLStore) ListVisibleTo(ctx context.Context, viewerID, otherID string) ([]Message, error) {
	return s.list(ctx, PairKey(viewerID, otherID), viewerID)
}

func (s *SQLStore) ListConversation(ctx context.Context, a, b string) ([]Message, error) {
	return s.list(ctx, PairKey(a, b), "")
}

// readTxOptions makes both reads of list see one snapshot. SQLite
// transactions already do; Postgres needs more than READ COMMITTED.
func (s *SQLStore) readTxOptions() *sql.TxOptions {
	if s.dialect == storage.Postgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// list loads a conversation. A non-empty viewer filters out what it hid.
func (s *SQLStore) list(ctx context.Context, pairKey, viewer string) ([]Message, error) {
	tx, err := s.db.BeginTx(ctx, s.readTxOptions())
	if err != nil {
		return nil, fmt.Errorf("begin list: %w", err)
	}
	defer tx.Rollback()

	list, index, err := s.loadMessages(ctx, tx, pairKey, viewer)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		if err := s.attachHidden(ctx, tx, pairKey, list, index); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit list: %w", err)
	}
	return list, nil
}

func (s *SQLStore) loadMessages(ctx context.Context, tx *sql.Tx, pairKey, viewer string) ([]Message, map[int64]int, error) {
	query := `
		SELECT m.id, m.sender_id, m.receiver_id, m.text, m.image, m.voice, m.created_at
		FROM messages m
		WHERE m.pair_key = ?`
	args := []any{pairKey}
	if viewer != "" {
		query += `
		AND NOT EXISTS (
			SELECT 1 FROM message_hidden h WHERE h.message_id = m.id AND h.user_id = ?)`
		args = append(args, viewer)
	}
	query += `
		ORDER BY m.created_at ASC, m.id ASC`

	rows, err := tx.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	list := []Message{}
	index := map[int64]int{}
	for rows.Next() {
		var m Message
		var at int64
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &m.Image, &m.Voice, &at); err != nil {
			return nil, nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = time.Unix(0, at).UTC()
		m.HiddenFor = []string{}
		index[m.ID] = len(list)
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate messages: %w", err)
	}
	return list, index, nil
}

func (s *SQLStore) attachHidden(ctx context.Context, tx *sql.Tx, pairKey string, list []Message, index map[int64]int) error {
	rows, err := tx.QueryContext(ctx, s.q(`
		SELECT h.message_id, h.user_id
		FROM message_hidden h
		JOIN messages m ON m.id = h.message_id
		WHERE m.pair_key = ?
		ORDER BY h.message_id, h.user_id`), pairKey)
	if err != nil {
		return fmt.Errorf("list hidden marks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var uid string
		if err := rows.Scan(&id, &uid); err != nil {
			return fmt.Errorf("scan hidden mark: %w", err)
		}
		// marks of messages filtered out for the viewer
		if i, ok := index[id]; ok {
			list[i].HiddenFor = append(list[i].HiddenFor, uid)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate hidden marks: %w", err)
	}
	return nil
}

func (s *SQLStore) MarkHiddenForAll(ctx context.Context, a, b, hidingUserID string) error {
	_, err := s.db.ExecContext(ctx, s.q(markHiddenQuery), hidingUserID, PairKey(a, b))
	if err != nil {
		return fmt.Errorf("mark conversation hidden: %w", err)
	}
	return nil
}

func (s *SQLStore) PurgeFullyHidden(ctx context.Context, a, b string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, s.q(`
		SELECT m.id FROM messages m
		WHERE m.pair_key = ?
		AND EXISTS (SELECT 1 FROM message_hidden h WHERE h.message_id = m.id AND h.user_id = ?)
		AND EXISTS (SELECT 1 FROM message_hidden h WHERE h.message_id = m.id AND h.user_id = ?)`),
		PairKey(a, b), a, b)
	if err != nil {
		return 0, fmt.Errorf("select purgeable: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan purgeable: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate purgeable: %w", err)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM message_hidden WHERE message_id = ?`), id); err != nil {
			return 0, fmt.Errorf("purge hidden marks of %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM messages WHERE id = ?`), id); err != nil {
			return 0, fmt.Errorf("purge message %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purge: %w", err)
	}
	return int64(len(ids)), nil
}
