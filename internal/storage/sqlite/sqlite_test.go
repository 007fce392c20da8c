package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ageniuscoder/guffgaff/backend/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestNewAndMigrate(t *testing.T) {
	req := require.New(t)
	db, err := New("file:" + filepath.Join(t.TempDir(), "chat.db"))
	req.NoError(err)
	defer db.Close()

	req.NoError(db.Ping(context.Background()))
	req.Equal(storage.SQLite, db.Dialect())

	// Migrations are idempotent
	req.NoError(db.Migrate())
	req.NoError(db.Migrate())

	var n int
	err = db.Handle().QueryRow(
		`SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name IN ('users','messages','message_hidden')`,
	).Scan(&n)
	req.NoError(err)
	req.Equal(3, n)
}
