package users

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ageniuscoder/guffgaff/backend/internal/storage"
	"github.com/ageniuscoder/guffgaff/backend/internal/storage/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlite.New("file:" + filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return NewStore(db)
}

func TestStore_CreateAndLoad(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)

	u, err := s.Create(ctx, User{Username: "alice", FullName: "Alice A", PasswordHash: "h"})
	req.NoError(err)
	req.NotEmpty(u.ID)
	req.False(u.CreatedAt.IsZero())

	byName, err := s.ByUsername(ctx, "alice")
	req.NoError(err)
	req.Equal(u, byName)

	byID, err := s.ByID(ctx, u.ID)
	req.NoError(err)
	req.Equal(u, byID)

	ok, err := s.Exists(ctx, u.ID)
	req.NoError(err)
	req.True(ok)
}

func TestStore_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Create(ctx, User{Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = s.Create(ctx, User{Username: "alice", PasswordHash: "h2"})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestStore_NotFound(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.ByID(ctx, "nope")
	req.ErrorIs(err, ErrNotFound)
	_, err = s.ByUsername(ctx, "nope")
	req.ErrorIs(err, ErrNotFound)
	_, err = s.UpdateProfilePic(ctx, "nope", "x")
	req.ErrorIs(err, ErrNotFound)

	ok, err := s.Exists(ctx, "nope")
	req.NoError(err)
	req.False(ok)
}

func TestStore_ListExcept(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)

	carol, err := s.Create(ctx, User{Username: "carol", PasswordHash: "h"})
	req.NoError(err)
	alice, err := s.Create(ctx, User{Username: "alice", PasswordHash: "h"})
	req.NoError(err)
	_, err = s.Create(ctx, User{Username: "bob", PasswordHash: "h"})
	req.NoError(err)

	list, err := s.ListExcept(ctx, alice.ID)
	req.NoError(err)
	req.Len(list, 2)
	req.Equal("bob", list[0].Username)
	req.Equal(carol.ID, list[1].ID)
}

func TestStore_UpdateProfilePic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u, err := s.Create(ctx, User{Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)

	got, err := s.UpdateProfilePic(ctx, u.ID, "https://cdn.example/a.png")

	require.NoError(t, err)
	require.Equal(t, "https://cdn.example/a.png", got.ProfilePic)
}

func TestStore_Search(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	for _, name := range []string{"alice", "Malika", "bob", "alina"} {
		_, err := s.Create(ctx, User{Username: name, PasswordHash: "h"})
		req.NoError(err)
	}
	me, err := s.ByUsername(ctx, "alina")
	req.NoError(err)

	list, err := s.Search(ctx, "ALI", me.ID, 10)
	req.NoError(err)
	req.Len(list, 2)
	req.Equal("Malika", list[0].Username)
	req.Equal("alice", list[1].Username)

	list, err = s.Search(ctx, "ali", me.ID, 1)
	req.NoError(err)
	req.Len(list, 1)
}

func TestStore_SearchQuery_Postgres(t *testing.T) {
	s := &Store{dialect: storage.Postgres}

	got := s.q(searchQuery)

	require.Contains(t, got, "WHERE LOWER(username) LIKE $1 AND id <> $2")
	require.Contains(t, got, "LIMIT $3")
	require.NotContains(t, got, "?")
}
