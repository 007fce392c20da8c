package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ageniuscoder/guffgaff/backend/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrUserExists = errors.New("username already taken")
	ErrNotFound   = errors.New("user not found")
)

type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullName"`
	ProfilePic   string    `json:"profilePic"`
	CreatedAt    time.Time `json:"createdAt"`
	PasswordHash string    `json:"-"`
}

const searchQuery = `
		SELECT id, username, full_name, password_hash, profile_pic, created_at
		FROM users
		WHERE LOWER(username) LIKE ? AND id <> ?
		ORDER BY username
		LIMIT ?`

type Store struct {
	db      *sql.DB
	dialect storage.Dialect
	now     func() time.Time
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db.Handle(), dialect: db.Dialect(), now: time.Now}
}

func (s *Store) q(query string) string {
	return storage.Rebind(s.dialect, query)
}

// Create inserts u with a fresh id. A taken username yields ErrUserExists.
func (s *Store) Create(ctx context.Context, u User) (User, error) {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Unix(0, s.now().UTC().UnixNano()).UTC()

	var n int
	if err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(1) FROM users WHERE username = ?`), u.Username).Scan(&n); err != nil {
		return User{}, fmt.Errorf("check username: %w", err)
	}
	if n > 0 {
		return User{}, ErrUserExists
	}

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, username, full_name, password_hash, profile_pic, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		u.ID, u.Username, u.FullName, u.PasswordHash, u.ProfilePic, u.CreatedAt.UnixNano())
	if err != nil {
		// lost a race against another signup for the same name
		if storage.IsUniqueViolation(err) {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) ByUsername(ctx context.Context, username string) (User, error) {
	return s.one(ctx, `WHERE username = ?`, username)
}

func (s *Store) ByID(ctx context.Context, id string) (User, error) {
	return s.one(ctx, `WHERE id = ?`, id)
}

func (s *Store) one(ctx context.Context, where string, arg any) (User, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, username, full_name, password_hash, profile_pic, created_at
		FROM users `+where), arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// Exists reports whether id is a registered user.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(1) FROM users WHERE id = ?`), id).Scan(&n); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return n > 0, nil
}

// ListExcept returns every user but id, ordered by username.
func (s *Store) ListExcept(ctx context.Context, id string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, username, full_name, password_hash, profile_pic, created_at
		FROM users WHERE id <> ? ORDER BY username`), id)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	list := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return list, nil
}

// Search returns up to limit users whose username contains query,
// ignoring case, never including exceptID.
func (s *Store) Search(ctx context.Context, query, exceptID string, limit int) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, s.q(searchQuery), "%"+strings.ToLower(query)+"%", exceptID, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	list := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return list, nil
}

func (s *Store) UpdateProfilePic(ctx context.Context, id, pic string) (User, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET profile_pic = ? WHERE id = ?`), pic, id)
	if err != nil {
		return User{}, fmt.Errorf("update profile pic: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return User{}, ErrNotFound
	}
	return s.ByID(ctx, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (User, error) {
	var u User
	var at int64
	if err := sc.Scan(&u.ID, &u.Username, &u.FullName, &u.PasswordHash, &u.ProfilePic, &at); err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Unix(0, at).UTC()
	return u, nil
}
