package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/ageniuscoder/guffgaff/backend/internal/storage"
	_ "github.com/lib/pq"
)

type Postgres struct {
	Db *sql.DB
}

func New(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{
		Db: db,
	}, nil
}

func (s *Postgres) Handle() *sql.DB { return s.Db }

func (s *Postgres) Dialect() storage.Dialect { return storage.Postgres }

func (s *Postgres) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

func (s *Postgres) Close() error {
	return s.Db.Close()
}
