package postgres

import (
	_ "embed"
	"fmt"

	"github.com/ageniuscoder/guffgaff/backend/internal/storage"
)

//go:embed schema.sql
var schema string

func (s *Postgres) Migrate() error {
	for _, st := range storage.SplitStatements(schema) {
		if _, err := s.Db.Exec(st); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
