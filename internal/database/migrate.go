package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// The album schema ships inside the binary; a fresh database is fully
// migrated on first start with no external files.
//
//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the album schema up to date, applying any embedded
// migrations the database has not seen yet.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}
