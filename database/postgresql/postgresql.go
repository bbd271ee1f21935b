package postgresql

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/google/uuid"
	"github.com/runbookhq/core/cache"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/logger"
)

//go:embed sql
var migrationFS embed.FS

// PostgreSQL persists the catalog in a rb_functions table. The save path
// takes a table lock inside its transaction so two concurrent saves cannot
// both pass the quota check.
type PostgreSQL struct {
	DB              *sql.DB
	PublishFunction cache.PublishFunctionEvent
	log             *logger.Logger

	limit int
}

func New(db *sql.DB, limit int, pubfn cache.PublishFunctionEvent, log *logger.Logger) (database.Persister, error) {
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("postgresql migration failed: %w", err)
	}

	return &PostgreSQL{
		DB:              db,
		PublishFunction: pubfn,
		log:             log,
		limit:           limit,
	}, nil
}

func migrate(db *sql.DB) error {
	entries, err := fs.ReadDir(migrationFS, "sql")
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := fs.ReadFile(migrationFS, "sql/"+name)
		if err != nil {
			return err
		}

		if _, err := db.Exec(string(b)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}

	return nil
}

func (pg *PostgreSQL) Ping() error {
	return pg.DB.Ping()
}

func (pg *PostgreSQL) NewID() string {
	return uuid.NewString()
}
