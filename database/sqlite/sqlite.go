package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/runbookhq/core/cache"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/logger"
)

//go:embed sql
var migrationFS embed.FS

// SQLite persists the catalog in a single database file. Mutations are
// funneled through one mutex so a save's count check and insert cannot
// interleave with another writer.
type SQLite struct {
	DB              *sql.DB
	PublishFunction cache.PublishFunctionEvent
	log             *logger.Logger

	mu    sync.Mutex
	limit int
}

func New(db *sql.DB, limit int, pubfn cache.PublishFunctionEvent, log *logger.Logger) (database.Persister, error) {
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("sqlite migration failed: %w", err)
	}

	return &SQLite{
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

func (sl *SQLite) Ping() error {
	return sl.DB.Ping()
}

func (sl *SQLite) NewID() string {
	return uuid.NewString()
}
