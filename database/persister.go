package database

import (
	"errors"

	"github.com/runbookhq/core/model"
)

const (
	DataStorePostgreSQL = "postgresql"
	DataStoreSQLite     = "sqlite"
	DataStoreMemory     = "memory"
)

var (
	// ErrFunctionNotFound is returned for any operation on a name that has
	// no live function.
	ErrFunctionNotFound = errors.New("function not found")
	// ErrQuotaExceeded is returned when saving a new name while the catalog
	// is at its configured maximum.
	ErrQuotaExceeded = errors.New("maximum function limit reached, delete a function first")
)

// Persister is the durable function catalog. Implementations serialize
// every mutation against every other mutation on the same instance, so the
// count-check-then-write sequence in SaveFunction can never overshoot the
// maximum. Reads may run concurrently but always observe fully written
// records.
type Persister interface {
	// Ping sends a ping to the db engine
	Ping() error
	// NewID generates a unique identifier
	NewID() string

	// SaveFunction inserts a new function or updates the record in place
	// when the name already exists. New names are rejected with
	// ErrQuotaExceeded at capacity. Timestamps and version are owned by the
	// store; usage statistics are left untouched on update.
	SaveFunction(fn model.Function) (model.Function, error)
	// GetFunction returns a function by its unique name
	GetFunction(name string) (model.Function, error)
	// ListFunctions returns functions in creation order, optionally
	// filtered by exact category and by tag intersection
	ListFunctions(category string, tags []string) ([]model.Function, error)
	// DeleteFunction removes a function by name
	DeleteFunction(name string) error
	// TouchFunction increments the usage counter and stamps the last
	// invocation time
	TouchFunction(name string) error
	// CountFunctions returns the number of live functions
	CountFunctions() (int, error)
}
