package function

import (
	"errors"

	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/logger"
)

// Tracker records usage against stored functions. Accounting must not fail
// an execution, so errors are logged and swallowed.
type Tracker struct {
	DB  database.Persister
	Log *logger.Logger
}

// Track bumps the usage counter and last-used time for each named function.
// Runs after every execution that loaded them, whether it succeeded or not.
func (t *Tracker) Track(names []string) {
	for _, name := range names {
		if err := t.DB.TouchFunction(name); err != nil {
			if errors.Is(err, database.ErrFunctionNotFound) {
				t.Log.Warn().Msgf("usage tracked for unknown function %s", name)
				continue
			}

			t.Log.Warn().Err(err).Msgf("could not track usage for %s", name)
		}
	}
}
