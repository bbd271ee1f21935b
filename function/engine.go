package function

import (
	"errors"
	"fmt"
	"time"

	"github.com/runbookhq/core/cache"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/logger"
	"github.com/runbookhq/core/model"
)

// ExecutionsKey tallies runs across the process in the volatile store.
const ExecutionsKey = "rb:executions"

// Engine ties the sandbox to the catalog: it resolves preloads, runs code
// inside a bounded environment and settles usage accounting afterwards.
type Engine struct {
	DB       database.Persister
	Volatile cache.Volatilizer
	Contexts *ContextBuilder
	Tracker  *Tracker
	Timeout  time.Duration
	Log      *logger.Logger
}

func NewEngine(db database.Persister, volatile cache.Volatilizer, contexts *ContextBuilder, timeout time.Duration, log *logger.Logger) *Engine {
	return &Engine{
		DB:       db,
		Volatile: volatile,
		Contexts: contexts,
		Tracker:  &Tracker{DB: db, Log: log},
		Timeout:  timeout,
		Log:      log,
	}
}

// Execute runs one request. A missing preload aborts before any code runs;
// once execution starts, every named function is charged for the run even
// when the run fails.
func (e *Engine) Execute(req model.ExecutionRequest) model.ExecutionResult {
	preloaded, execErr := e.resolve(req.FunctionNames)
	if execErr != nil {
		return model.FailedResult("", execErr)
	}

	timeout := e.Timeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	env := &ExecutionEnvironment{
		Namespace: e.Contexts.Build(req.Context),
		Preloaded: preloaded,
		Timeout:   timeout,
		Log:       e.Log,
	}

	started := time.Now()
	res := env.Execute(req.Code)

	e.Log.Info().
		Str("context", env.Namespace.Profile).
		Bool("ok", res.OK).
		Dur("elapsed", time.Since(started)).
		Msg("code executed")

	if len(req.FunctionNames) > 0 {
		e.Tracker.Track(req.FunctionNames)
	}

	if _, err := e.Volatile.Inc(ExecutionsKey, 1); err != nil {
		e.Log.Warn().Err(err).Msg("could not increment execution counter")
	}

	return res
}

func (e *Engine) resolve(names []string) ([]model.Function, *model.ExecError) {
	var fns []model.Function
	for _, name := range names {
		fn, err := e.DB.GetFunction(name)
		if err != nil {
			if errors.Is(err, database.ErrFunctionNotFound) {
				return nil, &model.ExecError{
					Kind:    model.ErrorKindNotFound,
					Message: fmt.Sprintf("function %s does not exist", name),
				}
			}

			return nil, &model.ExecError{
				Kind:    model.ErrorKindStorage,
				Message: fmt.Sprintf("could not load function %s: %v", name, err),
			}
		}

		fns = append(fns, fn)
	}

	return fns, nil
}
