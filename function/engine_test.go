package function

import (
	"testing"
	"time"

	"github.com/runbookhq/core/cache"
	"github.com/runbookhq/core/config"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/database/memory"
	"github.com/runbookhq/core/logger"
	"github.com/runbookhq/core/model"
)

func newTestEngine(t *testing.T) (*Engine, database.Persister) {
	t.Helper()

	cfg := config.AppConfig{AWSRegion: "us-east-1", MaxFunctions: 20}
	log := logger.Get(cfg)

	db := memory.New(cfg.MaxFunctions, nil)
	contexts := NewContextBuilder(cfg, nil, log)

	return NewEngine(db, cache.NewDevCache(), contexts, 5*time.Second, log), db
}

func saveTestFunction(t *testing.T, db database.Persister, name, code string) {
	t.Helper()

	if _, err := db.SaveFunction(model.Function{Name: name, Code: code, Category: model.CategoryGeneral}); err != nil {
		t.Fatalf("could not save %s: %v", name, err)
	}
}

func TestEngineExecutePreloadsFunctions(t *testing.T) {
	eng, db := newTestEngine(t)

	saveTestFunction(t, db, "double", `function double(n) { return n * 2; }`)

	res := eng.Execute(model.ExecutionRequest{
		Code:          `double(21)`,
		FunctionNames: []string{"double"},
	})

	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}

	if res.Value != int64(42) {
		t.Errorf("expected 42, got %v", res.Value)
	}

	fn, err := db.GetFunction("double")
	if err != nil {
		t.Fatal(err)
	}

	if fn.UsageCount != 1 {
		t.Errorf("expected usage count 1, got %d", fn.UsageCount)
	}

	if fn.LastUsedAt.IsZero() {
		t.Error("expected last used time to be stamped")
	}
}

func TestEngineTracksUsageOnFailedRun(t *testing.T) {
	eng, db := newTestEngine(t)

	saveTestFunction(t, db, "double", `function double(n) { return n * 2; }`)

	res := eng.Execute(model.ExecutionRequest{
		Code:          `double(1); noSuchFunction();`,
		FunctionNames: []string{"double"},
	})

	if res.Error == nil || res.Error.Kind != model.ErrorKindRuntime {
		t.Fatalf("expected a runtime error, got %v", res.Error)
	}

	fn, err := db.GetFunction("double")
	if err != nil {
		t.Fatal(err)
	}

	if fn.UsageCount != 1 {
		t.Errorf("failed runs still count as usage, got %d", fn.UsageCount)
	}
}

func TestEngineMissingFunctionAborts(t *testing.T) {
	eng, _ := newTestEngine(t)

	res := eng.Execute(model.ExecutionRequest{
		Code:          `log("should never run")`,
		FunctionNames: []string{"ghost"},
	})

	if res.Error == nil || res.Error.Kind != model.ErrorKindNotFound {
		t.Fatalf("expected a not_found error, got %v", res.Error)
	}

	if res.Output != "" {
		t.Errorf("nothing should execute when a preload is missing, got output %q", res.Output)
	}
}

func TestEngineTimeoutOverride(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.Timeout = 50 * time.Millisecond

	res := eng.Execute(model.ExecutionRequest{Code: `while (true) {}`})

	if res.Error == nil || res.Error.Kind != model.ErrorKindTimeout {
		t.Fatalf("expected a timeout error, got %v", res.Error)
	}
}

func TestEngineCountsExecutions(t *testing.T) {
	eng, _ := newTestEngine(t)

	eng.Execute(model.ExecutionRequest{Code: `1 + 1`})
	eng.Execute(model.ExecutionRequest{Code: `nope()`})

	n, err := eng.Volatile.Inc(ExecutionsKey, 0)
	if err != nil {
		t.Fatal(err)
	}

	if n != 2 {
		t.Errorf("expected 2 executions counted, got %d", n)
	}
}

func TestEngineUnknownProfileFallsBack(t *testing.T) {
	eng, _ := newTestEngine(t)

	ns := eng.Contexts.Build("not-a-profile")
	if ns.Profile != ProfileDefault {
		t.Errorf("expected the default profile, got %s", ns.Profile)
	}
}

func TestContextProfilesCarryBindings(t *testing.T) {
	eng, _ := newTestEngine(t)

	cases := []struct {
		profile string
		expr    string
	}{
		{ProfileDefault, `typeof aws`},
		{ProfileFinops, `typeof cost`},
		{ProfileDevops, `typeof ssh`},
		{ProfileDevops, `typeof infra`},
		{ProfileDevops, `typeof monitoring`},
		{ProfileSecurity, `typeof security`},
	}

	for _, c := range cases {
		res := eng.Execute(model.ExecutionRequest{Code: c.expr, Context: c.profile})
		if res.Error != nil {
			t.Fatalf("%s: unexpected error: %v", c.profile, res.Error)
		}

		if res.Value != "object" {
			t.Errorf("%s: expected %s to be an object, got %v", c.profile, c.expr, res.Value)
		}
	}
}
