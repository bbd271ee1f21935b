package sqlite

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/runbookhq/core/config"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/logger"
	"github.com/runbookhq/core/model"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) database.Persister {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "functions.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := New(db, 3, nil, logger.Get(config.AppConfig{}))
	if err != nil {
		t.Fatal(err)
	}

	return store
}

func TestSaveAndGetFunction(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.SaveFunction(model.Function{
		Name:        "report",
		Code:        `function report() { return "ok"; }`,
		Description: "daily status report",
		Tags:        []string{"ops", "daily"},
		Category:    "ops",
	})
	if err != nil {
		t.Fatal(err)
	}

	if saved.Version != 1 {
		t.Errorf("expected version 1, got %d", saved.Version)
	}

	got, err := store.GetFunction("report")
	if err != nil {
		t.Fatal(err)
	}

	if got.Description != "daily status report" {
		t.Errorf("unexpected description %q", got.Description)
	}

	if len(got.Tags) != 2 || got.Tags[0] != "ops" {
		t.Errorf("tags did not round-trip, got %v", got.Tags)
	}

	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be stamped")
	}

	if !got.LastUsedAt.IsZero() {
		t.Errorf("a fresh function was never used, got %v", got.LastUsedAt)
	}
}

func TestSaveFunctionQuotaAndUpdate(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"a", "b", "c"} {
		if _, err := store.SaveFunction(model.Function{Name: name, Code: "1"}); err != nil {
			t.Fatalf("could not save %s: %v", name, err)
		}
	}

	if _, err := store.SaveFunction(model.Function{Name: "d", Code: "1"}); !errors.Is(err, database.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}

	updated, err := store.SaveFunction(model.Function{Name: "a", Code: "2"})
	if err != nil {
		t.Fatalf("update at capacity should work, got %v", err)
	}

	if updated.Version != 2 {
		t.Errorf("expected version 2 after update, got %d", updated.Version)
	}

	count, err := store.CountFunctions()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("expected 3 stored functions, got %d", count)
	}
}

func TestTouchFunction(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.SaveFunction(model.Function{Name: "fn", Code: "1"}); err != nil {
		t.Fatal(err)
	}

	before := time.Now()

	for i := 0; i < 3; i++ {
		if err := store.TouchFunction("fn"); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.GetFunction("fn")
	if err != nil {
		t.Fatal(err)
	}

	if got.UsageCount != 3 {
		t.Errorf("expected usage count 3, got %d", got.UsageCount)
	}

	if got.LastUsedAt.Before(before.Add(-time.Second)) {
		t.Errorf("expected a recent last used time, got %v", got.LastUsedAt)
	}

	if err := store.TouchFunction("ghost"); !errors.Is(err, database.ErrFunctionNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeleteFunction(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.SaveFunction(model.Function{Name: "fn", Code: "1"}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteFunction("fn"); err != nil {
		t.Fatal(err)
	}

	if _, err := store.GetFunction("fn"); !errors.Is(err, database.ErrFunctionNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}

	if err := store.DeleteFunction("fn"); !errors.Is(err, database.ErrFunctionNotFound) {
		t.Errorf("double delete should report not found, got %v", err)
	}
}

func TestListFunctionsInsertionOrder(t *testing.T) {
	store := newTestStore(t)

	// deliberately not alphabetical; back-to-back saves share a timestamp
	names := []string{"zeta", "alpha", "mid"}
	for _, name := range names {
		if _, err := store.SaveFunction(model.Function{Name: name, Code: "1"}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListFunctions("", nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(all) != len(names) {
		t.Fatalf("expected %d functions, got %d", len(names), len(all))
	}
	for i, name := range names {
		if all[i].Name != name {
			t.Errorf("expected insertion order %v, got %s at %d", names, all[i].Name, i)
		}
	}
}

func TestListFunctionsFilters(t *testing.T) {
	store := newTestStore(t)

	fns := []model.Function{
		{Name: "alpha", Code: "1", Category: "ops", Tags: []string{"aws"}},
		{Name: "beta", Code: "1", Category: "general", Tags: []string{"cost"}},
		{Name: "gamma", Code: "1", Category: "ops", Tags: []string{"cost", "aws"}},
	}

	for _, fn := range fns {
		if _, err := store.SaveFunction(fn); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListFunctions("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 functions, got %d", len(all))
	}

	ops, err := store.ListFunctions("ops", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Errorf("expected 2 ops functions, got %d", len(ops))
	}

	tagged, err := store.ListFunctions("", []string{"cost"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tagged) != 2 {
		t.Errorf("expected 2 cost-tagged functions, got %d", len(tagged))
	}
}
