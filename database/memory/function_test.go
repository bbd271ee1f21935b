package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/model"
)

func TestSaveFunctionQuota(t *testing.T) {
	db := New(2, nil)

	for _, name := range []string{"a", "b"} {
		if _, err := db.SaveFunction(model.Function{Name: name, Code: "1"}); err != nil {
			t.Fatalf("could not save %s: %v", name, err)
		}
	}

	if _, err := db.SaveFunction(model.Function{Name: "c", Code: "1"}); !errors.Is(err, database.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}

	// updates never count against the quota
	if _, err := db.SaveFunction(model.Function{Name: "a", Code: "2"}); err != nil {
		t.Fatalf("update at capacity should work, got %v", err)
	}

	if err := db.DeleteFunction("b"); err != nil {
		t.Fatal(err)
	}

	if _, err := db.SaveFunction(model.Function{Name: "c", Code: "1"}); err != nil {
		t.Fatalf("save after delete should free a slot, got %v", err)
	}
}

func TestSaveFunctionUpdatePreservesUsage(t *testing.T) {
	db := New(20, nil)

	first, err := db.SaveFunction(model.Function{Name: "fn", Code: "1"})
	if err != nil {
		t.Fatal(err)
	}

	if first.Version != 1 {
		t.Errorf("expected version 1 on create, got %d", first.Version)
	}

	for i := 0; i < 2; i++ {
		if err := db.TouchFunction("fn"); err != nil {
			t.Fatal(err)
		}
	}

	updated, err := db.SaveFunction(model.Function{Name: "fn", Code: "2"})
	if err != nil {
		t.Fatal(err)
	}

	if updated.Version != 2 {
		t.Errorf("expected version 2 after update, got %d", updated.Version)
	}

	if updated.UsageCount != 2 {
		t.Errorf("update should not reset usage, got %d", updated.UsageCount)
	}

	if !updated.CreatedAt.Equal(first.CreatedAt) {
		t.Error("update should keep the original creation time")
	}

	if updated.Code != "2" {
		t.Errorf("expected the new code, got %q", updated.Code)
	}
}

func TestListFunctionsOrderAndFilters(t *testing.T) {
	db := New(20, nil)

	fns := []model.Function{
		{Name: "gamma", Code: "1", Category: "ops", Tags: []string{"aws"}},
		{Name: "alpha", Code: "1", Category: "general", Tags: []string{"cost", "aws"}},
		{Name: "beta", Code: "1", Category: "ops", Tags: []string{"cost"}},
	}

	for _, fn := range fns {
		if _, err := db.SaveFunction(fn); err != nil {
			t.Fatal(err)
		}
	}

	all, err := db.ListFunctions("", nil)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"gamma", "alpha", "beta"}
	if len(all) != len(want) {
		t.Fatalf("expected %d functions, got %d", len(want), len(all))
	}
	for i, name := range want {
		if all[i].Name != name {
			t.Errorf("expected creation order %v, got %s at %d", want, all[i].Name, i)
		}
	}

	ops, err := db.ListFunctions("ops", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Errorf("expected 2 ops functions, got %d", len(ops))
	}

	tagged, err := db.ListFunctions("", []string{"cost"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tagged) != 2 {
		t.Errorf("expected 2 cost-tagged functions, got %d", len(tagged))
	}
}

func TestFunctionNotFound(t *testing.T) {
	db := New(20, nil)

	if _, err := db.GetFunction("ghost"); !errors.Is(err, database.ErrFunctionNotFound) {
		t.Errorf("get: expected not found, got %v", err)
	}

	if err := db.DeleteFunction("ghost"); !errors.Is(err, database.ErrFunctionNotFound) {
		t.Errorf("delete: expected not found, got %v", err)
	}

	if err := db.TouchFunction("ghost"); !errors.Is(err, database.ErrFunctionNotFound) {
		t.Errorf("touch: expected not found, got %v", err)
	}
}

func TestConcurrentSavesHonorQuota(t *testing.T) {
	const workers = 20

	db := New(1, nil)

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := db.SaveFunction(model.Function{Name: fmt.Sprintf("fn%d", i), Code: "1"})
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, database.ErrQuotaExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("expected exactly 1 save to win, got %d", succeeded)
	}

	if rejected != workers-1 {
		t.Errorf("expected %d quota rejections, got %d", workers-1, rejected)
	}

	count, err := db.CountFunctions()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 stored function, got %d", count)
	}
}
