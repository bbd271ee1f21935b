package function

import (
	"testing"

	"github.com/runbookhq/core/model"
)

func TestValidateAcceptsGoodCode(t *testing.T) {
	code := `
	function greet(name) {
		return "hello " + name;
	}
	greet("world");
	`

	if err := Validate(code); err != nil {
		t.Errorf("expected valid code, got %v", err)
	}
}

func TestValidateRejectsBrokenCode(t *testing.T) {
	code := `
	function broken( {
		return 1;
	`

	err := Validate(code)
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}

	if err.Kind != model.ErrorKindValidation {
		t.Errorf("expected kind %s, got %s", model.ErrorKindValidation, err.Kind)
	}

	if err.Line == 0 {
		t.Error("expected the error to carry a line number")
	}
}

func TestValidateEmptyCode(t *testing.T) {
	if err := Validate(""); err != nil {
		t.Errorf("empty code should parse, got %v", err)
	}
}
