package function

import (
	"errors"

	"github.com/dop251/goja/parser"
	"github.com/runbookhq/core/model"
)

// Validate parse-checks code without executing it. It returns nil for valid
// code and a structured validation error carrying the first offending
// location otherwise.
func Validate(code string) *model.ExecError {
	_, err := parser.ParseFile(nil, "", code, 0)
	if err == nil {
		return nil
	}

	execErr := &model.ExecError{
		Kind:    model.ErrorKindValidation,
		Message: err.Error(),
	}

	var list parser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		first := list[0]
		execErr.Message = first.Message
		execErr.Line = first.Position.Line
		execErr.Column = first.Position.Column
	}

	return execErr
}
