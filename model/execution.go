package model

import "fmt"

// Error kinds reported through ExecutionResult and the tool surface.
const (
	ErrorKindValidation = "validation"
	ErrorKindQuota      = "quota_exceeded"
	ErrorKindNotFound   = "not_found"
	ErrorKindTimeout    = "timeout"
	ErrorKindRuntime    = "runtime"
	ErrorKindStorage    = "storage"
)

// ExecutionRequest carries one code execution. It is built per call and
// never persisted.
type ExecutionRequest struct {
	Code           string   `json:"code"`
	Context        string   `json:"context"`
	FunctionNames  []string `json:"functionNames,omitempty"`
	TimeoutSeconds int      `json:"timeoutSeconds,omitempty"`
}

// ExecutionResult is the only shape a run can produce: captured output plus
// either a value or a structured error. Raw faults never cross this
// boundary.
type ExecutionResult struct {
	OK     bool       `json:"ok"`
	Output string     `json:"output"`
	Value  any        `json:"value,omitempty"`
	Error  *ExecError `json:"error,omitempty"`
}

// ExecError describes a failed run: its kind, message and, when the
// scripting engine can tell, the offending source location.
type ExecError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (e *ExecError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d, column %d)", e.Kind, e.Message, e.Line, e.Column)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// FailedResult wraps an ExecError into the result shape, keeping whatever
// output was captured before the failure.
func FailedResult(output string, err *ExecError) ExecutionResult {
	return ExecutionResult{Output: output, Error: err}
}
