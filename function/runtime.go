package function

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/runbookhq/core/logger"
	"github.com/runbookhq/core/model"
)

// Result is the shape every helper binding returns to executed code.
type Result struct {
	OK      bool `json:"ok"`
	Content any  `json:"content"`
}

// ExecutionEnvironment runs one code unit inside a fresh VM. The namespace
// is the only thing the code can see; output goes through the injected
// log/print bindings into the capture buffer.
type ExecutionEnvironment struct {
	Namespace *Namespace
	Preloaded []model.Function
	Timeout   time.Duration
	Log       *logger.Logger
}

// capture is written by the worker goroutine and read by the caller, which
// may outlive an abandoned worker.
type capture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *capture) println(args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(&c.buf, args...)
}

func (c *capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (env *ExecutionEnvironment) Execute(code string) model.ExecutionResult {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	out := &capture{}
	env.addHelpers(vm, out)

	if env.Namespace != nil {
		env.Namespace.install(vm)
	}

	done := make(chan model.ExecutionResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- model.FailedResult(out.String(), &model.ExecError{
					Kind:    model.ErrorKindRuntime,
					Message: fmt.Sprintf("%v", r),
				})
			}
		}()

		for _, fn := range env.Preloaded {
			if _, err := vm.RunString(fn.Code); err != nil {
				// validated at save time, definition can still fail at run time
				env.Log.Warn().Err(err).Msgf("could not load function %s", fn.Name)
			}
		}

		value, err := vm.RunString(code)
		if err != nil {
			done <- model.FailedResult(out.String(), convertRunError(code, err))
			return
		}

		res := model.ExecutionResult{OK: true, Output: out.String()}

		if explicit := vm.Get("result"); isDefined(explicit) {
			res.Value = explicit.Export()
		} else if isDefined(value) {
			res.Value = value.Export()
		}

		done <- res
	}()

	select {
	case res := <-done:
		return res
	case <-time.After(env.Timeout):
		// unblock the caller at the deadline; the worker is told to stop at
		// its next interrupt check and is not joined
		vm.Interrupt("execution timed out")
		return model.FailedResult(out.String(), &model.ExecError{
			Kind:    model.ErrorKindTimeout,
			Message: fmt.Sprintf("execution exceeded the %s timeout", env.Timeout),
		})
	}
}

func (env *ExecutionEnvironment) addHelpers(vm *goja.Runtime, out *capture) {
	logFn := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}

		var params []any
		for _, v := range call.Arguments {
			params = append(params, v.Export())
		}
		out.println(params...)
		return goja.Undefined()
	}

	vm.Set("log", logFn)
	vm.Set("print", logFn)

	vm.Set("now", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(time.Now().Format(time.RFC3339))
	})
}

func convertRunError(code string, err error) *model.ExecError {
	// a syntax failure at run time carries a better location via the parser
	if syntaxErr := Validate(code); syntaxErr != nil {
		return syntaxErr
	}

	if _, ok := err.(*goja.InterruptedError); ok {
		return &model.ExecError{
			Kind:    model.ErrorKindTimeout,
			Message: "execution timed out",
		}
	}

	return &model.ExecError{
		Kind:    model.ErrorKindRuntime,
		Message: err.Error(),
	}
}

func isDefined(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}
