package function

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// InfraRunner executes infrastructure changes on behalf of the infra helper
// group. Implementations decide what "preview" and "apply" mean for their
// tooling.
type InfraRunner interface {
	Preview(target string) (string, error)
	Apply(target string) (string, error)
}

// notConfiguredRunner is installed when no runner is wired in, so devops
// code gets a clear failure instead of a missing binding.
type notConfiguredRunner struct{}

func (notConfiguredRunner) Preview(string) (string, error) {
	return "", errors.New("no infrastructure runner configured")
}

func (notConfiguredRunner) Apply(string) (string, error) {
	return "", errors.New("no infrastructure runner configured")
}

type infraBindings struct {
	runner InfraRunner
}

func (b *infraBindings) install(vm *goja.Runtime) {
	obj := vm.NewObject()

	obj.Set("preview", func(call goja.FunctionCall) goja.Value {
		var target string
		if err := vm.ExportTo(call.Argument(0), &target); err != nil {
			return vm.ToValue(Result{Content: "the first argument should be a string"})
		}

		out, err := b.runner.Preview(target)
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error calling preview(): %v", err)})
		}

		return vm.ToValue(Result{OK: true, Content: out})
	})

	obj.Set("apply", func(call goja.FunctionCall) goja.Value {
		var target string
		if err := vm.ExportTo(call.Argument(0), &target); err != nil {
			return vm.ToValue(Result{Content: "the first argument should be a string"})
		}

		out, err := b.runner.Apply(target)
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error calling apply(): %v", err)})
		}

		return vm.ToValue(Result{OK: true, Content: out})
	})

	vm.Set("infra", obj)
}
