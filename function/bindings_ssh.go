package function

import (
	"fmt"
	"net"
	"time"

	"github.com/dop251/goja"
	"golang.org/x/crypto/ssh"
)

// sshBindings run commands on remote hosts over SSH. Connections are opened
// per call and closed before the helper returns.
type sshBindings struct{}

func (b *sshBindings) install(vm *goja.Runtime) {
	obj := vm.NewObject()

	obj.Set("run", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 4 {
			return vm.ToValue(Result{Content: "argument missmatch: you need 4 arguments for run(host, user, password, command)"})
		}

		var host, user, password, command string
		if err := vm.ExportTo(call.Argument(0), &host); err != nil {
			return vm.ToValue(Result{Content: "the first argument should be a string"})
		} else if err := vm.ExportTo(call.Argument(1), &user); err != nil {
			return vm.ToValue(Result{Content: "the second argument should be a string"})
		} else if err := vm.ExportTo(call.Argument(2), &password); err != nil {
			return vm.ToValue(Result{Content: "the third argument should be a string"})
		} else if err := vm.ExportTo(call.Argument(3), &command); err != nil {
			return vm.ToValue(Result{Content: "the fourth argument should be a string"})
		}

		output, err := runCommand(host, user, password, command)
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error calling run(): %v", err)})
		}

		return vm.ToValue(Result{OK: true, Content: output})
	})

	vm.Set("ssh", obj)
}

func runCommand(host, user, password, command string) (string, error) {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "22")
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	client, err := ssh.Dial("tcp", host, cfg)
	if err != nil {
		return "", err
	}
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		return "", err
	}
	defer sess.Close()

	out, err := sess.CombinedOutput(command)
	if err != nil {
		return string(out), err
	}

	return string(out), nil
}
