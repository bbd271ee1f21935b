package function

import (
	"github.com/dop251/goja"
	"github.com/runbookhq/core/config"
	"github.com/runbookhq/core/logger"
)

// Context profiles. Every profile carries the default bindings plus its own
// helper groups.
const (
	ProfileDefault  = "default"
	ProfileFinops   = "finops"
	ProfileDevops   = "devops"
	ProfileSecurity = "security"
)

type bindingGroup func(vm *goja.Runtime)

// Namespace is the full set of bindings one execution can see. Built fresh
// for each request and discarded with it.
type Namespace struct {
	Profile string
	groups  []bindingGroup
}

func (ns *Namespace) install(vm *goja.Runtime) {
	for _, g := range ns.groups {
		g(vm)
	}
}

// ContextBuilder assembles namespaces from profile names.
type ContextBuilder struct {
	cfg   config.AppConfig
	infra InfraRunner
	log   *logger.Logger
}

func NewContextBuilder(cfg config.AppConfig, infra InfraRunner, log *logger.Logger) *ContextBuilder {
	if infra == nil {
		infra = notConfiguredRunner{}
	}

	return &ContextBuilder{cfg: cfg, infra: infra, log: log}
}

// Build returns the namespace for a profile. Unknown names fall back to the
// default profile instead of failing.
func (cb *ContextBuilder) Build(profile string) *Namespace {
	aws := &awsBindings{region: cb.cfg.AWSRegion, profile: cb.cfg.AWSProfile}

	groups := []bindingGroup{aws.install}

	switch profile {
	case ProfileFinops:
		groups = append(groups, (&costBindings{}).install)
	case ProfileDevops:
		groups = append(groups,
			(&sshBindings{}).install,
			(&infraBindings{runner: cb.infra}).install,
			(&monitoringBindings{region: cb.cfg.AWSRegion, profile: cb.cfg.AWSProfile}).install,
		)
	case ProfileSecurity:
		groups = append(groups, (&securityBindings{region: cb.cfg.AWSRegion, profile: cb.cfg.AWSProfile}).install)
	default:
		profile = ProfileDefault
	}

	return &Namespace{Profile: profile, groups: groups}
}
