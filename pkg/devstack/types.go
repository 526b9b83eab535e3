// File: pkg/devstack/types.go
// Brief: Layer, Mode and Prop capability contracts.

package devstack

import "context"

// NoDependency is the sentinel dependency recorded for layers that declare none.
const NoDependency = "<none>"

// Layer is a unit of deployable logic.
type Layer interface {
	Name() string
	// SharedConfig returns values published to every layer under this layer's name.
	// It is called for all layers, in resolved order, before any Init.
	SharedConfig() map[string]any
	// Init prepares per-instance runtime state such as loggers.
	Init(env *Env)
	// Deploy returns 0 on success, a negative code on failure and any other
	// value for a completed run that is not a plain success.
	Deploy(ctx context.Context) int
	Destroy(ctx context.Context) int
}

// Dependent is implemented by layers that depend on other layers.
type Dependent interface {
	DependsOn() []string
}

// CapabilityReporter is implemented by definitions whose operations are only
// known at runtime (stack file layers). MissingCapabilities lists the
// operations the definition cannot perform.
type CapabilityReporter interface {
	MissingCapabilities() []string
}

// Mode is an operator-toggleable flag outside the dependency graph.
type Mode interface {
	Name() string
	Default() bool
}

// Prop is a named bundle of shared configuration values.
type Prop interface {
	Name() string
	Values() map[string]any
}

// ModeDef is a plain Mode.
type ModeDef struct {
	ModeName    string `json:"name" yaml:"name"`
	DefaultOn   bool   `json:"default" yaml:"default"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func (m ModeDef) Name() string  { return m.ModeName }
func (m ModeDef) Default() bool { return m.DefaultOn }

// PropDef is a plain Prop.
type PropDef struct {
	PropName   string         `json:"name" yaml:"name"`
	PropValues map[string]any `json:"values" yaml:"values"`
}

func (p PropDef) Name() string           { return p.PropName }
func (p PropDef) Values() map[string]any { return p.PropValues }
