// File: pkg/devstack/registry.go
// Brief: Explicit registration of layers, modes and props.

package devstack

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// DuplicatePolicy decides what happens when a name is registered twice.
type DuplicatePolicy int

const (
	// DuplicateReplace keeps the last registration and logs a warning line.
	DuplicateReplace DuplicatePolicy = iota
	// DuplicateReject fails the second registration with a DuplicateError.
	DuplicateReject
)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDuplicatePolicy sets the duplicate name policy.
func WithDuplicatePolicy(p DuplicatePolicy) RegistryOption {
	return func(r *Registry) { r.policy = p }
}

// Registry holds every layer, mode and prop of one stack together with the
// layer dependency graph and the shared configuration.
type Registry struct {
	policy DuplicatePolicy

	layers     map[string]Layer
	layerNames []string
	modes      map[string]Mode
	modeNames  []string
	props      map[string]Prop
	graph      map[string][]string
	shared     SharedConfig
	logs       []string
}

// NewRegistry returns an empty registry; duplicates replace unless an option
// says otherwise.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		layers: map[string]Layer{},
		modes:  map[string]Mode{},
		props:  map[string]Prop{},
		graph:  map[string][]string{},
		shared: SharedConfig{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterLayer validates and stores a layer and records its dependencies.
func (r *Registry) RegisterLayer(l Layer) error {
	if isNil(l) {
		return &RegistrationError{Kind: "Layer", Type: "<nil>", Missing: []string{"deploy", "destroy", "shared_config"}}
	}
	name := strings.TrimSpace(l.Name())
	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if rep, ok := l.(CapabilityReporter); ok {
		missing = append(missing, rep.MissingCapabilities()...)
	}
	if len(missing) > 0 {
		return &RegistrationError{Kind: "Layer", Type: typeName(l), Name: name, Missing: missing}
	}
	// layers and modes share one selection namespace
	if _, clash := r.modes[name]; clash {
		return &DuplicateError{Kind: "Layer", Name: name, UsedBy: "Mode"}
	}
	if _, exists := r.layers[name]; exists {
		if err := r.duplicate("Layer", name); err != nil {
			return err
		}
	} else {
		r.layerNames = append(r.layerNames, name)
	}
	r.layers[name] = l
	r.graph[name] = dependencySet(l)
	r.logRegistration("Layer", l)
	return nil
}

// RegisterMode stores a mode's default enablement under its name.
func (r *Registry) RegisterMode(m Mode) error {
	if isNil(m) {
		return &RegistrationError{Kind: "Mode", Type: "<nil>", Missing: []string{"name", "default"}}
	}
	name := strings.TrimSpace(m.Name())
	if name == "" {
		return &RegistrationError{Kind: "Mode", Type: typeName(m), Missing: []string{"name"}}
	}
	if _, clash := r.layers[name]; clash {
		return &DuplicateError{Kind: "Mode", Name: name, UsedBy: "Layer"}
	}
	if _, exists := r.modes[name]; exists {
		if err := r.duplicate("Mode", name); err != nil {
			return err
		}
	} else {
		r.modeNames = append(r.modeNames, name)
	}
	r.modes[name] = m
	r.logRegistration("Mode", m)
	return nil
}

// RegisterProp merges a prop's values into shared configuration under its name.
func (r *Registry) RegisterProp(p Prop) error {
	if isNil(p) {
		return &RegistrationError{Kind: "Prop", Type: "<nil>", Missing: []string{"name", "values"}}
	}
	name := strings.TrimSpace(p.Name())
	values := p.Values()
	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if values == nil {
		missing = append(missing, "values")
	}
	if len(missing) > 0 {
		return &RegistrationError{Kind: "Prop", Type: typeName(p), Name: name, Missing: missing}
	}
	if _, exists := r.props[name]; exists {
		if err := r.duplicate("Prop", name); err != nil {
			return err
		}
	}
	r.props[name] = p
	r.shared[name] = values
	r.logRegistration("Prop", p)
	return nil
}

// MustRegisterLayer panics on registration error; intended for bootstrap code paths.
func (r *Registry) MustRegisterLayer(l Layer) {
	if err := r.RegisterLayer(l); err != nil {
		panic(err)
	}
}

// MustRegisterMode panics on registration error.
func (r *Registry) MustRegisterMode(m Mode) {
	if err := r.RegisterMode(m); err != nil {
		panic(err)
	}
}

// MustRegisterProp panics on registration error.
func (r *Registry) MustRegisterProp(p Prop) {
	if err := r.RegisterProp(p); err != nil {
		panic(err)
	}
}

// Layer returns the layer registered under name.
func (r *Registry) Layer(name string) (Layer, bool) {
	l, ok := r.layers[name]
	return l, ok
}

// LayerNames returns layer names in registration order.
func (r *Registry) LayerNames() []string {
	return append([]string(nil), r.layerNames...)
}

// Mode returns the mode registered under name.
func (r *Registry) Mode(name string) (Mode, bool) {
	m, ok := r.modes[name]
	return m, ok
}

// ModeNames returns mode names in registration order.
func (r *Registry) ModeNames() []string {
	return append([]string(nil), r.modeNames...)
}

// ModeDefaults returns every mode's declared default.
func (r *Registry) ModeDefaults() map[string]bool {
	out := make(map[string]bool, len(r.modes))
	for name, m := range r.modes {
		out[name] = m.Default()
	}
	return out
}

// Graph returns a copy of the layer dependency graph.
func (r *Registry) Graph() map[string][]string {
	out := make(map[string][]string, len(r.graph))
	for k, v := range r.graph {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Shared returns the shared configuration. The map is live: layers publish
// into it during a run.
func (r *Registry) Shared() SharedConfig {
	return r.shared
}

// Logs returns the registration log lines.
func (r *Registry) Logs() []string {
	return append([]string(nil), r.logs...)
}

func (r *Registry) duplicate(kind, name string) error {
	if r.policy == DuplicateReject {
		return &DuplicateError{Kind: kind, Name: name}
	}
	r.logs = append(r.logs, fmt.Sprintf("%-18s: %15s ─> replacing previous registration", "Duplicate "+kind, name))
	return nil
}

func (r *Registry) logRegistration(kind string, def any) {
	r.logs = append(r.logs, fmt.Sprintf("%-18s: %15s ─> %v", "Registering "+kind, typeName(def), def))
}

func dependencySet(l Layer) []string {
	dep, ok := l.(Dependent)
	if !ok {
		return []string{NoDependency}
	}
	seen := map[string]struct{}{}
	var out []string
	for _, d := range dep.DependsOn() {
		d = strings.TrimSpace(d)
		if d == "" || d == NoDependency {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	if len(out) == 0 {
		return []string{NoDependency}
	}
	sort.Strings(out)
	return out
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
