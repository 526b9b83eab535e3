// File: internal/modeflags/modeflags.go
// Brief: Non-interactive layer and mode overrides from flags and environment.

package modeflags

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/example/devstack/pkg/devstack"
)

const (
	LayerEnvPrefix = "DEVSTACK_LAYER_"
	ModeEnvPrefix  = "DEVSTACK_MODE_"
)

// ErrUnknownName is returned when an override names no registered layer or mode.
var ErrUnknownName = errors.New("unknown layer or mode")

// Overrides holds explicit on/off choices keyed by normalized name.
type Overrides struct {
	Layers map[string]bool
	Modes  map[string]bool
}

// Empty reports whether no override was given.
func (o Overrides) Empty() bool {
	return len(o.Layers) == 0 && len(o.Modes) == 0
}

// Merge returns o with other's entries applied on top.
func (o Overrides) Merge(other Overrides) Overrides {
	out := Overrides{Layers: map[string]bool{}, Modes: map[string]bool{}}
	for _, src := range []Overrides{o, other} {
		for k, v := range src.Layers {
			out.Layers[k] = v
		}
		for k, v := range src.Modes {
			out.Modes[k] = v
		}
	}
	return out
}

// Parse reads --enable and --mode values. Values may be repeated or comma
// separated; a leading "-" turns the entry off.
func Parse(layers, modes []string) Overrides {
	return Overrides{Layers: parseTokens(layers), Modes: parseTokens(modes)}
}

// FromEnv scans environ (os.Environ when nil) for DEVSTACK_LAYER_<NAME> and
// DEVSTACK_MODE_<NAME>. Values that are neither truthy nor falsy are ignored.
func FromEnv(environ []string) Overrides {
	if environ == nil {
		environ = os.Environ()
	}
	out := Overrides{Layers: map[string]bool{}, Modes: map[string]bool{}}
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		var target map[string]bool
		switch {
		case strings.HasPrefix(key, LayerEnvPrefix):
			key, target = strings.TrimPrefix(key, LayerEnvPrefix), out.Layers
		case strings.HasPrefix(key, ModeEnvPrefix):
			key, target = strings.TrimPrefix(key, ModeEnvPrefix), out.Modes
		default:
			continue
		}
		if key == "" {
			continue
		}
		switch {
		case isTruthy(value):
			target[Normalize(key)] = true
		case isFalsy(value):
			target[Normalize(key)] = false
		}
	}
	return out
}

// Apply resolves the enabled names for req: every choice keeps its checked
// state unless an override names it. Layers come first, then modes.
func (o Overrides) Apply(req devstack.SelectionRequest) ([]string, error) {
	layers, err := apply(req.Layers, o.Layers, "layer")
	if err != nil {
		return nil, err
	}
	modes, err := apply(req.Modes, o.Modes, "mode")
	if err != nil {
		return nil, err
	}
	return append(layers, modes...), nil
}

func apply(choices []devstack.Choice, overrides map[string]bool, kind string) ([]string, error) {
	known := make(map[string]struct{}, len(choices))
	for _, c := range choices {
		known[Normalize(c.Name)] = struct{}{}
	}
	var unknown []string
	for name := range overrides {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownName, kind, strings.Join(unknown, ", "))
	}
	var enabled []string
	for _, c := range choices {
		on := c.Checked
		if v, ok := overrides[Normalize(c.Name)]; ok {
			on = v
		}
		if on {
			enabled = append(enabled, c.Name)
		}
	}
	return enabled, nil
}

// EnvVar returns the variable that toggles a layer (kind "layer") or mode.
func EnvVar(kind, name string) string {
	prefix := ModeEnvPrefix
	if kind == "layer" {
		prefix = LayerEnvPrefix
	}
	return prefix + Normalize(name)
}

// Normalize maps a layer or mode name to its override key: upper case with
// every non-alphanumeric rune replaced by "_".
func Normalize(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
}

func parseTokens(values []string) map[string]bool {
	out := map[string]bool{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			on := true
			if strings.HasPrefix(part, "-") {
				part, on = strings.TrimSpace(part[1:]), false
			}
			if part != "" {
				out[Normalize(part)] = on
			}
		}
	}
	return out
}

func isTruthy(val string) bool {
	switch strings.TrimSpace(strings.ToLower(val)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

func isFalsy(val string) bool {
	switch strings.TrimSpace(strings.ToLower(val)) {
	case "0", "f", "false", "n", "no", "off":
		return true
	default:
		return false
	}
}
