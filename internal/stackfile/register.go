// File: internal/stackfile/register.go
// Brief: Registering a stack file's props, modes and layers.

package stackfile

import (
	"fmt"

	"github.com/example/devstack/pkg/devstack"
)

// Register adds every prop, mode and layer of f to reg, in file order.
func (f *File) Register(reg *devstack.Registry) error {
	if reg == nil {
		return fmt.Errorf("registry is nil")
	}
	for _, p := range f.Props {
		if err := reg.RegisterProp(devstack.PropDef{PropName: p.Name, PropValues: p.Values}); err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
	}
	for _, m := range f.Modes {
		if err := reg.RegisterMode(devstack.ModeDef{ModeName: m.Name, DefaultOn: m.Default, Description: m.Description}); err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
	}
	for _, spec := range f.Layers {
		layer, err := NewCommandLayer(f, spec)
		if err != nil {
			return &LoadError{Path: f.Path, Err: err}
		}
		if err := reg.RegisterLayer(layer); err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
	}
	return nil
}
