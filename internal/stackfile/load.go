// File: internal/stackfile/load.go
// Brief: Reading and validating devstack.yaml.

package stackfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// LoadError reports a stack file that cannot be used.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("stack file %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Find resolves a --file value: empty means devstack.yaml in dir, and a
// directory means the devstack.yaml inside it. Anything else is returned as is.
func Find(dir, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return filepath.Join(dir, DefaultFileName)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, DefaultFileName)
	}
	return path
}

// Load reads and validates the stack file at path.
func Load(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &LoadError{Path: abs, Err: err}
	}
	f, err := Parse(raw)
	if err != nil {
		return nil, &LoadError{Path: abs, Err: err}
	}
	f.Path = abs
	if strings.TrimSpace(f.Name) == "" {
		f.Name = filepath.Base(filepath.Dir(abs))
	}
	return f, nil
}

// Parse decodes and validates raw YAML. Unknown fields are rejected.
func Parse(raw []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks required fields and command templates.
func (f *File) Validate() error {
	if f.Kind != "" && f.Kind != Kind {
		return fmt.Errorf("kind must be %s (got %q)", Kind, f.Kind)
	}
	if f.APIVersion != "" && f.APIVersion != APIVersion {
		return fmt.Errorf("apiVersion must be %s (got %q)", APIVersion, f.APIVersion)
	}
	for i, p := range f.Props {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("props[%d].name is required", i)
		}
	}
	for i, m := range f.Modes {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("modes[%d].name is required", i)
		}
	}
	for i, l := range f.Layers {
		if strings.TrimSpace(l.Name) == "" {
			return fmt.Errorf("layers[%d].name is required", i)
		}
		if _, err := parseCommand(l.Name+".deploy", l.Deploy); err != nil {
			return fmt.Errorf("layers[%d] (%s).deploy: %w", i, l.Name, err)
		}
		if _, err := parseCommand(l.Name+".destroy", l.Destroy); err != nil {
			return fmt.Errorf("layers[%d] (%s).destroy: %w", i, l.Name, err)
		}
	}
	return nil
}

func parseCommand(name, text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return template.New(name).Option("missingkey=error").Parse(text)
}
