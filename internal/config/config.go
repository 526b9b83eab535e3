// File: internal/config/config.go
// Brief: Internal config package implementation for 'config'.

// Package config defines the flag plumbing and runtime options shared by the
// devstack commands, translating Cobra/Viper flag values into a strongly
// typed struct that the orchestrator wiring consumes.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/example/devstack/internal/stackfile"
)

// Options holds the CLI configuration of one devstack invocation.
type Options struct {
	StackFile    string
	StateDir     string
	LogLevel     string
	Strict       bool
	AllowMissing bool
	History      bool
	NoClear      bool

	Yes    bool
	Enable []string
	Modes  []string
}

// NewOptions returns Options with defaults applied.
func NewOptions() *Options {
	return &Options{
		StackFile: stackfile.DefaultFileName,
		LogLevel:  "info",
	}
}

// AddFlags binds the global flags to the provided Cobra command.
func (o *Options) AddFlags(cmd *cobra.Command) {
	o.BindFlags(cmd.PersistentFlags())
}

// BindFlags attaches global flags to fs and returns their names.
func (o *Options) BindFlags(fs *pflag.FlagSet) []string {
	var names []string
	fs.StringVarP(&o.StackFile, "file", "f", o.StackFile, "Path to the stack file")
	names = append(names, "file")
	fs.StringVar(&o.StateDir, "state-dir", o.StateDir, "Directory holding .<stack>.json preferences and run history (defaults to the stack file directory)")
	names = append(names, "state-dir")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level for devstack output (debug, info, warn, error)")
	names = append(names, "log-level")
	fs.BoolVar(&o.Strict, "strict", o.Strict, "Reject duplicate layer, mode and prop names instead of replacing them")
	names = append(names, "strict")
	fs.BoolVar(&o.AllowMissing, "allow-missing", o.AllowMissing, "Ignore dependencies on layers that are not registered")
	names = append(names, "allow-missing")
	fs.BoolVar(&o.History, "history", o.History, "Record each run in <state-dir>/.devstack/history.sqlite")
	names = append(names, "history")
	fs.BoolVar(&o.NoClear, "no-clear", o.NoClear, "Do not clear the screen between status table renders")
	names = append(names, "no-clear")
	return names
}

// BindSelectionFlags attaches the non-interactive selection flags used by
// deploy and destroy.
func (o *Options) BindSelectionFlags(fs *pflag.FlagSet) []string {
	var names []string
	fs.BoolVarP(&o.Yes, "yes", "y", o.Yes, "Skip the prompt and keep the persisted selection")
	names = append(names, "yes")
	fs.StringSliceVarP(&o.Enable, "enable", "e", nil, "Layers to enable (repeat or comma-separate; prefix with - to disable)")
	names = append(names, "enable")
	fs.StringSliceVarP(&o.Modes, "mode", "m", nil, "Modes to enable (repeat or comma-separate; prefix with - to disable)")
	names = append(names, "mode")
	return names
}

// Validate normalizes paths and checks enumerated values.
func (o *Options) Validate() error {
	expanded, err := homedir.Expand(strings.TrimSpace(o.StackFile))
	if err != nil {
		return fmt.Errorf("expand --file %q: %w", o.StackFile, err)
	}
	o.StackFile = stackfile.Find(".", expanded)

	if dir := strings.TrimSpace(o.StateDir); dir != "" {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return fmt.Errorf("expand --state-dir %q: %w", o.StateDir, err)
		}
		o.StateDir = expanded
	} else {
		o.StateDir = filepath.Dir(o.StackFile)
	}

	switch strings.ToLower(strings.TrimSpace(o.LogLevel)) {
	case "", "info":
		o.LogLevel = "info"
	case "debug", "warn", "warning", "error":
		o.LogLevel = strings.ToLower(strings.TrimSpace(o.LogLevel))
	default:
		return fmt.Errorf("invalid --log-level value %q (allowed: debug, info, warn, error)", o.LogLevel)
	}
	return nil
}

// Interactive reports whether the selection prompt should be shown.
func (o *Options) Interactive() bool {
	return !o.Yes && len(o.Enable) == 0 && len(o.Modes) == 0
}
