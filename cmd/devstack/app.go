// File: cmd/devstack/app.go
// Brief: Shared wiring from options to a loaded stack and orchestrator.

package main

import (
	"io"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/example/devstack/internal/config"
	"github.com/example/devstack/internal/history"
	"github.com/example/devstack/internal/logging"
	"github.com/example/devstack/internal/modeflags"
	"github.com/example/devstack/internal/stackfile"
	"github.com/example/devstack/internal/ui"
	"github.com/example/devstack/internal/version"
	"github.com/example/devstack/pkg/devstack"
)

// session is one loaded stack ready to plan or run.
type session struct {
	opts *config.Options
	log  logr.Logger
	file *stackfile.File
	reg  *devstack.Registry

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func openSession(cmd *cobra.Command, opts *config.Options) (*session, error) {
	log, err := logging.NewWithWriter(opts.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	log.V(1).Info("starting", "version", version.Get().String(), "file", opts.StackFile)
	f, err := stackfile.Load(opts.StackFile)
	if err != nil {
		return nil, err
	}
	policy := devstack.DuplicateReplace
	if opts.Strict {
		policy = devstack.DuplicateReject
	}
	reg := devstack.NewRegistry(devstack.WithDuplicatePolicy(policy))
	if err := f.Register(reg); err != nil {
		return nil, err
	}
	return &session{
		opts:   opts,
		log:    log.WithName("devstack"),
		file:   f,
		reg:    reg,
		in:     cmd.InOrStdin(),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}, nil
}

// overrides merges DEVSTACK_LAYER_*/DEVSTACK_MODE_* with --enable/--mode;
// flags win.
func (s *session) overrides() modeflags.Overrides {
	return modeflags.FromEnv(nil).Merge(modeflags.Parse(s.opts.Enable, s.opts.Modes))
}

// selector prompts only when nothing preselects and both ends are terminals.
func (s *session) selector() devstack.Selector {
	o := s.overrides()
	if s.opts.Interactive() && o.Empty() {
		if ui.IsTerminal(s.in) && ui.IsTerminal(s.out) {
			return &ui.CheckboxSelector{In: s.in, Out: s.out}
		}
		s.log.Info("no terminal attached, using the persisted selection")
	}
	return ui.PresetSelector{Overrides: o}
}

func (s *session) orchestrator() *devstack.Orchestrator {
	return &devstack.Orchestrator{
		StackName: s.file.Name,
		Registry:  s.reg,
		Store:     devstack.NewPreferenceStore(s.opts.StateDir),
		Selector:  s.selector(),
		Renderer:  ui.NewTableRenderer(s.out, s.opts.NoClear),
		Log:       s.log,
		Resolve:   devstack.ResolveOptions{AllowMissing: s.opts.AllowMissing},
	}
}

// withHistory attaches the run history store when --history is set and
// returns its closer.
func (s *session) withHistory(o *devstack.Orchestrator) (func(), error) {
	if !s.opts.History {
		return func() {}, nil
	}
	store, err := history.Open(s.opts.StateDir, false)
	if err != nil {
		return nil, err
	}
	o.History = store
	s.log.V(1).Info("recording run history", "path", store.Path())
	return func() {
		if err := store.Close(); err != nil {
			s.log.Error(err, "close history store")
		}
	}, nil
}

func (s *session) report(res *devstack.RunResult) {
	if res == nil {
		return
	}
	if res.Failed() {
		var failed []string
		for _, l := range res.Layers {
			if l.Outcome == devstack.OutcomeFailure {
				failed = append(failed, l.Layer)
			}
		}
		s.log.Info("some layers failed", "command", res.Command, "layers", failed)
		return
	}
	s.log.V(1).Info("run finished", "command", res.Command, "duration", res.FinishedAt.Sub(res.StartedAt).String())
}

