// File: internal/stackfile/layer.go
// Brief: Layer implementation backed by shell commands.

package stackfile

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/go-logr/logr"

	"github.com/example/devstack/internal/shell"
	"github.com/example/devstack/pkg/devstack"
)

// CommandLayer runs the deploy and destroy commands of a LayerSpec.
type CommandLayer struct {
	spec    LayerSpec
	stack   string
	baseDir string
	deploy  *template.Template
	destroy *template.Template

	env    *devstack.Env
	runner *shell.Runner
}

var (
	_ devstack.Layer              = (*CommandLayer)(nil)
	_ devstack.Dependent          = (*CommandLayer)(nil)
	_ devstack.CapabilityReporter = (*CommandLayer)(nil)
)

func NewCommandLayer(f *File, spec LayerSpec) (*CommandLayer, error) {
	l := &CommandLayer{spec: spec}
	if f != nil {
		l.stack = f.Name
		if f.Path != "" {
			l.baseDir = filepath.Dir(f.Path)
		}
	}
	var err error
	if l.deploy, err = parseCommand(spec.Name+".deploy", spec.Deploy); err != nil {
		return nil, fmt.Errorf("layer %s deploy: %w", spec.Name, err)
	}
	if l.destroy, err = parseCommand(spec.Name+".destroy", spec.Destroy); err != nil {
		return nil, fmt.Errorf("layer %s destroy: %w", spec.Name, err)
	}
	return l, nil
}

func (l *CommandLayer) Name() string { return l.spec.Name }

func (l *CommandLayer) DependsOn() []string { return l.spec.Needs }

// MissingCapabilities lists the steps the stack file leaves without a command.
func (l *CommandLayer) MissingCapabilities() []string {
	var missing []string
	if l.deploy == nil {
		missing = append(missing, "deploy")
	}
	if l.destroy == nil {
		missing = append(missing, "destroy")
	}
	return missing
}

func (l *CommandLayer) SharedConfig() map[string]any {
	out := make(map[string]any, len(l.spec.Shared))
	for k, v := range l.spec.Shared {
		out[k] = v
	}
	return out
}

func (l *CommandLayer) Init(env *devstack.Env) {
	l.env = env
	log := logr.Discard()
	if env != nil {
		log = env.Log
	}
	l.runner = shell.New(log)
}

func (l *CommandLayer) Deploy(ctx context.Context) int {
	return l.run(ctx, "deploy", l.deploy)
}

func (l *CommandLayer) Destroy(ctx context.Context) int {
	return l.run(ctx, "destroy", l.destroy)
}

// commandData is the template input of a layer command.
type commandData struct {
	Stack  string
	Layer  string
	Shared devstack.SharedConfig
	Modes  map[string]bool
}

// Render expands the template of the given step ("deploy" or "destroy").
func (l *CommandLayer) Render(step string) (string, error) {
	tmpl := l.deploy
	if step == "destroy" {
		tmpl = l.destroy
	}
	if tmpl == nil {
		return "", fmt.Errorf("layer %s has no %s command", l.spec.Name, step)
	}
	data := commandData{Stack: l.stack, Layer: l.spec.Name, Modes: map[string]bool{}}
	if l.env != nil {
		data.Stack = l.env.Stack
		data.Shared = l.env.Shared
		data.Modes = l.env.Modes()
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s command: %w", step, err)
	}
	return b.String(), nil
}

func (l *CommandLayer) run(ctx context.Context, step string, tmpl *template.Template) int {
	if l.runner == nil {
		l.Init(l.env)
	}
	log := l.runner.Log
	if tmpl == nil {
		log.Error(nil, "no command configured", "step", step)
		return -1
	}
	line, err := l.Render(step)
	if err != nil {
		log.Error(err, "render command", "step", step)
		return -1
	}
	log.V(1).Info("running command", "step", step, "command", line)
	code, err := l.runner.Run(ctx, shell.Command{
		Command:         line,
		Shell:           l.spec.UseShell(),
		Dir:             l.dir(),
		Env:             l.environ(),
		ContinueOnError: l.spec.ContinueOnError,
	})
	if err != nil {
		log.Error(err, "run command", "step", step)
		return -1
	}
	return code
}

func (l *CommandLayer) dir() string {
	dir := strings.TrimSpace(l.spec.Dir)
	switch {
	case dir == "":
		return l.baseDir
	case filepath.IsAbs(dir) || l.baseDir == "":
		return dir
	default:
		return filepath.Join(l.baseDir, dir)
	}
}

func (l *CommandLayer) environ() []string {
	keys := make([]string, 0, len(l.spec.Env))
	for k := range l.spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys)+2)
	out = append(out, "DEVSTACK_STACK="+l.stack, "DEVSTACK_LAYER="+l.spec.Name)
	if l.env != nil {
		out[0] = "DEVSTACK_STACK=" + l.env.Stack
	}
	for _, k := range keys {
		out = append(out, k+"="+l.spec.Env[k])
	}
	return out
}
