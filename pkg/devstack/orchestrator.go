// File: pkg/devstack/orchestrator.go
// Brief: Deploy and destroy orchestration over the resolved layer order.

package devstack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// Choice is one entry of the selection prompt.
type Choice struct {
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// SelectionRequest lists layers (in resolved order) and modes for the operator.
type SelectionRequest struct {
	Stack  string   `json:"stack"`
	Layers []Choice `json:"layers"`
	Modes  []Choice `json:"modes"`
}

// Selector asks the operator which layers and modes to enable and returns
// the names left checked. Abandoning the prompt returns ErrSelectionAborted.
type Selector interface {
	Select(ctx context.Context, req SelectionRequest) ([]string, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context, req SelectionRequest) ([]string, error)

func (f SelectorFunc) Select(ctx context.Context, req SelectionRequest) ([]string, error) {
	return f(ctx, req)
}

// HistoryRecorder stores a finished run.
type HistoryRecorder interface {
	RecordRun(ctx context.Context, res *RunResult) error
}

// Outcome is the final state of one layer in a run.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeComplete Outcome = "complete"
)

// OutcomeForCode maps a Deploy/Destroy return value to an outcome.
func OutcomeForCode(code int) Outcome {
	switch {
	case code == 0:
		return OutcomeSuccess
	case code < 0:
		return OutcomeFailure
	default:
		return OutcomeComplete
	}
}

type LayerResult struct {
	Layer      string    `json:"layer"`
	Outcome    Outcome   `json:"outcome"`
	Code       int       `json:"code"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// RunResult summarizes one deploy or destroy.
type RunResult struct {
	Stack      string          `json:"stack"`
	Command    string          `json:"command"`
	Order      []string        `json:"order"`
	Modes      map[string]bool `json:"modes"`
	Layers     []LayerResult   `json:"layers"`
	Rows       []StatusRow     `json:"rows"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// Failed reports whether any layer failed.
func (r *RunResult) Failed() bool {
	if r == nil {
		return false
	}
	for _, l := range r.Layers {
		if l.Outcome == OutcomeFailure {
			return true
		}
	}
	return false
}

// Layer returns the result for name.
func (r *RunResult) Layer(name string) (LayerResult, bool) {
	if r == nil {
		return LayerResult{}, false
	}
	for _, l := range r.Layers {
		if l.Layer == name {
			return l, true
		}
	}
	return LayerResult{}, false
}

// Orchestrator drives one run of a stack. It owns the dependency order, the
// stack status, the toggle/mode maps and the shared configuration for the
// lifetime of the run.
type Orchestrator struct {
	StackName string
	Registry  *Registry
	Store     *PreferenceStore
	Selector  Selector
	Renderer  Renderer
	Log       logr.Logger
	Resolve   ResolveOptions
	History   HistoryRecorder

	now func() time.Time
}

// DestroyOptions tunes the teardown flow.
type DestroyOptions struct {
	// Select prompts the operator instead of using the persisted toggles.
	Select bool
}

// session is the mutable state of one run.
type session struct {
	log     logr.Logger
	order   []string
	state   *StackState
	toggles map[string]bool
	modes   map[string]bool
}

// Deploy resolves, initializes, asks for the enabled set, persists it and
// deploys every enabled layer in resolved order. Per-layer failures are
// reported in the result, not as an error.
func (o *Orchestrator) Deploy(ctx context.Context) (*RunResult, error) {
	started := o.clock()
	s, err := o.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.selectLayers(ctx, s); err != nil {
		return nil, err
	}
	s.state.Render()
	res, err := o.execute(ctx, s, "deploy", s.order)
	res.StartedAt = started
	o.record(ctx, s, res)
	return res, err
}

// Destroy tears enabled layers down in reverse resolved order.
func (o *Orchestrator) Destroy(ctx context.Context, opts DestroyOptions) (*RunResult, error) {
	started := o.clock()
	s, err := o.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Select {
		if err := o.selectLayers(ctx, s); err != nil {
			return nil, err
		}
	} else {
		for _, name := range s.order {
			if s.toggles[name] {
				s.state.Update(name, SymbolPending, StatusPending)
			} else {
				s.state.Update(name, "", StatusSkipped)
			}
		}
	}
	s.state.Render()
	reversed := make([]string, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		reversed = append(reversed, s.order[i])
	}
	res, err := o.execute(ctx, s, "destroy", reversed)
	res.StartedAt = started
	o.record(ctx, s, res)
	return res, err
}

// Order resolves the registry's graph without running anything.
func (o *Orchestrator) Order() (*Plan, error) {
	if o.Registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	return ResolvePlan(o.Registry.Graph(), o.Resolve)
}

func (o *Orchestrator) prepare(ctx context.Context) (*session, error) {
	if o.Registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	name := strings.TrimSpace(o.StackName)
	if name == "" {
		return nil, fmt.Errorf("stack name is required")
	}
	log := o.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	if logs := o.Registry.Logs(); len(logs) > 0 {
		log.V(1).Info("registry\n\t" + strings.Join(logs, "\n\t"))
	}

	plan, err := o.Order()
	if err != nil {
		return nil, err
	}
	s := &session{
		log:     log,
		order:   plan.Order,
		state:   NewStackState(name+" Stack", o.Renderer),
		toggles: map[string]bool{},
		modes:   o.Registry.ModeDefaults(),
	}
	for _, layer := range s.order {
		s.state.Track(layer)
	}

	shared := o.Registry.Shared()
	for _, layer := range s.order {
		l, _ := o.Registry.Layer(layer)
		shared[layer] = l.SharedConfig()
	}
	for _, layer := range s.order {
		l, _ := o.Registry.Layer(layer)
		l.Init(&Env{
			Stack:  name,
			Layer:  layer,
			Log:    log.WithName(layer),
			Shared: shared,
			modes:  s.modes,
			state:  s.state,
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, layer := range s.order {
		s.toggles[layer] = false
	}
	if o.Store != nil {
		prefs, found, err := o.Store.Load(name)
		if err != nil {
			return nil, err
		}
		if !found {
			log.Info("config file does not exist, loading defaults", "stack", name, "path", o.Store.Path(name))
		}
		for layer, on := range prefs.Toggles {
			if _, ok := s.toggles[layer]; ok {
				s.toggles[layer] = on
			}
		}
		for mode, on := range prefs.Modes {
			if _, ok := s.modes[mode]; ok {
				s.modes[mode] = on
			}
		}
	}
	return s, nil
}

func (o *Orchestrator) selectLayers(ctx context.Context, s *session) error {
	if o.Selector == nil {
		return fmt.Errorf("selector is nil")
	}
	req := SelectionRequest{Stack: o.StackName}
	for _, layer := range s.order {
		req.Layers = append(req.Layers, Choice{Name: layer, Checked: s.toggles[layer]})
	}
	for _, mode := range o.Registry.ModeNames() {
		req.Modes = append(req.Modes, Choice{Name: mode, Checked: s.modes[mode]})
	}
	enabled, err := o.Selector.Select(ctx, req)
	if err != nil {
		return fmt.Errorf("select layers: %w", err)
	}
	chosen := map[string]struct{}{}
	for _, name := range enabled {
		chosen[name] = struct{}{}
	}
	for mode := range s.modes {
		_, on := chosen[mode]
		s.modes[mode] = on
		delete(chosen, mode)
	}
	for _, layer := range s.order {
		_, on := chosen[layer]
		s.toggles[layer] = on
		delete(chosen, layer)
		if on {
			s.state.Update(layer, SymbolPending, StatusPending)
		} else {
			s.state.Update(layer, "", StatusSkipped)
		}
	}
	for name := range chosen {
		s.log.Info("ignoring unknown selection", "name", name)
	}
	s.log.V(1).Info("selection", "toggles", s.toggles, "modes", s.modes)

	if o.Store == nil {
		return nil
	}
	if err := o.Store.Save(o.StackName, Preferences{Toggles: s.toggles, Modes: s.modes}); err != nil {
		return err
	}
	s.log.Info("writing to config", "path", o.Store.Path(o.StackName))
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, s *session, command string, order []string) (*RunResult, error) {
	res := &RunResult{
		Stack:   o.StackName,
		Command: command,
		Order:   append([]string(nil), s.order...),
		Modes:   copyBools(s.modes),
	}
	working, done := StatusDeploying, StatusUp
	if command == "destroy" {
		working, done = StatusDestroying, StatusDown
	}
	var runErr error
	for _, name := range order {
		l, ok := o.Registry.Layer(name)
		if !ok || l == nil || !s.toggles[name] {
			res.Layers = append(res.Layers, LayerResult{Layer: name, Outcome: OutcomeSkipped})
			continue
		}
		if runErr == nil {
			runErr = ctx.Err()
		}
		if runErr != nil {
			s.state.Update(name, "", StatusSkipped)
			res.Layers = append(res.Layers, LayerResult{Layer: name, Outcome: OutcomeSkipped})
			continue
		}
		lr := LayerResult{Layer: name, StartedAt: o.clock()}
		s.state.Update(name, SymbolInProgress, working)
		s.log.V(1).Info("layer started", "layer", name, "command", command)
		if command == "destroy" {
			lr.Code = l.Destroy(ctx)
		} else {
			lr.Code = l.Deploy(ctx)
		}
		lr.FinishedAt = o.clock()
		lr.Outcome = OutcomeForCode(lr.Code)
		switch lr.Outcome {
		case OutcomeSuccess:
			s.state.Update(name, SymbolSuccess, done)
		case OutcomeFailure:
			s.state.Update(name, SymbolFailure, StatusFailed)
		default:
			s.state.Update(name, SymbolComplete, StatusComplete)
		}
		s.log.V(1).Info("layer finished", "layer", name, "command", command, "code", lr.Code, "outcome", string(lr.Outcome))
		res.Layers = append(res.Layers, lr)
	}
	res.Rows = s.state.Rows()
	res.FinishedAt = o.clock()
	return res, runErr
}

func (o *Orchestrator) record(ctx context.Context, s *session, res *RunResult) {
	if o.History == nil || res == nil {
		return
	}
	if err := o.History.RecordRun(context.WithoutCancel(ctx), res); err != nil {
		s.log.Error(err, "record run history")
	}
}

func (o *Orchestrator) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

func copyBools(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
