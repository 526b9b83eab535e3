package devstack

import "github.com/go-logr/logr"

// Env is handed to every layer's Init. It replaces a process-wide stack
// object: layers reach the logger, shared configuration, mode status and the
// status table only through it.
type Env struct {
	Stack  string
	Layer  string
	Log    logr.Logger
	Shared SharedConfig

	modes map[string]bool
	state *StackState
}

// ModeEnabled reports the operator's choice for mode. Before selection it
// reflects the persisted or declared default.
func (e *Env) ModeEnabled(mode string) bool {
	if e == nil || e.modes == nil {
		return false
	}
	return e.modes[mode]
}

// Modes returns a copy of the current mode status.
func (e *Env) Modes() map[string]bool {
	out := map[string]bool{}
	if e == nil {
		return out
	}
	for k, v := range e.modes {
		out[k] = v
	}
	return out
}

// UpdateStatus sets this layer's row in the stack table.
func (e *Env) UpdateStatus(symbol Symbol, status string) {
	if e == nil || e.state == nil {
		return
	}
	e.state.Update(e.Layer, symbol, status)
}
