package devstack

import (
	"errors"
	"fmt"
	"strings"
)

// Process exit codes for fatal conditions.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitRegistration = 2
	ExitResolution   = 3
	ExitAborted      = 130
)

// ErrSelectionAborted is returned when the operator abandons the selection prompt.
var ErrSelectionAborted = errors.New("selection aborted")

// RegistrationError reports a definition that lacks required capabilities.
type RegistrationError struct {
	Kind    string
	Type    string
	Name    string
	Missing []string
}

func (e *RegistrationError) Error() string {
	name := e.Name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("register %s %s (%s): missing %s", strings.ToLower(e.Kind), name, e.Type, strings.Join(e.Missing, " or "))
}

// DuplicateError is returned under DuplicateReject when a name is registered
// twice, and under every policy when a layer and a mode would share a name.
type DuplicateError struct {
	Kind string
	Name string
	// UsedBy is the other kind holding Name; empty for same-kind duplicates.
	UsedBy string
}

func (e *DuplicateError) Error() string {
	if e.UsedBy != "" {
		return fmt.Sprintf("register %s %s: name already used by a %s", strings.ToLower(e.Kind), e.Name, strings.ToLower(e.UsedBy))
	}
	return fmt.Sprintf("register %s %s: already registered", strings.ToLower(e.Kind), e.Name)
}

// MissingEdge is a dependency on a layer that is not part of the graph.
type MissingEdge struct {
	Layer      string
	Dependency string
}

// DependencyResolutionError reports a graph that cannot be fully ordered.
type DependencyResolutionError struct {
	Missing []MissingEdge
	// Stuck holds the layers left unordered when a cycle blocked progress.
	Stuck []string
	Cycle []string
}

func (e *DependencyResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("Dependency resolution failed")
	if len(e.Missing) > 0 {
		parts := make([]string, 0, len(e.Missing))
		for _, m := range e.Missing {
			parts = append(parts, fmt.Sprintf("%s needs missing layer %q", m.Layer, m.Dependency))
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
		return b.String()
	}
	if len(e.Cycle) > 0 {
		path := append(append([]string(nil), e.Cycle...), e.Cycle[0])
		fmt.Fprintf(&b, ": dependency cycle detected: %s", strings.Join(path, " -> "))
		return b.String()
	}
	if len(e.Stuck) > 0 {
		fmt.Fprintf(&b, ": %d layers cannot be ordered: %v", len(e.Stuck), e.Stuck)
	}
	return b.String()
}

// ExitCode maps an error returned by the orchestrator to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var regErr *RegistrationError
	var dupErr *DuplicateError
	var depErr *DependencyResolutionError
	switch {
	case errors.As(err, &regErr), errors.As(err, &dupErr):
		return ExitRegistration
	case errors.As(err, &depErr):
		return ExitResolution
	case errors.Is(err, ErrSelectionAborted):
		return ExitAborted
	default:
		return ExitFailure
	}
}
