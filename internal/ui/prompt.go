// File: internal/ui/prompt.go
// Brief: Checkbox prompt for choosing layers and modes.

package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/example/devstack/internal/modeflags"
	"github.com/example/devstack/pkg/devstack"
)

const (
	layersSeparator = "--LAYERS--"
	modesSeparator  = "--MODES--"
)

var (
	promptTitleStyle = lipgloss.NewStyle().Bold(true)
	promptSepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	promptCursor     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	promptHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type checkboxItem struct {
	name      string
	checked   bool
	separator bool
}

// checkboxModel is the bubbletea model behind CheckboxSelector.
type checkboxModel struct {
	title   string
	items   []checkboxItem
	cursor  int
	done    bool
	aborted bool
}

func newCheckboxModel(req devstack.SelectionRequest) checkboxModel {
	m := checkboxModel{title: fmt.Sprintf("Select layers and modes for %s Stack", req.Stack)}
	if len(req.Layers) > 0 {
		m.items = append(m.items, checkboxItem{name: layersSeparator, separator: true})
		for _, c := range req.Layers {
			m.items = append(m.items, checkboxItem{name: c.Name, checked: c.Checked})
		}
	}
	if len(req.Modes) > 0 {
		m.items = append(m.items, checkboxItem{name: modesSeparator, separator: true})
		for _, c := range req.Modes {
			m.items = append(m.items, checkboxItem{name: c.Name, checked: c.Checked})
		}
	}
	m.cursor = m.next(-1, 1)
	return m
}

func (m checkboxModel) Init() tea.Cmd { return nil }

func (m checkboxModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.aborted = true
		return m, tea.Quit
	case "enter":
		m.done = true
		return m, tea.Quit
	case "up", "k":
		m.cursor = m.next(m.cursor, -1)
	case "down", "j", "tab":
		m.cursor = m.next(m.cursor, 1)
	case " ", "x":
		if m.selectable(m.cursor) {
			m.items[m.cursor].checked = !m.items[m.cursor].checked
		}
	case "a":
		// toggles every item: all on unless all are already on
		all := true
		for _, it := range m.items {
			if !it.separator && !it.checked {
				all = false
				break
			}
		}
		for i := range m.items {
			if !m.items[i].separator {
				m.items[i].checked = !all
			}
		}
	}
	return m, nil
}

func (m checkboxModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("? "+m.title) + "\n")
	for i, it := range m.items {
		if it.separator {
			b.WriteString("   " + promptSepStyle.Render(it.name) + "\n")
			continue
		}
		box := "[ ]"
		if it.checked {
			box = "[x]"
		}
		prefix := "  "
		if i == m.cursor {
			prefix = promptCursor.Render("❯") + " "
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", prefix, box, it.name))
	}
	b.WriteString(promptHelpStyle.Render("space toggle • a all • enter confirm • esc abort") + "\n")
	return b.String()
}

// Selected returns the checked names in display order.
func (m checkboxModel) Selected() []string {
	var out []string
	for _, it := range m.items {
		if !it.separator && it.checked {
			out = append(out, it.name)
		}
	}
	return out
}

func (m checkboxModel) selectable(i int) bool {
	return i >= 0 && i < len(m.items) && !m.items[i].separator
}

// next returns the next selectable index from i in direction dir, or i when
// there is none.
func (m checkboxModel) next(i, dir int) int {
	for j := i + dir; j >= 0 && j < len(m.items); j += dir {
		if m.selectable(j) {
			return j
		}
	}
	if m.selectable(i) {
		return i
	}
	return -1
}

// CheckboxSelector prompts on a terminal.
type CheckboxSelector struct {
	In  io.Reader
	Out io.Writer
}

func (s *CheckboxSelector) Select(ctx context.Context, req devstack.SelectionRequest) ([]string, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if s.In != nil {
		opts = append(opts, tea.WithInput(s.In))
	}
	if s.Out != nil {
		opts = append(opts, tea.WithOutput(s.Out))
	}
	final, err := tea.NewProgram(newCheckboxModel(req), opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil, devstack.ErrSelectionAborted
		}
		return nil, fmt.Errorf("selection prompt: %w", err)
	}
	m, ok := final.(checkboxModel)
	if !ok || m.aborted {
		return nil, devstack.ErrSelectionAborted
	}
	return m.Selected(), nil
}

// PresetSelector answers without prompting: checked choices stay enabled
// unless Overrides says otherwise.
type PresetSelector struct {
	Overrides modeflags.Overrides
}

func (s PresetSelector) Select(ctx context.Context, req devstack.SelectionRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Overrides.Apply(req)
}

var (
	_ devstack.Selector = (*CheckboxSelector)(nil)
	_ devstack.Selector = PresetSelector{}
	_ devstack.Renderer = (*TableRenderer)(nil)
)
