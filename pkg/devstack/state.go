// File: pkg/devstack/state.go
// Brief: Per-run layer status tracking.

package devstack

// Symbol is the display marker of a layer's state.
type Symbol string

const (
	SymbolPending    Symbol = "◌"
	SymbolInProgress Symbol = "..."
	SymbolSuccess    Symbol = "✔"
	SymbolFailure    Symbol = "✘"
	SymbolComplete   Symbol = "☑"
)

// Status texts written by the orchestrator.
const (
	StatusNone       = "-"
	StatusPending    = "Pending"
	StatusSkipped    = "Skipped"
	StatusDeploying  = "Deploying layer"
	StatusDestroying = "Destroying layer"
	StatusUp         = "Layer is up"
	StatusDown       = "Layer is down"
	StatusFailed     = "Failed"
	StatusComplete   = "Complete"
)

// StatusRow is one row of the stack table.
type StatusRow struct {
	Symbol Symbol `json:"symbol"`
	Layer  string `json:"layer"`
	Status string `json:"status"`
}

// Renderer draws the stack table. Implementations typically clear the screen
// first.
type Renderer interface {
	Render(title string, rows []StatusRow)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(title string, rows []StatusRow)

func (f RendererFunc) Render(title string, rows []StatusRow) { f(title, rows) }

// StackState records the symbol and status text of every layer for one run.
// Tracked rows keep the order in which they were added; untracked entries are
// stored but never rendered.
type StackState struct {
	title    string
	renderer Renderer
	rows     []*StatusRow
	index    map[string]*StatusRow
}

// NewStackState returns an empty state rendering through r, which may be nil.
func NewStackState(title string, r Renderer) *StackState {
	return &StackState{
		title:    title,
		renderer: r,
		index:    map[string]*StatusRow{},
	}
}

// Track appends a pending row for layer. Tracking an already tracked layer is
// a no-op.
func (s *StackState) Track(layer string) {
	if row, ok := s.index[layer]; ok {
		for _, r := range s.rows {
			if r == row {
				return
			}
		}
		s.rows = append(s.rows, row)
		return
	}
	row := &StatusRow{Symbol: SymbolPending, Layer: layer, Status: StatusNone}
	s.index[layer] = row
	s.rows = append(s.rows, row)
}

// Update sets the symbol and status of layer and re-renders. An empty symbol
// or status leaves that field unchanged. Unknown layers get an untracked entry.
func (s *StackState) Update(layer string, symbol Symbol, status string) {
	row, ok := s.index[layer]
	if !ok {
		row = &StatusRow{Symbol: SymbolPending, Layer: layer, Status: StatusNone}
		s.index[layer] = row
	}
	if symbol != "" {
		row.Symbol = symbol
	}
	if status != "" {
		row.Status = status
	}
	s.Render()
}

// Entry returns the current row for layer, tracked or not.
func (s *StackState) Entry(layer string) (StatusRow, bool) {
	row, ok := s.index[layer]
	if !ok {
		return StatusRow{}, false
	}
	return *row, true
}

// Rows returns a snapshot of the tracked rows in display order.
func (s *StackState) Rows() []StatusRow {
	out := make([]StatusRow, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, *r)
	}
	return out
}

// Title is the table title, "<stack> Stack".
func (s *StackState) Title() string { return s.title }

// Render hands the tracked rows to the renderer.
func (s *StackState) Render() {
	if s.renderer == nil {
		return
	}
	s.renderer.Render(s.title, s.Rows())
}
