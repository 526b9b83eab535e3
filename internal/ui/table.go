// File: internal/ui/table.go
// Brief: Stack status table renderer.

package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/example/devstack/pkg/devstack"
)

const clearScreen = "\x1b[H\x1b[2J"

var tableHeader = [3]string{"State", "Layer", "Status"}

// TableRenderer draws the stack table, clearing the screen before each frame
// when Clear is set.
type TableRenderer struct {
	out   io.Writer
	Clear bool
	Color bool
	// Width truncates status messages so rows fit; 0 disables.
	Width int

	mu sync.Mutex
}

// NewTableRenderer enables clearing and colors only on a terminal.
func NewTableRenderer(out io.Writer, noClear bool) *TableRenderer {
	tty := IsTerminal(out)
	r := &TableRenderer{
		out:   out,
		Clear: tty && !noClear,
		Color: tty && !color.NoColor,
	}
	if cols, ok := TerminalWidth(out); ok && tty {
		r.Width = cols
	}
	return r
}

func (r *TableRenderer) Render(title string, rows []devstack.StatusRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Clear {
		fmt.Fprint(r.out, clearScreen)
	}
	fmt.Fprint(r.out, FormatTable(title, fitRows(rows, r.Width), r.Color))
}

// fitRows shortens status messages so each row fits in width columns.
func fitRows(rows []devstack.StatusRow, width int) []devstack.StatusRow {
	if width <= 0 {
		return rows
	}
	symbolW := runewidth.StringWidth(tableHeader[0])
	layerW := runewidth.StringWidth(tableHeader[1])
	for _, row := range rows {
		symbolW = max(symbolW, runewidth.StringWidth(string(row.Symbol)))
		layerW = max(layerW, runewidth.StringWidth(row.Layer))
	}
	avail := width - (symbolW + 2) - (layerW + 2) - 2 - 2
	if avail < runewidth.StringWidth(tableHeader[2]) {
		return rows
	}
	out := make([]devstack.StatusRow, len(rows))
	for i, row := range rows {
		row.Status = runewidth.Truncate(row.Status, avail, "…")
		out[i] = row
	}
	return out
}

// FormatTable renders title and rows as centered columns.
func FormatTable(title string, rows []devstack.StatusRow, colorize bool) string {
	cells := make([][3]string, 0, len(rows))
	widths := [3]int{}
	for i, h := range tableHeader {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		c := [3]string{string(row.Symbol), row.Layer, row.Status}
		for i := range c {
			if w := runewidth.StringWidth(c[i]); w > widths[i] {
				widths[i] = w
			}
		}
		cells = append(cells, c)
	}

	total := 0
	for _, w := range widths {
		total += w + 2
	}
	total += len(widths) - 1

	var b strings.Builder
	titleText := title
	if colorize {
		titleText = paint(title, color.Bold)
	}
	b.WriteString(strings.Repeat(" ", pad(total, runewidth.StringWidth(title))))
	b.WriteString(titleText)
	b.WriteString("\n")

	b.WriteString(formatRow(tableHeader, widths, nil))
	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("─", w+2)
	}
	b.WriteString(strings.Join(seps, "┼"))
	b.WriteString("\n")
	for i, c := range cells {
		var style func(string) string
		if colorize {
			symbol := rows[i].Symbol
			style = func(s string) string { return colorizeSymbol(symbol, s) }
		}
		b.WriteString(formatRow(c, widths, style))
	}
	return b.String()
}

func formatRow(c [3]string, widths [3]int, symbolStyle func(string) string) string {
	parts := make([]string, len(c))
	for i := range c {
		parts[i] = center(c[i], widths[i]+2)
		if i == 0 && symbolStyle != nil {
			parts[i] = symbolStyle(parts[i])
		}
	}
	return strings.Join(parts, "│") + "\n"
}

func center(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}

func pad(total, w int) int {
	if w >= total {
		return 0
	}
	return (total - w) / 2
}

func colorizeSymbol(symbol devstack.Symbol, s string) string {
	switch symbol {
	case devstack.SymbolSuccess:
		return paint(s, color.FgGreen, color.Bold)
	case devstack.SymbolFailure:
		return paint(s, color.FgRed, color.Bold)
	case devstack.SymbolComplete:
		return paint(s, color.FgCyan, color.Bold)
	case devstack.SymbolInProgress:
		return paint(s, color.FgYellow)
	case devstack.SymbolPending:
		return paint(s, color.FgHiBlack)
	default:
		return s
	}
}

func paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}
