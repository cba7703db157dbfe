// Package table renders bordered text tables. Cells may contain ANSI color
// sequences; they are ignored when measuring column widths.
package table

import (
	"io"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Alignment of the text within a cell.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

func stripAnsi(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func displayWidth(s string) int {
	return runewidth.StringWidth(stripAnsi(s))
}

// Table accumulates rows and writes them on Render.
type Table struct {
	writer          io.Writer
	header          []string
	rows            [][]string
	alignment       []Alignment
	headerAlignment []Alignment
}

// NewTable returns a table that renders to w.
func NewTable(w io.Writer) *Table {
	return &Table{writer: w}
}

func (t *Table) WithHeader(header []string) *Table {
	t.header = header
	return t
}

func (t *Table) WithColumnAlignment(alignment []Alignment) *Table {
	t.alignment = alignment
	return t
}

func (t *Table) WithHeaderAlignment(alignment []Alignment) *Table {
	t.headerAlignment = alignment
	return t
}

func (t *Table) WithRows(rows [][]string) *Table {
	t.rows = append(t.rows, rows...)
	return t
}

func (t *Table) Append(row []string) *Table {
	t.rows = append(t.rows, row)
	return t
}

func (t *Table) widths() []int {
	columns := len(t.header)
	for _, row := range t.rows {
		if len(row) > columns {
			columns = len(row)
		}
	}
	widths := make([]int, columns)
	measure := func(row []string) {
		for i, cell := range row {
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

// Render writes the table.
func (t *Table) Render() {
	widths := t.widths()
	var sb strings.Builder
	separator := func() {
		sb.WriteByte('+')
		for _, w := range widths {
			sb.WriteString(strings.Repeat("-", w+2))
			sb.WriteByte('+')
		}
		sb.WriteByte('\n')
	}
	line := func(row []string, alignment []Alignment) {
		sb.WriteByte('|')
		for i, w := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			align := AlignLeft
			if i < len(alignment) {
				align = alignment[i]
			}
			sb.WriteByte(' ')
			sb.WriteString(pad(cell, w, align))
			sb.WriteString(" |")
		}
		sb.WriteByte('\n')
	}
	separator()
	if len(t.header) > 0 {
		line(t.header, t.headerAlignment)
		separator()
	}
	for _, row := range t.rows {
		line(row, t.alignment)
	}
	if len(t.rows) > 0 {
		separator()
	}
	io.WriteString(t.writer, sb.String())
}

func pad(s string, width int, align Alignment) string {
	gap := width - displayWidth(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + s
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	}
	return s + strings.Repeat(" ", gap)
}
