package logger

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Table renders rows in a box drawn with line characters. Cells are padded
// by rune count so paths with non-ASCII names stay aligned.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
	out     io.Writer
}

func NewTable(headers []string, out io.Writer) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}

	return &Table{
		headers: headers,
		widths:  widths,
		out:     out,
	}
}

// AddRow appends a row, truncating or padding it to the header count.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)

	for i, cell := range row {
		if n := utf8.RuneCountInString(cell); n > t.widths[i] {
			t.widths[i] = n
		}
	}

	t.rows = append(t.rows, row)
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Print() {
	var sb strings.Builder

	sb.WriteString(t.rule("┌", "┬", "┐"))
	sb.WriteString(t.line(t.headers))
	sb.WriteString(t.rule("├", "┼", "┤"))
	for _, row := range t.rows {
		sb.WriteString(t.line(row))
	}
	sb.WriteString(t.rule("└", "┴", "┘"))

	fmt.Fprint(t.out, sb.String())
}

func (t *Table) rule(left, mid, right string) string {
	parts := make([]string, len(t.widths))
	for i, w := range t.widths {
		parts[i] = strings.Repeat("─", w+2)
	}
	return left + strings.Join(parts, mid) + right + "\n"
}

func (t *Table) line(cells []string) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		pad := t.widths[i] - utf8.RuneCountInString(cell)
		parts[i] = " " + cell + strings.Repeat(" ", pad) + " "
	}
	return "│" + strings.Join(parts, "│") + "│\n"
}
