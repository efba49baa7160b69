// Package formatter renders command output for operators.
package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

// Table buffers rows and renders them as aligned columns under a header and
// a dashed separator. Nothing is written until Render, and a table with no
// rows renders nothing.
type Table struct {
	out      io.Writer
	headers  []string
	rows     [][]string
	maxWidth map[int]int // column index -> max runes (0 = unlimited)
}

// NewTable creates a table that writes to w with the given column headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		out:      w,
		headers:  headers,
		maxWidth: make(map[int]int),
	}
}

// SetMaxWidth caps a column (0-indexed) at width runes. Longer values are
// cut and end in "...".
func (t *Table) SetMaxWidth(col, width int) *Table {
	t.maxWidth[col] = width
	return t
}

// AddRow appends a row. Values beyond the header count are dropped and
// missing ones render empty. Newlines and tabs are flattened to spaces.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(values) {
			row[i] = t.clip(i, flatten(values[i]))
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of buffered rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the header, separator and rows.
func (t *Table) Render() error {
	if len(t.rows) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(t.out, 0, 0, 2, ' ', 0)

	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", utf8.RuneCountInString(h))
	}
	lines := append([][]string{t.headers, sep}, t.rows...)
	for _, cells := range lines {
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func (t *Table) clip(col int, s string) string {
	max := t.maxWidth[col]
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

var flattener = strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ")

func flatten(s string) string {
	return flattener.Replace(s)
}
