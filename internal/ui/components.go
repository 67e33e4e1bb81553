// Package ui defines each resource table once so the console and the CLI
// render the same columns, labels and value formats.
package ui

import (
	"golang.org/x/text/message"
)

// Column defines one column of a resource table.
type Column[T any] struct {
	Key   string // stable identifier, used by --columns
	Label string // English label, translated at render time
	Width int    // console width in cells
	Value func(T, *message.Printer) string
}

// Table describes how a list of T is shown.
type Table[T any] struct {
	ID        string
	Title     string
	Columns   []Column[T]
	Paginated bool
	EmptyText string
}

// Headers returns the translated column labels.
func (t Table[T]) Headers(p *message.Printer) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = translate(p, c.Label)
	}
	return out
}

// Widths returns the console column widths.
func (t Table[T]) Widths() []int {
	out := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Width
	}
	return out
}

// Rows formats every item.
func (t Table[T]) Rows(items []T, p *message.Printer) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		row := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = c.Value(it, p)
		}
		rows = append(rows, row)
	}
	return rows
}

// Select keeps only the columns whose keys are listed, in that order.
// Unknown keys are ignored; an empty selection keeps every column.
func (t Table[T]) Select(keys ...string) Table[T] {
	if len(keys) == 0 {
		return t
	}
	byKey := make(map[string]Column[T], len(t.Columns))
	for _, c := range t.Columns {
		byKey[c.Key] = c
	}
	out := t
	out.Columns = nil
	for _, k := range keys {
		if c, ok := byKey[k]; ok {
			out.Columns = append(out.Columns, c)
		}
	}
	if len(out.Columns) == 0 {
		return t
	}
	return out
}

func translate(p *message.Printer, s string) string {
	if p == nil {
		return s
	}
	return p.Sprintf(s)
}
