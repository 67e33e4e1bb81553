package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/message"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// RenderText writes items as a bordered text table. An empty list writes
// the table's EmptyText instead.
func RenderText[T any](w io.Writer, t Table[T], items []T, p *message.Printer) error {
	if len(items) == 0 {
		_, err := io.WriteString(w, translate(p, t.EmptyText)+"\n")
		return err
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		Headers(t.Headers(p)...).
		Rows(t.Rows(items, p)...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := io.WriteString(w, tbl.Render()+"\n")
	return err
}

// Record is one labelled value of a detail view.
type Record struct {
	Label string
	Value string
}

// RenderRecords writes label/value pairs aligned on the label column.
func RenderRecords(w io.Writer, records []Record, p *message.Printer) error {
	width := 0
	labels := make([]string, len(records))
	for i, r := range records {
		labels[i] = translate(p, r.Label)
		if n := lipgloss.Width(labels[i]); n > width {
			width = n
		}
	}

	label := lipgloss.NewStyle().Bold(true).Width(width + 2)
	for i, r := range records {
		if _, err := io.WriteString(w, label.Render(labels[i])+r.Value+"\n"); err != nil {
			return err
		}
	}
	return nil
}
