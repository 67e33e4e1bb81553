package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v2"

	"github.com/y-ui/yuictl/internal/api"
	"github.com/y-ui/yuictl/internal/ui"
)

// Format selects how command results are printed.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates an -o value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

// writeData prints v as JSON or YAML. YAML keeps the JSON field names and
// their order.
func writeData(w io.Writer, f Format, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if f == FormatJSON {
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	var doc any
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("{")):
		var m yaml.MapSlice
		err = yaml.Unmarshal(data, &m)
		doc = m
	case bytes.HasPrefix(trimmed, []byte("[")) && bytes.HasPrefix(bytes.TrimSpace(trimmed[1:]), []byte("{")):
		var items []yaml.MapSlice
		err = yaml.Unmarshal(data, &items)
		doc = items
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// printList prints items with the table schema, or the raw items.
func printList[T any](a *App, t ui.Table[T], items []T) error {
	if a.Format != FormatTable {
		if items == nil {
			items = []T{}
		}
		return writeData(a.Stdout, a.Format, items)
	}
	return ui.RenderText(a.Stdout, t, items, a.Printer)
}

// printPage is printList plus the pagination footer.
func printPage[T any](a *App, t ui.Table[T], pg *api.Page[T]) error {
	if a.Format != FormatTable {
		return writeData(a.Stdout, a.Format, pg)
	}
	if err := ui.RenderText(a.Stdout, t, pg.List, a.Printer); err != nil {
		return err
	}
	if pages := pg.Pages(); pages > 1 {
		a.Printer.Fprintf(a.Stdout, "%s\n", a.Printer.Sprintf("Page %d of %d (%d total)", pg.Page, pages, pg.Total))
	}
	return nil
}

// printRecords prints label/value pairs, or v for machine formats.
func printRecords(a *App, v any, records []ui.Record) error {
	if a.Format != FormatTable {
		return writeData(a.Stdout, a.Format, v)
	}
	return ui.RenderRecords(a.Stdout, records, a.Printer)
}

// say prints a translated status line.
func say(a *App, format string, args ...any) {
	if a.Format != FormatTable {
		return
	}
	a.Printer.Fprintf(a.Stdout, "%s\n", a.Printer.Sprintf(format, args...))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
