package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/trackify-app/trackify/internal/domain/directory"
)

// Table provides table rendering utilities
type Table struct {
	table  *tablewriter.Table
	header []string
	rows   [][]string
}

// NewTable creates a new table on w with default styling
func NewTable(w io.Writer, headers []string) *Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)

	return &Table{table: table, header: headers}
}

// AddRow adds a row to the table
func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

// Render outputs the table
func (t *Table) Render() error {
	t.table.Header(t.header)
	if err := t.table.Bulk(t.rows); err != nil {
		return err
	}
	return t.table.Render()
}

// Directory prints a directory page with its pagination hints.
func (p *Printer) Directory(l *directory.Listing) error {
	if l.Empty() {
		fmt.Fprintln(p.out, directory.EmptyPlaceholder)
	} else {
		t := NewTable(p.out, []string{"Name", "Email", "Status", "Track"})
		for _, e := range l.Entries {
			t.AddRow([]string{e.FirstName, e.EmailID, p.Presence(e.IsOnline), e.TrackPath()})
		}
		if err := t.Render(); err != nil {
			return fmt.Errorf("failed to render directory: %w", err)
		}
	}

	if !l.ShowControls() {
		return nil
	}
	fmt.Fprintf(p.out, "\nPage %d of %d\n", l.Number, l.TotalPages)
	if l.PrevEnabled() {
		fmt.Fprintf(p.out, "%s\n", p.Dim(fmt.Sprintf("Previous: --page %d", l.PrevPage())))
	}
	if l.NextEnabled() {
		fmt.Fprintf(p.out, "%s\n", p.Dim(fmt.Sprintf("Next: --page %d", l.NextPage())))
	}
	return nil
}
