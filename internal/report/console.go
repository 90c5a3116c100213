package report

import (
	"context"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"gw-audit/internal/domain"
)

// Console renders tables to a terminal.
type Console struct {
	w io.Writer
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// WriteTable renders t as a boxed table. It returns no location.
func (c *Console) WriteTable(_ context.Context, t domain.Table) (string, error) {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.w)
	tw.SetTitle(t.Name)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(t.Columns))
	for _, col := range t.Columns {
		header = append(header, col)
	}
	tw.AppendHeader(header)
	for _, row := range t.Rows {
		r := make(table.Row, 0, len(row))
		for _, v := range row {
			r = append(r, v)
		}
		tw.AppendRow(r)
	}
	tw.AppendFooter(table.Row{Count(len(t.Rows)) + " rows"})
	tw.Render()
	return "", nil
}

var _ domain.TableWriter = (*Console)(nil)
