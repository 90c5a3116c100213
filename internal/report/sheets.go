package report

import (
	"context"
	"fmt"

	"github.com/coder/quartz"
	"google.golang.org/api/sheets/v4"

	"gw-audit/internal/domain"
)

// Sheets writes tables to Google Sheets. With a spreadsheet ID every table
// becomes a new tab of that spreadsheet; without one a new spreadsheet is
// created per table.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	clock         quartz.Clock
}

// NewSheets creates a Sheets writer.
func NewSheets(svc *sheets.Service, spreadsheetID string, clock quartz.Clock) *Sheets {
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID, clock: clock}
}

// WriteTable writes t and returns the spreadsheet URL.
func (s *Sheets) WriteTable(ctx context.Context, t domain.Table) (string, error) {
	title := fmt.Sprintf("%s %s", t.Name, s.clock.Now().UTC().Format("2006-01-02 1504"))

	id, url, tab := s.spreadsheetID, "", title
	if id == "" {
		ss, err := s.svc.Spreadsheets.Create(&sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{Title: title},
			Sheets:     []*sheets.Sheet{{Properties: &sheets.SheetProperties{Title: t.Name}}},
		}).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("create spreadsheet: %w", err)
		}
		id, url, tab = ss.SpreadsheetId, ss.SpreadsheetUrl, t.Name
	} else {
		_, err := s.svc.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("add sheet %q: %w", tab, err)
		}
	}
	if url == "" {
		url = "https://docs.google.com/spreadsheets/d/" + id
	}

	values := make([][]interface{}, 0, len(t.Rows)+1)
	values = append(values, toCells(t.Columns))
	for _, row := range t.Rows {
		values = append(values, toCells(row))
	}
	_, err := s.svc.Spreadsheets.Values.Update(id, fmt.Sprintf("'%s'!A1", tab), &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write values to %q: %w", tab, err)
	}
	return url, nil
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

var _ domain.TableWriter = (*Sheets)(nil)
