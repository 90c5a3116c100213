package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coder/quartz"

	"gw-audit/internal/domain"
)

// CSVDir writes each table to <dir>/<name>-<timestamp>.csv.
type CSVDir struct {
	dir   string
	clock quartz.Clock
}

// NewCSVDir creates a CSV writer rooted at dir.
func NewCSVDir(dir string, clock quartz.Clock) *CSVDir {
	return &CSVDir{dir: dir, clock: clock}
}

// WriteTable writes t and returns the file path.
func (c *CSVDir) WriteTable(_ context.Context, t domain.Table) (string, error) {
	data, err := EncodeCSV(t)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.dir, 0o750); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(c.dir, objectName(t.Name, c.clock))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// EncodeCSV encodes the header and rows of t.
func EncodeCSV(t domain.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	return buf.Bytes(), nil
}

// objectName builds a unique, sortable name for a table snapshot.
func objectName(table string, clock quartz.Clock) string {
	return fmt.Sprintf("%s-%s.csv", table, clock.Now().UTC().Format("20060102T150405Z"))
}

var _ domain.TableWriter = (*CSVDir)(nil)
