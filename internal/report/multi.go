package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"gw-audit/internal/domain"
)

// Multi fans a table out to several writers. Every writer is attempted; the
// errors of those that failed are combined.
type Multi []domain.TableWriter

// WriteTable writes t to every writer and joins the returned locations.
func (m Multi) WriteTable(ctx context.Context, t domain.Table) (string, error) {
	var (
		errs *multierror.Error
		locs []string
	)
	for i, w := range m {
		loc, err := w.WriteTable(ctx, t)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("sink %d: %w", i, err))
			continue
		}
		if loc != "" {
			locs = append(locs, loc)
		}
	}
	return strings.Join(locs, ", "), errs.ErrorOrNil()
}

var _ domain.TableWriter = Multi(nil)
