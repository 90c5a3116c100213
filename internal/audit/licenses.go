package audit

import (
	"context"
	"log/slog"

	"gw-audit/internal/domain"
)

// BuildLicenseIndex pages through every assignment of productID and groups
// them by user. A failed page ends the walk; whatever was collected so far is
// returned with partial set, and the caller treats missing users as holding
// no known license.
func BuildLicenseIndex(ctx context.Context, licenses domain.LicenseProvider, productID, customerID string,
	pacer Pacer, logger *slog.Logger) (ix domain.LicenseIndex, partial bool) {

	ix = domain.LicenseIndex{}
	pageToken := ""
	pages := 0
	for {
		page, err := licenses.ListAssignments(ctx, productID, customerID, pageToken)
		if err != nil {
			logger.Warn("license listing stopped early",
				"product", productID, "pages", pages, "users", len(ix), "error", err)
			return ix, true
		}
		pages++
		for _, a := range page.Items {
			ix.Add(a)
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
		if err := pacer.Wait(ctx); err != nil {
			logger.Warn("license listing interrupted", "pages", pages, "error", err)
			return ix, true
		}
	}
	logger.Info("license index built", "product", productID, "pages", pages, "users", len(ix))
	return ix, false
}
