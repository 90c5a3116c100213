package google

import (
	"context"

	"google.golang.org/api/licensing/v1"

	"gw-audit/internal/domain"
)

// Licensing implements domain.LicenseProvider with the Enterprise License
// Manager API.
type Licensing struct {
	svc *licensing.Service
}

// NewLicensing wraps a licensing client.
func NewLicensing(svc *licensing.Service) *Licensing {
	return &Licensing{svc: svc}
}

// ListAssignments returns one page of assignments for productID.
func (l *Licensing) ListAssignments(ctx context.Context, productID, customerID, pageToken string) (domain.LicensePage, error) {
	call := l.svc.LicenseAssignments.ListForProduct(productID, customerID).MaxResults(1000)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return domain.LicensePage{}, apiError(err, "list license assignments for "+productID)
	}
	page := domain.LicensePage{
		Items:         make([]domain.LicenseAssignment, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, a := range resp.Items {
		page.Items = append(page.Items, domain.LicenseAssignment{
			UserEmail: a.UserId,
			ProductID: a.ProductId,
			SKUID:     a.SkuId,
			SKUName:   a.SkuName,
		})
	}
	return page, nil
}

// RemoveAssignment revokes skuID from userKey.
func (l *Licensing) RemoveAssignment(ctx context.Context, productID, skuID, userKey string) error {
	if _, err := l.svc.LicenseAssignments.Delete(productID, skuID, userKey).Context(ctx).Do(); err != nil {
		return apiError(err, "remove "+skuID+" from "+userKey)
	}
	return nil
}

// InsertAssignment grants skuID to userKey.
func (l *Licensing) InsertAssignment(ctx context.Context, productID, skuID, userKey string) error {
	_, err := l.svc.LicenseAssignments.Insert(productID, skuID, &licensing.LicenseAssignmentInsert{
		UserId: userKey,
	}).Context(ctx).Do()
	if err != nil {
		return apiError(err, "assign "+skuID+" to "+userKey)
	}
	return nil
}

var _ domain.LicenseProvider = (*Licensing)(nil)
