package domain

import (
	"sort"
	"strings"
)

// LicenseAssignment is one SKU held by one user.
type LicenseAssignment struct {
	UserEmail string
	ProductID string
	SKUID     string
	SKUName   string
}

// LicensePage is one page of license assignments for a product.
type LicensePage struct {
	Items         []LicenseAssignment
	NextPageToken string
}

// LicenseIndex maps a normalized user email to the SKUs that user holds.
type LicenseIndex map[string][]LicenseAssignment

// Add records an assignment, ignoring repeats of the same SKU for the same user.
func (ix LicenseIndex) Add(a LicenseAssignment) {
	key := NormalizeEmail(a.UserEmail)
	if key == "" {
		return
	}
	for _, existing := range ix[key] {
		if existing.SKUID == a.SKUID {
			return
		}
	}
	a.UserEmail = key
	ix[key] = append(ix[key], a)
}

// Lookup returns the assignments held by email, or nil when none are known.
func (ix LicenseIndex) Lookup(email string) []LicenseAssignment {
	return ix[NormalizeEmail(email)]
}

// HasSKU reports whether email holds skuID.
func (ix LicenseIndex) HasSKU(email, skuID string) bool {
	for _, a := range ix.Lookup(email) {
		if a.SKUID == skuID {
			return true
		}
	}
	return false
}

// Summary renders a user's licenses as a stable, human-readable list.
func Summary(assignments []LicenseAssignment) string {
	names := make([]string, 0, len(assignments))
	for _, a := range assignments {
		name := a.SKUName
		if name == "" {
			name = a.SKUID
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
