package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLicenseIndex_Add(t *testing.T) {
	ix := LicenseIndex{}
	ix.Add(LicenseAssignment{UserEmail: "Alice@Example.com", SKUID: "1010020027", SKUName: "Business Starter"})
	ix.Add(LicenseAssignment{UserEmail: "alice@example.com", SKUID: "1010020027", SKUName: "Business Starter"})
	ix.Add(LicenseAssignment{UserEmail: "alice@example.com", SKUID: "1010020028", SKUName: "Business Standard"})
	ix.Add(LicenseAssignment{UserEmail: "  ", SKUID: "1010020027"})

	assert.Len(t, ix, 1)
	got := ix.Lookup("ALICE@example.com")
	assert.Len(t, got, 2)
	assert.Equal(t, "alice@example.com", got[0].UserEmail)
	assert.True(t, ix.HasSKU("alice@example.com", "1010020028"))
	assert.False(t, ix.HasSKU("alice@example.com", "1010340001"))
	assert.Nil(t, ix.Lookup("bob@example.com"))
}

func TestSummary(t *testing.T) {
	got := Summary([]LicenseAssignment{
		{SKUID: "1010020028", SKUName: "Business Standard"},
		{SKUID: "1010340001"},
		{SKUID: "1010020027", SKUName: "Business Starter"},
	})
	assert.Equal(t, "1010340001, Business Standard, Business Starter", got)
	assert.Empty(t, Summary(nil))
}

func TestLoginIndex_ObserveKeepsLatest(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ix := LoginIndex{}
	ix.Observe(LoginEvent{Actor: "Bob@example.com", Time: base})
	ix.Observe(LoginEvent{Actor: "bob@example.com", Time: base.Add(-time.Hour)})
	ix.Observe(LoginEvent{Actor: "bob@example.com", Time: base.Add(2 * time.Hour)})
	ix.Observe(LoginEvent{Actor: "carol@example.com"})

	got, ok := ix.Lookup("BOB@EXAMPLE.COM")
	assert.True(t, ok)
	assert.Equal(t, base.Add(2*time.Hour), got)

	_, ok = ix.Lookup("carol@example.com")
	assert.False(t, ok, "zero timestamps are not logins")
}
