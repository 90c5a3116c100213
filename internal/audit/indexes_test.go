package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-audit/internal/domain"
	"gw-audit/internal/testutil"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestBuildLicenseIndex(t *testing.T) {
	licenses := testutil.AssignmentLicenses(2,
		domain.LicenseAssignment{UserEmail: "A@example.com", SKUID: "1010020027", SKUName: "Business Starter"},
		domain.LicenseAssignment{UserEmail: "b@example.com", SKUID: "1010020027", SKUName: "Business Starter"},
		domain.LicenseAssignment{UserEmail: "a@example.com", SKUID: "1010020027", SKUName: "Business Starter"},
		domain.LicenseAssignment{UserEmail: "a@example.com", SKUID: "1010020028", SKUName: "Business Standard"},
	)

	ix, partial := BuildLicenseIndex(context.Background(), licenses, "Google-Apps", "C01", NewPacer(0), discardLogger())

	assert.False(t, partial)
	assert.Len(t, ix, 2)
	assert.Len(t, ix.Lookup("a@example.com"), 2, "duplicate SKU rows collapse")
	assert.True(t, ix.HasSKU("A@EXAMPLE.COM", "1010020028"))
}

func TestBuildLicenseIndex_PageErrorReturnsPartial(t *testing.T) {
	calls := 0
	licenses := &testutil.MockLicenses{
		ListAssignmentsFn: func(_ context.Context, productID, customerID, pageToken string) (domain.LicensePage, error) {
			calls++
			assert.Equal(t, "Google-Apps", productID)
			assert.Equal(t, "C01", customerID)
			if pageToken == "" {
				return domain.LicensePage{
					Items:         []domain.LicenseAssignment{{UserEmail: "a@example.com", SKUID: "s1"}},
					NextPageToken: "p2",
				}, nil
			}
			return domain.LicensePage{}, errors.New("503 backend error")
		},
	}

	ix, partial := BuildLicenseIndex(context.Background(), licenses, "Google-Apps", "C01", NewPacer(0), discardLogger())

	assert.True(t, partial)
	assert.Equal(t, 2, calls)
	assert.Len(t, ix.Lookup("a@example.com"), 1)
}

func TestResolveLogins_KeepsLatestPerUser(t *testing.T) {
	reports := &testutil.MockReports{
		ListLoginEventsFn: func(_ context.Context, _, _ time.Time, pageToken string) (domain.LoginEventPage, error) {
			if pageToken == "" {
				return domain.LoginEventPage{
					Events: []domain.LoginEvent{
						{Actor: "a@example.com", Time: daysAgo(3)},
						{Actor: "b@example.com", Time: daysAgo(50)},
					},
					NextPageToken: "next",
				}, nil
			}
			return domain.LoginEventPage{Events: []domain.LoginEvent{
				{Actor: "A@example.com", Time: daysAgo(1)},
				{Actor: "a@example.com", Time: daysAgo(7)},
			}}, nil
		},
	}

	ix, partial := ResolveLogins(context.Background(), reports, daysAgo(90), testNow, DefaultRetention, NewPacer(0), discardLogger())

	assert.False(t, partial)
	at, ok := ix.Lookup("a@example.com")
	require.True(t, ok)
	assert.Equal(t, daysAgo(1), at)
	assert.Equal(t, 2, reports.Calls())
}

func TestResolveLogins_ClampsToRetention(t *testing.T) {
	reports := &testutil.MockReports{}

	_, partial := ResolveLogins(context.Background(), reports, daysAgo(400), testNow, DefaultRetention, NewPacer(0), discardLogger())

	assert.False(t, partial)
	require.Len(t, reports.Windows, 1)
	assert.Equal(t, testNow.Add(-DefaultRetention), reports.Windows[0][0])
	assert.Equal(t, testNow, reports.Windows[0][1])
}

func TestResolveLogins_EmptyWindowMakesNoCall(t *testing.T) {
	reports := &testutil.MockReports{}

	ix, partial := ResolveLogins(context.Background(), reports, testNow.Add(24*time.Hour), testNow, DefaultRetention, NewPacer(0), discardLogger())

	assert.False(t, partial)
	assert.Empty(t, ix)
	assert.Equal(t, 0, reports.Calls())
}

func TestResolveLogins_PageErrorReturnsPartial(t *testing.T) {
	reports := &testutil.MockReports{
		ListLoginEventsFn: func(_ context.Context, _, _ time.Time, pageToken string) (domain.LoginEventPage, error) {
			if pageToken == "" {
				return domain.LoginEventPage{
					Events:        []domain.LoginEvent{{Actor: "a@example.com", Time: daysAgo(2)}},
					NextPageToken: "next",
				}, nil
			}
			return domain.LoginEventPage{}, errors.New("quota exceeded")
		},
	}

	ix, partial := ResolveLogins(context.Background(), reports, daysAgo(30), testNow, DefaultRetention, NewPacer(0), discardLogger())

	assert.True(t, partial)
	_, ok := ix.Lookup("a@example.com")
	assert.True(t, ok)
}
