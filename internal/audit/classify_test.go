package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gw-audit/internal/domain"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return testNow.AddDate(0, 0, -n) }

func ptr(t time.Time) *time.Time { return &t }

func TestClassify(t *testing.T) {
	cutoff := daysAgo(180)

	tests := []struct {
		name       string
		reports    *time.Time
		directory  *time.Time
		wantStatus domain.ActivityStatus
		wantSource domain.LoginSource
		wantLogin  *time.Time
	}{
		{
			name:       "recent audit log login wins over stale directory field",
			reports:    ptr(daysAgo(5)),
			directory:  ptr(daysAgo(400)),
			wantStatus: domain.StatusActive,
			wantSource: domain.LoginSourceReports,
			wantLogin:  ptr(daysAgo(5)),
		},
		{
			name:       "recent audit log login with no directory field",
			reports:    ptr(daysAgo(5)),
			wantStatus: domain.StatusActive,
			wantSource: domain.LoginSourceReports,
			wantLogin:  ptr(daysAgo(5)),
		},
		{
			name:       "directory field only, outside window",
			directory:  ptr(daysAgo(400)),
			wantStatus: domain.StatusInactive,
			wantSource: domain.LoginSourceDirectory,
			wantLogin:  ptr(daysAgo(400)),
		},
		{
			name:       "directory field only, inside window",
			directory:  ptr(daysAgo(30)),
			wantStatus: domain.StatusActive,
			wantSource: domain.LoginSourceDirectory,
			wantLogin:  ptr(daysAgo(30)),
		},
		{
			name:       "directory field exactly at cutoff is active",
			directory:  ptr(cutoff),
			wantStatus: domain.StatusActive,
			wantSource: domain.LoginSourceDirectory,
			wantLogin:  ptr(cutoff),
		},
		{
			name:       "directory field one second before cutoff is inactive",
			directory:  ptr(cutoff.Add(-time.Second)),
			wantStatus: domain.StatusInactive,
			wantSource: domain.LoginSourceDirectory,
			wantLogin:  ptr(cutoff.Add(-time.Second)),
		},
		{
			name:       "audit log login exactly at cutoff is active",
			reports:    ptr(cutoff),
			wantStatus: domain.StatusActive,
			wantSource: domain.LoginSourceReports,
			wantLogin:  ptr(cutoff),
		},
		{
			name:       "never seen by either source",
			wantStatus: domain.StatusInactive,
			wantSource: domain.LoginSourceNone,
		},
		{
			name:       "stale audit log entry is displayed but fresh directory field still counts",
			reports:    ptr(daysAgo(200)),
			directory:  ptr(daysAgo(10)),
			wantStatus: domain.StatusActive,
			wantSource: domain.LoginSourceReports,
			wantLogin:  ptr(daysAgo(200)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logins := domain.LoginIndex{}
			if tt.reports != nil {
				logins.Observe(domain.LoginEvent{Actor: "User@Example.com", Time: *tt.reports})
			}

			got := Classify("user@example.com", tt.directory, logins, cutoff)

			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantLogin, got.LastLogin)
		})
	}
}

func TestClassify_DoesNotAliasDirectoryField(t *testing.T) {
	dir := daysAgo(400)
	got := Classify("a@example.com", &dir, domain.LoginIndex{}, daysAgo(180))
	dir = testNow
	assert.Equal(t, daysAgo(400), *got.LastLogin)
}

func TestCutoff(t *testing.T) {
	assert.Equal(t, time.Date(2026, 4, 17, 12, 0, 0, 0, time.UTC), Cutoff(testNow, 180))
	assert.Equal(t, testNow, Cutoff(testNow, 0))
}

func TestLoginWindow(t *testing.T) {
	retention := 180 * 24 * time.Hour

	t.Run("cutoff inside retention", func(t *testing.T) {
		start, end, ok := LoginWindow(daysAgo(90), testNow, retention)
		assert.True(t, ok)
		assert.Equal(t, daysAgo(90), start)
		assert.Equal(t, testNow, end)
	})

	t.Run("cutoff beyond retention is clamped", func(t *testing.T) {
		start, _, ok := LoginWindow(daysAgo(400), testNow, retention)
		assert.True(t, ok)
		assert.Equal(t, testNow.Add(-retention), start)
	})

	t.Run("zero retention means unbounded", func(t *testing.T) {
		start, _, ok := LoginWindow(daysAgo(400), testNow, 0)
		assert.True(t, ok)
		assert.Equal(t, daysAgo(400), start)
	})

	t.Run("cutoff in the future is empty", func(t *testing.T) {
		_, _, ok := LoginWindow(testNow.Add(time.Hour), testNow, retention)
		assert.False(t, ok)
	})
}
