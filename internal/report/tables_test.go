package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-audit/internal/domain"
)

func TestInactiveUsersTable(t *testing.T) {
	created := time.Date(2021, 4, 2, 10, 0, 0, 0, time.UTC)
	dirLogin := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	users := []domain.ClassifiedUser{
		{
			User: domain.User{Email: "b@example.com", FullName: "User B", OrgUnitPath: "/Sales", CreatedAt: created},
			Status: domain.StatusInactive, LastLogin: &dirLogin, LastLoginSource: domain.LoginSourceDirectory,
			Licenses: []domain.LicenseAssignment{{SKUID: "1010020027", SKUName: "Business Starter"}},
		},
		{
			User:   domain.User{Email: "d@example.com", FullName: "User D", OrgUnitPath: "/Legal", IsDelegatedAdmin: true},
			Status: domain.StatusInactive, LastLoginSource: domain.LoginSourceNone,
			Licenses:  []domain.LicenseAssignment{{SKUID: "1010020027", SKUName: "Business Starter"}},
			Exclusion: &domain.Exclusion{Reason: domain.ExclusionAdmin},
		},
	}

	tbl := InactiveUsersTable(users)

	assert.Equal(t, TableInactiveUsers, tbl.Name)
	require.Len(t, tbl.Rows, 2)
	assert.Len(t, tbl.Rows[0], len(tbl.Columns))
	assert.Equal(t, []string{
		"b@example.com", "User B", "/Sales", "2021-04-02", "2025-01-10T08:00:00Z", "directory",
		"Business Starter", "false", "false", "",
	}, tbl.Rows[0])
	assert.Equal(t, "Never", tbl.Rows[1][4])
	assert.Equal(t, "", tbl.Rows[1][3], "missing creation time renders empty")
	assert.Equal(t, "true", tbl.Rows[1][8])
	assert.Equal(t, "Admin user", tbl.Rows[1][9])
}

func TestActionsTable(t *testing.T) {
	tbl := ActionsTable([]domain.ActionRecord{
		{
			Email: "a@example.com", Mode: domain.ModeSuspendRelicense, State: domain.ActionFailed,
			Completed: []domain.ActionStep{domain.StepSuspend}, Error: "remove_license: boom",
		},
		{Email: "b@example.com", Mode: domain.ModeSuspend, State: domain.ActionDryRunSimulated, Note: "would suspend account"},
	})

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"a@example.com", "", "suspend_relicense", "FAILED", "suspend", "remove_license: boom", ""}, tbl.Rows[0])
	assert.Equal(t, "DRY_RUN_SIMULATED", tbl.Rows[1][3])
	assert.Equal(t, "would suspend account", tbl.Rows[1][6])
}

func TestGroupFindingsTable(t *testing.T) {
	tbl := GroupFindingsTable([]domain.GroupFinding{
		{Group: domain.Group{Email: "eng@example.com", Name: "Engineering", DirectMembers: 42}, Reason: domain.FindingNoOwners},
	})
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"eng@example.com", "Engineering", "42", "0", "No owners"}, tbl.Rows[0])
}
