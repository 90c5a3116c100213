// Package report turns audit results into tables and notifications and
// writes them to the configured sinks.
package report

import (
	"strconv"
	"strings"
	"time"

	"gw-audit/internal/domain"
)

// Table names, also used as file and sheet names.
const (
	TableInactiveUsers = "inactive_users"
	TableUserActions   = "user_actions"
	TableGroupFindings = "group_findings"
)

// InactiveUsersTable lists inactive licensed users, including excluded ones
// with their exclusion reason.
func InactiveUsersTable(users []domain.ClassifiedUser) domain.Table {
	t := domain.Table{
		Name: TableInactiveUsers,
		Columns: []string{
			"Email", "Name", "Org Unit", "Created", "Last Login", "Source",
			"Licenses", "Suspended", "Excluded", "Exclusion Reason",
		},
		Rows: make([][]string, 0, len(users)),
	}
	for _, cu := range users {
		t.Rows = append(t.Rows, []string{
			cu.User.Email,
			cu.User.FullName,
			cu.User.OrgUnitPath,
			formatDate(cu.User.CreatedAt),
			cu.LastLoginDisplay(),
			string(cu.LastLoginSource),
			domain.Summary(cu.Licenses),
			strconv.FormatBool(cu.User.Suspended),
			strconv.FormatBool(cu.Excluded()),
			cu.ExclusionReason(),
		})
	}
	return t
}

// ActionsTable lists one row per processed candidate.
func ActionsTable(records []domain.ActionRecord) domain.Table {
	t := domain.Table{
		Name:    TableUserActions,
		Columns: []string{"Email", "Name", "Action", "State", "Completed Steps", "Error", "Note"},
		Rows:    make([][]string, 0, len(records)),
	}
	for _, r := range records {
		steps := make([]string, 0, len(r.Completed))
		for _, s := range r.Completed {
			steps = append(steps, string(s))
		}
		t.Rows = append(t.Rows, []string{
			r.Email,
			r.FullName,
			string(r.Mode),
			string(r.State),
			strings.Join(steps, ", "),
			r.Error,
			r.Note,
		})
	}
	return t
}

// GroupFindingsTable lists the groups flagged during a groups audit cycle.
func GroupFindingsTable(findings []domain.GroupFinding) domain.Table {
	t := domain.Table{
		Name:    TableGroupFindings,
		Columns: []string{"Email", "Name", "Members", "Owners", "Reason"},
		Rows:    make([][]string, 0, len(findings)),
	}
	for _, f := range findings {
		t.Rows = append(t.Rows, []string{
			f.Group.Email,
			f.Group.Name,
			strconv.FormatInt(f.Group.DirectMembers, 10),
			strconv.Itoa(f.OwnerCount),
			f.Reason,
		})
	}
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
