package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gw-audit/internal/domain"
	"gw-audit/internal/metrics"
)

// ExclusionRules keeps matching inactive users out of the action pipeline.
type ExclusionRules struct {
	ExcludeAdmins bool
	// OUPrefixes exclude every user whose OU path starts with one of them, so
	// "/Legal" also covers "/Legal/Subteam".
	OUPrefixes []string
	// ExcludeSuspended skips accounts that are already suspended. It is only
	// meaningful for modes that suspend.
	ExcludeSuspended bool
}

// Evaluate returns the first matching exclusion, checking the admin rule,
// then the OU rule, then the suspended rule.
func (r ExclusionRules) Evaluate(u domain.User) *domain.Exclusion {
	if r.ExcludeAdmins && u.Administrator() {
		return &domain.Exclusion{Reason: domain.ExclusionAdmin}
	}
	for _, prefix := range r.OUPrefixes {
		if prefix != "" && strings.HasPrefix(u.OrgUnitPath, prefix) {
			return &domain.Exclusion{Reason: domain.ExclusionOUPrefix + ": " + prefix}
		}
	}
	if r.ExcludeSuspended && u.Suspended {
		return &domain.Exclusion{Reason: domain.ExclusionSuspended}
	}
	return nil
}

// EnumerateParams carries the indexes and rules the enumerator applies.
type EnumerateParams struct {
	Cutoff   time.Time
	Logins   domain.LoginIndex
	Licenses domain.LicenseIndex
	Rules    ExclusionRules
	// TargetSKU, when set, keeps users without that SKU out of the
	// candidates. They still appear in the inactive report.
	TargetSKU string
}

// Enumeration is the enumerator's output.
type Enumeration struct {
	Scanned int
	Active  int
	// Inactive lists every inactive licensed user, excluded or not, in
	// directory order.
	Inactive []domain.ClassifiedUser
	// Candidates is the non-excluded subset of Inactive.
	Candidates []domain.ClassifiedUser
	Partial    bool
}

// Excluded counts inactive users removed by an exclusion rule.
func (e Enumeration) Excluded() int {
	return len(e.Inactive) - len(e.Candidates)
}

// EnumerateUsers pages through the directory and classifies each user. Only
// inactive users holding a license in the index are kept. A failed page ends
// the walk and marks the result partial.
func EnumerateUsers(ctx context.Context, dir domain.DirectoryProvider, p EnumerateParams,
	pacer Pacer, m *metrics.Metrics, logger *slog.Logger) Enumeration {

	var out Enumeration
	pageToken := ""
	for {
		page, err := dir.ListUsers(ctx, pageToken)
		if err != nil {
			logger.Warn("user listing stopped early", "scanned", out.Scanned, "error", err)
			out.Partial = true
			return out
		}
		for _, u := range page.Users {
			out.Scanned++
			cu, keep := classifyUser(u, p)
			m.UserClassified(string(cu.Status))
			if cu.Status == domain.StatusActive {
				out.Active++
			}
			if !keep {
				continue
			}
			out.Inactive = append(out.Inactive, cu)
			if !cu.Excluded() {
				out.Candidates = append(out.Candidates, cu)
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
		if err := pacer.Wait(ctx); err != nil {
			logger.Warn("user listing interrupted", "scanned", out.Scanned, "error", err)
			out.Partial = true
			return out
		}
	}
	logger.Info("users enumerated",
		"scanned", out.Scanned,
		"inactive_licensed", len(out.Inactive),
		"candidates", len(out.Candidates),
	)
	return out
}

func classifyUser(u domain.User, p EnumerateParams) (domain.ClassifiedUser, bool) {
	c := Classify(u.Email, u.LastLogin, p.Logins, p.Cutoff)
	cu := domain.ClassifiedUser{
		User:            u,
		Status:          c.Status,
		LastLogin:       c.LastLogin,
		LastLoginSource: c.Source,
	}
	if c.Status != domain.StatusInactive {
		return cu, false
	}
	licenses := p.Licenses.Lookup(u.Email)
	if len(licenses) == 0 {
		return cu, false
	}
	cu.Licenses = licenses
	cu.Exclusion = p.Rules.Evaluate(u)
	if cu.Exclusion == nil && p.TargetSKU != "" && !p.Licenses.HasSKU(u.Email, p.TargetSKU) {
		cu.Exclusion = &domain.Exclusion{Reason: domain.ExclusionNoTargetSKU + ": " + p.TargetSKU}
	}
	return cu, true
}
