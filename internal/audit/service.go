package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/coder/quartz"
	"github.com/hashicorp/go-multierror"

	"gw-audit/internal/domain"
	"gw-audit/internal/metrics"
	"gw-audit/internal/report"
)

// AuditName labels this audit in logs, metrics and schedules.
const AuditName = "users"

// Settings is the run configuration of the users audit.
type Settings struct {
	// CustomerID, when empty, is resolved from the directory.
	CustomerID   string
	ProductID    string
	InactiveDays int
	Retention    time.Duration
	Rules        ExclusionRules
	Executor     ExecutorConfig
	PageDelay    time.Duration
	ActionDelay  time.Duration
	Notify       bool
	Recipients   []string
}

// Deps are the collaborators of the users audit. Output and Notifier may be
// nil, in which case nothing is written or sent.
type Deps struct {
	Directory domain.DirectoryProvider
	Licenses  domain.LicenseProvider
	Reports   domain.ReportsProvider
	Transfers domain.TransferProvider
	Output    domain.TableWriter
	Notifier  domain.Notifier
	Clock     quartz.Clock
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Service runs the inactive-licensed-users audit.
type Service struct {
	settings Settings
	deps     Deps
}

// NewService creates a users audit service.
func NewService(settings Settings, deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Service{settings: settings, deps: deps}
}

// Summary holds the aggregate counts of one run.
type Summary struct {
	Scanned      int  `json:"scanned"`
	Active       int  `json:"active"`
	Inactive     int  `json:"inactive_licensed"`
	Excluded     int  `json:"excluded"`
	Candidates   int  `json:"candidates"`
	Processed    int  `json:"processed"`
	Succeeded    int  `json:"succeeded"`
	Failed       int  `json:"failed"`
	Simulated    int  `json:"simulated"`
	SkippedByCap int  `json:"skipped_by_cap"`
	Partial      bool `json:"partial"`
}

// Fields renders the summary for notifications.
func (s Summary) Fields(mode domain.ActionMode, dryRun bool) []domain.SummaryField {
	fields := []domain.SummaryField{
		{Name: "Users scanned", Value: report.Count(s.Scanned)},
		{Name: "Inactive licensed users", Value: report.Count(s.Inactive)},
		{Name: "Excluded", Value: report.Count(s.Excluded)},
		{Name: "Action mode", Value: string(mode)},
		{Name: "Dry run", Value: strconv.FormatBool(dryRun)},
	}
	if mode.Mutates() {
		fields = append(fields,
			domain.SummaryField{Name: "Processed", Value: report.Count(s.Processed)},
			domain.SummaryField{Name: "Succeeded", Value: report.Count(s.Succeeded)},
			domain.SummaryField{Name: "Failed", Value: report.Count(s.Failed)},
			domain.SummaryField{Name: "Simulated", Value: report.Count(s.Simulated)},
			domain.SummaryField{Name: "Left for next run (safety cap)", Value: report.Count(s.SkippedByCap)},
		)
	}
	if s.Partial {
		fields = append(fields, domain.SummaryField{Name: "Warning", Value: "provider listing ended early, results are incomplete"})
	}
	return fields
}

// RunResult is everything one invocation produced.
type RunResult struct {
	RunID     string                  `json:"run_id"`
	StartedAt time.Time               `json:"started_at"`
	Cutoff    time.Time               `json:"cutoff"`
	Mode      domain.ActionMode       `json:"mode"`
	DryRun    bool                    `json:"dry_run"`
	Summary   Summary                 `json:"summary"`
	Inactive  []domain.ClassifiedUser `json:"-"`
	Actions   []domain.ActionRecord   `json:"-"`
	Locations []string                `json:"locations,omitempty"`
	// OutputErr reports sink or notifier failures. Actions already taken are
	// not affected by it.
	OutputErr error `json:"-"`
}

// Run executes one audit pass. It fails only when the customer cannot be
// resolved; provider listing errors degrade to partial results and per-user
// failures are recorded on the action records.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	clock := s.deps.Clock
	now := clock.Now()
	res := &RunResult{
		RunID:     domain.NewID(),
		StartedAt: now,
		Cutoff:    Cutoff(now, s.settings.InactiveDays),
		Mode:      s.settings.Executor.Mode,
		DryRun:    s.settings.Executor.DryRun,
	}
	logger := s.deps.Logger.With("audit", AuditName, "run_id", res.RunID)
	logger.Info("audit started", "cutoff", res.Cutoff, "mode", res.Mode, "dry_run", res.DryRun)

	customerID := s.settings.CustomerID
	if customerID == "" {
		id, err := s.deps.Directory.CustomerID(ctx)
		if err != nil {
			s.deps.Metrics.RunFinished(AuditName, metrics.OutcomeFailed, clock.Now())
			return nil, fmt.Errorf("resolve customer id: %w", err)
		}
		customerID = id
	}

	pacer := NewPacer(s.settings.PageDelay)
	licenses, partialLicenses := BuildLicenseIndex(ctx, s.deps.Licenses, s.settings.ProductID, customerID, pacer, logger)
	logins, partialLogins := ResolveLogins(ctx, s.deps.Reports, res.Cutoff, now, s.settings.Retention, pacer, logger)
	en := EnumerateUsers(ctx, s.deps.Directory, EnumerateParams{
		Cutoff:    res.Cutoff,
		Logins:    logins,
		Licenses:  licenses,
		Rules:     s.settings.Rules,
		TargetSKU: s.settings.Executor.TargetSKU,
	}, pacer, s.deps.Metrics, logger)

	exec := NewExecutor(s.settings.Executor, s.deps.Directory, s.deps.Licenses, s.deps.Transfers,
		NewPacer(s.settings.ActionDelay), s.deps.Metrics, logger).Execute(ctx, en.Candidates)

	res.Inactive = en.Inactive
	res.Actions = exec.Records
	res.Summary = Summary{
		Scanned:      en.Scanned,
		Active:       en.Active,
		Inactive:     len(en.Inactive),
		Excluded:     en.Excluded(),
		Candidates:   len(en.Candidates),
		Processed:    len(exec.Records),
		Succeeded:    exec.Count(domain.ActionSucceeded),
		Failed:       exec.Count(domain.ActionFailed),
		Simulated:    exec.Count(domain.ActionDryRunSimulated),
		SkippedByCap: exec.SkippedByCap,
		Partial:      partialLicenses || partialLogins || en.Partial || exec.Interrupted,
	}

	s.publish(ctx, res, logger)

	outcome := metrics.OutcomeSuccess
	if res.Summary.Partial || res.Summary.Failed > 0 || res.OutputErr != nil {
		outcome = metrics.OutcomePartial
	}
	s.deps.Metrics.RunFinished(AuditName, outcome, clock.Now())
	logger.Info("audit finished",
		"inactive_licensed", res.Summary.Inactive,
		"processed", res.Summary.Processed,
		"failed", res.Summary.Failed,
		"partial", res.Summary.Partial,
	)
	return res, nil
}

// publish writes the report tables and sends the summary. Failures are
// collected on res.OutputErr.
func (s *Service) publish(ctx context.Context, res *RunResult, logger *slog.Logger) {
	var errs *multierror.Error

	if s.deps.Output != nil {
		tables := []domain.Table{report.InactiveUsersTable(res.Inactive)}
		if res.Mode.Mutates() {
			tables = append(tables, report.ActionsTable(res.Actions))
		}
		for _, t := range tables {
			loc, err := s.deps.Output.WriteTable(ctx, t)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("write %s: %w", t.Name, err))
			}
			if loc != "" {
				res.Locations = append(res.Locations, loc)
			}
		}
	}

	if s.settings.Notify && s.deps.Notifier != nil && len(s.settings.Recipients) > 0 {
		subject := fmt.Sprintf("Inactive user audit: %s inactive licensed users", report.Count(res.Summary.Inactive))
		if res.DryRun {
			subject += " (dry run)"
		}
		err := s.deps.Notifier.Notify(ctx, domain.Notification{
			Recipients: s.settings.Recipients,
			Subject:    subject,
			Summary:    res.Summary.Fields(res.Mode, res.DryRun),
			Links:      res.Locations,
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("notify: %w", err))
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		logger.Error("report output failed", "error", err)
		res.OutputErr = err
	}
}
