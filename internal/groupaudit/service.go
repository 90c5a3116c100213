package groupaudit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/quartz"
	"github.com/hashicorp/go-multierror"

	"gw-audit/internal/audit"
	"gw-audit/internal/domain"
	"gw-audit/internal/metrics"
	"gw-audit/internal/report"
)

// AuditName labels this audit and prefixes its checkpoint keys.
const AuditName = "groups"

// DefaultBatchSize is used when Settings.BatchSize is not positive.
const DefaultBatchSize = 500

// Settings is the run configuration of the groups audit.
type Settings struct {
	BatchSize int
	// TimeBudget stops a batch early once this much time has passed since
	// the invocation started. Zero disables the budget.
	TimeBudget time.Duration
	PageDelay  time.Duration
	Notify     bool
	Recipients []string
}

// Deps are the collaborators of the groups audit.
type Deps struct {
	Groups   domain.GroupProvider
	KV       domain.KVStore
	Output   domain.TableWriter
	Notifier domain.Notifier
	Clock    quartz.Clock
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// Pacer spaces out Directory calls. Nil paces at Settings.PageDelay.
	Pacer audit.Pacer
}

// Service runs one batch of the groups audit per invocation.
type Service struct {
	settings    Settings
	deps        Deps
	checkpoints *Checkpoints
}

// NewService creates a groups audit service.
func NewService(settings Settings, deps Deps) *Service {
	if settings.BatchSize <= 0 {
		settings.BatchSize = DefaultBatchSize
	}
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Pacer == nil {
		deps.Pacer = audit.NewPacer(settings.PageDelay)
	}
	return &Service{
		settings:    settings,
		deps:        deps,
		checkpoints: NewCheckpoints(deps.KV, AuditName, deps.Logger),
	}
}

// Checkpoints exposes the checkpoint manager for inspection and reset.
func (s *Service) Checkpoints() *Checkpoints { return s.checkpoints }

// RunResult describes one invocation.
type RunResult struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	NewCycle   bool      `json:"new_cycle"`
	Total      int       `json:"total_groups"`
	StartIndex int       `json:"start_index"`
	NextIndex  int       `json:"next_index"`
	Processed  int       `json:"processed"`
	Flagged    int       `json:"flagged"`
	// Findings is the accumulated finding count of the cycle so far.
	Findings  int  `json:"findings"`
	TimeBoxed bool `json:"time_boxed"`
	// Partial is set when the group listing that started the cycle ended
	// early.
	Partial   bool     `json:"partial"`
	Completed bool     `json:"completed"`
	Locations []string `json:"locations,omitempty"`
	// OutputErr reports sink or notifier failures of the final flush.
	OutputErr error `json:"-"`
}

// Run checks the next batch of groups and, when the cycle is complete, writes
// the findings, notifies and clears the checkpoint.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	clock := s.deps.Clock
	started := clock.Now()
	res := &RunResult{RunID: domain.NewID(), StartedAt: started}
	logger := s.deps.Logger.With("audit", AuditName, "run_id", res.RunID)

	calls := &callPacer{pacer: s.deps.Pacer}
	st := s.checkpoints.Load(ctx)
	if !st.InCycle() {
		groups, partial := s.listGroups(ctx, calls, logger)
		if partial && len(groups) == 0 {
			s.deps.Metrics.RunFinished(AuditName, metrics.OutcomeFailed, clock.Now())
			return nil, fmt.Errorf("list groups: no group could be listed")
		}
		if err := s.checkpoints.SaveGroups(ctx, groups); err != nil {
			s.deps.Metrics.RunFinished(AuditName, metrics.OutcomeFailed, clock.Now())
			return nil, err
		}
		st = State{Groups: groups}
		if st.Groups == nil {
			st.Groups = []domain.Group{}
		}
		res.NewCycle = true
		res.Partial = partial
		logger.Info("new cycle started", "groups", len(groups))
	}
	res.Total = len(st.Groups)
	res.StartIndex = st.NextIndex

	end := min(st.NextIndex+s.settings.BatchSize, len(st.Groups))
	known := make(map[string]bool, len(st.Results))
	for _, f := range st.Results {
		known[f.Group.Email] = true
	}
	for st.NextIndex < end {
		if s.settings.TimeBudget > 0 && clock.Since(started) >= s.settings.TimeBudget {
			res.TimeBoxed = true
			logger.Info("time budget reached", "next_index", st.NextIndex, "budget", s.settings.TimeBudget)
			break
		}
		g := st.Groups[st.NextIndex]
		finding, err := s.checkOwners(ctx, g, calls, logger)
		if err != nil {
			logger.Warn("batch interrupted", "next_index", st.NextIndex, "error", err)
			break
		}
		s.deps.Metrics.GroupChecked(finding != nil)
		if finding != nil {
			res.Flagged++
			if !known[g.Email] {
				known[g.Email] = true
				st.Results = append(st.Results, *finding)
			}
		}
		st.NextIndex++
		res.Processed++
	}
	res.NextIndex = st.NextIndex
	res.Findings = len(st.Results)

	if res.Processed > 0 {
		if err := s.checkpoints.Save(ctx, st); err != nil {
			s.deps.Metrics.RunFinished(AuditName, metrics.OutcomeFailed, clock.Now())
			return nil, err
		}
	}
	s.deps.Metrics.CheckpointIndex(AuditName, st.NextIndex)
	logger.Info("batch finished",
		"start_index", res.StartIndex,
		"next_index", res.NextIndex,
		"total", res.Total,
		"flagged", res.Flagged,
	)

	outcome := metrics.OutcomeSuccess
	if st.Done() {
		if err := s.flush(ctx, st, res, logger); err != nil {
			s.deps.Metrics.RunFinished(AuditName, metrics.OutcomeFailed, clock.Now())
			return res, err
		}
	}
	if res.Partial || res.OutputErr != nil {
		outcome = metrics.OutcomePartial
	}
	s.deps.Metrics.RunFinished(AuditName, outcome, clock.Now())
	return res, nil
}

// flush emits the cycle's findings and clears the checkpoint. When the
// findings table cannot be written, the checkpoint is kept so that the next
// invocation retries the flush without re-checking any group.
func (s *Service) flush(ctx context.Context, st State, res *RunResult, logger *slog.Logger) error {
	var errs *multierror.Error

	if s.deps.Output != nil {
		loc, err := s.deps.Output.WriteTable(ctx, report.GroupFindingsTable(st.Results))
		if loc != "" {
			res.Locations = append(res.Locations, loc)
		}
		if err != nil {
			if loc == "" {
				res.OutputErr = err
				logger.Error("findings not written, checkpoint kept for retry", "error", err)
				return nil
			}
			errs = multierror.Append(errs, fmt.Errorf("write %s: %w", report.TableGroupFindings, err))
		}
	}

	if s.settings.Notify && s.deps.Notifier != nil && len(s.settings.Recipients) > 0 {
		err := s.deps.Notifier.Notify(ctx, domain.Notification{
			Recipients: s.settings.Recipients,
			Subject:    fmt.Sprintf("Groups audit: %s groups without owners", report.Count(len(st.Results))),
			Summary: []domain.SummaryField{
				{Name: "Groups checked", Value: report.Count(len(st.Groups))},
				{Name: "Groups flagged", Value: report.Count(len(st.Results))},
			},
			Links: res.Locations,
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("notify: %w", err))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		logger.Error("report output failed", "error", err)
		res.OutputErr = err
	}

	if err := s.checkpoints.Clear(ctx); err != nil {
		return err
	}
	res.Completed = true
	logger.Info("cycle completed", "groups", len(st.Groups), "findings", len(st.Results))
	return nil
}

// callPacer waits on the pacer before every call except the first of an
// invocation.
type callPacer struct {
	pacer   audit.Pacer
	started bool
}

func (c *callPacer) Wait(ctx context.Context) error {
	if !c.started {
		c.started = true
		return ctx.Err()
	}
	return c.pacer.Wait(ctx)
}

// listGroups pages through every group. A failed page ends the listing and
// marks the snapshot partial.
func (s *Service) listGroups(ctx context.Context, calls *callPacer, logger *slog.Logger) ([]domain.Group, bool) {
	var groups []domain.Group
	pageToken := ""
	for {
		if err := calls.Wait(ctx); err != nil {
			logger.Warn("group listing interrupted", "groups", len(groups), "error", err)
			return groups, true
		}
		page, err := s.deps.Groups.ListGroups(ctx, pageToken)
		if err != nil {
			logger.Warn("group listing stopped early", "groups", len(groups), "error", err)
			return groups, true
		}
		groups = append(groups, page.Groups...)
		if page.NextPageToken == "" {
			return groups, false
		}
		pageToken = page.NextPageToken
	}
}

// checkOwners returns a finding when g has no owner or its owners cannot be
// listed, and nil otherwise. An error means the wait before a call was
// interrupted and g was not checked.
func (s *Service) checkOwners(ctx context.Context, g domain.Group, calls *callPacer, logger *slog.Logger) (*domain.GroupFinding, error) {
	owners := 0
	pageToken := ""
	for {
		if err := calls.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.deps.Groups.ListMembers(ctx, g.Email, domain.MemberRoleOwner, pageToken)
		if err != nil {
			logger.Warn("owner check failed", "group", g.Email, "error", err)
			return &domain.GroupFinding{
				Group:  g,
				Reason: fmt.Sprintf("%s: %v", domain.FindingCheckFailed, err),
			}, nil
		}
		owners += len(page.Members)
		if owners > 0 || page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	if owners > 0 {
		return nil, nil
	}
	return &domain.GroupFinding{Group: g, Reason: domain.FindingNoOwners}, nil
}
