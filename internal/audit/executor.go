package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gw-audit/internal/domain"
	"gw-audit/internal/metrics"
)

// ExecutorConfig is the immutable part of the executor's behavior.
type ExecutorConfig struct {
	Mode      domain.ActionMode
	DryRun    bool
	// SafetyCap bounds how many candidates one run acts on. A negative
	// value disables the cap.
	SafetyCap int
	ProductID string
	// TargetSKU is the license removed by relicensing modes.
	TargetSKU string
	// ReplacementSKU is the license assigned in its place.
	ReplacementSKU string
	// TransferTo receives Drive ownership in suspend_relicense mode. Empty
	// skips the transfer step.
	TransferTo string
}

// Execution is the outcome of one executor pass.
type Execution struct {
	Records []domain.ActionRecord
	// SkippedByCap counts candidates beyond the safety cap. They are not
	// processed and do not appear in Records.
	SkippedByCap int
	// Interrupted is set when the context ended before every candidate
	// within the cap was processed.
	Interrupted bool
}

// Count returns how many records ended in state.
func (e Execution) Count(state domain.ActionState) int {
	n := 0
	for _, r := range e.Records {
		if r.State == state {
			n++
		}
	}
	return n
}

// Executor applies the configured action to inactive users.
type Executor struct {
	cfg       ExecutorConfig
	directory domain.DirectoryProvider
	licenses  domain.LicenseProvider
	transfers domain.TransferProvider
	pacer     Pacer
	metrics   *metrics.Metrics
	logger    *slog.Logger

	transferTargetID string
}

// NewExecutor creates an Executor. transfers may be nil when TransferTo is empty.
func NewExecutor(cfg ExecutorConfig, directory domain.DirectoryProvider, licenses domain.LicenseProvider,
	transfers domain.TransferProvider, pacer Pacer, m *metrics.Metrics, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:       cfg,
		directory: directory,
		licenses:  licenses,
		transfers: transfers,
		pacer:     pacer,
		metrics:   m,
		logger:    logger,
	}
}

type step struct {
	name     domain.ActionStep
	describe string
	run      func(ctx context.Context, u domain.User) error
}

// plan lists the steps for the configured mode in execution order.
func (e *Executor) plan() []step {
	var steps []step
	if e.cfg.Mode.Suspends() {
		steps = append(steps, step{
			name:     domain.StepSuspend,
			describe: "suspend account",
			run: func(ctx context.Context, u domain.User) error {
				return e.directory.SetSuspended(ctx, u.Email, true)
			},
		})
	}
	if e.cfg.Mode.Relicenses() {
		steps = append(steps,
			step{
				name:     domain.StepRemoveLicense,
				describe: "remove SKU " + e.cfg.TargetSKU,
				run: func(ctx context.Context, u domain.User) error {
					return e.licenses.RemoveAssignment(ctx, e.cfg.ProductID, e.cfg.TargetSKU, u.Email)
				},
			},
			step{
				name:     domain.StepAssignLicense,
				describe: "assign SKU " + e.cfg.ReplacementSKU,
				run: func(ctx context.Context, u domain.User) error {
					return e.licenses.InsertAssignment(ctx, e.cfg.ProductID, e.cfg.ReplacementSKU, u.Email)
				},
			},
		)
	}
	if e.cfg.Mode == domain.ModeSuspendRelicense && e.cfg.TransferTo != "" {
		steps = append(steps, step{
			name:     domain.StepTransferFiles,
			describe: "transfer Drive files to " + e.cfg.TransferTo,
			run:      e.transferDrive,
		})
	}
	return steps
}

func (e *Executor) transferDrive(ctx context.Context, u domain.User) error {
	if e.transfers == nil {
		return fmt.Errorf("no transfer provider configured")
	}
	if e.transferTargetID == "" {
		target, err := e.directory.GetUser(ctx, e.cfg.TransferTo)
		if err != nil {
			return fmt.Errorf("look up transfer target %s: %w", e.cfg.TransferTo, err)
		}
		e.transferTargetID = target.ID
	}
	return e.transfers.TransferDrive(ctx, u.ID, e.transferTargetID)
}

// Execute acts on at most SafetyCap candidates, in order. A failing step ends
// that user's action and is recorded; the next user is still processed.
func (e *Executor) Execute(ctx context.Context, candidates []domain.ClassifiedUser) Execution {
	var out Execution
	if !e.cfg.Mode.Mutates() {
		return out
	}

	limit := len(candidates)
	if e.cfg.SafetyCap >= 0 && limit > e.cfg.SafetyCap {
		limit = e.cfg.SafetyCap
	}
	out.SkippedByCap = len(candidates) - limit
	if out.SkippedByCap > 0 {
		e.logger.Warn("safety cap reached, remaining candidates left for a later run",
			"cap", e.cfg.SafetyCap, "candidates", len(candidates), "skipped", out.SkippedByCap)
	}

	steps := e.plan()
	out.Records = make([]domain.ActionRecord, 0, limit)
	for i, cu := range candidates[:limit] {
		if err := ctx.Err(); err != nil {
			out.Interrupted = true
			e.logger.Warn("run interrupted, remaining candidates not processed",
				"processed", i, "remaining", limit-i, "error", err)
			break
		}
		rec := e.act(ctx, cu.User, steps)
		e.metrics.ActionFinished(string(e.cfg.Mode), string(rec.State))
		out.Records = append(out.Records, rec)
	}
	return out
}

func (e *Executor) act(ctx context.Context, u domain.User, steps []step) domain.ActionRecord {
	rec := domain.ActionRecord{
		Email:    u.Email,
		FullName: u.FullName,
		Mode:     e.cfg.Mode,
		State:    domain.ActionPending,
	}
	logger := e.logger.With("user", u.Email, "mode", e.cfg.Mode)

	if e.cfg.DryRun {
		would := make([]string, 0, len(steps))
		for _, s := range steps {
			would = append(would, s.describe)
		}
		rec.State = domain.ActionDryRunSimulated
		rec.Note = "would " + strings.Join(would, ", then ")
		logger.Info("dry run", "note", rec.Note)
		return rec
	}

	for _, s := range steps {
		err := s.run(ctx, u)
		// A cancelled wait is picked up before the next user.
		_ = e.pacer.Wait(ctx)
		if err != nil {
			rec.Fail(s.name, err)
			logger.Error("action step failed", "step", s.name, "error", err)
			return rec
		}
		rec.Completed = append(rec.Completed, s.name)
	}
	rec.State = domain.ActionSucceeded
	logger.Info("action completed", "steps", len(rec.Completed))
	return rec
}
