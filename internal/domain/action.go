package domain

import "fmt"

// ActionMode selects what the executor does to inactive users.
type ActionMode string

// Action modes.
const (
	ModeReport           ActionMode = "report"
	ModeSuspend          ActionMode = "suspend"
	ModeArchive          ActionMode = "archive"
	ModeSuspendRelicense ActionMode = "suspend_relicense"
)

// ParseActionMode validates a configured mode name.
func ParseActionMode(s string) (ActionMode, error) {
	switch m := ActionMode(s); m {
	case ModeReport, ModeSuspend, ModeArchive, ModeSuspendRelicense:
		return m, nil
	default:
		return "", ErrValidation("unknown action mode %q", s)
	}
}

// Mutates reports whether the mode calls any mutating provider API.
func (m ActionMode) Mutates() bool {
	return m != ModeReport
}

// Suspends reports whether the mode suspends accounts.
func (m ActionMode) Suspends() bool {
	return m == ModeSuspend || m == ModeSuspendRelicense
}

// Relicenses reports whether the mode swaps the target SKU for another one.
func (m ActionMode) Relicenses() bool {
	return m == ModeArchive || m == ModeSuspendRelicense
}

// ActionState is the lifecycle of one user's action record.
type ActionState string

// Action states. Every state except ActionPending is terminal.
const (
	ActionPending         ActionState = "PENDING"
	ActionDryRunSimulated ActionState = "DRY_RUN_SIMULATED"
	ActionSucceeded       ActionState = "SUCCEEDED"
	ActionFailed          ActionState = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s ActionState) Terminal() bool {
	return s != ActionPending
}

// ActionStep is one mutating call in a multi-step action.
type ActionStep string

// Action steps in execution order.
const (
	StepSuspend       ActionStep = "suspend"
	StepRemoveLicense ActionStep = "remove_license"
	StepAssignLicense ActionStep = "assign_license"
	StepTransferFiles ActionStep = "transfer_files"
)

// ActionRecord is the outcome of acting on one candidate.
type ActionRecord struct {
	Email     string
	FullName  string
	Mode      ActionMode
	State     ActionState
	Completed []ActionStep
	// FailedStep is set when State is ActionFailed.
	FailedStep ActionStep
	Error      string
	Note       string
}

// Fail moves the record to ActionFailed, keeping only the first error.
func (r *ActionRecord) Fail(step ActionStep, err error) {
	if r.State == ActionFailed {
		return
	}
	r.State = ActionFailed
	r.FailedStep = step
	r.Error = fmt.Sprintf("%s: %v", step, err)
}
