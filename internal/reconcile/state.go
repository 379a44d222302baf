package reconcile

import "fmt"

// Phase is the per-account position in the pass state machine.
//
// Create path:  Absent -> Creating -> Verified -> Configured
// Update path:  Present -> Updating -> Configured
// Delete path:  Present -> Deleting -> Archived
// Lockout skip: Present -> Skipped
type Phase string

const (
	PhaseAbsent     Phase = "absent"
	PhaseCreating   Phase = "creating"
	PhaseVerified   Phase = "verified"
	PhasePresent    Phase = "present"
	PhaseUpdating   Phase = "updating"
	PhaseDeleting   Phase = "deleting"
	PhaseConfigured Phase = "configured"
	PhaseArchived   Phase = "archived"
	PhaseSkipped    Phase = "skipped"
)

// Terminal reports whether the phase ends an account's journey through
// a pass.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseConfigured, PhaseArchived, PhaseSkipped:
		return true
	}
	return false
}

// Result summarises one pass.
type Result struct {
	// Users and Groups record the final phase per touched entity.
	Users  map[string]Phase
	Groups map[string]Phase

	// Warnings are surfaced to the operator but do not abort the pass.
	Warnings []string
}

func newResult() *Result {
	return &Result{
		Users:  map[string]Phase{},
		Groups: map[string]Phase{},
	}
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
