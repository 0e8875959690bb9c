package onboarding

import (
	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/role"
)

// Step is the onboarding step a user is on.
type Step string

const (
	StepRole     Step = "role"
	StepProfile  Step = "profile"
	StepPricing  Step = "pricing"
	StepBranches Step = "branches"
	StepComplete Step = "complete"
)

// Persisted values of school_admin_profiles.onboarding_step.
const (
	AdminStepProfile   = "profile"
	AdminStepPricing   = "pricing"
	AdminStepBranches  = "branches"
	AdminStepCompleted = "completed"
)

type (
	// Snapshot is the remote onboarding data a state is derived from.
	Snapshot struct {
		Role             string `json:"role"`
		ProfileCompleted bool   `json:"profile_completed"`
		AdminStep        string `json:"onboarding_step,omitempty"`
	}

	State struct {
		Step  Step   `json:"step"`
		Role  string `json:"role,omitempty"`
		Error string `json:"error,omitempty"`
	}

	// Event is one of Sync, RoleSwitched, Failed, Back or Navigate.
	Event interface {
		event()
	}

	// Sync re-derives the state from the snapshot.
	Sync struct{}

	// RoleSwitched is the outcome of a successful role selection.
	RoleSwitched struct {
		Role             string
		ProfileCompleted bool
	}

	// Failed keeps the user on the current step with the formatted error.
	Failed struct {
		Err error
	}

	Back struct{}

	Navigate struct {
		To Step
	}
)

func (Sync) event()         {}
func (RoleSwitched) event() {}
func (Failed) event()       {}
func (Back) event()         {}
func (Navigate) event()     {}

// Done reports whether onboarding is over.
func (s State) Done() bool {
	return s.Step == StepComplete
}

// Derive computes the state of a snapshot. The remote snapshot is the only source of truth.
func Derive(snap Snapshot) State {
	if snap.Role == "" {
		return State{Step: StepRole}
	}
	kind, err := role.Parse(snap.Role)
	if err != nil {
		return State{Step: StepRole}
	}

	st := State{Role: kind.String()}
	switch {
	case !kind.RequiresProfile():
		st.Step = StepComplete
	case kind.HasSetupSteps():
		st.Step = adminStep(snap.AdminStep)
	case snap.ProfileCompleted:
		st.Step = StepComplete
	default:
		st.Step = StepProfile
	}
	return st
}

func adminStep(persisted string) Step {
	switch persisted {
	case AdminStepPricing:
		return StepPricing
	case AdminStepBranches:
		return StepBranches
	case AdminStepCompleted:
		return StepComplete
	}
	return StepProfile
}

// reachable reports whether step may be shown given snap.
func reachable(step Step, snap Snapshot) bool {
	if step == StepRole {
		return !snap.ProfileCompleted || snap.Role == ""
	}
	derived := Derive(snap)
	if derived.Step == StepRole {
		return false
	}
	switch step {
	case StepProfile:
		kind, _ := role.Parse(snap.Role)
		return kind.RequiresProfile() && (kind.HasSetupSteps() || !snap.ProfileCompleted)
	case StepPricing, StepBranches:
		if derived.Step == StepComplete {
			return false
		}
		return snap.AdminStep == AdminStepPricing || snap.AdminStep == AdminStepBranches
	case StepComplete:
		return derived.Step == StepComplete
	}
	return false
}

// Reduce is the transition function of the onboarding machine.
func Reduce(cur State, snap Snapshot, ev Event) State {
	switch e := ev.(type) {
	case Sync:
		return Derive(snap)

	case RoleSwitched:
		kind, err := role.Parse(e.Role)
		if err != nil {
			return State{Step: StepRole, Error: core.ErrorMessage(err)}
		}
		st := State{Role: kind.String(), Step: StepProfile}
		switch {
		case !kind.RequiresProfile():
			st.Step = StepComplete
		case kind.HasSetupSteps():
			if e.ProfileCompleted {
				st.Step = adminStep(snap.AdminStep)
			}
		case e.ProfileCompleted:
			st.Step = StepComplete
		}
		return st

	case Failed:
		next := cur
		// a failed role selection always returns to the role list
		if next.Step == StepRole {
			return State{Step: StepRole, Error: core.ErrorMessage(e.Err)}
		}
		if next.Step == "" || !reachable(next.Step, snap) {
			next = Derive(snap)
		}
		next.Error = core.ErrorMessage(e.Err)
		return next

	case Back:
		switch cur.Step {
		case StepProfile:
			if snap.ProfileCompleted {
				return State{Step: cur.Step, Role: cur.Role}
			}
			return State{Step: StepRole}
		case StepPricing:
			return State{Step: StepProfile, Role: cur.Role}
		case StepBranches:
			return State{Step: StepPricing, Role: cur.Role}
		}
		return State{Step: cur.Step, Role: cur.Role}

	case Navigate:
		if reachable(e.To, snap) {
			st := Derive(snap)
			st.Step = e.To
			if e.To == StepRole {
				st.Role = ""
			}
			return st
		}
		// admins without a persisted pricing or branches step derive to profile
		return Derive(snap)
	}
	return cur
}

// AdminStepOf is the persisted onboarding_step matching step.
func AdminStepOf(step Step) string {
	switch step {
	case StepPricing:
		return AdminStepPricing
	case StepBranches:
		return AdminStepBranches
	case StepComplete:
		return AdminStepCompleted
	}
	return AdminStepProfile
}
