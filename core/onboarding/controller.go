package onboarding

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/profile"
	"github.com/developer0000009-hue/schoolportal/core/role"
)

var (
	ErrTransitionInProgress = errors.New("another onboarding step is still being saved")
	ErrStepMismatch         = errors.New("onboarding is not on this step")
	ErrUnknownStep          = errors.New("unknown onboarding step")
)

// TransitionError is a failed transition. State is the safe step the user is back on and
// carries the formatted message.
type TransitionError struct {
	State State
	Err   error
}

func (e *TransitionError) Error() string {
	return e.State.Error
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Repository reads and writes the remote onboarding data of a user.
type Repository interface {
	Snapshot(ctx context.Context, userID string) (Snapshot, error)
	SetAdminStep(ctx context.Context, userID, step string) error
	ClearRole(ctx context.Context, userID string) error
	UpdatePlan(ctx context.Context, sel PlanSelection) error
	CompleteBranchStep(ctx context.Context) error
}

// Controller drives a user through role selection, profile, plan and branches.
// Transitions of a user are serialized with a lock; reads never block.
type Controller struct {
	repo     Repository
	roles    *role.Service
	profiles *profile.Service
	locker   core.Locker
	lockTTL  time.Duration
	validate *validator.Validate
	logger   core.Logger

	mu       sync.Mutex
	clearing map[string]State // pending targets of role-clearing mutations, by user
}

func NewController(
	repo Repository,
	roles *role.Service,
	profiles *profile.Service,
	locker core.Locker,
	lockTTL time.Duration,
	validate *validator.Validate,
	logger core.Logger,
) *Controller {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &Controller{
		repo:     repo,
		roles:    roles,
		profiles: profiles,
		locker:   locker,
		lockTTL:  lockTTL,
		validate: validate,
		logger:   logger,
		clearing: make(map[string]State),
	}
}

// State derives the current onboarding state of p.
func (c *Controller) State(ctx context.Context, p core.Principal) (State, error) {
	if st, ok := c.pending(p.UserID); ok {
		return st, nil
	}
	snap, err := c.repo.Snapshot(ctx, p.UserID)
	if err != nil {
		return State{}, errors.Wrap(err, "reading onboarding snapshot")
	}
	return Reduce(State{}, snap, Sync{}), nil
}

// Roles lists the roles p may select.
func (c *Controller) Roles(ctx context.Context) (role.Catalog, error) {
	return c.roles.Catalog(ctx)
}

// SelectRole activates sel.Role. Completed profiles skip straight to the end.
func (c *Controller) SelectRole(ctx context.Context, p core.Principal, sel role.Selection) (State, error) {
	return c.transition(ctx, p, func(ctx context.Context, snap Snapshot) (State, error) {
		res, err := c.roles.Activate(ctx, sel)
		if err := alive(ctx); err != nil {
			return State{}, err
		}
		if err != nil {
			return c.fail(p, State{Step: StepRole}, snap, err)
		}

		snap, err = c.repo.Snapshot(ctx, p.UserID)
		if err != nil {
			return State{}, errors.Wrap(err, "reading onboarding snapshot")
		}
		return Reduce(State{Step: StepRole}, snap, RoleSwitched{Role: res.Role, ProfileCompleted: res.ProfileCompleted}), nil
	})
}

// ProfileForm returns the prefilled profile form of the active role.
func (c *Controller) ProfileForm(ctx context.Context, p core.Principal) (profile.Form, error) {
	snap, err := c.repo.Snapshot(ctx, p.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "reading onboarding snapshot")
	}
	if snap.Role == "" {
		return nil, ErrStepMismatch
	}
	return c.profiles.Load(ctx, p, snap.Role)
}

// SubmitProfile saves the profile form in body for the active role. School Administration then
// moves on to pricing.
func (c *Controller) SubmitProfile(ctx context.Context, p core.Principal, body json.RawMessage) (State, error) {
	return c.transition(ctx, p, func(ctx context.Context, snap Snapshot) (State, error) {
		if !reachable(StepProfile, snap) {
			return State{}, ErrStepMismatch
		}
		kind, err := role.Parse(snap.Role)
		if err != nil {
			return State{}, ErrStepMismatch
		}
		form, err := profile.Decode(kind, body)
		if err != nil {
			return State{}, core.NewValidationError(err)
		}

		cur := State{Step: StepProfile, Role: kind.String()}
		_, err = c.profiles.Submit(ctx, p, snap.Role, form)
		if err := alive(ctx); err != nil {
			return State{}, err
		}
		if err != nil {
			return c.fail(p, cur, snap, err)
		}

		if kind.HasSetupSteps() {
			if err = c.repo.SetAdminStep(ctx, p.UserID, AdminStepPricing); err != nil {
				return c.fail(p, cur, snap, err)
			}
		}
		return c.resync(ctx, p)
	})
}

// SelectPlan saves the subscription plan and moves on to branches.
func (c *Controller) SelectPlan(ctx context.Context, p core.Principal, sel PlanSelection) (State, error) {
	sel.PlanID = core.CleanString(sel.PlanID, true)
	sel.BillingCycle = core.CleanString(sel.BillingCycle, true)
	if err := c.validate.Struct(sel); err != nil {
		return State{}, err
	}
	return c.transition(ctx, p, func(ctx context.Context, snap Snapshot) (State, error) {
		cur := Derive(snap)
		if cur.Step != StepPricing {
			return State{}, ErrStepMismatch
		}
		err := c.repo.UpdatePlan(ctx, sel)
		if err == nil {
			err = c.repo.SetAdminStep(ctx, p.UserID, AdminStepBranches)
		}
		if err := alive(ctx); err != nil {
			return State{}, err
		}
		if err != nil {
			return c.fail(p, cur, snap, err)
		}
		return c.resync(ctx, p)
	})
}

// CompleteBranches closes the branches step.
func (c *Controller) CompleteBranches(ctx context.Context, p core.Principal) (State, error) {
	return c.transition(ctx, p, func(ctx context.Context, snap Snapshot) (State, error) {
		cur := Derive(snap)
		if cur.Step != StepBranches {
			return State{}, ErrStepMismatch
		}
		err := c.repo.CompleteBranchStep(ctx)
		if err := alive(ctx); err != nil {
			return State{}, err
		}
		if err != nil {
			return c.fail(p, cur, snap, err)
		}
		return c.resync(ctx, p)
	})
}

// Back regresses one step. From profile the role is cleared, unless the profile is already
// completed.
func (c *Controller) Back(ctx context.Context, p core.Principal) (State, error) {
	return c.transition(ctx, p, func(ctx context.Context, snap Snapshot) (State, error) {
		cur := Derive(snap)
		next := Reduce(cur, snap, Back{})
		if next == cur {
			return cur, nil
		}

		var err error
		if next.Step == StepRole {
			c.setPending(p.UserID, next)
			defer c.clearPending(p.UserID)
			err = c.repo.ClearRole(ctx, p.UserID)
		} else {
			err = c.repo.SetAdminStep(ctx, p.UserID, AdminStepOf(next.Step))
		}
		if err := alive(ctx); err != nil {
			return State{}, err
		}
		if err != nil {
			return c.fail(p, cur, snap, err)
		}
		return c.resync(ctx, p)
	})
}

// Navigate requests a step. Unreachable steps resolve to the derived one; admins asking for
// pricing or branches too early land on profile.
func (c *Controller) Navigate(ctx context.Context, p core.Principal, to Step) (State, error) {
	switch to {
	case StepRole, StepProfile, StepPricing, StepBranches, StepComplete:
	default:
		return State{}, core.NewValidationError(ErrUnknownStep, core.FieldError{Field: "step", Error: ErrUnknownStep.Error()})
	}
	snap, err := c.repo.Snapshot(ctx, p.UserID)
	if err != nil {
		return State{}, errors.Wrap(err, "reading onboarding snapshot")
	}
	return Reduce(Derive(snap), snap, Navigate{To: to}), nil
}

func (c *Controller) transition(ctx context.Context, p core.Principal, fn func(context.Context, Snapshot) (State, error)) (State, error) {
	release, err := c.locker.TryLock(ctx, lockKey(p.UserID), c.lockTTL)
	if err != nil {
		if errors.Cause(err) == core.ErrLocked {
			return State{}, ErrTransitionInProgress
		}
		return State{}, errors.Wrap(err, "locking onboarding transition")
	}
	defer release()

	snap, err := c.repo.Snapshot(ctx, p.UserID)
	if err != nil {
		return State{}, errors.Wrap(err, "reading onboarding snapshot")
	}
	return fn(ctx, snap)
}

// resync re-derives the state after a remote mutation.
func (c *Controller) resync(ctx context.Context, p core.Principal) (State, error) {
	snap, err := c.repo.Snapshot(ctx, p.UserID)
	if err != nil {
		return State{}, errors.Wrap(err, "reading onboarding snapshot")
	}
	if err := alive(ctx); err != nil {
		return State{}, err
	}
	return Reduce(State{}, snap, Sync{}), nil
}

// fail turns err into a TransitionError holding the safe state, except for validation errors
// which are returned as is.
func (c *Controller) fail(p core.Principal, cur State, snap Snapshot, err error) (State, error) {
	if isValidation(err) {
		return State{}, err
	}
	st := Reduce(cur, snap, Failed{Err: err})
	c.logger.Warn("onboarding transition failed: "+st.Error, err, p, map[string]interface{}{"step": cur.Step})
	return st, &TransitionError{State: st, Err: err}
}

func (c *Controller) pending(userID string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.clearing[userID]
	return st, ok
}

func (c *Controller) setPending(userID string, st State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearing[userID] = st
}

func (c *Controller) clearPending(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clearing, userID)
}

func lockKey(userID string) string {
	return "onboarding:" + userID
}

// alive fails once the caller went away: late results are dropped.
func alive(ctx context.Context) error {
	return errors.Wrap(ctx.Err(), "onboarding transition abandoned")
}

func isValidation(err error) bool {
	var verrs validator.ValidationErrors
	var verr *core.ValidationError
	return errors.As(err, &verrs) || errors.As(err, &verr)
}
