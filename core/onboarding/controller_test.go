package onboarding

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/profile"
	"github.com/developer0000009-hue/schoolportal/core/role"
)

// world fakes the remote store behind the onboarding, role & profile repositories.
type world struct {
	mu        sync.Mutex
	snap      Snapshot
	available []string
	scopes    []role.Scope
	plan      PlanSelection

	failUpdate  error
	failClear   error
	clearHook   func()
	snapshotErr error
}

func (w *world) Snapshot(context.Context, string) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap, w.snapshotErr
}

func (w *world) SetAdminStep(_ context.Context, _ string, step string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snap.AdminStep = step
	return nil
}

func (w *world) ClearRole(context.Context, string) error {
	if w.clearHook != nil {
		w.clearHook()
	}
	if w.failClear != nil {
		return w.failClear
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snap.Role = ""
	return nil
}

func (w *world) UpdatePlan(_ context.Context, sel PlanSelection) error {
	w.plan = sel
	return nil
}

func (w *world) CompleteBranchStep(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snap.AdminStep = AdminStepCompleted
	return nil
}

func (w *world) AuthorizedScopes(context.Context) ([]role.Scope, error) { return w.scopes, nil }
func (w *world) AvailableRoles(context.Context) ([]string, error)       { return w.available, nil }

func (w *world) RegisterScope(context.Context, string) error { return nil }

func (w *world) SwitchActiveRole(_ context.Context, name string) (role.SwitchResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snap.Role = name
	completed := role.Catalog{Authorized: w.scopes}.IsAuthorized(name)
	w.snap.ProfileCompleted = completed
	return role.SwitchResult{Success: true, Role: name, ProfileCompleted: completed}, nil
}

func (w *world) LinkBranchAdmin(context.Context, string) (role.LinkResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snap.Role = role.BranchAdmin
	return role.LinkResult{Success: true, BranchID: "b1"}, nil
}

func (w *world) GetProfile(context.Context, string) (profile.UserProfile, error) {
	return profile.UserProfile{ID: "u1", DisplayName: "Jane"}, nil
}

func (w *world) UpdateProfile(_ context.Context, _ string, c profile.Completion) (profile.UserProfile, error) {
	if w.failUpdate != nil {
		return profile.UserProfile{}, w.failUpdate
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snap.Role = c.Role
	w.snap.ProfileCompleted = c.ProfileCompleted
	return profile.UserProfile{ID: "u1", DisplayName: c.DisplayName, Role: null.StringFrom(c.Role), ProfileCompleted: true}, nil
}

func (w *world) GetParentDetails(context.Context, string) (profile.ParentDetails, error) {
	return profile.ParentDetails{}, profile.ErrNotFound
}
func (w *world) SaveParentDetails(context.Context, string, profile.ParentDetails) error { return nil }
func (w *world) GetTeacherDetails(context.Context, string) (profile.TeacherDetails, error) {
	return profile.TeacherDetails{}, profile.ErrNotFound
}
func (w *world) SaveTeacherDetails(context.Context, string, profile.TeacherDetails) error { return nil }
func (w *world) GetSchoolAdminDetails(context.Context, string) (profile.SchoolAdminDetails, error) {
	return profile.SchoolAdminDetails{}, profile.ErrNotFound
}
func (w *world) SaveSchoolAdminDetails(context.Context, string, profile.SchoolAdminDetails) error {
	return nil
}

// lockStub holds a single lock at a time.
type lockStub struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *lockStub) TryLock(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, core.ErrLocked
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type logStub struct{}

func (logStub) Debug(string, ...interface{}) {}
func (logStub) Info(string, ...interface{})  {}
func (logStub) Warn(string, ...interface{})  {}
func (logStub) Error(string, ...interface{}) {}
func (logStub) Fatal(string, ...interface{}) {}

var principal = core.Principal{UserID: "u1", Email: "jane@school.test"}

func newController(w *world, locker core.Locker) *Controller {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	role.InitValidators(validate, translator)

	if locker == nil {
		locker = &lockStub{}
	}
	return NewController(
		w,
		role.NewService(w, validate),
		profile.NewService(w, validate),
		locker,
		time.Second,
		validate,
		logStub{},
	)
}

func TestController_NonAdminCompletesAfterProfile(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{role.Parent, role.Student, role.Teacher, role.Transport, role.Finance} {
		t.Run(name, func(t *testing.T) {
			w := &world{available: []string{name}}
			c := newController(w, nil)

			st, err := c.SelectRole(ctx, principal, role.Selection{Role: name})
			require.NoError(t, err)
			assert.Equal(t, State{Step: StepProfile, Role: name}, st)

			body := `{"display_name":"Jane","relationship_to_student":"Mother"}`
			st, err = c.SubmitProfile(ctx, principal, json.RawMessage(body))
			require.NoError(t, err)
			assert.Equal(t, State{Step: StepComplete, Role: name}, st)
			assert.True(t, w.snap.ProfileCompleted)
		})
	}
}

func TestController_AdminFlow(t *testing.T) {
	ctx := context.Background()
	w := &world{available: []string{role.SchoolAdmin}}
	c := newController(w, nil)

	st, err := c.SelectRole(ctx, principal, role.Selection{Role: role.SchoolAdmin, Choice: role.ChoiceNewInstitution})
	require.NoError(t, err)
	assert.Equal(t, StepProfile, st.Step)

	// branches before pricing is persisted
	st, err = c.Navigate(ctx, principal, StepBranches)
	require.NoError(t, err)
	assert.Equal(t, StepProfile, st.Step)

	_, err = c.SelectPlan(ctx, principal, PlanSelection{PlanID: "growth", BillingCycle: "monthly"})
	assert.Equal(t, ErrStepMismatch, err)

	st, err = c.SubmitProfile(ctx, principal, json.RawMessage(`{"display_name":"Jane","school_name":"Hill School"}`))
	require.NoError(t, err)
	assert.Equal(t, State{Step: StepPricing, Role: role.SchoolAdmin}, st)

	st, err = c.SelectPlan(ctx, principal, PlanSelection{PlanID: " Growth ", BillingCycle: "annually"})
	require.NoError(t, err)
	assert.Equal(t, StepBranches, st.Step)
	assert.Equal(t, PlanSelection{PlanID: "growth", BillingCycle: "annually"}, w.plan)

	st, err = c.Back(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, StepPricing, st.Step)
	assert.Equal(t, AdminStepPricing, w.snap.AdminStep)

	st, err = c.Navigate(ctx, principal, StepBranches)
	require.NoError(t, err)
	assert.Equal(t, StepBranches, st.Step)

	_, err = c.SelectPlan(ctx, principal, PlanSelection{PlanID: "starter", BillingCycle: "monthly"})
	require.NoError(t, err)
	st, err = c.CompleteBranches(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, State{Step: StepComplete, Role: role.SchoolAdmin}, st)
}

func TestController_SelectPlan_Validation(t *testing.T) {
	c := newController(&world{}, nil)
	_, err := c.SelectPlan(context.Background(), principal, PlanSelection{PlanID: "gold", BillingCycle: "weekly"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
}

func TestController_BranchAdminInvitation(t *testing.T) {
	w := &world{}
	c := newController(w, nil)
	st, err := c.SelectRole(context.Background(), principal, role.Selection{
		Role: role.SchoolAdmin, Choice: role.ChoiceInvitation, InvitationCode: "hill-2024-ab",
	})
	require.NoError(t, err)
	assert.Equal(t, State{Step: StepComplete, Role: role.BranchAdmin}, st)
}

func TestController_SelectRole_Failure(t *testing.T) {
	w := &world{available: []string{role.Parent}}
	c := newController(w, nil)

	st, err := c.SelectRole(context.Background(), principal, role.Selection{Role: role.Teacher})
	var terr *TransitionError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.Equal(t, StepRole, terr.State.Step)
	assert.Equal(t, role.ErrRoleUnavailable.Error(), terr.State.Error)
	assert.Equal(t, terr.State, st)
	assert.Equal(t, role.ErrRoleUnavailable, errors.Unwrap(terr))

	// validation errors are not transition failures
	_, err = c.SelectRole(context.Background(), principal, role.Selection{Role: role.SchoolAdmin})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, role.ErrInstitutionChoiceRequired, verr.Err)
}

func TestController_SelectRole_FailureAfterCompletion(t *testing.T) {
	w := &world{
		snap:      Snapshot{Role: role.Parent, ProfileCompleted: true},
		available: []string{role.Parent},
	}
	c := newController(w, nil)

	st, err := c.SelectRole(context.Background(), principal, role.Selection{Role: role.Teacher})
	var terr *TransitionError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.Equal(t, State{Step: StepRole, Error: role.ErrRoleUnavailable.Error()}, st)
	assert.Equal(t, role.Parent, w.snap.Role)
}

func TestController_SubmitProfile_Failure(t *testing.T) {
	w := &world{snap: Snapshot{Role: role.Teacher}, failUpdate: core.NewRemoteError(409, "profile is locked")}
	c := newController(w, nil)

	_, err := c.SubmitProfile(context.Background(), principal, json.RawMessage(`{"display_name":"Jo"}`))
	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, State{Step: StepProfile, Role: role.Teacher, Error: "profile is locked"}, terr.State)
	assert.False(t, w.snap.ProfileCompleted)

	_, err = c.SubmitProfile(context.Background(), principal, json.RawMessage(`{"display_name":""}`))
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestController_Back(t *testing.T) {
	ctx := context.Background()

	t.Run("profile clears the role", func(t *testing.T) {
		w := &world{snap: Snapshot{Role: role.Parent}}
		st, err := newController(w, nil).Back(ctx, principal)
		require.NoError(t, err)
		assert.Equal(t, State{Step: StepRole}, st)
		assert.Equal(t, "", w.snap.Role)
	})

	t.Run("completed profile is left alone", func(t *testing.T) {
		w := &world{snap: Snapshot{Role: role.SchoolAdmin, ProfileCompleted: true, AdminStep: AdminStepProfile}}
		st, err := newController(w, nil).Back(ctx, principal)
		require.NoError(t, err)
		assert.Equal(t, State{Step: StepProfile, Role: role.SchoolAdmin}, st)
		assert.Equal(t, role.SchoolAdmin, w.snap.Role)
	})

	t.Run("pending clear is reported while in flight", func(t *testing.T) {
		w := &world{snap: Snapshot{Role: role.Parent}}
		c := newController(w, nil)
		var during State
		w.clearHook = func() {
			// the snapshot still holds the role here
			during, _ = c.State(ctx, principal)
		}
		_, err := c.Back(ctx, principal)
		require.NoError(t, err)
		assert.Equal(t, State{Step: StepRole}, during)

		_, pending := c.pending(principal.UserID)
		assert.False(t, pending)
	})

	t.Run("failed clear keeps the profile step", func(t *testing.T) {
		w := &world{snap: Snapshot{Role: role.Parent}, failClear: core.NewRemoteError(500, "try later")}
		c := newController(w, nil)
		_, err := c.Back(ctx, principal)
		var terr *TransitionError
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, State{Step: StepProfile, Role: role.Parent, Error: "try later"}, terr.State)

		st, err := c.State(ctx, principal)
		require.NoError(t, err)
		assert.Equal(t, State{Step: StepProfile, Role: role.Parent}, st)
	})
}

func TestController_TransitionInProgress(t *testing.T) {
	locker := &lockStub{}
	w := &world{snap: Snapshot{Role: role.Parent}}
	c := newController(w, locker)

	release, err := locker.TryLock(context.Background(), lockKey(principal.UserID), time.Second)
	require.NoError(t, err)

	_, err = c.Back(context.Background(), principal)
	assert.Equal(t, ErrTransitionInProgress, err)
	assert.Equal(t, role.Parent, w.snap.Role)

	// reads are not locked
	st, err := c.State(context.Background(), principal)
	require.NoError(t, err)
	assert.Equal(t, StepProfile, st.Step)

	release()
	_, err = c.Back(context.Background(), principal)
	assert.NoError(t, err)
}

func TestController_CancelledTransitionIsDropped(t *testing.T) {
	w := &world{snap: Snapshot{Role: role.Parent}}
	c := newController(w, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.clearHook = cancel

	st, err := c.Back(ctx, principal)
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
	assert.Equal(t, State{}, st)
}
