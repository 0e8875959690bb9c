package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/role"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want State
	}{
		{name: "no role", snap: Snapshot{}, want: State{Step: StepRole}},
		{name: "unknown role", snap: Snapshot{Role: "Janitor"}, want: State{Step: StepRole}},
		{name: "parent pending", snap: Snapshot{Role: role.Parent}, want: State{Step: StepProfile, Role: role.Parent}},
		{name: "teacher done", snap: Snapshot{Role: role.Teacher, ProfileCompleted: true}, want: State{Step: StepComplete, Role: role.Teacher}},
		{name: "branch admin", snap: Snapshot{Role: role.BranchAdmin}, want: State{Step: StepComplete, Role: role.BranchAdmin}},
		{name: "admin without step", snap: Snapshot{Role: role.SchoolAdmin}, want: State{Step: StepProfile, Role: role.SchoolAdmin}},
		{
			name: "admin completed profile but no step",
			snap: Snapshot{Role: role.SchoolAdmin, ProfileCompleted: true},
			want: State{Step: StepProfile, Role: role.SchoolAdmin},
		},
		{
			name: "admin pricing",
			snap: Snapshot{Role: role.SchoolAdmin, ProfileCompleted: true, AdminStep: AdminStepPricing},
			want: State{Step: StepPricing, Role: role.SchoolAdmin},
		},
		{
			name: "admin branches",
			snap: Snapshot{Role: role.SchoolAdmin, ProfileCompleted: true, AdminStep: AdminStepBranches},
			want: State{Step: StepBranches, Role: role.SchoolAdmin},
		},
		{
			name: "admin completed",
			snap: Snapshot{Role: role.SchoolAdmin, ProfileCompleted: true, AdminStep: AdminStepCompleted},
			want: State{Step: StepComplete, Role: role.SchoolAdmin},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.snap))
		})
	}
}

func TestReduce_RoleSwitched(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		ev   RoleSwitched
		want State
	}{
		{
			name: "non-admin without profile",
			ev:   RoleSwitched{Role: role.Parent},
			want: State{Step: StepProfile, Role: role.Parent},
		},
		{
			name: "completed profile skips to the end",
			ev:   RoleSwitched{Role: role.Teacher, ProfileCompleted: true},
			want: State{Step: StepComplete, Role: role.Teacher},
		},
		{
			name: "branch admin completes immediately",
			ev:   RoleSwitched{Role: role.BranchAdmin},
			want: State{Step: StepComplete, Role: role.BranchAdmin},
		},
		{
			name: "admin resumes its persisted step",
			snap: Snapshot{AdminStep: AdminStepBranches},
			ev:   RoleSwitched{Role: role.SchoolAdmin, ProfileCompleted: true},
			want: State{Step: StepBranches, Role: role.SchoolAdmin},
		},
		{
			name: "admin without profile",
			snap: Snapshot{AdminStep: AdminStepBranches},
			ev:   RoleSwitched{Role: role.SchoolAdmin},
			want: State{Step: StepProfile, Role: role.SchoolAdmin},
		},
		{
			name: "unknown role",
			ev:   RoleSwitched{Role: "Janitor"},
			want: State{Step: StepRole, Error: "unknown role"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reduce(State{Step: StepRole}, tt.snap, tt.ev))
		})
	}
}

func TestReduce_Back(t *testing.T) {
	tests := []struct {
		name string
		cur  State
		snap Snapshot
		want State
	}{
		{
			name: "profile clears the role",
			cur:  State{Step: StepProfile, Role: role.Parent},
			snap: Snapshot{Role: role.Parent},
			want: State{Step: StepRole},
		},
		{
			name: "profile is a no-op once completed",
			cur:  State{Step: StepProfile, Role: role.SchoolAdmin},
			snap: Snapshot{Role: role.SchoolAdmin, ProfileCompleted: true},
			want: State{Step: StepProfile, Role: role.SchoolAdmin},
		},
		{
			name: "pricing to profile",
			cur:  State{Step: StepPricing, Role: role.SchoolAdmin},
			snap: Snapshot{Role: role.SchoolAdmin, ProfileCompleted: true, AdminStep: AdminStepPricing},
			want: State{Step: StepProfile, Role: role.SchoolAdmin},
		},
		{
			name: "branches to pricing",
			cur:  State{Step: StepBranches, Role: role.SchoolAdmin},
			snap: Snapshot{Role: role.SchoolAdmin, ProfileCompleted: true, AdminStep: AdminStepBranches},
			want: State{Step: StepPricing, Role: role.SchoolAdmin},
		},
		{
			name: "role stays",
			cur:  State{Step: StepRole},
			want: State{Step: StepRole},
		},
		{
			name: "complete stays",
			cur:  State{Step: StepComplete, Role: role.Teacher},
			snap: Snapshot{Role: role.Teacher, ProfileCompleted: true},
			want: State{Step: StepComplete, Role: role.Teacher},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reduce(tt.cur, tt.snap, Back{}))
		})
	}
}

func TestReduce_Navigate(t *testing.T) {
	admin := func(step string) Snapshot {
		return Snapshot{Role: role.SchoolAdmin, ProfileCompleted: step != "", AdminStep: step}
	}
	tests := []struct {
		name string
		snap Snapshot
		to   Step
		want State
	}{
		{name: "branches without persisted step", snap: admin(""), to: StepBranches, want: State{Step: StepProfile, Role: role.SchoolAdmin}},
		{name: "pricing without persisted step", snap: admin(AdminStepProfile), to: StepPricing, want: State{Step: StepProfile, Role: role.SchoolAdmin}},
		{name: "branches from pricing", snap: admin(AdminStepPricing), to: StepBranches, want: State{Step: StepBranches, Role: role.SchoolAdmin}},
		{name: "pricing from branches", snap: admin(AdminStepBranches), to: StepPricing, want: State{Step: StepPricing, Role: role.SchoolAdmin}},
		{name: "profile from pricing", snap: admin(AdminStepPricing), to: StepProfile, want: State{Step: StepProfile, Role: role.SchoolAdmin}},
		{name: "admin done", snap: admin(AdminStepCompleted), to: StepBranches, want: State{Step: StepComplete, Role: role.SchoolAdmin}},
		{
			name: "non-admin cannot reach pricing",
			snap: Snapshot{Role: role.Parent},
			to:   StepPricing,
			want: State{Step: StepProfile, Role: role.Parent},
		},
		{
			name: "completed non-admin cannot reopen the profile",
			snap: Snapshot{Role: role.Teacher, ProfileCompleted: true},
			to:   StepProfile,
			want: State{Step: StepComplete, Role: role.Teacher},
		},
		{
			name: "completion is not reachable early",
			snap: Snapshot{Role: role.Parent},
			to:   StepComplete,
			want: State{Step: StepProfile, Role: role.Parent},
		},
		{
			name: "role from a pending profile",
			snap: Snapshot{Role: role.Parent},
			to:   StepRole,
			want: State{Step: StepRole},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reduce(Derive(tt.snap), tt.snap, Navigate{To: tt.to}))
		})
	}
}

func TestReduce_Failed(t *testing.T) {
	snap := Snapshot{Role: role.SchoolAdmin, ProfileCompleted: true, AdminStep: AdminStepPricing}

	got := Reduce(State{Step: StepPricing, Role: role.SchoolAdmin}, snap, Failed{Err: core.NewRemoteError(400, "plan expired")})
	assert.Equal(t, State{Step: StepPricing, Role: role.SchoolAdmin, Error: "plan expired"}, got)

	// an unreachable current step falls back to the derived one
	got = Reduce(State{Step: StepBranches, Role: role.SchoolAdmin}, Snapshot{Role: role.SchoolAdmin}, Failed{Err: core.NewRemoteError(500, "")})
	assert.Equal(t, State{Step: StepProfile, Role: role.SchoolAdmin, Error: core.GenericErrorMessage}, got)

	// role failures stay on the role list even for completed users
	got = Reduce(State{Step: StepRole}, Snapshot{Role: role.Parent, ProfileCompleted: true}, Failed{Err: role.ErrRoleUnavailable})
	assert.Equal(t, State{Step: StepRole, Error: role.ErrRoleUnavailable.Error()}, got)
}
