package rpcrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/onboarding"
	"github.com/developer0000009-hue/schoolportal/core/profile"
)

type onboardingRepository struct {
	remote core.Remote
}

var _ onboarding.Repository = (*onboardingRepository)(nil)

func NewOnboardingRepository(remote core.Remote) *onboardingRepository {
	return &onboardingRepository{remote: remote}
}

// Snapshot reads the profile and, when there is one, the onboarding step of the school
// administrator profile.
func (repo *onboardingRepository) Snapshot(ctx context.Context, userID string) (onboarding.Snapshot, error) {
	var prof struct {
		Role             null.String `json:"role"`
		ProfileCompleted bool        `json:"profile_completed"`
	}
	if err := repo.remote.Select(ctx, tableProfiles, core.Eq("id", userID).First(), &prof); err != nil {
		return onboarding.Snapshot{}, notFound(err, profile.ErrNotFound)
	}

	var adm struct {
		OnboardingStep null.String `json:"onboarding_step"`
	}
	err := repo.remote.Select(ctx, tableSchoolAdminProfiles, core.Eq("user_id", userID).First(), &adm)
	if err != nil && errors.Cause(err) != core.ErrNotFound {
		return onboarding.Snapshot{}, errors.Wrap(err, "reading school admin profile")
	}

	return onboarding.Snapshot{
		Role:             prof.Role.String,
		ProfileCompleted: prof.ProfileCompleted,
		AdminStep:        adm.OnboardingStep.String,
	}, nil
}

func (repo *onboardingRepository) SetAdminStep(ctx context.Context, userID, step string) error {
	row := map[string]string{"user_id": userID, "onboarding_step": step}
	return repo.remote.Upsert(ctx, tableSchoolAdminProfiles, "user_id", row, nil)
}

func (repo *onboardingRepository) ClearRole(ctx context.Context, userID string) error {
	patch := map[string]interface{}{"role": nil}
	return repo.remote.Update(ctx, tableProfiles, core.Eq("id", userID), patch, nil)
}

func (repo *onboardingRepository) UpdatePlan(ctx context.Context, sel onboarding.PlanSelection) error {
	args := Args{"p_plan_id": sel.PlanID, "p_billing_cycle": sel.BillingCycle}
	return repo.remote.Call(ctx, "update_school_plan", args, nil)
}

func (repo *onboardingRepository) CompleteBranchStep(ctx context.Context) error {
	return repo.remote.Call(ctx, "complete_branch_step", nil, nil)
}
