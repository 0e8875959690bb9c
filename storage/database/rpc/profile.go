package rpcrepos

import (
	"context"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/profile"
)

type profileRepository struct {
	remote core.Remote
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(remote core.Remote) *profileRepository {
	return &profileRepository{remote: remote}
}

func (repo *profileRepository) GetProfile(ctx context.Context, userID string) (profile.UserProfile, error) {
	var prof profile.UserProfile
	err := repo.remote.Select(ctx, tableProfiles, core.Eq("id", userID).First(), &prof)
	return prof, notFound(err, profile.ErrNotFound)
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, userID string, c profile.Completion) (profile.UserProfile, error) {
	var prof profile.UserProfile
	err := repo.remote.Update(ctx, tableProfiles, core.Eq("id", userID), c, &prof)
	return prof, notFound(err, profile.ErrNotFound)
}

// details reads the role sub-profile of userID from table into out.
func (repo *profileRepository) details(ctx context.Context, table, userID string, out interface{}) error {
	return notFound(repo.remote.Select(ctx, table, core.Eq("user_id", userID).First(), out), profile.ErrNotFound)
}

func (repo *profileRepository) GetParentDetails(ctx context.Context, userID string) (profile.ParentDetails, error) {
	var d profile.ParentDetails
	err := repo.details(ctx, tableParentProfiles, userID, &d)
	return d, err
}

func (repo *profileRepository) SaveParentDetails(ctx context.Context, userID string, d profile.ParentDetails) error {
	row := struct {
		UserID string `json:"user_id"`
		profile.ParentDetails
	}{userID, d}
	return repo.remote.Upsert(ctx, tableParentProfiles, "user_id", row, nil)
}

func (repo *profileRepository) GetTeacherDetails(ctx context.Context, userID string) (profile.TeacherDetails, error) {
	var d profile.TeacherDetails
	err := repo.details(ctx, tableTeacherProfiles, userID, &d)
	return d, err
}

func (repo *profileRepository) SaveTeacherDetails(ctx context.Context, userID string, d profile.TeacherDetails) error {
	row := struct {
		UserID string `json:"user_id"`
		profile.TeacherDetails
	}{userID, d}
	return repo.remote.Upsert(ctx, tableTeacherProfiles, "user_id", row, nil)
}

func (repo *profileRepository) GetSchoolAdminDetails(ctx context.Context, userID string) (profile.SchoolAdminDetails, error) {
	var d profile.SchoolAdminDetails
	err := repo.details(ctx, tableSchoolAdminProfiles, userID, &d)
	return d, err
}

func (repo *profileRepository) SaveSchoolAdminDetails(ctx context.Context, userID string, d profile.SchoolAdminDetails) error {
	row := struct {
		UserID string `json:"user_id"`
		profile.SchoolAdminDetails
	}{userID, d}
	return repo.remote.Upsert(ctx, tableSchoolAdminProfiles, "user_id", row, nil)
}
