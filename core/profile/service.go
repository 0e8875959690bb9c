package profile

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/role"
)

var (
	ErrNotFound      = errors.New("profile not found")
	ErrFormMismatch  = errors.New("form does not match the active role")
	ErrNoActiveRole  = errors.New("no active role")
	errDetailsAbsent = errors.New("no role details yet")
)

type (
	// UserProfile is the identity record of an account (profiles table).
	UserProfile struct {
		ID               string      `json:"id"`
		Email            string      `json:"email"`
		DisplayName      string      `json:"display_name"`
		Phone            null.String `json:"phone"`
		Role             null.String `json:"role"`
		ProfileCompleted bool        `json:"profile_completed"`
		BranchID         null.String `json:"branch_id"`
		CreatedAt        time.Time   `json:"created_at"`
		UpdatedAt        time.Time   `json:"updated_at"`
	}

	// Completion is the unified profiles update closing a profile step.
	Completion struct {
		DisplayName      string      `json:"display_name"`
		Phone            null.String `json:"phone"`
		Role             string      `json:"role"`
		ProfileCompleted bool        `json:"profile_completed"`
	}

	Repository interface {
		GetProfile(ctx context.Context, userID string) (UserProfile, error)
		UpdateProfile(ctx context.Context, userID string, c Completion) (UserProfile, error)

		GetParentDetails(ctx context.Context, userID string) (ParentDetails, error)
		SaveParentDetails(ctx context.Context, userID string, d ParentDetails) error
		GetTeacherDetails(ctx context.Context, userID string) (TeacherDetails, error)
		SaveTeacherDetails(ctx context.Context, userID string, d TeacherDetails) error
		GetSchoolAdminDetails(ctx context.Context, userID string) (SchoolAdminDetails, error)
		SaveSchoolAdminDetails(ctx context.Context, userID string, d SchoolAdminDetails) error
	}

	// Service dispatches profile forms per role.
	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Get returns the profile of the principal.
func (svc *Service) Get(ctx context.Context, p core.Principal) (UserProfile, error) {
	prof, err := svc.repo.GetProfile(ctx, p.UserID)
	return prof, errors.Wrap(err, "getting profile")
}

// Load returns the form of roleName prefilled with the identity fields and any existing role
// details.
func (svc *Service) Load(ctx context.Context, p core.Principal, roleName string) (Form, error) {
	kind, err := role.Parse(roleName)
	if err != nil {
		return nil, err
	}
	form, err := NewForm(kind)
	if err != nil {
		return nil, err
	}

	prof, err := svc.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	id := form.identity()
	id.DisplayName = prof.DisplayName
	id.Phone = prof.Phone.String
	id.Email = prof.Email
	if id.Email == "" {
		id.Email = p.Email
	}

	switch f := form.(type) {
	case *ParentForm:
		f.ParentDetails, err = svc.repo.GetParentDetails(ctx, p.UserID)
	case *TeacherForm:
		f.TeacherDetails, err = svc.repo.GetTeacherDetails(ctx, p.UserID)
	case *SchoolAdminForm:
		f.SchoolAdminDetails, err = svc.repo.GetSchoolAdminDetails(ctx, p.UserID)
	case *GenericForm:
		err = errDetailsAbsent
	}
	if err != nil && errors.Cause(err) != ErrNotFound && err != errDetailsAbsent {
		return nil, errors.Wrap(err, "getting role details")
	}
	return form, nil
}

// Validate cleans and validates a form.
func (svc *Service) Validate(form Form) error {
	id := form.identity()
	id.DisplayName = core.CleanString(id.DisplayName)
	id.Phone = core.CleanString(id.Phone)
	id.Email = core.CleanString(id.Email, true /* lower */)
	if f, ok := form.(*ParentForm); ok {
		f.RelationshipToStudent = core.CleanString(f.RelationshipToStudent)
	}
	return svc.validate.Struct(form)
}

// Submit saves the role details of form, then marks the profile completed under roleName.
// Nothing is marked completed when saving the details fails.
func (svc *Service) Submit(ctx context.Context, p core.Principal, roleName string, form Form) (UserProfile, error) {
	kind, err := role.Parse(roleName)
	if err != nil {
		return UserProfile{}, ErrNoActiveRole
	}
	if form.Kind() != kind {
		return UserProfile{}, core.NewValidationError(ErrFormMismatch)
	}
	if err = svc.Validate(form); err != nil {
		return UserProfile{}, err
	}

	switch f := form.(type) {
	case *ParentForm:
		err = svc.repo.SaveParentDetails(ctx, p.UserID, f.ParentDetails)
	case *TeacherForm:
		err = svc.repo.SaveTeacherDetails(ctx, p.UserID, f.TeacherDetails)
	case *SchoolAdminForm:
		err = svc.repo.SaveSchoolAdminDetails(ctx, p.UserID, f.SchoolAdminDetails)
	case *GenericForm: // identity only
	}
	if err != nil {
		return UserProfile{}, errors.Wrap(err, "saving role details")
	}

	id := form.identity()
	prof, err := svc.repo.UpdateProfile(ctx, p.UserID, Completion{
		DisplayName:      id.DisplayName,
		Phone:            null.NewString(id.Phone, id.Phone != ""),
		Role:             kind.String(),
		ProfileCompleted: true,
	})
	return prof, errors.Wrap(err, "completing profile")
}
