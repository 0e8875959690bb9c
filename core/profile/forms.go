package profile

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core/role"
)

type (
	// Form is one of ParentForm, TeacherForm, SchoolAdminForm or GenericForm.
	Form interface {
		Kind() role.Kind
		identity() *Identity
	}

	Identity struct {
		DisplayName string `json:"display_name" validate:"required,max=120"`
		Phone       string `json:"phone,omitempty" validate:"omitempty,phone"`
		Email       string `json:"email,omitempty" validate:"omitempty,email"`
	}

	ParentDetails struct {
		RelationshipToStudent string `json:"relationship_to_student" validate:"required"`
		Occupation            string `json:"occupation,omitempty"`
		Address               string `json:"address,omitempty"`
		EmergencyContact      string `json:"emergency_contact,omitempty" validate:"omitempty,phone"`
	}

	TeacherDetails struct {
		Subject         string `json:"subject,omitempty"`
		Qualification   string `json:"qualification,omitempty"`
		ExperienceYears int    `json:"experience_years" validate:"gte=0,lte=60"`
	}

	SchoolAdminDetails struct {
		SchoolName    string `json:"school_name,omitempty"`
		Designation   string `json:"designation,omitempty"`
		SchoolAddress string `json:"school_address,omitempty"`
	}

	ParentForm struct {
		Identity
		ParentDetails
	}

	TeacherForm struct {
		Identity
		TeacherDetails
	}

	SchoolAdminForm struct {
		Identity
		SchoolAdminDetails
	}

	// GenericForm only carries the identity fields (name & phone).
	GenericForm struct {
		Identity
		Role role.Kind `json:"-"`
	}
)

func (f *ParentForm) Kind() role.Kind      { return role.KindParent }
func (f *TeacherForm) Kind() role.Kind     { return role.KindTeacher }
func (f *SchoolAdminForm) Kind() role.Kind { return role.KindSchoolAdmin }
func (f *GenericForm) Kind() role.Kind     { return f.Role }

func (f *ParentForm) identity() *Identity      { return &f.Identity }
func (f *TeacherForm) identity() *Identity     { return &f.Identity }
func (f *SchoolAdminForm) identity() *Identity { return &f.Identity }
func (f *GenericForm) identity() *Identity     { return &f.Identity }

// NewForm returns the empty form variant of kind.
func NewForm(kind role.Kind) (Form, error) {
	switch kind {
	case role.KindParent:
		return &ParentForm{}, nil
	case role.KindTeacher:
		return &TeacherForm{}, nil
	case role.KindSchoolAdmin:
		return &SchoolAdminForm{}, nil
	case role.KindStudent, role.KindTransport, role.KindFinance, role.KindBranchAdmin:
		return &GenericForm{Role: kind}, nil
	}
	return nil, errors.Wrapf(role.ErrUnknownRole, "no profile form for kind %d", kind)
}

// Decode builds the form variant of kind out of a JSON body.
func Decode(kind role.Kind, body []byte) (Form, error) {
	form, err := NewForm(kind)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		if err = json.Unmarshal(body, form); err != nil {
			return nil, errors.Wrap(err, "decoding profile form")
		}
	}
	return form, nil
}
