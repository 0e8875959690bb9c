package role

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
)

// Role names as stored on profiles.role.
const (
	Parent      = "Parent/Guardian"
	Student     = "Student"
	Teacher     = "Teacher"
	SchoolAdmin = "School Administration"
	BranchAdmin = "Branch Admin"
	Transport   = "Transport Staff"
	Finance     = "Finance Staff"
)

// Kind is the closed set of roles the portal knows how to onboard.
type Kind int

const (
	KindParent Kind = iota + 1
	KindStudent
	KindTeacher
	KindSchoolAdmin
	KindBranchAdmin
	KindTransport
	KindFinance
)

var (
	ErrUnknownRole               = errors.New("unknown role")
	ErrRoleUnavailable           = errors.New("role is not available for this account")
	ErrInstitutionChoiceRequired = errors.New("choose between creating a new institution and redeeming an invitation code")

	kindNames = map[Kind]string{
		KindParent:      Parent,
		KindStudent:     Student,
		KindTeacher:     Teacher,
		KindSchoolAdmin: SchoolAdmin,
		KindBranchAdmin: BranchAdmin,
		KindTransport:   Transport,
		KindFinance:     Finance,
	}
)

// Kinds lists every known role kind.
func Kinds() []Kind {
	return []Kind{KindParent, KindStudent, KindTeacher, KindSchoolAdmin, KindBranchAdmin, KindTransport, KindFinance}
}

// Parse maps a role name to its Kind.
func Parse(name string) (Kind, error) {
	name = core.CleanString(name)
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownRole, "%q", name)
}

func (k Kind) String() string {
	return kindNames[k]
}

// RequiresProfile is false for roles confirmed without a profile step.
func (k Kind) RequiresProfile() bool {
	return k != KindBranchAdmin
}

// HasSetupSteps is true for the role that configures a plan and branches after its profile.
func (k Kind) HasSetupSteps() bool {
	return k == KindSchoolAdmin
}

type (
	// Scope is a role the user completed onboarding for.
	Scope struct {
		Role        string          `json:"role"`
		ActivatedAt time.Time       `json:"activated_at"`
		Permissions json.RawMessage `json:"permissions,omitempty"`
	}

	// Catalog holds the two disjoint role sets offered on the role step.
	Catalog struct {
		Authorized []Scope  `json:"authorized"`
		Available  []string `json:"available"`
	}

	// SwitchResult is the payload of switch_active_role.
	SwitchResult struct {
		Success          bool   `json:"success"`
		Role             string `json:"role"`
		ProfileCompleted bool   `json:"profile_completed"`
		Message          string `json:"message,omitempty"`
	}

	// LinkResult is the payload of verify_and_link_branch_admin.
	LinkResult struct {
		Success  bool   `json:"success"`
		BranchID string `json:"branch_id,omitempty"`
		Message  string `json:"message,omitempty"`
	}
)

func (c Catalog) IsAuthorized(name string) bool {
	for _, s := range c.Authorized {
		if s.Role == name {
			return true
		}
	}
	return false
}

func (c Catalog) IsAvailable(name string) bool {
	for _, r := range c.Available {
		if r == name {
			return true
		}
	}
	return false
}
