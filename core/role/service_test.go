package role

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer0000009-hue/schoolportal/core"
)

type repoStub struct {
	scopes    []Scope
	available []string
	switchErr error
	linkRes   LinkResult

	registered []string
	switched   []string
	linked     []string
}

func (r *repoStub) AuthorizedScopes(context.Context) ([]Scope, error) { return r.scopes, nil }
func (r *repoStub) AvailableRoles(context.Context) ([]string, error)  { return r.available, nil }

func (r *repoStub) RegisterScope(_ context.Context, role string) error {
	r.registered = append(r.registered, role)
	return nil
}

func (r *repoStub) SwitchActiveRole(_ context.Context, role string) (SwitchResult, error) {
	if r.switchErr != nil {
		return SwitchResult{}, r.switchErr
	}
	r.switched = append(r.switched, role)
	return SwitchResult{Success: true, Role: role, ProfileCompleted: r.IsAuthorized(role)}, nil
}

func (r *repoStub) LinkBranchAdmin(_ context.Context, code string) (LinkResult, error) {
	r.linked = append(r.linked, code)
	return r.linkRes, nil
}

func (r *repoStub) IsAuthorized(role string) bool {
	return Catalog{Authorized: r.scopes}.IsAuthorized(role)
}

func newValidate() *validator.Validate {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func TestParse(t *testing.T) {
	for _, k := range Kinds() {
		got, err := Parse(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := Parse("Janitor")
	assert.Equal(t, ErrUnknownRole, errors.Cause(err))

	got, err := Parse("  Teacher ")
	require.NoError(t, err)
	assert.Equal(t, KindTeacher, got)

	assert.False(t, KindBranchAdmin.RequiresProfile())
	assert.True(t, KindSchoolAdmin.HasSetupSteps())
	assert.False(t, KindParent.HasSetupSteps())
}

func TestService_Catalog_Disjoint(t *testing.T) {
	repo := &repoStub{
		scopes:    []Scope{{Role: Parent}},
		available: []string{Parent, Teacher, Teacher, SchoolAdmin},
	}
	svc := NewService(repo, newValidate())

	cat, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Scope{{Role: Parent}}, cat.Authorized)
	assert.Equal(t, []string{Teacher, SchoolAdmin}, cat.Available)
}

func TestService_Activate(t *testing.T) {
	tests := []struct {
		name           string
		repo           *repoStub
		sel            Selection
		wantErr        error
		wantRole       string
		wantRegistered []string
		wantLinked     []string
		wantCompleted  bool
	}{
		{
			name: "authorized scope fast path",
			repo: &repoStub{scopes: []Scope{{Role: Teacher}}},
			sel:  Selection{Role: Teacher}, wantRole: Teacher, wantCompleted: true,
		},
		{
			name: "available role registers first",
			repo: &repoStub{available: []string{Parent}},
			sel:  Selection{Role: Parent}, wantRole: Parent, wantRegistered: []string{Parent},
		},
		{
			name: "role neither authorized nor available",
			repo: &repoStub{available: []string{Parent}},
			sel:  Selection{Role: Teacher}, wantErr: ErrRoleUnavailable,
		},
		{
			name: "school administration without a choice",
			repo: &repoStub{available: []string{SchoolAdmin}},
			sel:  Selection{Role: SchoolAdmin}, wantErr: ErrInstitutionChoiceRequired,
		},
		{
			name: "school administration new institution",
			repo: &repoStub{available: []string{SchoolAdmin}},
			sel:  Selection{Role: SchoolAdmin, Choice: ChoiceNewInstitution}, wantRole: SchoolAdmin,
			wantRegistered: []string{SchoolAdmin},
		},
		{
			name: "invitation code is uppercased and redeemed",
			repo: &repoStub{linkRes: LinkResult{Success: true, BranchID: "b1"}},
			sel:  Selection{Role: SchoolAdmin, Choice: ChoiceInvitation, InvitationCode: " abcd2345 "},
			wantRole: BranchAdmin, wantLinked: []string{"ABCD2345"}, wantCompleted: true,
		},
		{
			name: "switch failure",
			repo: &repoStub{scopes: []Scope{{Role: Teacher}}, switchErr: core.NewRemoteError(400, "nope")},
			sel:  Selection{Role: Teacher}, wantErr: core.NewRemoteError(400, "nope"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, newValidate())
			res, err := svc.Activate(context.Background(), tt.sel)
			if tt.wantErr != nil {
				require.Error(t, err)
				cause := errors.Cause(err)
				if verr, ok := cause.(*core.ValidationError); ok {
					cause = verr.Err
				}
				assert.Equal(t, tt.wantErr, cause)
				assert.Empty(t, tt.repo.switched)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, res.Role)
			assert.Equal(t, tt.wantCompleted, res.ProfileCompleted)
			assert.Equal(t, tt.wantRegistered, tt.repo.registered)
			assert.Equal(t, tt.wantLinked, tt.repo.linked)
		})
	}
}

func TestSelection_Validate_InvitationCode(t *testing.T) {
	validate := newValidate()
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "missing", code: "", wantErr: true},
		{name: "too short", code: "abc123", wantErr: true},
		{name: "symbols", code: "ABCD$123", wantErr: true},
		{name: "lowercase accepted", code: "abcd1234"},
		{name: "dashes accepted", code: "SCH-2024-XY"},
		{name: "prefixed code", code: "BR-1A2B3C4D"},
		{name: "dashes only", code: "--------", wantErr: true},
		{name: "seven letters or digits", code: "BR-1234", wantErr: true},
		{name: "dashes do not count", code: "AB-CD-12-3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Selection{Role: SchoolAdmin, Choice: ChoiceInvitation, InvitationCode: tt.code}
			err := sel.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
