package rpcrepos

import (
	"context"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/role"
)

type roleRepository struct {
	remote core.Remote
}

var _ role.Repository = (*roleRepository)(nil)

func NewRoleRepository(remote core.Remote) *roleRepository {
	return &roleRepository{remote: remote}
}

func (repo *roleRepository) AuthorizedScopes(ctx context.Context) ([]role.Scope, error) {
	var scopes []role.Scope
	err := repo.remote.Call(ctx, "get_user_authorized_scopes", nil, &scopes)
	return scopes, err
}

func (repo *roleRepository) AvailableRoles(ctx context.Context) ([]string, error) {
	var roles []string
	err := repo.remote.Call(ctx, "get_available_roles_for_registration", nil, &roles)
	return roles, err
}

func (repo *roleRepository) RegisterScope(ctx context.Context, roleName string) error {
	return repo.remote.Call(ctx, "register_role_scope", Args{"p_role": roleName}, nil)
}

func (repo *roleRepository) SwitchActiveRole(ctx context.Context, roleName string) (role.SwitchResult, error) {
	var res role.SwitchResult
	err := repo.remote.Call(ctx, "switch_active_role", Args{"p_target_role": roleName}, &res)
	return res, err
}

func (repo *roleRepository) LinkBranchAdmin(ctx context.Context, code string) (role.LinkResult, error) {
	var res role.LinkResult
	err := repo.remote.Call(ctx, "verify_and_link_branch_admin", Args{"p_code": code}, &res)
	return res, err
}
