package rpcrepos

import (
	"context"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/branch"
)

type branchRepository struct {
	remote core.Remote
}

var _ branch.Repository = (*branchRepository)(nil)

func NewBranchRepository(remote core.Remote) *branchRepository {
	return &branchRepository{remote: remote}
}

func (repo *branchRepository) List(ctx context.Context) ([]branch.Branch, error) {
	var branches []branch.Branch
	err := repo.remote.Call(ctx, "get_school_branches", nil, &branches)
	return branches, err
}

func (repo *branchRepository) Create(ctx context.Context, in branch.Input) (branch.Created, error) {
	var created branch.Created
	args, err := prefixed(in)
	if err != nil {
		return created, err
	}
	err = repo.remote.Call(ctx, "create_school_branch", args, &created)
	return created, err
}

func (repo *branchRepository) Update(ctx context.Context, id string, in branch.Input) (branch.Branch, error) {
	var b branch.Branch
	args, err := prefixed(in)
	if err != nil {
		return b, err
	}
	args["p_branch_id"] = id
	err = repo.remote.Call(ctx, "update_school_branch", args, &b)
	return b, notFound(err, branch.ErrNotFound)
}

func (repo *branchRepository) Delete(ctx context.Context, id string) error {
	err := repo.remote.Call(ctx, "delete_school_branch", Args{"p_branch_id": id}, nil)
	return notFound(err, branch.ErrNotFound)
}
