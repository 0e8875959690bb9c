package rpcrepos

import (
	"context"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/sharecode"
)

type shareCodeRepository struct {
	remote core.Remote
}

var _ sharecode.Repository = (*shareCodeRepository)(nil)

func NewShareCodeRepository(remote core.Remote) *shareCodeRepository {
	return &shareCodeRepository{remote: remote}
}

func (repo *shareCodeRepository) List(ctx context.Context, admissionID string) ([]sharecode.ShareCode, error) {
	var codes []sharecode.ShareCode
	q := core.Eq("admission_id", admissionID).OrderBy(core.DBOrdering{Field: "created_at"})
	err := repo.remote.Select(ctx, tableShareCodes, q, &codes)
	return codes, err
}

func (repo *shareCodeRepository) Get(ctx context.Context, id string) (sharecode.ShareCode, error) {
	var code sharecode.ShareCode
	err := repo.remote.Select(ctx, tableShareCodes, core.Eq("id", id).First(), &code)
	return code, notFound(err, sharecode.ErrNotFound)
}

func (repo *shareCodeRepository) Generate(ctx context.Context, admissionID string, typ sharecode.Type) (sharecode.ShareCode, error) {
	var code sharecode.ShareCode
	args := Args{"p_admission_id": admissionID, "p_type": typ}
	err := repo.remote.Call(ctx, "generate_share_code", args, &code)
	return code, err
}

func (repo *shareCodeRepository) SetStatus(ctx context.Context, id string, status sharecode.Status) error {
	var code sharecode.ShareCode
	err := repo.remote.Update(ctx, tableShareCodes, core.Eq("id", id), map[string]interface{}{"status": status}, &code)
	return notFound(err, sharecode.ErrNotFound)
}
