package rpcrepos

import (
	"context"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/fee"
)

type feeRepository struct {
	remote core.Remote
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(remote core.Remote) *feeRepository {
	return &feeRepository{remote: remote}
}

func (repo *feeRepository) ListStructures(ctx context.Context) ([]fee.Structure, error) {
	var list []fee.Structure
	q := core.Query{}.OrderBy(core.DBOrdering{Field: "created_at"})
	err := repo.remote.Select(ctx, tableFeeStructures, q, &list)
	return list, err
}

// CreateStructure inserts s; the store assigns its id & creation time.
func (repo *feeRepository) CreateStructure(ctx context.Context, s fee.Structure) (fee.Structure, error) {
	row := map[string]interface{}{
		"name":          s.Name,
		"academic_year": s.AcademicYear,
		"grade":         s.Grade,
		"currency":      s.Currency,
		"description":   s.Description,
		"status":        s.Status,
	}
	if s.OwnerID != "" {
		row["owner_id"] = s.OwnerID
	}
	var created fee.Structure
	err := repo.remote.Insert(ctx, tableFeeStructures, row, &created)
	return created, err
}

// CreateComponents inserts cs in one request.
func (repo *feeRepository) CreateComponents(ctx context.Context, cs []fee.Component) ([]fee.Component, error) {
	var created []fee.Component
	err := repo.remote.Insert(ctx, tableFeeComponents, cs, &created)
	return created, err
}

func (repo *feeRepository) Publish(ctx context.Context, id string) error {
	err := repo.remote.Call(ctx, "publish_fee_structure", Args{"p_structure_id": id}, nil)
	return notFound(err, fee.ErrNotFound)
}
