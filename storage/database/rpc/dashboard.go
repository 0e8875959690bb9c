package rpcrepos

import (
	"context"
	"encoding/json"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/dashboard"
)

type dashboardRepository struct {
	remote core.Remote
}

var _ dashboard.Repository = (*dashboardRepository)(nil)

func NewDashboardRepository(remote core.Remote) *dashboardRepository {
	return &dashboardRepository{remote: remote}
}

func (repo *dashboardRepository) Call(ctx context.Context, fn string) (json.RawMessage, error) {
	var data json.RawMessage
	err := repo.remote.Call(ctx, fn, nil, &data)
	return data, err
}

func (repo *dashboardRepository) Ledgers(ctx context.Context) ([]dashboard.Ledger, error) {
	var ledgers []dashboard.Ledger
	err := repo.remote.Call(ctx, dashboard.FnLedgers, nil, &ledgers)
	return ledgers, err
}

func (repo *dashboardRepository) FeeStructures(ctx context.Context) (json.RawMessage, error) {
	var data json.RawMessage
	q := core.Query{}.OrderBy(core.DBOrdering{Field: "created_at"})
	err := repo.remote.Select(ctx, tableFeeStructures, q, &data)
	return data, err
}

// SchoolAdminProfile is the school administrator profile of userID, or null when there is none.
func (repo *dashboardRepository) SchoolAdminProfile(ctx context.Context, userID string) (json.RawMessage, error) {
	var rows []json.RawMessage
	if err := repo.remote.Select(ctx, tableSchoolAdminProfiles, core.Eq("user_id", userID).First(), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return json.RawMessage("null"), nil
	}
	return rows[0], nil
}
