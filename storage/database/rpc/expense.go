package rpcrepos

import (
	"context"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/expense"
)

type expenseRepository struct {
	remote core.Remote
}

var _ expense.Repository = (*expenseRepository)(nil)

func NewExpenseRepository(remote core.Remote) *expenseRepository {
	return &expenseRepository{remote: remote}
}

func (repo *expenseRepository) List(ctx context.Context) ([]expense.Expense, error) {
	var list []expense.Expense
	q := core.Query{}.OrderBy(core.DBOrdering{Field: "created_at"})
	err := repo.remote.Select(ctx, tableExpenses, q, &list)
	return list, err
}

func (repo *expenseRepository) Create(ctx context.Context, e expense.Expense) (expense.Expense, error) {
	row := map[string]interface{}{
		"title":        e.Title,
		"category":     e.Category,
		"amount":       e.Amount,
		"status":       e.Status,
		"invoice_path": e.InvoicePath,
	}
	var created expense.Expense
	err := repo.remote.Insert(ctx, tableExpenses, row, &created)
	return created, err
}

func (repo *expenseRepository) UpdateStatus(ctx context.Context, id string, status expense.Status) error {
	args := Args{"p_expense_id": id, "p_status": status}
	return notFound(repo.remote.Call(ctx, "update_expense_status", args, nil), expense.ErrNotFound)
}
