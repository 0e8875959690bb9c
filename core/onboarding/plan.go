package onboarding

import (
	"github.com/shopspring/decimal"
)

type (
	Plan struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		MonthlyPrice decimal.Decimal `json:"monthly_price"`
		AnnualPrice  decimal.Decimal `json:"annual_price"`
		MaxBranches  int             `json:"max_branches"`
		MaxStudents  int             `json:"max_students"`
	}

	PlanSelection struct {
		PlanID       string `json:"plan_id" validate:"required,oneof=starter growth enterprise"`
		BillingCycle string `json:"billing_cycle" validate:"required,oneof=monthly annually"`
	}
)

// Plans is the subscription catalog shown on the pricing step.
// Annual prices carry two free months.
var Plans = []Plan{
	{ID: "starter", Name: "Starter", MonthlyPrice: decimal.RequireFromString("49"), AnnualPrice: decimal.RequireFromString("490"), MaxBranches: 1, MaxStudents: 300},
	{ID: "growth", Name: "Growth", MonthlyPrice: decimal.RequireFromString("149"), AnnualPrice: decimal.RequireFromString("1490"), MaxBranches: 5, MaxStudents: 2000},
	{ID: "enterprise", Name: "Enterprise", MonthlyPrice: decimal.RequireFromString("399"), AnnualPrice: decimal.RequireFromString("3990"), MaxBranches: 0, MaxStudents: 0},
}

// FindPlan returns the plan with id.
func FindPlan(id string) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// Billing cycles.
const (
	CycleMonthly  = "monthly"
	CycleAnnually = "annually"
)

// Price is the amount billed per cycle.
func (p Plan) Price(cycle string) decimal.Decimal {
	if cycle == CycleAnnually {
		return p.AnnualPrice
	}
	return p.MonthlyPrice
}
