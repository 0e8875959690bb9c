package dashboard

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/role"
)

// Remote procedures backing the dashboards.
const (
	FnParent    = "get_parent_dashboard"
	FnStudent   = "get_student_dashboard"
	FnTeacher   = "get_teacher_dashboard"
	FnTransport = "get_transport_dashboard"
	FnFinance   = "get_finance_dashboard_data"
	FnLedgers   = "get_student_fee_ledgers"
	FnBranches  = "get_school_branches"
	FnMetrics   = "get_school_metrics"
)

const unavailableText = "This section is temporarily unavailable."

var ErrNoDashboard = errors.New("no dashboard for this role")

type (
	Tab struct {
		Key       string      `json:"key"`
		Title     string      `json:"title"`
		Available bool        `json:"available"`
		Data      interface{} `json:"data,omitempty"`
		Message   string      `json:"message,omitempty"`
	}

	Dashboard struct {
		Role string `json:"role"`
		Tabs []Tab  `json:"tabs"`
	}

	// Ledger is the fee account of a student.
	Ledger struct {
		StudentID   string          `json:"student_id"`
		StudentName string          `json:"student_name"`
		AmountDue   decimal.Decimal `json:"amount_due"`
		AmountPaid  decimal.Decimal `json:"amount_paid"`
	}

	// FinanceSummary is derived from the ledgers.
	FinanceSummary struct {
		Collected      decimal.Decimal `json:"collected"`
		Outstanding    decimal.Decimal `json:"outstanding"`
		CollectionRate decimal.Decimal `json:"collection_rate"` // percent, 1 decimal
	}

	Repository interface {
		Call(ctx context.Context, fn string) (json.RawMessage, error)
		Ledgers(ctx context.Context) ([]Ledger, error)
		FeeStructures(ctx context.Context) (json.RawMessage, error)
		SchoolAdminProfile(ctx context.Context, userID string) (json.RawMessage, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}

	member struct {
		key      string
		title    string
		critical bool
		fetch    func(ctx context.Context) (interface{}, error)
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Summarize computes collected & outstanding amounts and the collection rate of ledgers.
// Overpayments do not offset other students' balances.
func Summarize(ledgers []Ledger) FinanceSummary {
	sum := FinanceSummary{Collected: decimal.Zero, Outstanding: decimal.Zero, CollectionRate: decimal.Zero}
	for _, l := range ledgers {
		sum.Collected = sum.Collected.Add(l.AmountPaid)
		if due := l.AmountDue.Sub(l.AmountPaid); due.IsPositive() {
			sum.Outstanding = sum.Outstanding.Add(due)
		}
	}
	if billed := sum.Collected.Add(sum.Outstanding); billed.IsPositive() {
		sum.CollectionRate = sum.Collected.Div(billed).Mul(decimal.NewFromInt(100)).Round(1)
	}
	return sum
}

func (svc *Service) call(fn string) func(ctx context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		return svc.repo.Call(ctx, fn)
	}
}

func (svc *Service) metrics() member {
	return member{key: "metrics", title: "School metrics", fetch: svc.call(FnMetrics)}
}

func (svc *Service) layout(p core.Principal, kind role.Kind, ledgers *[]Ledger) []member {
	switch kind {
	case role.KindParent:
		return []member{{key: "children", title: "My children", critical: true, fetch: svc.call(FnParent)}, svc.metrics()}
	case role.KindStudent:
		return []member{{key: "overview", title: "My school day", critical: true, fetch: svc.call(FnStudent)}, svc.metrics()}
	case role.KindTeacher:
		return []member{{key: "classes", title: "My classes", critical: true, fetch: svc.call(FnTeacher)}, svc.metrics()}
	case role.KindTransport:
		return []member{{key: "routes", title: "Routes & vehicles", critical: true, fetch: svc.call(FnTransport)}, svc.metrics()}
	case role.KindFinance:
		return []member{
			{key: "finance", title: "Finance overview", critical: true, fetch: svc.call(FnFinance)},
			{key: "fee_structures", title: "Fee structures", critical: true, fetch: func(ctx context.Context) (interface{}, error) {
				return svc.repo.FeeStructures(ctx)
			}},
			{key: "ledgers", title: "Student ledgers", critical: true, fetch: func(ctx context.Context) (interface{}, error) {
				l, err := svc.repo.Ledgers(ctx)
				*ledgers = l
				return l, err
			}},
		}
	case role.KindSchoolAdmin, role.KindBranchAdmin:
		return []member{
			{key: "branches", title: "Branches", critical: true, fetch: svc.call(FnBranches)},
			{key: "school", title: "School profile", critical: true, fetch: func(ctx context.Context) (interface{}, error) {
				return svc.repo.SchoolAdminProfile(ctx, p.UserID)
			}},
			svc.metrics(),
		}
	}
	return nil
}

// Build fetches the tabs of the dashboard of roleName concurrently. A failing critical tab
// fails the dashboard; other tabs are marked unavailable.
func (svc *Service) Build(ctx context.Context, p core.Principal, roleName string) (Dashboard, error) {
	kind, err := role.Parse(roleName)
	if err != nil {
		return Dashboard{}, ErrNoDashboard
	}
	var ledgers []Ledger
	members := svc.layout(p, kind, &ledgers)
	if len(members) == 0 {
		return Dashboard{}, ErrNoDashboard
	}

	tabs := make([]Tab, len(members))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range members {
		i, m := i, m
		g.Go(func() error {
			data, err := m.fetch(gctx)
			if err != nil {
				if m.critical {
					return errors.Wrapf(err, "fetching %s", m.key)
				}
				svc.logger.Warn("dashboard tab unavailable: "+m.key, err, p)
				tabs[i] = Tab{Key: m.key, Title: m.title, Message: unavailableText}
				return nil
			}
			tabs[i] = Tab{Key: m.key, Title: m.title, Available: true, Data: data}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return Dashboard{}, err
	}

	if kind == role.KindFinance {
		tabs = append([]Tab{{Key: "summary", Title: "Collections", Available: true, Data: Summarize(ledgers)}}, tabs...)
	}
	return Dashboard{Role: kind.String(), Tabs: tabs}, nil
}
