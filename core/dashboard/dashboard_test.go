package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/role"
)

type repoStub struct {
	mu      sync.Mutex
	failing map[string]error
	called  []string
	ledgers []Ledger
}

func (r *repoStub) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.called = append(r.called, name)
	return r.failing[name]
}

func (r *repoStub) Call(_ context.Context, fn string) (json.RawMessage, error) {
	if err := r.record(fn); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"fn":"` + fn + `"}`), nil
}

func (r *repoStub) Ledgers(context.Context) ([]Ledger, error) {
	return r.ledgers, r.record(FnLedgers)
}

func (r *repoStub) FeeStructures(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[]`), r.record("fee_structures")
}

func (r *repoStub) SchoolAdminProfile(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), r.record("school_admin_profiles")
}

type logStub struct {
	mu     sync.Mutex
	warned int
}

func (l *logStub) Debug(string, ...interface{}) {}
func (l *logStub) Info(string, ...interface{})  {}
func (l *logStub) Warn(string, ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warned++
}
func (l *logStub) Error(string, ...interface{}) {}
func (l *logStub) Fatal(string, ...interface{}) {}

var principal = core.Principal{UserID: "u1"}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		ledgers []Ledger
		want    [3]string // collected, outstanding, rate
	}{
		{name: "no ledgers", want: [3]string{"0", "0", "0"}},
		{
			name: "partial collection",
			ledgers: []Ledger{
				{AmountDue: d("1000"), AmountPaid: d("1000")},
				{AmountDue: d("1000"), AmountPaid: d("250")},
				{AmountDue: d("500"), AmountPaid: d("0")},
			},
			want: [3]string{"1250", "1250", "50"},
		},
		{
			name:    "overpayment does not count as outstanding",
			ledgers: []Ledger{{AmountDue: d("100"), AmountPaid: d("150")}, {AmountDue: d("300"), AmountPaid: d("0")}},
			want:    [3]string{"150", "300", "33.3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.ledgers)
			assert.True(t, d(tt.want[0]).Equal(got.Collected), "collected %s", got.Collected)
			assert.True(t, d(tt.want[1]).Equal(got.Outstanding), "outstanding %s", got.Outstanding)
			assert.True(t, d(tt.want[2]).Equal(got.CollectionRate), "rate %s", got.CollectionRate)
		})
	}
}

func TestService_Build_Layouts(t *testing.T) {
	tests := []struct {
		role     string
		wantTabs []string
	}{
		{role: role.Parent, wantTabs: []string{"children", "metrics"}},
		{role: role.Student, wantTabs: []string{"overview", "metrics"}},
		{role: role.Teacher, wantTabs: []string{"classes", "metrics"}},
		{role: role.Transport, wantTabs: []string{"routes", "metrics"}},
		{role: role.Finance, wantTabs: []string{"summary", "finance", "fee_structures", "ledgers"}},
		{role: role.SchoolAdmin, wantTabs: []string{"branches", "school", "metrics"}},
		{role: role.BranchAdmin, wantTabs: []string{"branches", "school", "metrics"}},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			db, err := NewService(&repoStub{}, &logStub{}).Build(context.Background(), principal, tt.role)
			require.NoError(t, err)
			assert.Equal(t, tt.role, db.Role)
			keys := make([]string, 0, len(db.Tabs))
			for _, tab := range db.Tabs {
				keys = append(keys, tab.Key)
				assert.True(t, tab.Available, tab.Key)
			}
			assert.Equal(t, tt.wantTabs, keys)
		})
	}
}

func TestService_Build_PartialFailure(t *testing.T) {
	logger := &logStub{}
	repo := &repoStub{failing: map[string]error{FnMetrics: core.NewRemoteError(500, "metrics down")}}
	db, err := NewService(repo, logger).Build(context.Background(), principal, role.Parent)
	require.NoError(t, err)

	require.Len(t, db.Tabs, 2)
	assert.True(t, db.Tabs[0].Available)
	assert.Equal(t, json.RawMessage(`{"fn":"get_parent_dashboard"}`), db.Tabs[0].Data)
	assert.False(t, db.Tabs[1].Available)
	assert.Equal(t, unavailableText, db.Tabs[1].Message)
	assert.Equal(t, 1, logger.warned)
}

func TestService_Build_CriticalFailure(t *testing.T) {
	repo := &repoStub{failing: map[string]error{FnLedgers: core.NewRemoteError(500, "ledgers down")}}
	_, err := NewService(repo, &logStub{}).Build(context.Background(), principal, role.Finance)
	require.Error(t, err)
	assert.Equal(t, "ledgers down", core.ErrorMessage(err))
}

func TestService_Build_FinanceSummary(t *testing.T) {
	repo := &repoStub{ledgers: []Ledger{{AmountDue: d("200"), AmountPaid: d("50")}}}
	db, err := NewService(repo, &logStub{}).Build(context.Background(), principal, role.Finance)
	require.NoError(t, err)
	sum, ok := db.Tabs[0].Data.(FinanceSummary)
	require.True(t, ok)
	assert.True(t, d("25").Equal(sum.CollectionRate))
}

func TestService_Build_UnknownRole(t *testing.T) {
	_, err := NewService(&repoStub{}, &logStub{}).Build(context.Background(), principal, "Janitor")
	assert.Equal(t, ErrNoDashboard, errors.Cause(err))
}
