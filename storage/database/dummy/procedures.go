package dummydb

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/dashboard"
	"github.com/developer0000009-hue/schoolportal/core/expense"
	"github.com/developer0000009-hue/schoolportal/core/fee"
	"github.com/developer0000009-hue/schoolportal/core/onboarding"
	"github.com/developer0000009-hue/schoolportal/core/role"
	"github.com/developer0000009-hue/schoolportal/core/sharecode"
)

const shareCodeTTL = 7 * 24 * time.Hour

func (db *DB) registerProcedures() {
	db.procs = map[string]procedure{
		"get_user_authorized_scopes":           authed(db.authorizedScopes),
		"get_available_roles_for_registration": authed(db.availableRoles),
		"register_role_scope":                  authed(db.registerRoleScope),
		"switch_active_role":                   authed(db.switchActiveRole),
		"verify_and_link_branch_admin":         authed(db.linkBranchAdmin),
		"update_school_plan":                   authed(db.updateSchoolPlan),
		"complete_branch_step":                 authed(db.completeBranchStep),
		"get_school_branches":                  authed(db.schoolBranches),
		"create_school_branch":                 authed(db.createBranch),
		"update_school_branch":                 authed(db.updateBranch),
		"delete_school_branch":                 authed(db.deleteBranch),
		"publish_fee_structure":                db.publishFeeStructure,
		"update_expense_status":                db.updateExpenseStatus,
		"generate_share_code":                  db.generateShareCode,
		dashboard.FnParent:                     authed(db.parentDashboard),
		dashboard.FnStudent:                    authed(db.studentDashboard),
		dashboard.FnTeacher:                    authed(db.teacherDashboard),
		dashboard.FnTransport:                  authed(db.transportDashboard),
		dashboard.FnFinance:                    db.financeDashboard,
		dashboard.FnLedgers:                    db.feeLedgers,
		dashboard.FnMetrics:                    db.schoolMetrics,
	}
}

// authed rejects anonymous calls.
func authed(proc procedure) procedure {
	return func(p core.Principal, args row) (interface{}, error) {
		if p.UserID == "" {
			return nil, errNotAuthenticated
		}
		return proc(p, args)
	}
}

func str(args row, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func nullable(args row, key string) interface{} {
	if s := str(args, key); s != "" {
		return s
	}
	return nil
}

// shortCode returns n uppercase hex characters.
func shortCode(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:n]
}

// Roles

func (db *DB) scope(userID, roleName string) *scope {
	for _, s := range db.scopes[userID] {
		if s.Role == roleName {
			return s
		}
	}
	return nil
}

func (db *DB) grant(userID, roleName string, completed bool) *scope {
	if s := db.scope(userID, roleName); s != nil {
		return s
	}
	s := &scope{Role: roleName, ActivatedAt: core.NowFunc().UTC(), Permissions: row{}, profileCompleted: completed}
	db.scopes[userID] = append(db.scopes[userID], s)
	return s
}

func (db *DB) authorizedScopes(p core.Principal, _ row) (interface{}, error) {
	scopes := make([]*scope, 0, len(db.scopes[p.UserID]))
	for _, s := range db.scopes[p.UserID] {
		if s.profileCompleted {
			scopes = append(scopes, s)
		}
	}
	return scopes, nil
}

// availableRoles are the roles a user may register for. Branch Admin is only reachable
// through an invitation.
func (db *DB) availableRoles(p core.Principal, _ row) (interface{}, error) {
	roles := make([]string, 0, len(role.Kinds()))
	for _, k := range role.Kinds() {
		if k == role.KindBranchAdmin {
			continue
		}
		if s := db.scope(p.UserID, k.String()); s != nil && s.profileCompleted {
			continue
		}
		roles = append(roles, k.String())
	}
	return roles, nil
}

func (db *DB) registerRoleScope(p core.Principal, args row) (interface{}, error) {
	name := str(args, "p_role")
	kind, err := role.Parse(name)
	if err != nil || kind == role.KindBranchAdmin {
		return nil, raise(http.StatusBadRequest, "Role "+name+" is not available for registration")
	}
	db.grant(p.UserID, name, false)
	return map[string]interface{}{"success": true}, nil
}

func (db *DB) switchActiveRole(p core.Principal, args row) (interface{}, error) {
	target := str(args, "p_target_role")
	s := db.scope(p.UserID, target)
	if s == nil {
		return role.SwitchResult{Success: false, Message: "You are not authorized for the " + target + " role."}, nil
	}
	prof := db.profile(p.UserID)
	prof["role"] = target
	prof["profile_completed"] = s.profileCompleted
	prof["updated_at"] = now()
	return role.SwitchResult{Success: true, Role: target, ProfileCompleted: s.profileCompleted}, nil
}

func (db *DB) linkBranchAdmin(p core.Principal, args row) (interface{}, error) {
	inv, ok := db.invites[strings.ToUpper(str(args, "p_code"))]
	if !ok || inv.redeemed {
		return role.LinkResult{Success: false, Message: "Invalid or expired invitation code."}, nil
	}
	if inv.email != "" && p.Email != "" && !strings.EqualFold(inv.email, p.Email) {
		return role.LinkResult{Success: false, Message: "This invitation was sent to another email address."}, nil
	}
	inv.redeemed = true
	db.grant(p.UserID, role.BranchAdmin, true)

	prof := db.profile(p.UserID)
	prof["role"] = role.BranchAdmin
	prof["profile_completed"] = true
	prof["branch_id"] = inv.branchID
	prof["updated_at"] = now()
	return role.LinkResult{Success: true, BranchID: inv.branchID}, nil
}

// School setup

func (db *DB) adminProfile(userID string) row {
	if r := db.find("school_admin_profiles", "user_id", userID); r != nil {
		return r
	}
	r := row{"user_id": userID, "onboarding_step": onboarding.AdminStepProfile, "created_at": now()}
	db.tables["school_admin_profiles"] = append(db.tables["school_admin_profiles"], r)
	return r
}

func (db *DB) updateSchoolPlan(p core.Principal, args row) (interface{}, error) {
	plan, ok := onboarding.FindPlan(str(args, "p_plan_id"))
	if !ok {
		return nil, raise(http.StatusBadRequest, "Unknown plan")
	}
	cycle := str(args, "p_billing_cycle")
	if cycle != onboarding.CycleMonthly && cycle != onboarding.CycleAnnually {
		return nil, raise(http.StatusBadRequest, "Unknown billing cycle")
	}
	r := db.adminProfile(p.UserID)
	r["plan_id"] = plan.ID
	r["billing_cycle"] = cycle
	return map[string]interface{}{"success": true}, nil
}

func (db *DB) completeBranchStep(p core.Principal, _ row) (interface{}, error) {
	if len(db.schoolBranchRows(p.UserID)) == 0 {
		return nil, raise(http.StatusBadRequest, "Add at least one branch before continuing.")
	}
	db.adminProfile(p.UserID)["onboarding_step"] = onboarding.AdminStepCompleted
	return map[string]interface{}{"success": true}, nil
}

// schoolOf is the administrator owning the school of userID.
func (db *DB) schoolOf(userID string) string {
	if prof := db.profile(userID); prof != nil && prof["role"] == role.BranchAdmin {
		for _, b := range db.branches {
			if b["id"] == prof["branch_id"] {
				return b["school_id"].(string)
			}
		}
	}
	return userID
}

func (db *DB) schoolBranchRows(userID string) []row {
	school := db.schoolOf(userID)
	res := make([]row, 0)
	for _, b := range db.branches {
		if b["school_id"] == school {
			res = append(res, b)
		}
	}
	return res
}

func (db *DB) schoolBranches(p core.Principal, _ row) (interface{}, error) {
	rows := db.schoolBranchRows(p.UserID)
	res := make([]row, 0, len(rows))
	for _, b := range rows {
		res = append(res, publicBranch(b))
	}
	return res, nil
}

func publicBranch(b row) row {
	c := copyRow(b)
	delete(c, "school_id")
	return c
}

func (db *DB) branchFields(b row, args row) error {
	name := str(args, "p_name")
	if name == "" {
		return raise(http.StatusBadRequest, "Branch name is required")
	}
	b["name"] = name
	b["address"] = str(args, "p_address")
	b["city"] = str(args, "p_city")
	b["state"] = str(args, "p_state")
	b["country"] = str(args, "p_country")
	b["admin_name"] = nullable(args, "p_admin_name")
	b["admin_email"] = nullable(args, "p_admin_email")
	b["admin_phone"] = nullable(args, "p_admin_phone")
	return nil
}

// setMain makes b the only main branch of its school.
func (db *DB) setMain(b row) {
	for _, other := range db.branches {
		if other["school_id"] == b["school_id"] {
			other["is_main_branch"] = false
		}
	}
	b["is_main_branch"] = true
}

func (db *DB) createBranch(p core.Principal, args row) (interface{}, error) {
	existing := db.schoolBranchRows(p.UserID)
	if adm := db.find("school_admin_profiles", "user_id", p.UserID); adm != nil {
		if plan, ok := onboarding.FindPlan(str(adm, "plan_id")); ok && plan.MaxBranches > 0 && len(existing) >= plan.MaxBranches {
			return nil, raise(http.StatusBadRequest, "Branch limit reached for your plan")
		}
	}

	b := row{"id": uuid.NewString(), "school_id": db.schoolOf(p.UserID), "is_main_branch": false, "created_at": now()}
	if err := db.branchFields(b, args); err != nil {
		return nil, err
	}
	db.branches = append(db.branches, b)
	if main, _ := args["p_is_main_branch"].(bool); main || len(existing) == 0 {
		db.setMain(b)
	}

	res := publicBranch(b)
	if email, ok := b["admin_email"].(string); ok {
		code := "BR-" + shortCode(8)
		db.invites[code] = &invitation{branchID: b["id"].(string), email: email}
		res["admin_invite_code"] = code
	}
	return res, nil
}

func (db *DB) branch(p core.Principal, id string) (row, error) {
	school := db.schoolOf(p.UserID)
	for _, b := range db.branches {
		if b["id"] == id && b["school_id"] == school {
			return b, nil
		}
	}
	return nil, raise(http.StatusNotFound, "Branch not found")
}

func (db *DB) updateBranch(p core.Principal, args row) (interface{}, error) {
	b, err := db.branch(p, str(args, "p_branch_id"))
	if err != nil {
		return nil, err
	}
	if err = db.branchFields(b, args); err != nil {
		return nil, err
	}
	if main, _ := args["p_is_main_branch"].(bool); main {
		db.setMain(b)
	}
	return publicBranch(b), nil
}

func (db *DB) deleteBranch(p core.Principal, args row) (interface{}, error) {
	b, err := db.branch(p, str(args, "p_branch_id"))
	if err != nil {
		return nil, err
	}
	if main, _ := b["is_main_branch"].(bool); main {
		return nil, raise(http.StatusBadRequest, "The main branch cannot be deleted")
	}
	kept := db.branches[:0]
	for _, other := range db.branches {
		if other["id"] != b["id"] {
			kept = append(kept, other)
		}
	}
	db.branches = kept
	return map[string]interface{}{"success": true}, nil
}

// Finance

func (db *DB) publishFeeStructure(_ core.Principal, args row) (interface{}, error) {
	r := db.find("fee_structures", "id", str(args, "p_structure_id"))
	if r == nil {
		return nil, raise(http.StatusNotFound, "Fee structure not found")
	}
	r["status"] = string(fee.StatusActive)
	return map[string]interface{}{"success": true}, nil
}

func (db *DB) updateExpenseStatus(_ core.Principal, args row) (interface{}, error) {
	st, err := expense.ParseStatus(str(args, "p_status"))
	if err != nil {
		return nil, raise(http.StatusBadRequest, "Invalid expense status")
	}
	r := db.find("school_expenses", "id", str(args, "p_expense_id"))
	if r == nil {
		return nil, raise(http.StatusNotFound, "Expense not found")
	}
	r["status"] = string(st)
	return map[string]interface{}{"success": true}, nil
}

// AddLedger records the fee account of a student.
func (db *DB) AddLedger(l dashboard.Ledger) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.ledgers = append(db.ledgers, row{
		"student_id":   l.StudentID,
		"student_name": l.StudentName,
		"amount_due":   l.AmountDue.String(),
		"amount_paid":  l.AmountPaid.String(),
	})
}

func (db *DB) feeLedgers(core.Principal, row) (interface{}, error) {
	res := make([]row, 0, len(db.ledgers))
	for _, l := range db.ledgers {
		res = append(res, copyRow(l))
	}
	return res, nil
}

func (db *DB) financeDashboard(core.Principal, row) (interface{}, error) {
	active, pending := 0, 0
	spent := decimal.Zero
	for _, r := range db.tables["fee_structures"] {
		if r["status"] == string(fee.StatusActive) {
			active++
		}
	}
	for _, r := range db.tables["school_expenses"] {
		switch r["status"] {
		case string(expense.StatusPending):
			pending++
		case string(expense.StatusPaid):
			if amt, err := decimal.NewFromString(str(r, "amount")); err == nil {
				spent = spent.Add(amt)
			}
		}
	}
	return map[string]interface{}{
		"fee_structures":        len(db.tables["fee_structures"]),
		"active_fee_structures": active,
		"pending_expenses":      pending,
		"expenses_paid":         spent.String(),
	}, nil
}

// Admissions

func (db *DB) generateShareCode(_ core.Principal, args row) (interface{}, error) {
	admissionID := str(args, "p_admission_id")
	if admissionID == "" {
		return nil, raise(http.StatusBadRequest, "Admission is required")
	}
	typ := sharecode.Type(str(args, "p_type"))
	if typ != sharecode.TypeEnquiry && typ != sharecode.TypeAdmission {
		return nil, raise(http.StatusBadRequest, "Invalid share code type")
	}
	r := row{
		"id":           uuid.NewString(),
		"code":         shortCode(6),
		"admission_id": admissionID,
		"type":         string(typ),
		"status":       string(sharecode.StatusActive),
		"expires_at":   core.NowFunc().Add(shareCodeTTL).UTC().Format(timeLayout),
		"created_at":   now(),
	}
	db.tables["share_codes"] = append(db.tables["share_codes"], r)
	return copyRow(r), nil
}

// Dashboards

func (db *DB) parentDashboard(p core.Principal, _ row) (interface{}, error) {
	return map[string]interface{}{"children": []interface{}{}, "announcements": []interface{}{}, "fees_due": "0"}, nil
}

func (db *DB) studentDashboard(p core.Principal, _ row) (interface{}, error) {
	return map[string]interface{}{"timetable": []interface{}{}, "attendance_rate": nil, "assignments": []interface{}{}}, nil
}

func (db *DB) teacherDashboard(p core.Principal, _ row) (interface{}, error) {
	return map[string]interface{}{"classes": []interface{}{}, "pending_grading": 0}, nil
}

func (db *DB) transportDashboard(p core.Principal, _ row) (interface{}, error) {
	return map[string]interface{}{"routes": []interface{}{}, "vehicles": []interface{}{}}, nil
}

func (db *DB) schoolMetrics(core.Principal, row) (interface{}, error) {
	counts := map[string]int{}
	for _, prof := range db.tables["profiles"] {
		if name, ok := prof["role"].(string); ok {
			counts[name]++
		}
	}
	return map[string]interface{}{
		"branches": len(db.branches),
		"students": counts[role.Student],
		"teachers": counts[role.Teacher],
		"parents":  counts[role.Parent],
	}, nil
}
