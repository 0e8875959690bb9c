// Package dummydb is an in-memory core.Remote for development and tests. It mimics the
// behavior of the store's procedures and its row policies closely enough to run the portal
// end to end without a database.
package dummydb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
)

const timeLayout = "2006-01-02T15:04:05.000000Z07:00" // fixed width, sorts lexically

type (
	row map[string]interface{}

	procedure func(p core.Principal, args row) (interface{}, error)

	scope struct {
		Role             string    `json:"role"`
		ActivatedAt      time.Time `json:"activated_at"`
		Permissions      row       `json:"permissions"`
		profileCompleted bool
	}

	invitation struct {
		branchID string
		email    string
		redeemed bool
	}

	DB struct {
		mu       sync.Mutex
		tables   map[string][]row
		scopes   map[string][]*scope    // by user
		branches []row                  // school_id is the owning administrator
		invites  map[string]*invitation // by code
		ledgers  []row
		procs    map[string]procedure
	}
)

// policies restricts the rows of a table to the principal: table -> owner column.
var policies = map[string]string{
	"profiles":              "id",
	"parent_profiles":       "user_id",
	"teacher_profiles":      "user_id",
	"school_admin_profiles": "user_id",
}

var _ core.Remote = (*DB)(nil)

func Open() (*DB, error) {
	db := &DB{
		tables:  make(map[string][]row),
		scopes:  make(map[string][]*scope),
		invites: make(map[string]*invitation),
	}
	db.registerProcedures()
	return db, nil
}

func now() string {
	return core.NowFunc().UTC().Format(timeLayout)
}

// raise builds the error the store answers with when a procedure raises.
func raise(status int, msg string) error {
	body, _ := json.Marshal(map[string]interface{}{"code": "P0001", "message": msg, "details": nil, "hint": nil})
	return &core.RemoteError{Status: status, Body: body}
}

var errNotAuthenticated = core.NewRemoteError(http.StatusUnauthorized, "JWT required")

// respond round-trips v through JSON like the network transports do.
func respond(v interface{}, out interface{}, rows bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding response")
	}
	if rows {
		return core.DecodeRows(payload, out)
	}
	return core.Decode(payload, out)
}

func (db *DB) principal(ctx context.Context) (core.Principal, bool) {
	p, ok := core.PrincipalFrom(ctx)
	if ok {
		db.ensureProfile(p)
	}
	return p, ok
}

// ensureProfile creates the profile row of a new account, like the sign-up trigger does.
func (db *DB) ensureProfile(p core.Principal) {
	for _, r := range db.tables["profiles"] {
		if r["id"] == p.UserID {
			return
		}
	}
	ts := now()
	db.tables["profiles"] = append(db.tables["profiles"], row{
		"id":                p.UserID,
		"email":             p.Email,
		"display_name":      "",
		"phone":             nil,
		"role":              nil,
		"profile_completed": false,
		"branch_id":         nil,
		"created_at":        ts,
		"updated_at":        ts,
	})
}

func (db *DB) profile(userID string) row {
	for _, r := range db.tables["profiles"] {
		if r["id"] == userID {
			return r
		}
	}
	return nil
}

func (db *DB) Call(ctx context.Context, fn string, args interface{}, out interface{}) error {
	params, err := core.ToArgs(args)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	proc, ok := db.procs[fn]
	if !ok {
		return core.NewRemoteError(http.StatusNotFound, "Could not find the function public."+fn)
	}
	p, _ := db.principal(ctx)
	res, err := proc(p, params)
	if err != nil {
		return err
	}
	return respond(res, out, false)
}

func (db *DB) visible(ctx context.Context, table string, r row) bool {
	col, ok := policies[table]
	if !ok {
		return true
	}
	p, ok := core.PrincipalFrom(ctx)
	return !ok || r[col] == p.UserID
}

func matches(r row, q core.Query) bool {
	for col, v := range q.Eq {
		rv, ok := r[col]
		if v == nil {
			if ok && rv != nil {
				return false
			}
			continue
		}
		if !ok || rv == nil || fmt.Sprint(rv) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func less(a, b interface{}) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	}
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	if aok && bok {
		return fa < fb
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func copyRow(r row) row {
	c := make(row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

func (db *DB) Select(ctx context.Context, table string, q core.Query, out interface{}) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.principal(ctx)

	res := make([]row, 0)
	for _, r := range db.tables[table] {
		if db.visible(ctx, table, r) && matches(r, q) {
			res = append(res, copyRow(r))
		}
	}
	for i := len(q.Ordering) - 1; i >= 0; i-- {
		ord := q.Ordering[i]
		sort.SliceStable(res, func(a, b int) bool {
			if ord.Ascending {
				return less(res[a][ord.Field], res[b][ord.Field])
			}
			return less(res[b][ord.Field], res[a][ord.Field])
		})
	}
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return respond(res, out, true)
}

func (db *DB) Insert(ctx context.Context, table string, rows interface{}, out interface{}) error {
	return db.Upsert(ctx, table, "", rows, out)
}

// Upsert inserts rows with an id & created_at by default. Owner columns of policed tables
// default to the principal. Rows conflicting on onConflict are merged.
func (db *DB) Upsert(ctx context.Context, table, onConflict string, rows interface{}, out interface{}) error {
	normalized, err := core.ToRows(rows)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	p, authed := db.principal(ctx)

	res := make([]row, 0, len(normalized))
	for _, in := range normalized {
		r := row(in)
		if col, ok := policies[table]; ok && authed {
			if owner, set := r[col]; !set || owner == nil || owner == "" {
				r[col] = p.UserID
			} else if owner != p.UserID {
				return core.NewRemoteError(http.StatusForbidden, fmt.Sprintf("new row violates row-level security policy for table %q", table))
			}
		}

		if onConflict != "" {
			if existing := db.find(table, onConflict, r[onConflict]); existing != nil {
				for k, v := range r {
					existing[k] = v
				}
				existing["updated_at"] = now()
				res = append(res, copyRow(existing))
				continue
			}
		}

		if id, ok := r["id"]; !ok || id == nil || id == "" {
			r["id"] = uuid.NewString()
		}
		if _, ok := r["created_at"]; !ok {
			r["created_at"] = now()
		}
		db.tables[table] = append(db.tables[table], r)
		res = append(res, copyRow(r))
	}
	return respond(res, out, true)
}

func (db *DB) find(table, col string, v interface{}) row {
	if v == nil {
		return nil
	}
	for _, r := range db.tables[table] {
		if fmt.Sprint(r[col]) == fmt.Sprint(v) {
			return r
		}
	}
	return nil
}

func (db *DB) Update(ctx context.Context, table string, q core.Query, patch interface{}, out interface{}) error {
	changes, err := core.ToArgs(patch)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.principal(ctx)

	res := make([]row, 0)
	for _, r := range db.tables[table] {
		if !db.visible(ctx, table, r) || !matches(r, q) {
			continue
		}
		for k, v := range changes {
			r[k] = v
		}
		if _, ok := r["updated_at"]; ok {
			r["updated_at"] = now()
		}
		if table == "profiles" {
			db.syncScope(r)
		}
		res = append(res, copyRow(r))
	}
	return respond(res, out, true)
}

// syncScope records the profile completion of the active role on its scope.
func (db *DB) syncScope(profile row) {
	userID, _ := profile["id"].(string)
	roleName, _ := profile["role"].(string)
	completed, _ := profile["profile_completed"].(bool)
	if s := db.scope(userID, roleName); s != nil && completed {
		s.profileCompleted = true
	}
}

func (db *DB) Delete(ctx context.Context, table string, q core.Query) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.principal(ctx)

	kept := db.tables[table][:0]
	for _, r := range db.tables[table] {
		if db.visible(ctx, table, r) && matches(r, q) {
			continue
		}
		kept = append(kept, r)
	}
	db.tables[table] = kept
	return nil
}
