// Package sqlxdb implements core.Remote over a direct connection to the store's Postgres
// database. Requests of a principal run in a transaction impersonating it, so that the same
// row-level policies as the REST gateway apply.
package sqlxdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
)

const authenticatedRole = "authenticated"

type DB struct {
	db *sqlx.DB

	mu     sync.RWMutex
	retset map[string]bool // set-returning functions, by name
}

var _ core.Remote = (*DB)(nil)

func New(db *sqlx.DB) *DB {
	return &DB{db: db, retset: make(map[string]bool)}
}

func (d *DB) Close() error {
	return d.db.Close()
}

// inTx runs fn in a transaction. With a principal in ctx, the transaction runs as the
// authenticated role with the principal's claims.
func (d *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if p, ok := core.PrincipalFrom(ctx); ok {
		claims, _ := json.Marshal(map[string]string{"sub": p.UserID, "email": p.Email, "role": authenticatedRole})
		if _, err = tx.ExecContext(ctx, "SELECT set_config('request.jwt.claims', $1, true)", string(claims)); err != nil {
			return remoteError(err)
		}
		if _, err = tx.ExecContext(ctx, "SET LOCAL ROLE "+pq.QuoteIdentifier(authenticatedRole)); err != nil {
			return remoteError(err)
		}
	}

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (d *DB) queryJSON(ctx context.Context, st statement) ([]byte, error) {
	var payload types.JSONText
	err := d.inTx(ctx, func(tx *sqlx.Tx) error {
		return remoteError(tx.GetContext(ctx, &payload, st.query, st.args...))
	})
	return []byte(payload), err
}

func (d *DB) setReturning(ctx context.Context, fn string) (bool, error) {
	d.mu.RLock()
	set, ok := d.retset[fn]
	d.mu.RUnlock()
	if ok {
		return set, nil
	}

	err := d.db.GetContext(ctx, &set, "SELECT proretset FROM pg_proc WHERE proname = $1 LIMIT 1", fn)
	if err == sql.ErrNoRows {
		return false, core.NewRemoteError(http.StatusNotFound, "Could not find the function "+fn)
	} else if err != nil {
		return false, errors.Wrapf(err, "looking up %s", fn)
	}

	d.mu.Lock()
	d.retset[fn] = set
	d.mu.Unlock()
	return set, nil
}

func (d *DB) Call(ctx context.Context, fn string, args interface{}, out interface{}) error {
	params, err := core.ToArgs(args)
	if err != nil {
		return err
	}
	set, err := d.setReturning(ctx, fn)
	if err != nil {
		return err
	}
	payload, err := d.queryJSON(ctx, callStatement(fn, params, set))
	if err != nil {
		return err
	}
	return core.Decode(payload, out)
}

func (d *DB) Select(ctx context.Context, table string, q core.Query, out interface{}) error {
	payload, err := d.queryJSON(ctx, selectStatement(table, q))
	if err != nil {
		return err
	}
	return core.DecodeRows(payload, out)
}

func (d *DB) Insert(ctx context.Context, table string, rows interface{}, out interface{}) error {
	return d.Upsert(ctx, table, "", rows, out)
}

func (d *DB) Upsert(ctx context.Context, table, onConflict string, rows interface{}, out interface{}) error {
	normalized, err := core.ToRows(rows)
	if err != nil {
		return err
	}
	if len(normalized) == 0 {
		return core.DecodeRows([]byte("[]"), out)
	}
	payload, err := d.queryJSON(ctx, insertStatement(table, normalized, onConflict))
	if err != nil {
		return err
	}
	return core.DecodeRows(payload, out)
}

func (d *DB) Update(ctx context.Context, table string, q core.Query, patch interface{}, out interface{}) error {
	row, err := core.ToArgs(patch)
	if err != nil {
		return err
	}
	if len(row) == 0 {
		return core.NewRemoteError(http.StatusBadRequest, "Empty update")
	}
	payload, err := d.queryJSON(ctx, updateStatement(table, q, row))
	if err != nil {
		return err
	}
	return core.DecodeRows(payload, out)
}

func (d *DB) Delete(ctx context.Context, table string, q core.Query) error {
	st := deleteStatement(table, q)
	return d.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, st.query, st.args...)
		return remoteError(err)
	})
}

// remoteError renders database errors the way the REST gateway does.
func remoteError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	body, _ := json.Marshal(map[string]string{
		"code":    string(pqErr.Code),
		"message": pqErr.Message,
		"details": pqErr.Detail,
		"hint":    pqErr.Hint,
	})
	return &core.RemoteError{Status: httpStatus(pqErr.Code), Body: body}
}

func httpStatus(code pq.ErrorCode) int {
	switch {
	case code == "42501":
		return http.StatusForbidden
	case code == "42883", code == "42P01":
		return http.StatusNotFound
	case code == "23505", code == "23503":
		return http.StatusConflict
	case code == "P0001", code.Class() == "22", code.Class() == "23":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
