package sqlxdb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/developer0000009-hue/schoolportal/core"
)

// statement is a query and its positional arguments.
type statement struct {
	query string
	args  []interface{}
}

func (st *statement) bind(v interface{}) string {
	st.args = append(st.args, sqlValue(v))
	return fmt.Sprintf("$%d", len(st.args))
}

// sqlValue converts JSON-decoded values: objects & arrays are passed as JSON text.
func sqlValue(v interface{}) interface{} {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		b, _ := json.Marshal(v)
		return string(b)
	}
	return v
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// aggregate wraps a row source into a single JSON array.
func aggregate(source string) string {
	return "SELECT coalesce(jsonb_agg(to_jsonb(t)), '[]'::jsonb) FROM (" + source + ") t"
}

func (st *statement) where(q core.Query) string {
	if len(q.Eq) == 0 {
		return ""
	}
	conds := make([]string, 0, len(q.Eq))
	for _, col := range sortedKeys(q.Eq) {
		v := q.Eq[col]
		if v == nil {
			conds = append(conds, pq.QuoteIdentifier(col)+" IS NULL")
			continue
		}
		conds = append(conds, pq.QuoteIdentifier(col)+" = "+st.bind(v))
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func orderBy(ords []core.DBOrdering) string {
	if len(ords) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ords))
	for _, o := range ords {
		parts = append(parts, core.DBOrdering{Field: pq.QuoteIdentifier(o.Field), Ascending: o.Ascending}.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// callStatement calls fn with named arguments (p_x => $n, in name order). Set-returning
// functions are aggregated into an array; others yield their single value as JSON.
func callStatement(fn string, args map[string]interface{}, setReturning bool) statement {
	var st statement
	params := make([]string, 0, len(args))
	for _, name := range sortedKeys(args) {
		params = append(params, pq.QuoteIdentifier(name)+" => "+st.bind(args[name]))
	}
	call := pq.QuoteIdentifier(fn) + "(" + strings.Join(params, ", ") + ")"
	if setReturning {
		st.query = "SELECT coalesce(jsonb_agg(to_jsonb(t)), '[]'::jsonb) FROM " + call + " t"
	} else {
		st.query = "SELECT to_jsonb(" + call + ")"
	}
	return st
}

func selectStatement(table string, q core.Query) statement {
	var st statement
	src := "SELECT * FROM " + pq.QuoteIdentifier(table) + st.where(q) + orderBy(q.Ordering)
	if q.Limit > 0 {
		src += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	st.query = aggregate(src)
	return st
}

// insertStatement inserts rows; keys missing from a row take their column default.
// A non-empty onConflict turns it into an upsert on that column.
func insertStatement(table string, rows []map[string]interface{}, onConflict string) statement {
	var st statement
	colSet := make(map[string]interface{})
	for _, r := range rows {
		for k := range r {
			colSet[k] = nil
		}
	}
	cols := sortedKeys(colSet)

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	tuples := make([]string, 0, len(rows))
	for _, r := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := r[c]; ok {
				vals[i] = st.bind(v)
			} else {
				vals[i] = "DEFAULT"
			}
		}
		tuples = append(tuples, "("+strings.Join(vals, ", ")+")")
	}

	ins := "INSERT INTO " + pq.QuoteIdentifier(table) + " (" + strings.Join(quoted, ", ") + ") VALUES " + strings.Join(tuples, ", ")
	if onConflict != "" {
		sets := make([]string, 0, len(cols))
		for _, c := range cols {
			if c == onConflict {
				continue
			}
			sets = append(sets, pq.QuoteIdentifier(c)+" = EXCLUDED."+pq.QuoteIdentifier(c))
		}
		if len(sets) == 0 {
			ins += " ON CONFLICT (" + pq.QuoteIdentifier(onConflict) + ") DO NOTHING"
		} else {
			ins += " ON CONFLICT (" + pq.QuoteIdentifier(onConflict) + ") DO UPDATE SET " + strings.Join(sets, ", ")
		}
	}
	st.query = "WITH w AS (" + ins + " RETURNING *) " + aggregate("SELECT * FROM w")
	return st
}

func updateStatement(table string, q core.Query, patch map[string]interface{}) statement {
	var st statement
	sets := make([]string, 0, len(patch))
	for _, col := range sortedKeys(patch) {
		sets = append(sets, pq.QuoteIdentifier(col)+" = "+st.bind(patch[col]))
	}
	upd := "UPDATE " + pq.QuoteIdentifier(table) + " SET " + strings.Join(sets, ", ") + st.where(q)
	st.query = "WITH w AS (" + upd + " RETURNING *) " + aggregate("SELECT * FROM w")
	return st
}

func deleteStatement(table string, q core.Query) statement {
	var st statement
	st.query = "DELETE FROM " + pq.QuoteIdentifier(table) + st.where(q)
	return st
}
