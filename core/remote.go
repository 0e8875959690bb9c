package core

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// Remote is the data-access client of the backing store: named procedures plus plain table
// reads and writes. Results are decoded into out (JSON semantics); out may be nil.
// Implementations read the caller identity with PrincipalFrom(ctx).
type Remote interface {
	Call(ctx context.Context, fn string, args interface{}, out interface{}) error
	Select(ctx context.Context, table string, q Query, out interface{}) error
	Insert(ctx context.Context, table string, rows interface{}, out interface{}) error
	Upsert(ctx context.Context, table, onConflict string, rows interface{}, out interface{}) error
	Update(ctx context.Context, table string, q Query, patch interface{}, out interface{}) error
	Delete(ctx context.Context, table string, q Query) error
}

// Query filters rows by column equality, in Eq's key order (sorted by the transports).
type Query struct {
	Eq       map[string]interface{}
	Ordering []DBOrdering
	Limit    int
}

// Eq returns a Query matching rows where each key/value pair of kv is equal.
// kv alternates column names and values.
func Eq(kv ...interface{}) Query {
	q := Query{Eq: make(map[string]interface{}, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		if col, ok := kv[i].(string); ok {
			q.Eq[col] = kv[i+1]
		}
	}
	return q
}

func (q Query) OrderBy(ord ...DBOrdering) Query {
	q.Ordering = append(q.Ordering, ord...)
	return q
}

func (q Query) First() Query {
	q.Limit = 1
	return q
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses "field,-other" into orderings ("-" means descending).
func ParseOrdering(s string) []DBOrdering {
	var ords []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ords = append(ords, DBOrdering{Field: field, Ascending: !descending})
	}
	return ords
}

// ToRows normalizes a struct, a map or a slice of either into JSON objects.
func ToRows(v interface{}) ([]map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling rows")
	}
	b = []byte(strings.TrimSpace(string(b)))
	if len(b) > 0 && b[0] == '[' {
		var rows []map[string]interface{}
		if err = json.Unmarshal(b, &rows); err != nil {
			return nil, errors.Wrap(err, "unmarshalling rows")
		}
		return rows, nil
	}
	var row map[string]interface{}
	if err = json.Unmarshal(b, &row); err != nil {
		return nil, errors.Wrap(err, "unmarshalling row")
	}
	return []map[string]interface{}{row}, nil
}

// ToArgs normalizes procedure arguments into a JSON object; nil yields an empty one.
func ToArgs(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return map[string]interface{}{}, nil
	}
	rows, err := ToRows(v)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 || rows[0] == nil {
		return map[string]interface{}{}, nil
	}
	return rows[0], nil
}

// Decode unmarshals a JSON payload into out; a nil out discards it.
func Decode(payload []byte, out interface{}) error {
	if out == nil || len(payload) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(payload, out), "decoding remote payload")
}

// DecodeRows decodes a JSON array of rows into out. A slice (or raw JSON) gets them all, any
// other value gets the first row, and ErrNotFound when there is none.
func DecodeRows(payload []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if wantsAll(out) {
		return Decode(payload, out)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(payload, &rows); err != nil {
		return errors.Wrap(err, "decoding remote rows")
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return Decode(rows[0], out)
}

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

func wantsAll(out interface{}) bool {
	t := reflect.TypeOf(out)
	if t.Kind() != reflect.Ptr {
		return false
	}
	elem := t.Elem()
	return elem == rawMessageType || elem.Kind() == reflect.Slice || elem.Kind() == reflect.Interface
}
