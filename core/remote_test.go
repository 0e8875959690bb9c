package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEq(t *testing.T) {
	q := Eq("user_id", "u1", "status", "Active", 3, "ignored").First()
	assert.Equal(t, map[string]interface{}{"user_id": "u1", "status": "Active"}, q.Eq)
	assert.Equal(t, 1, q.Limit)
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []DBOrdering
	}{
		{name: "empty", in: ""},
		{name: "single asc", in: "name", want: []DBOrdering{{Field: "name", Ascending: true}}},
		{
			name: "mixed", in: " -created_at, name ,",
			want: []DBOrdering{{Field: "created_at"}, {Field: "name", Ascending: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrdering(tt.in))
		})
	}
	assert.Equal(t, "created_at DESC", DBOrdering{Field: "created_at"}.String())
}

func TestToRows(t *testing.T) {
	type row struct {
		Name string `json:"name"`
	}

	rows, err := ToRows(row{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{{"name": "a"}}, rows)

	rows, err = ToRows([]row{{Name: "a"}, {Name: "b"}})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	args, err := ToArgs(nil)
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = ToArgs(map[string]string{"p_role": "Teacher"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"p_role": "Teacher"}, args)
}

func TestDecodeRows(t *testing.T) {
	payload := []byte(`[{"id":"a"},{"id":"b"}]`)
	type row struct {
		ID string `json:"id"`
	}

	var one row
	require.NoError(t, DecodeRows(payload, &one))
	assert.Equal(t, "a", one.ID)

	var all []row
	require.NoError(t, DecodeRows(payload, &all))
	assert.Len(t, all, 2)

	var raw json.RawMessage
	require.NoError(t, DecodeRows(payload, &raw))
	assert.JSONEq(t, string(payload), string(raw))

	assert.Equal(t, ErrNotFound, DecodeRows([]byte(`[]`), &one))
	assert.NoError(t, DecodeRows(payload, nil))
}
