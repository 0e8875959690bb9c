package geosvc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/branch"
)

type completerStub struct {
	answer string
	err    error
	prompt string
}

func (c *completerStub) Complete(_ context.Context, _, prompt string) (string, error) {
	c.prompt = prompt
	return c.answer, c.err
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		err     error
		want    branch.Region
		wantErr bool
	}{
		{
			name:   "plain json",
			answer: `{"city": "Nairobi", "state": "Nairobi County", "country": "Kenya"}`,
			want:   branch.Region{Resolved: true, City: "Nairobi", State: "Nairobi County", Country: "Kenya"},
		},
		{
			name:   "fenced json",
			answer: "```json\n{\"city\": \"Mombasa\", \"country\": \"kenya\"}\n```",
			want:   branch.Region{Resolved: true, City: "Mombasa", Country: "Kenya"},
		},
		{
			name:   "misspelled country snaps",
			answer: `{"city": "Kisumu", "country": "Keniya"}`,
			want:   branch.Region{Resolved: true, City: "Kisumu", Country: "Kenya"},
		},
		{
			name:   "unknown country dropped",
			answer: `{"city": "", "state": "", "country": "Atlantis"}`,
			want:   branch.Region{},
		},
		{name: "prose answer", answer: "I am not sure.", wantErr: true},
		{name: "completion failure", err: errors.New("rate limited"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &completerStub{answer: tt.answer, err: tt.err}
			got, err := NewResolver(stub).Resolve(context.Background(), "12 Moi Avenue")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Address: 12 Moi Avenue", stub.prompt)
		})
	}
}

func TestOpenAICompleter(t *testing.T) {
	var req []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1700000000, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"city\": \"Nairobi\"}"}}]
		}`)
	}))
	defer srv.Close()

	conf := &core.Config{}
	conf.OpenAI.APIKey = "sk-test"
	conf.OpenAI.BaseURL = srv.URL + "/"
	conf.OpenAI.Model = "gpt-4o-mini"

	answer, err := NewOpenAICompleter(conf).Complete(context.Background(), "system", "Address: 1 Moi Ave")
	require.NoError(t, err)
	assert.Equal(t, `{"city": "Nairobi"}`, answer)

	body := gjson.ParseBytes(req)
	assert.Equal(t, "gpt-4o-mini", body.Get("model").String())
	assert.Equal(t, "system", body.Get("messages.0.role").String())
	assert.Equal(t, "Address: 1 Moi Ave", body.Get("messages.1.content").String())
}
