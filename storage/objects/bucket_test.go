package objstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer0000009-hue/schoolportal/core"
)

func TestBucket_Upload(t *testing.T) {
	var (
		gotPath, gotAuth, gotType, gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotPath, gotAuth, gotType, gotBody = r.URL.EscapedPath(), r.Header.Get("Authorization"), r.Header.Get("Content-Type"), string(b)
		if strings.Contains(gotPath, "exists") {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`)
			return
		}
		_, _ = io.WriteString(w, `{"Key":"invoices/x"}`)
	}))
	defer srv.Close()

	b := NewBucket(srv.URL, "service-key", "invoices", 5*time.Second)
	ctx := core.WithPrincipal(context.Background(), core.Principal{UserID: "u1", AccessToken: "user-jwt"})

	require.NoError(t, b.Upload(ctx, "2026/10/my invoice.pdf", strings.NewReader("%PDF-1.4"), "application/pdf"))
	assert.Equal(t, "/storage/v1/object/invoices/2026/10/my%20invoice.pdf", gotPath)
	assert.Equal(t, "Bearer user-jwt", gotAuth)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "%PDF-1.4", gotBody)

	err := b.Upload(context.Background(), "exists.pdf", strings.NewReader("x"), "")
	var rerr *core.RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusConflict, rerr.Status)
	assert.Equal(t, "The resource already exists", core.ErrorMessage(err))
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "text/plain; charset=utf-8", gotType)
}

func TestBucket_PublicURL(t *testing.T) {
	b := NewBucket("https://store.example.com/", "k", "invoices", time.Second)
	assert.Equal(t, "https://store.example.com/storage/v1/object/public/invoices/2026/10/a.pdf", b.PublicURL("2026/10/a.pdf"))
}

func TestMemoryBucket(t *testing.T) {
	b := NewMemoryBucket("invoices", "http://localhost:8000")
	require.NoError(t, b.Upload(context.Background(), "a.pdf", strings.NewReader("pdf"), "application/pdf"))

	obj, ok := b.Get("a.pdf")
	require.True(t, ok)
	assert.Equal(t, "pdf", string(obj.Content))
	assert.Equal(t, "http://localhost:8000/storage/v1/object/public/invoices/a.pdf", b.PublicURL("a.pdf"))

	err := b.Upload(context.Background(), "a.pdf", strings.NewReader("again"), "application/pdf")
	assert.Error(t, err)
}
