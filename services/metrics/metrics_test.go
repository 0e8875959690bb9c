package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer0000009-hue/schoolportal/core"
	dummydb "github.com/developer0000009-hue/schoolportal/storage/database/dummy"
)

func TestRemote(t *testing.T) {
	m := New()
	db, err := dummydb.Open()
	require.NoError(t, err)
	remote := m.Remote(db)
	ctx := core.WithPrincipal(context.Background(), core.Principal{UserID: "u1"})

	var row map[string]interface{}
	require.NoError(t, remote.Select(ctx, "profiles", core.Eq("id", "u1"), &row))
	assert.Error(t, remote.Select(ctx, "profiles", core.Eq("id", "nobody"), &row))
	assert.Error(t, remote.Call(ctx, "no_such_function", nil, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCnt.WithLabelValues("select", "profiles", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCnt.WithLabelValues("select", "profiles", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCnt.WithLabelValues("call", "no_such_function", "404")))
}

func TestMiddleware(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/v1/branches/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return c.NoContent(http.StatusOK)
	})

	for _, id := range []string{"a", "b", "missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/branches/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpReqCnt.WithLabelValues("GET", "/v1/branches/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpReqCnt.WithLabelValues("GET", "/v1/branches/:id", "404")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "portal_http_requests_total"))
}
