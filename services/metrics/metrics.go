// Package metrics exposes Prometheus metrics of the HTTP API and of the remote store.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/developer0000009-hue/schoolportal/core"
)

const namespace = "portal"

type Metrics struct {
	registry   *prometheus.Registry
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec
	remoteCnt  *prometheus.CounterVec
	remoteDur  *prometheus.HistogramVec
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Buckets: prometheus.DefBuckets}, []string{"method", "route"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	remoteCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "remote_requests_total"}, []string{"op", "target", "status"})
	remoteDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "remote_request_duration_seconds", Buckets: prometheus.DefBuckets}, []string{"op", "target"})
	r.MustRegister(remoteCnt, remoteDur)

	return &Metrics{
		registry:   r,
		httpReqCnt: httpReqCnt,
		httpDur:    httpDur,
		httpInfl:   httpInfl,
		remoteCnt:  remoteCnt,
		remoteDur:  remoteDur,
	}
}

// Middleware records the requests of the routes of an echo server. Errors are handled here
// so that the recorded status is the one sent.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.httpInfl.WithLabelValues(route).Inc()
			defer m.httpInfl.WithLabelValues(route).Dec()

			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			method := c.Request().Method
			m.httpReqCnt.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.httpDur.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(op, target string, start time.Time, err error) {
	m.remoteCnt.WithLabelValues(op, target, remoteStatus(err)).Inc()
	m.remoteDur.WithLabelValues(op, target).Observe(time.Since(start).Seconds())
}

// remoteStatus labels the outcome of a remote request.
func remoteStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Cause(err) == core.ErrNotFound {
		return "not_found"
	}
	var rerr *core.RemoteError
	if errors.As(err, &rerr) {
		return strconv.Itoa(rerr.Status)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "error"
}

// Remote instruments a core.Remote.
type Remote struct {
	next    core.Remote
	metrics *Metrics
}

var _ core.Remote = (*Remote)(nil)

func (m *Metrics) Remote(next core.Remote) *Remote {
	return &Remote{next: next, metrics: m}
}

func (r *Remote) Call(ctx context.Context, fn string, args interface{}, out interface{}) (err error) {
	defer func(start time.Time) { r.metrics.observe("call", fn, start, err) }(time.Now())
	return r.next.Call(ctx, fn, args, out)
}

func (r *Remote) Select(ctx context.Context, table string, q core.Query, out interface{}) (err error) {
	defer func(start time.Time) { r.metrics.observe("select", table, start, err) }(time.Now())
	return r.next.Select(ctx, table, q, out)
}

func (r *Remote) Insert(ctx context.Context, table string, rows interface{}, out interface{}) (err error) {
	defer func(start time.Time) { r.metrics.observe("insert", table, start, err) }(time.Now())
	return r.next.Insert(ctx, table, rows, out)
}

func (r *Remote) Upsert(ctx context.Context, table, onConflict string, rows interface{}, out interface{}) (err error) {
	defer func(start time.Time) { r.metrics.observe("upsert", table, start, err) }(time.Now())
	return r.next.Upsert(ctx, table, onConflict, rows, out)
}

func (r *Remote) Update(ctx context.Context, table string, q core.Query, patch interface{}, out interface{}) (err error) {
	defer func(start time.Time) { r.metrics.observe("update", table, start, err) }(time.Now())
	return r.next.Update(ctx, table, q, patch, out)
}

func (r *Remote) Delete(ctx context.Context, table string, q core.Query) (err error) {
	defer func(start time.Time) { r.metrics.observe("delete", table, start, err) }(time.Now())
	return r.next.Delete(ctx, table, q)
}
