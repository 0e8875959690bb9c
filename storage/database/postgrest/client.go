// Package postgrest implements core.Remote over the RPC-over-HTTP contract of the store:
// procedures under /rest/v1/rpc and tables under /rest/v1.
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/developer0000009-hue/schoolportal/core"
)

const restPath = "/rest/v1"

type Client struct {
	http    *rest.Client
	baseURL string
	apiKey  string
}

var _ core.Remote = (*Client)(nil)

// New returns a client of the store at baseURL. apiKey is the anon key for user requests or
// the service key for admin tooling; the principal's access token is forwarded when present.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http:    &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		baseURL: strings.TrimRight(baseURL, "/") + restPath,
		apiKey:  apiKey,
	}
}

func (c *Client) headers(ctx context.Context, prefer ...string) map[string]string {
	token := c.apiKey
	if p, ok := core.PrincipalFrom(ctx); ok && p.AccessToken != "" {
		token = p.AccessToken
	}
	h := map[string]string{
		"apikey":        c.apiKey,
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
	if len(prefer) > 0 {
		h["Prefer"] = strings.Join(prefer, ",")
	}
	return h
}

func (c *Client) send(ctx context.Context, req rest.Request) ([]byte, error) {
	res, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}
	if res.StatusCode >= http.StatusMultipleChoices {
		return nil, &core.RemoteError{Status: res.StatusCode, Body: []byte(res.Body)}
	}
	return []byte(res.Body), nil
}

func marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	return b, errors.Wrap(err, "encoding request body")
}

// Call invokes a remote procedure.
func (c *Client) Call(ctx context.Context, fn string, args interface{}, out interface{}) error {
	params, err := core.ToArgs(args)
	if err != nil {
		return err
	}
	body, err := marshal(params)
	if err != nil {
		return err
	}
	payload, err := c.send(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: c.baseURL + "/rpc/" + fn,
		Headers: c.headers(ctx),
		Body:    body,
	})
	if err != nil {
		return err
	}
	return core.Decode(payload, out)
}

func (c *Client) Select(ctx context.Context, table string, q core.Query, out interface{}) error {
	params := filters(q)
	params["select"] = "*"
	if ord := ordering(q.Ordering); ord != "" {
		params["order"] = ord
	}
	if q.Limit > 0 {
		params["limit"] = fmt.Sprint(q.Limit)
	}
	payload, err := c.send(ctx, rest.Request{
		Method:      rest.Get,
		BaseURL:     c.baseURL + "/" + table,
		Headers:     c.headers(ctx),
		QueryParams: params,
	})
	if err != nil {
		return err
	}
	return core.DecodeRows(payload, out)
}

func (c *Client) Insert(ctx context.Context, table string, rows interface{}, out interface{}) error {
	return c.write(ctx, table, rows, nil, out, "return=representation")
}

func (c *Client) Upsert(ctx context.Context, table, onConflict string, rows interface{}, out interface{}) error {
	params := map[string]string{}
	if onConflict != "" {
		params["on_conflict"] = onConflict
	}
	return c.write(ctx, table, rows, params, out, "return=representation", "resolution=merge-duplicates")
}

func (c *Client) write(ctx context.Context, table string, rows interface{}, params map[string]string, out interface{}, prefer ...string) error {
	normalized, err := core.ToRows(rows)
	if err != nil {
		return err
	}
	body, err := marshal(normalized)
	if err != nil {
		return err
	}
	payload, err := c.send(ctx, rest.Request{
		Method:      rest.Post,
		BaseURL:     c.baseURL + "/" + table,
		Headers:     c.headers(ctx, prefer...),
		QueryParams: params,
		Body:        body,
	})
	if err != nil {
		return err
	}
	return core.DecodeRows(payload, out)
}

func (c *Client) Update(ctx context.Context, table string, q core.Query, patch interface{}, out interface{}) error {
	row, err := core.ToArgs(patch)
	if err != nil {
		return err
	}
	body, err := marshal(row)
	if err != nil {
		return err
	}
	payload, err := c.send(ctx, rest.Request{
		Method:      rest.Patch,
		BaseURL:     c.baseURL + "/" + table,
		Headers:     c.headers(ctx, "return=representation"),
		QueryParams: filters(q),
		Body:        body,
	})
	if err != nil {
		return err
	}
	return core.DecodeRows(payload, out)
}

func (c *Client) Delete(ctx context.Context, table string, q core.Query) error {
	_, err := c.send(ctx, rest.Request{
		Method:      rest.Delete,
		BaseURL:     c.baseURL + "/" + table,
		Headers:     c.headers(ctx),
		QueryParams: filters(q),
	})
	return err
}

// filters renders equality filters: col=eq.value (col=is.null for nil values).
func filters(q core.Query) map[string]string {
	params := make(map[string]string, len(q.Eq)+3)
	for col, v := range q.Eq {
		if v == nil {
			params[col] = "is.null"
			continue
		}
		params[col] = "eq." + fmt.Sprint(v)
	}
	return params
}

// ordering renders "a.asc,b.desc".
func ordering(ords []core.DBOrdering) string {
	parts := make([]string, 0, len(ords))
	for _, o := range ords {
		dir := "desc"
		if o.Ascending {
			dir = "asc"
		}
		parts = append(parts, o.Field+"."+dir)
	}
	return strings.Join(parts, ",")
}
