// Package objstore implements core.Bucket over the store's object storage API, plus an
// in-memory bucket for development and tests.
package objstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/developer0000009-hue/schoolportal/core"
)

const storagePath = "/storage/v1/object"

// Bucket is a bucket of the remote object storage.
type Bucket struct {
	http    *rest.Client
	baseURL string
	apiKey  string
	name    string
}

var _ core.Bucket = (*Bucket)(nil)

func NewBucket(baseURL, apiKey, name string, timeout time.Duration) *Bucket {
	return &Bucket{
		http:    &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		baseURL: strings.TrimRight(baseURL, "/") + storagePath,
		apiKey:  apiKey,
		name:    name,
	}
}

func escapePath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// Upload stores the content of r at path. Existing objects are not overwritten.
func (b *Bucket) Upload(ctx context.Context, path string, r io.Reader, contentType string) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading upload")
	}
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	token := b.apiKey
	if p, ok := core.PrincipalFrom(ctx); ok && p.AccessToken != "" {
		token = p.AccessToken
	}
	req := rest.Request{
		Method:  rest.Post,
		BaseURL: b.baseURL + "/" + url.PathEscape(b.name) + "/" + escapePath(path),
		Headers: map[string]string{
			"apikey":        b.apiKey,
			"Authorization": "Bearer " + token,
			"Content-Type":  contentType,
			"x-upsert":      "false",
		},
		Body: body,
	}
	res, err := b.http.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "uploading %s", path)
	}
	if res.StatusCode >= http.StatusMultipleChoices {
		return &core.RemoteError{Status: res.StatusCode, Body: []byte(res.Body)}
	}
	return nil
}

func (b *Bucket) PublicURL(path string) string {
	return b.baseURL + "/public/" + url.PathEscape(b.name) + "/" + escapePath(path)
}

// MemoryBucket keeps objects in memory.
type MemoryBucket struct {
	name    string
	baseURL string

	mu      sync.RWMutex
	objects map[string]Object
}

type Object struct {
	ContentType string
	Content     []byte
}

var _ core.Bucket = (*MemoryBucket)(nil)

func NewMemoryBucket(name, baseURL string) *MemoryBucket {
	return &MemoryBucket{name: name, baseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string]Object)}
}

func (b *MemoryBucket) Upload(_ context.Context, path string, r io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return errors.Wrap(err, "reading upload")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[path]; ok {
		return core.NewRemoteError(http.StatusConflict, "The resource already exists")
	}
	b.objects[path] = Object{ContentType: contentType, Content: buf.Bytes()}
	return nil
}

func (b *MemoryBucket) PublicURL(path string) string {
	return b.baseURL + storagePath + "/public/" + b.name + "/" + escapePath(path)
}

// Get returns the object at path.
func (b *MemoryBucket) Get(path string) (Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[path]
	return obj, ok
}
