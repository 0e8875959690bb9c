package core

import (
	"context"
	"io"
	"time"
)

type (
	// Locker hands out short-lived exclusive locks. TryLock never blocks: it fails with
	// ErrLocked when key is already held.
	Locker interface {
		TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
	}

	// Bucket is a named object-storage bucket. Objects are referenced by path.
	Bucket interface {
		Upload(ctx context.Context, path string, r io.Reader, contentType string) error
		PublicURL(path string) string
	}
)
