// Package attach persists uploaded message attachments under
// collision-resistant names and serves them back by opaque reference.
package attach

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("attachment not found")

// Store is the attachment backend. Save must complete before the owning
// message is appended to the log so that every file message's reference is
// valid the moment it becomes visible. Remove is best-effort at call
// sites: callers log failures and move on.
type Store interface {
	Save(ctx context.Context, r io.Reader, originalName string) (ref string, size int64, err error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Remove(ctx context.Context, ref string) error
	URL(ref string) string
}
