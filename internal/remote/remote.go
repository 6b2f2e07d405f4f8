package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/nocdn/volumes/internal/bookmark"
)

// Service is the remote collection the client mirrors. Subscribe delivers
// snapshots newest-first, capped at bookmark.SnapshotLimit, each one at least
// as new as the last. The channel closes when ctx is done.
type Service interface {
	Subscribe(ctx context.Context) <-chan Update
	Create(ctx context.Context, draft bookmark.Draft) (string, error)
	Update(ctx context.Context, id string, patch bookmark.Patch) error
	Delete(ctx context.Context, id string) error
}

// Extractor turns a URL into a page title. An empty title with a nil error
// means the page had none.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (string, error)
}

// Refresher is implemented by services whose subscription can be asked to
// fetch ahead of schedule, e.g. right after a mutation is acknowledged.
type Refresher interface {
	Refresh()
}

// Update is one subscription delivery. When Err is set, Items is nil and
// the previous snapshot remains authoritative.
type Update struct {
	Items []bookmark.Item
	Err   error
}

// ErrNotFound is returned when the store has no item with the given id.
var ErrNotFound = errors.New("bookmark not found")

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == 404
}
