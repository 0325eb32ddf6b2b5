package audit

import "context"

// Store persists audit entries. Append-only: no update or delete exists on
// this interface and none may be added.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListPage(ctx context.Context, limit, offset int) ([]Entry, error)
	Count(ctx context.Context) (int, error)
}
