package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	dErrors "unionvote/pkg/domain-errors"
)

const defaultPageLimit = 50

// Service captures structured audit events. It is append-only and uses the
// store for persistence so tests can swap sinks easily.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Emit appends one entry, stamping ID and Timestamp when unset. Callers on
// the fatal path rely on Emit being synchronous: the entry is durable before
// Emit returns.
func (s *Service) Emit(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return s.store.Append(ctx, entry)
}

// List returns one page of entries, newest first.
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count audit entries")
	}
	entries, err := s.store.ListPage(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return &Page{
		Entries:    entries,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}
