package ixscan

import (
	"context"
	"fmt"
	"log/slog"
)

type PageStatus string

const (
	SplitRecommended PageStatus = "SplitRecommended"
	SplitRequired    PageStatus = "SplitRequired"
)

type PaginationOptions struct {
	// Cursor resumes after the key it encodes; nil starts at the beginning.
	Cursor *string

	// NumItems is the number of documents to return. With EndCursor set the
	// page extends to EndCursor instead.
	NumItems int

	// EndCursor pins the end of the page (inclusive), so re-running a query
	// yields the same range even after writes.
	EndCursor *string

	// MaximumRowsRead caps the number of items read, holes included.
	MaximumRowsRead int

	Logger *slog.Logger
}

type PaginationResult struct {
	Page           []Document `json:"page"`
	IsDone         bool       `json:"isDone"`
	ContinueCursor string     `json:"continueCursor"`
	PageStatus     PageStatus `json:"pageStatus,omitempty"`
	SplitCursor    string     `json:"splitCursor,omitempty"`
	RowsRead       int        `json:"rowsRead"`
}

const fullRangeCursor = "[]"

// Paginate reads one page of s. The page covers the keys after Cursor up to
// and including the returned ContinueCursor, so consecutive pages neither
// overlap nor skip items, including under concurrent inserts and deletes.
func Paginate(ctx context.Context, s Stream, opt PaginationOptions) (*PaginationResult, error) {
	if opt.NumItems < 0 || opt.MaximumRowsRead < 0 {
		return nil, fmt.Errorf("%w: numItems = %d, maximumRowsRead = %d", ErrInvalidPageRequest, opt.NumItems, opt.MaximumRowsRead)
	}
	if opt.NumItems == 0 {
		if opt.Cursor == nil {
			return nil, fmt.Errorf("%w: numItems must be positive without a cursor", ErrInvalidPageRequest)
		}
		return &PaginationResult{
			Page:           []Document{},
			IsDone:         false,
			ContinueCursor: *opt.Cursor,
		}, nil
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	startKey := IndexKey{}
	startInclusive := true
	if opt.Cursor != nil {
		k, err := deserializePageCursor(*opt.Cursor, s.IndexFields())
		if err != nil {
			return nil, err
		}
		startKey, startInclusive = k, false
	}
	endKey := IndexKey{}
	if opt.EndCursor != nil {
		k, err := deserializePageCursor(*opt.EndCursor, s.IndexFields())
		if err != nil {
			return nil, err
		}
		endKey = k
	}

	var bounds IndexBounds
	if s.Order() == Desc {
		bounds = IndexBounds{
			LowerBound:          endKey,
			LowerBoundInclusive: true,
			UpperBound:          startKey,
			UpperBoundInclusive: startInclusive,
		}
	} else {
		bounds = IndexBounds{
			LowerBound:          startKey,
			LowerBoundInclusive: startInclusive,
			UpperBound:          endKey,
			UpperBoundInclusive: true,
		}
	}

	var (
		page     = []Document{}
		keys     []IndexKey
		hasMore  = opt.EndCursor != nil && *opt.EndCursor != fullRangeCursor
		cont     string
		stopped  bool
		maxReads = opt.MaximumRowsRead
	)
	if opt.EndCursor != nil {
		cont = *opt.EndCursor
	} else {
		cont = fullRangeCursor
	}

	it := s.Narrow(bounds).Iterate()
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if item.Doc != nil {
			page = append(page, item.Doc)
		}
		keys = append(keys, item.Key)
		if (opt.EndCursor == nil && len(page) >= opt.NumItems) || (maxReads > 0 && len(keys) >= maxReads) {
			stopped = true
			break
		}
	}
	if stopped {
		hasMore = true
		c, err := SerializeCursor(keys[len(keys)-1])
		if err != nil {
			return nil, err
		}
		cont = c
	}

	result := &PaginationResult{
		Page:           page,
		IsDone:         !hasMore,
		ContinueCursor: cont,
		RowsRead:       len(keys),
	}

	n := len(keys)
	switch {
	case n == 0:
	case maxReads > 0 && n >= maxReads:
		result.PageStatus = SplitRequired
	case maxReads > 0 && n >= maxReads*3/4:
		result.PageStatus = SplitRecommended
	case maxReads == 0 && n >= opt.NumItems+1:
		result.PageStatus = SplitRecommended
	}
	if result.PageStatus != "" {
		c, err := SerializeCursor(keys[(n-1)/2])
		if err != nil {
			return nil, err
		}
		result.SplitCursor = c
		logger.LogAttrs(ctx, slog.LevelDebug, "paginate: split",
			slog.String("status", string(result.PageStatus)),
			slog.Int("rows_read", n),
			slog.Int("page", len(page)),
			keyAttr("split_key", keys[(n-1)/2]))
	}
	return result, nil
}

// deserializePageCursor decodes a cursor and rejects keys longer than the
// stream's index, e.g. cursors issued before an index changed.
func deserializePageCursor(cursor string, fields []string) (IndexKey, error) {
	k, err := DeserializeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if len(k) > len(fields) {
		return nil, fmt.Errorf("%w: %q has %d values, index fields are %v", ErrInvalidCursor, cursor, len(k), fields)
	}
	return k, nil
}
