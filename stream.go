package ixscan

import (
	"context"
	"fmt"
)

type Order int

const (
	Asc Order = iota
	Desc
)

func (o Order) String() string {
	if o == Desc {
		return "desc"
	}
	return "asc"
}

func (o Order) sign() int {
	if o == Desc {
		return -1
	}
	return 1
}

// ParseOrder accepts "asc" and "desc".
func ParseOrder(s string) (Order, error) {
	switch s {
	case "asc", "":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return Asc, fmt.Errorf("invalid order %q", s)
	}
}

// Item is a single stream entry. A nil Doc is a hole: a position that was
// read and filtered out, which still counts toward read budgets.
type Item struct {
	Doc Document
	Key IndexKey
}

func (it Item) IsHole() bool { return it.Doc == nil }

// Iterator pulls items one at a time. Next returns ok == false once the
// stream is exhausted. Abandoning an iterator at any point is safe.
type Iterator interface {
	Next(ctx context.Context) (item Item, ok bool, err error)
}

// Stream is an immutable, lazily evaluated sequence of items ordered by key.
type Stream interface {
	// Iterate starts a new pass over the stream. Nothing is read until the
	// first Next.
	Iterate() Iterator

	Order() Order

	// IndexFields names the key positions of emitted items.
	IndexFields() []string

	// EqualityPrefix holds the values of the leading IndexFields every item
	// is pinned to.
	EqualityPrefix() []any

	// Narrow returns the same logical stream restricted to bounds.
	Narrow(bounds IndexBounds) Stream
}

// DocCursor iterates over the documents of a single native scan.
type DocCursor interface {
	Next(ctx context.Context) (doc Document, ok bool, err error)
}

// Reader is the document store consumed by scan streams.
type Reader interface {
	// RangeScan scans an index with a native predicate in the given order.
	RangeScan(ctx context.Context, table, index string, pred Predicate, order Order) (DocCursor, error)

	// Get returns the document with the given id, or nil if there is none.
	Get(ctx context.Context, table, id string) (Document, error)
}

// SchemaLookup returns the ordered field list of a named index, including
// trailing tiebreaker fields.
type SchemaLookup interface {
	IndexFields(table, index string) ([]string, error)
}

type iteratorFunc func(ctx context.Context) (Item, bool, error)

func (f iteratorFunc) Next(ctx context.Context) (Item, bool, error) { return f(ctx) }

func exhausted(ctx context.Context) (Item, bool, error) { return Item{}, false, nil }

// Collect reads every document of the stream, skipping holes.
func Collect(ctx context.Context, s Stream) ([]Document, error) {
	return Take(ctx, s, -1)
}

// Take reads up to n documents (all of them if n < 0), skipping holes.
func Take(ctx context.Context, s Stream, n int) ([]Document, error) {
	var docs []Document
	if n == 0 {
		return docs, nil
	}
	it := s.Iterate()
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return docs, err
		}
		if !ok {
			return docs, nil
		}
		if item.Doc != nil {
			docs = append(docs, item.Doc)
			if n > 0 && len(docs) >= n {
				return docs, nil
			}
		}
	}
}

// First returns the first document of the stream, or nil.
func First(ctx context.Context, s Stream) (Document, error) {
	docs, err := Take(ctx, s, 1)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// Unique returns the only document of the stream, nil if there is none, and
// a contract error if there is more than one.
func Unique(ctx context.Context, s Stream) (Document, error) {
	docs, err := Take(ctx, s, 2)
	if err != nil {
		return nil, err
	}
	switch len(docs) {
	case 0:
		return nil, nil
	case 1:
		return docs[0], nil
	default:
		return nil, contractErrf("unique", ErrNotUnique, "got %s and %s", docs[0].ID(), docs[1].ID())
	}
}
