package ixscan

import (
	"context"
	"slices"
)

type distinctStream struct {
	inner     Stream
	fields    []string
	prefixLen int
}

// Distinct emits the first document of every distinct value of fields, as a
// loose index scan: after each document the underlying stream is re-narrowed
// past every key sharing its prefix, so skipped documents are never read.
//
// fields must follow the stream's pinned equality fields in its index.
func Distinct(s Stream, fields []string) (Stream, error) {
	sf := s.IndexFields()
	eq := s.EqualityPrefix()
	for k := 0; k <= len(eq) && k+len(fields) <= len(sf); k++ {
		if slices.Equal(sf[k:k+len(fields)], fields) {
			return &distinctStream{
				inner:     s,
				fields:    fields,
				prefixLen: k + len(fields),
			}, nil
		}
	}
	return nil, contractErrf("distinct", nil, "%v must follow the equality prefix %v in index fields %v", fields, eq, sf)
}

func (s *distinctStream) Order() Order { return s.inner.Order() }
func (s *distinctStream) IndexFields() []string { return s.inner.IndexFields() }
func (s *distinctStream) EqualityPrefix() []any { return s.inner.EqualityPrefix() }

func (s *distinctStream) Narrow(bounds IndexBounds) Stream {
	ns := *s
	ns.inner = s.inner.Narrow(bounds.truncated(s.prefixLen))
	return &ns
}

func (s *distinctStream) Iterate() Iterator {
	return &distinctIterator{stream: s, cur: s.inner.Iterate()}
}

type distinctIterator struct {
	stream *distinctStream
	cur    Iterator
}

func (it *distinctIterator) Next(ctx context.Context) (Item, bool, error) {
	s := it.stream
	item, ok, err := it.cur.Next(ctx)
	if err != nil || !ok {
		return Item{}, ok, err
	}
	if item.IsHole() {
		return item, true, nil
	}
	prefix := slices.Clip(item.Key[:s.prefixLen])
	var skip IndexBounds
	if s.inner.Order() == Desc {
		skip = IndexBounds{LowerBoundInclusive: true, UpperBound: prefix}
	} else {
		skip = IndexBounds{LowerBound: prefix, UpperBoundInclusive: true}
	}
	it.cur = s.inner.Narrow(skip).Iterate()
	return item, true, nil
}
