package ixscan

import (
	"context"
	"slices"
)

type concatStream struct {
	streams  []Stream
	order    Order
	fields   []string
	eqPrefix []any
}

// Concat emits each stream in turn. The streams must share order and index
// fields, and every key of a stream must sort strictly after the keys of the
// streams before it; a violation is reported by Next.
func Concat(streams ...Stream) (Stream, error) {
	if len(streams) == 0 {
		return nil, contractErrf("concat", nil, "no streams")
	}
	first := streams[0]
	eq := first.EqualityPrefix()
	for i, s := range streams[1:] {
		if s.Order() != first.Order() {
			return nil, contractErrf("concat", nil, "stream %d is %v, stream 0 is %v", i+1, s.Order(), first.Order())
		}
		if !slices.Equal(s.IndexFields(), first.IndexFields()) {
			return nil, contractErrf("concat", nil, "stream %d has index fields %v, stream 0 has %v", i+1, s.IndexFields(), first.IndexFields())
		}
		eq = commonPrefix(eq, s.EqualityPrefix())
	}
	return &concatStream{
		streams:  streams,
		order:    first.Order(),
		fields:   first.IndexFields(),
		eqPrefix: eq,
	}, nil
}

func (s *concatStream) Order() Order { return s.order }
func (s *concatStream) IndexFields() []string { return s.fields }
func (s *concatStream) EqualityPrefix() []any { return s.eqPrefix }

func (s *concatStream) Narrow(bounds IndexBounds) Stream {
	ns := *s
	ns.streams = make([]Stream, len(s.streams))
	for i, child := range s.streams {
		ns.streams[i] = child.Narrow(bounds)
	}
	return &ns
}

func (s *concatStream) Iterate() Iterator {
	return &concatIterator{stream: s}
}

type concatIterator struct {
	stream *concatStream
	pos    int
	cur    Iterator
	prev   IndexKey
	seen   bool
}

func (it *concatIterator) Next(ctx context.Context) (Item, bool, error) {
	s := it.stream
	for it.pos < len(s.streams) {
		if it.cur == nil {
			it.cur = s.streams[it.pos].Iterate()
		}
		item, ok, err := it.cur.Next(ctx)
		if err != nil {
			return Item{}, false, err
		}
		if !ok {
			it.cur = nil
			it.pos++
			continue
		}
		if it.seen && compareExact(it.prev, item.Key)*s.order.sign() >= 0 {
			return Item{}, false, contractErrf("concat", ErrOutOfOrder, "stream %d emitted %v after %v in %v order", it.pos, item.Key, it.prev, s.order)
		}
		it.prev, it.seen = item.Key, true
		return item, true, nil
	}
	return Item{}, false, nil
}
