package ixscan

import (
	"context"
)

type mergeStream struct {
	streams  []Stream
	order    Order
	fields   []string
	eqPrefix []any
}

// Merge interleaves streams into one ordered stream. Each stream is first
// re-keyed by orderByFields (see OrderBy), so the inputs may come from
// different indexes as long as those fields end each of them.
//
// Heads are pulled one child at a time, in child order; equal keys are
// emitted in child order too.
func Merge(streams []Stream, orderByFields []string) (Stream, error) {
	if len(streams) == 0 {
		return nil, contractErrf("merge", nil, "no streams")
	}
	ordered := make([]Stream, len(streams))
	for i, s := range streams {
		os, err := OrderBy(s, orderByFields)
		if err != nil {
			return nil, contractErrf("merge", err, "stream %d", i)
		}
		ordered[i] = os
	}
	first := ordered[0]
	eq := first.EqualityPrefix()
	for i, s := range ordered[1:] {
		if s.Order() != first.Order() {
			return nil, contractErrf("merge", nil, "stream %d is %v, stream 0 is %v", i+1, s.Order(), first.Order())
		}
		eq = commonPrefix(eq, s.EqualityPrefix())
	}
	return &mergeStream{
		streams:  ordered,
		order:    first.Order(),
		fields:   orderByFields,
		eqPrefix: eq,
	}, nil
}

func (s *mergeStream) Order() Order { return s.order }
func (s *mergeStream) IndexFields() []string { return s.fields }
func (s *mergeStream) EqualityPrefix() []any { return s.eqPrefix }

func (s *mergeStream) Narrow(bounds IndexBounds) Stream {
	ns := *s
	ns.streams = make([]Stream, len(s.streams))
	for i, child := range s.streams {
		ns.streams[i] = child.Narrow(bounds)
	}
	return &ns
}

func (s *mergeStream) Iterate() Iterator {
	it := &mergeIterator{
		order: s.order,
		heads: make([]mergeHead, len(s.streams)),
	}
	for i, child := range s.streams {
		it.heads[i].it = child.Iterate()
	}
	return it
}

type mergeHead struct {
	it     Iterator
	item   Item
	loaded bool
	done   bool
}

type mergeIterator struct {
	order Order
	heads []mergeHead
}

func (m *mergeIterator) Next(ctx context.Context) (Item, bool, error) {
	best := -1
	for i := range m.heads {
		h := &m.heads[i]
		if h.done {
			continue
		}
		if !h.loaded {
			item, ok, err := h.it.Next(ctx)
			if err != nil {
				return Item{}, false, err
			}
			if !ok {
				h.done = true
				continue
			}
			h.item, h.loaded = item, true
		}
		if best < 0 || compareExact(h.item.Key, m.heads[best].item.Key)*m.order.sign() < 0 {
			best = i
		}
	}
	if best < 0 {
		return Item{}, false, nil
	}
	h := &m.heads[best]
	h.loaded = false
	return h.item, true, nil
}
