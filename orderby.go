package ixscan

import (
	"context"
	"slices"
)

type orderByStream struct {
	inner  Stream
	k      int
	fields []string
	prefix []any
}

// OrderBy re-keys s by a suffix of its index fields. The dropped leading
// fields must be pinned by the stream's equality prefix, so ordering by the
// suffix is the same as ordering by the full key.
func OrderBy(s Stream, fields []string) (Stream, error) {
	sf := s.IndexFields()
	k := len(sf) - len(fields)
	if k < 0 || !slices.Equal(sf[k:], fields) {
		return nil, contractErrf("orderBy", nil, "%v is not a suffix of index fields %v", fields, sf)
	}
	eq := s.EqualityPrefix()
	if k > len(eq) {
		return nil, contractErrf("orderBy", nil, "cannot order by %v: fields %v are not pinned by equality prefix %v", fields, sf[:k], eq)
	}
	if k == 0 {
		return s, nil
	}
	return &orderByStream{
		inner:  s,
		k:      k,
		fields: fields,
		prefix: eq[:k:k],
	}, nil
}

func (s *orderByStream) Order() Order { return s.inner.Order() }
func (s *orderByStream) IndexFields() []string { return s.fields }

func (s *orderByStream) EqualityPrefix() []any {
	return s.inner.EqualityPrefix()[s.k:]
}

func (s *orderByStream) Narrow(bounds IndexBounds) Stream {
	ns := *s
	ns.inner = s.inner.Narrow(bounds.withPrefix(s.prefix))
	return &ns
}

func (s *orderByStream) Iterate() Iterator {
	it := s.inner.Iterate()
	return iteratorFunc(func(ctx context.Context) (Item, bool, error) {
		item, ok, err := it.Next(ctx)
		if !ok || err != nil {
			return item, ok, err
		}
		item.Key = item.Key[s.k:]
		return item, true, nil
	})
}
