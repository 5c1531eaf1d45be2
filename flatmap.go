package ixscan

import (
	"context"
	"slices"
)

// Mapper expands a single document into a stream. The returned stream must
// have the outer stream's order and the index fields declared to FlatMap.
type Mapper func(ctx context.Context, doc Document) (Stream, error)

type flatMapStream struct {
	outer        Stream
	mapper       Mapper
	innerFields  []string
	fields       []string
	bounds       IndexBounds
	outerFieldsN int
}

// FlatMap replaces every document of outer with the items of the stream the
// mapper returns for it. Emitted keys are the outer key followed by the inner
// key. A document whose stream is empty still yields a hole, so the read is
// accounted for and pagination can resume after it.
func FlatMap(outer Stream, mapper Mapper, mappedIndexFields []string) (Stream, error) {
	if mapper == nil {
		return nil, contractErrf("flatMap", nil, "nil mapper")
	}
	of := outer.IndexFields()
	return &flatMapStream{
		outer:        outer,
		mapper:       mapper,
		innerFields:  mappedIndexFields,
		fields:       concatFields(of, mappedIndexFields),
		bounds:       FullRange(),
		outerFieldsN: len(of),
	}, nil
}

// Map replaces each document with fn's result; a nil result becomes a hole.
func Map(s Stream, fn func(ctx context.Context, doc Document) (Document, error)) (Stream, error) {
	order := s.Order()
	return FlatMap(s, func(ctx context.Context, doc Document) (Stream, error) {
		mapped, err := fn(ctx, doc)
		if err != nil {
			return nil, err
		}
		return Singleton(mapped, IndexKey{}, order, nil, nil)
	}, nil)
}

// FilterWith keeps the documents pred accepts; the rest become holes.
func FilterWith(s Stream, pred func(ctx context.Context, doc Document) (bool, error)) (Stream, error) {
	return Map(s, func(ctx context.Context, doc Document) (Document, error) {
		ok, err := pred(ctx, doc)
		if err != nil || !ok {
			return nil, err
		}
		return doc, nil
	})
}

func concatFields(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func (s *flatMapStream) Order() Order { return s.outer.Order() }
func (s *flatMapStream) IndexFields() []string { return s.fields }
func (s *flatMapStream) EqualityPrefix() []any { return s.outer.EqualityPrefix() }

func (s *flatMapStream) Narrow(bounds IndexBounds) Stream {
	ns := *s
	ns.bounds = s.bounds.Intersect(bounds)
	ns.outer = s.outer.Narrow(s.outerBounds(bounds))
	return &ns
}

// outerBounds projects bounds onto the outer key. A bound that reaches into
// the inner fields only pins its outer part, which stays inclusive.
func (s *flatMapStream) outerBounds(b IndexBounds) IndexBounds {
	n := s.outerFieldsN
	ob := b
	if len(b.LowerBound) > n {
		ob.LowerBound, ob.LowerBoundInclusive = b.LowerBound[:n:n], true
	}
	if len(b.UpperBound) > n {
		ob.UpperBound, ob.UpperBoundInclusive = b.UpperBound[:n:n], true
	}
	return ob
}

// innerBounds returns the part of the stream bounds that applies inside the
// outer item with the given key.
func (s *flatMapStream) innerBounds(outerKey IndexKey) (IndexBounds, bool) {
	n := s.outerFieldsN
	ib := FullRange()
	restricted := false
	if b := s.bounds.LowerBound; len(b) > n && compareExact(b[:n], outerKey) == 0 {
		ib.LowerBound, ib.LowerBoundInclusive = b[n:], s.bounds.LowerBoundInclusive
		restricted = true
	}
	if b := s.bounds.UpperBound; len(b) > n && compareExact(b[:n], outerKey) == 0 {
		ib.UpperBound, ib.UpperBoundInclusive = b[n:], s.bounds.UpperBoundInclusive
		restricted = true
	}
	return ib, restricted
}

func (s *flatMapStream) Iterate() Iterator {
	return &flatMapIterator{stream: s, outer: s.outer.Iterate()}
}

type flatMapIterator struct {
	stream   *flatMapStream
	outer    Iterator
	outerKey IndexKey
	inner    Iterator
	emitted  bool

	// inner was narrowed by a cursor, so an empty inner stream does not
	// mean the outer item maps to nothing
	restricted bool
}

func (it *flatMapIterator) Next(ctx context.Context) (Item, bool, error) {
	s := it.stream
	for {
		if it.inner != nil {
			item, ok, err := it.inner.Next(ctx)
			if err != nil {
				return Item{}, false, err
			}
			if ok {
				it.emitted = true
				item.Key = concatKeys(it.outerKey, item.Key)
				return item, true, nil
			}
			it.inner = nil
			if !it.emitted && !it.restricted {
				hole := concatKeys(it.outerKey, make([]any, len(s.innerFields)))
				if s.bounds.Contains(hole) {
					return Item{Key: hole}, true, nil
				}
			}
		}

		outerItem, ok, err := it.outer.Next(ctx)
		if err != nil || !ok {
			return Item{}, ok, err
		}
		inner, restricted, err := it.innerStream(ctx, outerItem)
		if err != nil {
			return Item{}, false, err
		}
		it.outerKey, it.emitted, it.restricted = outerItem.Key, false, restricted
		it.inner = inner.Iterate()
	}
}

func (it *flatMapIterator) innerStream(ctx context.Context, outerItem Item) (Stream, bool, error) {
	s := it.stream
	order := s.outer.Order()
	var inner Stream
	if outerItem.IsHole() {
		var err error
		inner, err = Singleton(nil, make(IndexKey, len(s.innerFields)), order, s.innerFields, nil)
		if err != nil {
			return nil, false, err
		}
	} else {
		var err error
		inner, err = s.mapper(ctx, outerItem.Doc)
		if err != nil {
			return nil, false, err
		}
		if inner == nil {
			return nil, false, contractErrf("flatMap", nil, "mapper returned nil stream for %v", outerItem.Key)
		}
		if inner.Order() != order {
			return nil, false, contractErrf("flatMap", nil, "mapped stream for %v is %v, outer stream is %v", outerItem.Key, inner.Order(), order)
		}
		if !slices.Equal(inner.IndexFields(), s.innerFields) {
			return nil, false, contractErrf("flatMap", nil, "mapped stream for %v has index fields %v, expected %v", outerItem.Key, inner.IndexFields(), s.innerFields)
		}
	}
	ib, restricted := s.innerBounds(outerItem.Key)
	if restricted {
		inner = inner.Narrow(ib)
	}
	return inner, restricted, nil
}
