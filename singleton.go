package ixscan

import "context"

type singletonStream struct {
	doc      Document
	key      IndexKey
	order    Order
	fields   []string
	eqPrefix []any
}

// Singleton is a stream of exactly one item. A nil doc makes it a single hole.
func Singleton(doc Document, key IndexKey, order Order, fields []string, eqPrefix []any) (Stream, error) {
	if len(key) != len(fields) {
		return nil, contractErrf("singleton", nil, "key %v does not match index fields %v", key, fields)
	}
	if len(eqPrefix) > len(key) {
		return nil, contractErrf("singleton", nil, "equality prefix %v is longer than key %v", eqPrefix, key)
	}
	for i, v := range eqPrefix {
		if CompareValues(v, key[i]) != 0 {
			return nil, contractErrf("singleton", nil, "key %v does not start with equality prefix %v", key, eqPrefix)
		}
	}
	return &singletonStream{doc, key, order, fields, eqPrefix}, nil
}

func (s *singletonStream) Order() Order { return s.order }
func (s *singletonStream) IndexFields() []string { return s.fields }
func (s *singletonStream) EqualityPrefix() []any { return s.eqPrefix }

func (s *singletonStream) Narrow(bounds IndexBounds) Stream {
	if !bounds.Contains(s.key) {
		return Empty(s.order, s.fields)
	}
	return s
}

func (s *singletonStream) Iterate() Iterator {
	done := false
	return iteratorFunc(func(ctx context.Context) (Item, bool, error) {
		if done {
			return Item{}, false, nil
		}
		done = true
		return Item{Doc: s.doc, Key: s.key}, true, nil
	})
}

type emptyStream struct {
	order  Order
	fields []string
}

// Empty is a stream with no items.
func Empty(order Order, fields []string) Stream {
	return &emptyStream{order, fields}
}

func (s *emptyStream) Order() Order { return s.order }
func (s *emptyStream) IndexFields() []string { return s.fields }
func (s *emptyStream) EqualityPrefix() []any { return nil }
func (s *emptyStream) Narrow(IndexBounds) Stream { return s }
func (s *emptyStream) Iterate() Iterator { return iteratorFunc(exhausted) }
