package ixscan

import (
	"context"
	"log/slog"
	"slices"
)

const (
	debugLogScans = false
)

// ScanStream is a leaf stream backed by one logical range over a store index.
type ScanStream struct {
	reader   Reader
	table    string
	index    string
	fields   []string
	bounds   IndexBounds
	order    Order
	eqPrefix []any
}

// NewScanStream builds a stream over table.index restricted to bounds.
func NewScanStream(r Reader, schema SchemaLookup, table, index string, bounds IndexBounds, order Order) (*ScanStream, error) {
	fields, err := schema.IndexFields(table, index)
	if err != nil {
		return nil, err
	}
	if len(bounds.LowerBound) > len(fields) || len(bounds.UpperBound) > len(fields) {
		return nil, contractErrf("scan", nil, "%s.%s: bounds %v are longer than index fields %v", table, index, bounds, fields)
	}
	bounds.LowerBound = slices.Clone(bounds.LowerBound)
	bounds.UpperBound = slices.Clone(bounds.UpperBound)
	for _, key := range []IndexKey{bounds.LowerBound, bounds.UpperBound} {
		for i, v := range key {
			nv, err := NormalizeValue(v)
			if err != nil {
				return nil, contractErrf("scan", err, "%s.%s: bound on %s", table, index, fields[i])
			}
			key[i] = nv
		}
	}
	return &ScanStream{
		reader:   r,
		table:    table,
		index:    index,
		fields:   fields,
		bounds:   bounds,
		order:    order,
		eqPrefix: commonPrefix(bounds.LowerBound, bounds.UpperBound),
	}, nil
}

func (s *ScanStream) Table() string { return s.table }
func (s *ScanStream) Index() string { return s.index }
func (s *ScanStream) Bounds() IndexBounds { return s.bounds }
func (s *ScanStream) Order() Order { return s.order }
func (s *ScanStream) IndexFields() []string { return s.fields }
func (s *ScanStream) EqualityPrefix() []any { return s.eqPrefix }

func (s *ScanStream) Narrow(bounds IndexBounds) Stream {
	ns := *s
	ns.bounds = s.bounds.Intersect(bounds)
	return &ns
}

// Predicates returns the native predicates the stream scans, in scan order.
func (s *ScanStream) Predicates() []Predicate {
	if s.bounds.IsEmpty() {
		return nil
	}
	lowerKind, upperKind := Gt, Lt
	if s.bounds.LowerBoundInclusive {
		lowerKind = Gte
	}
	if s.bounds.UpperBoundInclusive {
		upperKind = Lte
	}
	preds := SplitRange(s.fields, s.bounds.LowerBound, lowerKind, s.bounds.UpperBound, upperKind)
	if s.order == Desc {
		slices.Reverse(preds)
	}
	return preds
}

func (s *ScanStream) Iterate() Iterator {
	return &scanIterator{stream: s}
}

type scanIterator struct {
	stream  *ScanStream
	preds   []Predicate
	started bool
	cur     DocCursor
}

func (it *scanIterator) Next(ctx context.Context) (Item, bool, error) {
	s := it.stream
	if !it.started {
		it.started = true
		it.preds = s.Predicates()
	}
	for {
		if it.cur == nil {
			if len(it.preds) == 0 {
				return Item{}, false, nil
			}
			if err := ctx.Err(); err != nil {
				return Item{}, false, err
			}
			pred := it.preds[0]
			it.preds = it.preds[1:]
			if debugLogScans {
				slog.Default().LogAttrs(ctx, slog.LevelDebug, "scan", slog.String("table", s.table), slog.String("index", s.index), slog.String("pred", pred.String()), slog.String("order", s.order.String()))
			}
			cur, err := s.reader.RangeScan(ctx, s.table, s.index, pred, s.order)
			if err != nil {
				return Item{}, false, err
			}
			it.cur = cur
		}
		doc, ok, err := it.cur.Next(ctx)
		if err != nil {
			return Item{}, false, err
		}
		if !ok {
			it.cur = nil
			continue
		}
		return Item{Doc: doc, Key: KeyOf(doc, s.fields)}, true, nil
	}
}
