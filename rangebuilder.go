package ixscan

import "fmt"

// RangeBuilder accumulates an index range: equalities over a prefix of the
// index fields, then an optional lower and/or upper bound on the next field.
// The first illegal call is remembered and reported by Finish; later calls
// are ignored.
type RangeBuilder struct {
	fields []string

	eqs            IndexKey
	lower, upper   any
	hasLower       bool
	hasUpper       bool
	lowerInclusive bool
	upperInclusive bool

	err error
}

func NewRangeBuilder(indexFields []string) *RangeBuilder {
	return &RangeBuilder{fields: indexFields}
}

func (b *RangeBuilder) fail(format string, args ...any) *RangeBuilder {
	b.err = contractErrf("range", nil, format, args...)
	return b
}

func (b *RangeBuilder) hasInequalitySuffix() bool {
	return b.hasLower || b.hasUpper
}

func (b *RangeBuilder) nextField() string {
	if len(b.eqs) < len(b.fields) {
		return b.fields[len(b.eqs)]
	}
	return ""
}

func (b *RangeBuilder) value(field string, v any) (any, bool) {
	nv, err := NormalizeValue(v)
	if err != nil {
		b.err = contractErrf("range", err, "%s", field)
		return nil, false
	}
	return nv, true
}

func (b *RangeBuilder) Eq(field string, v any) *RangeBuilder {
	if b.err != nil {
		return b
	}
	if b.hasInequalitySuffix() {
		return b.fail("eq(%s) after a range bound", field)
	}
	if next := b.nextField(); field != next {
		return b.fail("eq(%s) out of index order, expected %q of %v", field, next, b.fields)
	}
	nv, ok := b.value(field, v)
	if !ok {
		return b
	}
	b.eqs = append(b.eqs, nv)
	return b
}

func (b *RangeBuilder) checkRangeField(op, field string) bool {
	if next := b.nextField(); field != next {
		b.fail("%s(%s) out of index order, expected %q of %v", op, field, next, b.fields)
		return false
	}
	return true
}

func (b *RangeBuilder) lowerBound(op, field string, v any, inclusive bool) *RangeBuilder {
	if b.err != nil {
		return b
	}
	if b.hasLower {
		return b.fail("%s(%s): lower bound already set", op, field)
	}
	if !b.checkRangeField(op, field) {
		return b
	}
	nv, ok := b.value(field, v)
	if !ok {
		return b
	}
	b.lower, b.hasLower, b.lowerInclusive = nv, true, inclusive
	return b
}

func (b *RangeBuilder) upperBound(op, field string, v any, inclusive bool) *RangeBuilder {
	if b.err != nil {
		return b
	}
	if b.hasUpper {
		return b.fail("%s(%s): upper bound already set", op, field)
	}
	if !b.checkRangeField(op, field) {
		return b
	}
	nv, ok := b.value(field, v)
	if !ok {
		return b
	}
	b.upper, b.hasUpper, b.upperInclusive = nv, true, inclusive
	return b
}

func (b *RangeBuilder) Gt(field string, v any) *RangeBuilder {
	return b.lowerBound("gt", field, v, false)
}

func (b *RangeBuilder) Gte(field string, v any) *RangeBuilder {
	return b.lowerBound("gte", field, v, true)
}

func (b *RangeBuilder) Lt(field string, v any) *RangeBuilder {
	return b.upperBound("lt", field, v, false)
}

func (b *RangeBuilder) Lte(field string, v any) *RangeBuilder {
	return b.upperBound("lte", field, v, true)
}

// Finish returns the accumulated bounds, or the first error encountered.
func (b *RangeBuilder) Finish() (IndexBounds, error) {
	if b.err != nil {
		return IndexBounds{}, b.err
	}
	r := IndexBounds{
		LowerBound:          append(IndexKey(nil), b.eqs...),
		LowerBoundInclusive: true,
		UpperBound:          append(IndexKey(nil), b.eqs...),
		UpperBoundInclusive: true,
	}
	if b.hasLower {
		r.LowerBound = append(r.LowerBound, b.lower)
		r.LowerBoundInclusive = b.lowerInclusive
	}
	if b.hasUpper {
		r.UpperBound = append(r.UpperBound, b.upper)
		r.UpperBoundInclusive = b.upperInclusive
	}
	return r, nil
}

func (b *RangeBuilder) String() string {
	r, err := b.Finish()
	if err != nil {
		return fmt.Sprintf("<invalid range: %v>", err)
	}
	return r.String()
}
