package ixscan

import (
	"cmp"
	"fmt"
	"slices"
)

// IndexKey holds one value per index field, in index order. It may be a
// prefix of the full field list.
type IndexKey []any

func (key IndexKey) String() string {
	return fmt.Sprint([]any(key))
}

// BoundaryKind tells whether a Key denotes a real document position or a
// synthetic boundary around every key extending its value.
type BoundaryKind int

const (
	Exact BoundaryKind = iota
	Successor
	Predecessor
)

func (k BoundaryKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Successor:
		return "successor"
	case Predecessor:
		return "predecessor"
	default:
		return fmt.Sprintf("BoundaryKind(%d)", int(k))
	}
}

func (k BoundaryKind) rank() int {
	switch k {
	case Predecessor:
		return -1
	case Successor:
		return 1
	default:
		return 0
	}
}

// Key is a comparison key: an IndexKey plus its boundary kind.
type Key struct {
	Value IndexKey
	Kind  BoundaryKind
}

func ExactKey(v IndexKey) Key { return Key{Value: v, Kind: Exact} }

func (k Key) String() string {
	return fmt.Sprintf("%s%v", k.Kind, k.Value)
}

// CompareKeys orders keys of possibly different lengths. A Successor key lies
// above every key extending its value, a Predecessor key below every such key.
//
// Comparing two Exact keys of different lengths is a programming error and
// panics.
func CompareKeys(k1, k2 Key) int {
	n1, n2 := len(k1.Value), len(k2.Value)
	for i := 0; i < n1 && i < n2; i++ {
		if c := CompareValues(k1.Value[i], k2.Value[i]); c != 0 {
			return c
		}
	}
	switch {
	case n1 < n2:
		return compareDanglingSuffix(k1, k2)
	case n1 > n2:
		return -compareDanglingSuffix(k2, k1)
	}
	return cmp.Compare(k1.Kind.rank(), k2.Kind.rank())
}

func compareDanglingSuffix(shorter, longer Key) int {
	switch shorter.Kind {
	case Successor:
		return 1
	case Predecessor:
		return -1
	default:
		if longer.Kind == Exact {
			panic(fmt.Errorf("exact keys are not the same length: %v (%d) vs %v (%d)", shorter.Value, len(shorter.Value), longer.Value, len(longer.Value)))
		}
		return -1
	}
}

func compareExact(a, b IndexKey) int {
	return CompareKeys(ExactKey(a), ExactKey(b))
}

// IndexBounds is the logical two-sided range a stream is scoped to.
type IndexBounds struct {
	LowerBound          IndexKey
	LowerBoundInclusive bool
	UpperBound          IndexKey
	UpperBoundInclusive bool
}

// FullRange covers every key.
func FullRange() IndexBounds {
	return IndexBounds{LowerBoundInclusive: true, UpperBoundInclusive: true}
}

func (b IndexBounds) String() string {
	l, u := "(", ")"
	if b.LowerBoundInclusive {
		l = "["
	}
	if b.UpperBoundInclusive {
		u = "]"
	}
	return fmt.Sprintf("%s%v .. %v%s", l, b.LowerBound, b.UpperBound, u)
}

func (b IndexBounds) LowerKey() Key {
	if b.LowerBoundInclusive {
		return Key{b.LowerBound, Predecessor}
	}
	return Key{b.LowerBound, Successor}
}

func (b IndexBounds) UpperKey() Key {
	if b.UpperBoundInclusive {
		return Key{b.UpperBound, Successor}
	}
	return Key{b.UpperBound, Predecessor}
}

// IsEmpty reports whether no key can fall within the bounds.
func (b IndexBounds) IsEmpty() bool {
	return CompareKeys(b.LowerKey(), b.UpperKey()) >= 0
}

// Contains reports whether an exact key lies within the bounds.
func (b IndexBounds) Contains(key IndexKey) bool {
	k := ExactKey(key)
	return CompareKeys(b.LowerKey(), k) < 0 && CompareKeys(k, b.UpperKey()) < 0
}

// Intersect returns the tighter of each pair of bounds.
func (b IndexBounds) Intersect(o IndexBounds) IndexBounds {
	r := b
	if CompareKeys(o.LowerKey(), b.LowerKey()) > 0 {
		r.LowerBound, r.LowerBoundInclusive = o.LowerBound, o.LowerBoundInclusive
	}
	if CompareKeys(o.UpperKey(), b.UpperKey()) < 0 {
		r.UpperBound, r.UpperBoundInclusive = o.UpperBound, o.UpperBoundInclusive
	}
	return r
}

func (b IndexBounds) withPrefix(prefix []any) IndexBounds {
	if len(prefix) == 0 {
		return b
	}
	b.LowerBound = concatKeys(prefix, b.LowerBound)
	b.UpperBound = concatKeys(prefix, b.UpperBound)
	return b
}

func (b IndexBounds) truncated(n int) IndexBounds {
	if len(b.LowerBound) > n {
		b.LowerBound = b.LowerBound[:n:n]
	}
	if len(b.UpperBound) > n {
		b.UpperBound = b.UpperBound[:n:n]
	}
	return b
}

func concatKeys(a []any, b []any) IndexKey {
	out := make(IndexKey, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func commonPrefix(a, b []any) []any {
	n := 0
	for n < len(a) && n < len(b) && CompareValues(a[n], b[n]) == 0 {
		n++
	}
	return slices.Clip(a[:n])
}
