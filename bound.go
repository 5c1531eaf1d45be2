package ixscan

import (
	"fmt"
	"strings"
)

type BoundKind int

const (
	Eq BoundKind = iota
	Lt
	Lte
	Gt
	Gte
)

func (k BoundKind) String() string {
	switch k {
	case Eq:
		return "eq"
	case Lt:
		return "lt"
	case Lte:
		return "lte"
	case Gt:
		return "gt"
	case Gte:
		return "gte"
	default:
		return fmt.Sprintf("BoundKind(%d)", int(k))
	}
}

func (k BoundKind) isLower() bool { return k == Gt || k == Gte }
func (k BoundKind) isUpper() bool { return k == Lt || k == Lte }

// Bound is a single comparison term of a native scan predicate.
type Bound struct {
	Kind  BoundKind
	Field string
	Value any
}

func (b Bound) String() string {
	return fmt.Sprintf("%s(%s, %v)", b.Kind, b.Field, b.Value)
}

// Predicate is a conjunction of bounds the store scans natively: equalities
// over a prefix of the index fields, then at most one lower and one upper
// bound on the next field.
type Predicate []Bound

func (p Predicate) String() string {
	parts := make([]string, len(p))
	for i, b := range p {
		parts[i] = b.String()
	}
	return strings.Join(parts, " && ")
}

// PredicateShape is a validated predicate split into its parts.
type PredicateShape struct {
	Eqs   []any
	Lower *Bound
	Upper *Bound
}

// ValidatePredicate checks p against the native predicate grammar over the
// given index fields.
func ValidatePredicate(fields []string, p Predicate) (PredicateShape, error) {
	var shape PredicateShape
	i := 0
	for i < len(p) && p[i].Kind == Eq {
		if i >= len(fields) {
			return shape, fmt.Errorf("%w: %v: more equalities than index fields %v", ErrInvalidPredicate, p, fields)
		}
		if p[i].Field != fields[i] {
			return shape, fmt.Errorf("%w: %v: equality on %q at position %d, expected %q", ErrInvalidPredicate, p, p[i].Field, i, fields[i])
		}
		shape.Eqs = append(shape.Eqs, p[i].Value)
		i++
	}
	rest := p[i:]
	if len(rest) == 0 {
		return shape, nil
	}
	if i >= len(fields) {
		return shape, fmt.Errorf("%w: %v: no index field left for range", ErrInvalidPredicate, p)
	}
	field := fields[i]
	for j := range rest {
		b := &rest[j]
		if b.Field != field {
			return shape, fmt.Errorf("%w: %v: range on %q, expected %q", ErrInvalidPredicate, p, b.Field, field)
		}
		switch {
		case b.Kind.isLower():
			if shape.Lower != nil {
				return shape, fmt.Errorf("%w: %v: two lower bounds on %q", ErrInvalidPredicate, p, field)
			}
			shape.Lower = b
		case b.Kind.isUpper():
			if shape.Upper != nil {
				return shape, fmt.Errorf("%w: %v: two upper bounds on %q", ErrInvalidPredicate, p, field)
			}
			shape.Upper = b
		default:
			return shape, fmt.Errorf("%w: %v: equality after range on %q", ErrInvalidPredicate, p, field)
		}
	}
	return shape, nil
}
