package ixscan

import (
	"fmt"
	"slices"
)

// SplitRange decomposes the composite range from start (startKind Gt or Gte)
// to end (endKind Lt or Lte) into native predicates. Scanning the predicates
// in order, each ascending, visits exactly the keys of the range in ascending
// order; reverse both for a descending scan.
//
// For example, over fields (a, b) the range [(1, 5) .. (3, 2)] splits into
//
//	a == 1 && b >= 5
//	a > 1 && a < 3
//	a == 3 && b <= 2
func SplitRange(indexFields []string, start IndexKey, startKind BoundKind, end IndexKey, endKind BoundKind) []Predicate {
	if !startKind.isLower() || !endKind.isUpper() {
		panic(fmt.Errorf("SplitRange: invalid bound kinds %v, %v", startKind, endKind))
	}
	if len(start) > len(indexFields) || len(end) > len(indexFields) {
		panic(fmt.Errorf("SplitRange: bounds %v, %v are longer than index fields %v", start, end, indexFields))
	}

	var common Predicate
	for len(start) > 0 && len(end) > 0 && CompareValues(start[0], end[0]) == 0 {
		common = append(common, Bound{Eq, indexFields[0], start[0]})
		indexFields, start, end = indexFields[1:], start[1:], end[1:]
	}

	// An exclusive bound equal to the shared prefix excludes every key of
	// that prefix, and the other bound cannot leave the prefix.
	if (len(start) == 0 && startKind == Gt) || (len(end) == 0 && endKind == Lt) {
		return nil
	}

	compare := func(kind BoundKind, key IndexKey) Predicate {
		p := make(Predicate, 0, len(common)+len(key))
		p = append(p, common...)
		for i := 0; i < len(key)-1; i++ {
			p = append(p, Bound{Eq, indexFields[i], key[i]})
		}
		if n := len(key); n > 0 {
			p = append(p, Bound{kind, indexFields[n-1], key[n-1]})
		}
		return p
	}

	var startPreds []Predicate
	for len(start) > 1 {
		startPreds = append(startPreds, compare(startKind, start))
		start = start[:len(start)-1]
		startKind = Gt
	}

	var endPreds []Predicate
	for len(end) > 1 {
		endPreds = append(endPreds, compare(endKind, end))
		end = end[:len(end)-1]
		endKind = Lt
	}
	slices.Reverse(endPreds)

	var middle Predicate
	switch {
	case len(end) == 0:
		middle = compare(startKind, start)
	case len(start) == 0:
		middle = compare(endKind, end)
	default:
		middle = make(Predicate, 0, len(common)+2)
		middle = append(middle, common...)
		middle = append(middle, Bound{startKind, indexFields[0], start[0]}, Bound{endKind, indexFields[0], end[0]})
	}

	result := make([]Predicate, 0, len(startPreds)+1+len(endPreds))
	result = append(result, startPreds...)
	result = append(result, middle)
	return append(result, endPreds...)
}
