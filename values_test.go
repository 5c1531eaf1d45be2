package ixscan

import (
	"errors"
	"math"
	"testing"
)

// orderedValues lists one value per position in strictly ascending order.
var orderedValues = []any{
	Undefined,
	nil,
	int64(math.MinInt64),
	int64(-1),
	int64(0),
	int64(1),
	int64(math.MaxInt64),
	math.Inf(-1),
	-1.5,
	math.Copysign(0, -1),
	0.0,
	1e-300,
	2.5,
	math.Inf(1),
	math.NaN(),
	false,
	true,
	"",
	"\x00",
	"a",
	"a\x00",
	"a\x00b",
	"ab",
	"b",
	[]byte{},
	[]byte{0},
	[]byte{0, 1},
	[]byte{1},
	[]any{},
	[]any{nil},
	[]any{int64(1)},
	[]any{int64(1), int64(2)},
	[]any{"a"},
	map[string]any{},
	map[string]any{"a": int64(1)},
	map[string]any{"a": int64(2)},
	map[string]any{"a": int64(2), "b": nil},
	map[string]any{"b": int64(0)},
}

func sign(c int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	default:
		return 0
	}
}

func TestCompareValues_Order(t *testing.T) {
	for i, a := range orderedValues {
		for j, b := range orderedValues {
			want := sign(i - j)
			if got := sign(CompareValues(a, b)); got != want {
				t.Errorf("** CompareValues(%#v, %#v) = %d, wanted %d", a, b, got, want)
			}
		}
	}
}

func TestCompareValues_Canonical(t *testing.T) {
	tests := []struct {
		a, b any
		want int
	}{
		{1, int64(1), 0},
		{int32(-5), int64(-5), 0},
		{uint8(200), int64(200), 0},
		{float32(1.5), 1.5, 0},
		{1, 1.0, -1},
		{Document{"a": 1}, map[string]any{"a": int64(1)}, 0},
		{IndexKey{1, "x"}, []any{int64(1), "x"}, 0},
		{[]any{1, []any{2}}, []any{int64(1), []any{int64(3)}}, -1},
	}
	for _, tt := range tests {
		if got := sign(CompareValues(tt.a, tt.b)); got != tt.want {
			t.Errorf("** CompareValues(%#v, %#v) = %d, wanted %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareValues_PanicsOnUnsupported(t *testing.T) {
	assertPanics(t, func() { CompareValues(struct{}{}, 1) })
	assertPanics(t, func() { CompareValues(uint64(math.MaxUint64), 1) })
}

func TestNormalizeValue(t *testing.T) {
	v, err := NormalizeValue(map[string]any{"a": []any{1, uint16(2), Document{"x": float32(0.5)}}})
	if err != nil {
		t.Fatal(err)
	}
	deepEqual(t, v, any(map[string]any{"a": []any{int64(1), int64(2), map[string]any{"x": 0.5}}}))

	_, err = NormalizeValue([]any{1, struct{}{}})
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("** got %v, wanted ErrUnsupportedValue", err)
	}
	_, err = NormalizeValue(map[string]any{"a": map[string]any{"b": make(chan int)}})
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("** got %v, wanted ErrUnsupportedValue", err)
	}
}

func TestFieldValue(t *testing.T) {
	doc := Document{
		"a":    int64(1),
		"meta": map[string]any{"rank": int64(3), "tags": []any{"x"}},
		"nil":  nil,
	}
	deepEqual(t, FieldValue(doc, "a"), any(int64(1)))
	deepEqual(t, FieldValue(doc, "meta.rank"), any(int64(3)))
	deepEqual(t, FieldValue(doc, "nil"), any(nil))
	deepEqual(t, FieldValue(doc, "missing"), any(Undefined))
	deepEqual(t, FieldValue(doc, "a.b"), any(Undefined))
	deepEqual(t, FieldValue(doc, "meta.tags.x"), any(Undefined))
	deepEqual(t, FieldValue(doc, "meta.none"), any(Undefined))

	deepEqual(t, KeyOf(doc, []string{"meta.rank", "missing", "a"}), IndexKey{int64(3), Undefined, int64(1)})
}

func TestDocument_Accessors(t *testing.T) {
	doc := Document{fieldID: "abc", fieldCreationTime: 12.5}
	deepEqual(t, doc.ID(), "abc")
	deepEqual(t, doc.CreationTime(), 12.5)
	deepEqual(t, Document{}.ID(), "")
}
