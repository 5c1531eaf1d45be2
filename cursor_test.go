package ixscan

import (
	"errors"
	"math"
	"testing"
)

func TestCursor_RoundTrip(t *testing.T) {
	tests := []IndexKey{
		{},
		{"abc", Undefined, "xundefined", "_undefined", int64(42)},
		{nil, true, false, 1.5, "", "undefined"},
		{int64(math.MinInt64), int64(-1), math.Inf(1), math.Inf(-1), math.Copysign(0, -1), 0.0},
		{[]byte("hi"), []any{int64(1), "a", nil}, map[string]any{"k": []byte{0}, "n": 2.5}},
		{"<html> & \"quotes\""},
	}
	for _, key := range tests {
		c, err := SerializeCursor(key)
		if err != nil {
			t.Fatalf("** SerializeCursor(%v): %v", key, err)
		}
		decoded, err := DeserializeCursor(c)
		if err != nil {
			t.Fatalf("** DeserializeCursor(%s): %v", c, err)
		}
		if len(decoded) != len(key) {
			t.Fatalf("** %s decoded to %v, wanted %v", c, decoded, key)
		}
		for i := range key {
			if CompareValues(decoded[i], key[i]) != 0 || mustKindOf(decoded[i]) != mustKindOf(key[i]) {
				t.Errorf("** %s position %d: got %#v, wanted %#v", c, i, decoded[i], key[i])
			}
		}
	}
}

func TestCursor_NaN(t *testing.T) {
	c, err := SerializeCursor(IndexKey{math.NaN()})
	if err != nil {
		t.Fatal(err)
	}
	key, err := DeserializeCursor(c)
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := key[0].(float64); !ok || !math.IsNaN(f) {
		t.Errorf("** got %#v, wanted NaN", key[0])
	}
}

func TestCursor_Format(t *testing.T) {
	tests := []struct {
		key  IndexKey
		want string
	}{
		{IndexKey{}, `[]`},
		{IndexKey{"abc", Undefined, "xundefined"}, `["abc","undefined","_xundefined"]`},
		{IndexKey{int64(1)}, `[{"$integer":"AQAAAAAAAAA="}]`},
		{IndexKey{1.5, nil, true}, `[1.5,null,true]`},
		{IndexKey{[]byte{1, 2}}, `[{"$bytes":"AQI="}]`},
		{IndexKey{"<a>"}, `["<a>"]`},
	}
	for _, tt := range tests {
		got, err := SerializeCursor(tt.key)
		if err != nil {
			t.Errorf("** SerializeCursor(%v): %v", tt.key, err)
			continue
		}
		deepEqual(t, got, tt.want)
	}
}

func TestCursor_Invalid(t *testing.T) {
	for _, c := range []string{
		``,
		`{}`,
		`[1] [2]`,
		`[{"$integer":"AQ=="}]`,
		`[{"$integer":1}]`,
		`[{"$bogus":"AQ=="}]`,
		`[{"$bytes":"!!"}]`,
		`["xundefined"]`,
		`[1, "aundefined"]`,
	} {
		_, err := DeserializeCursor(c)
		if !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("** DeserializeCursor(%q) = %v, wanted ErrInvalidCursor", c, err)
		}
	}

	for _, key := range []IndexKey{
		{[]any{Undefined}},
		{map[string]any{"$x": 1}},
		{struct{}{}},
	} {
		_, err := SerializeCursor(key)
		if !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("** SerializeCursor(%v) = %v, wanted ErrInvalidCursor", key, err)
		}
	}
}

func TestCursor_NumbersDecodeAsFloat(t *testing.T) {
	key, err := DeserializeCursor(`[3, {"a": 4}]`)
	if err != nil {
		t.Fatal(err)
	}
	deepEqual(t, key, IndexKey{3.0, map[string]any{"a": 4.0}})
}
