package ixscan

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeKey_OrderMatchesCompareValues(t *testing.T) {
	for i, a := range orderedValues {
		ea := appendKeyValue(nil, a)
		for j, b := range orderedValues {
			eb := appendKeyValue(nil, b)
			if got, want := bytes.Compare(ea, eb), sign(i-j); got != want {
				t.Errorf("** bytes.Compare(enc(%#v), enc(%#v)) = %d, wanted %d\n%x\n%x", a, b, got, want, ea, eb)
			}
		}
	}
}

func TestEncodeKey_CompositeOrder(t *testing.T) {
	vals := []any{nil, int64(1), int64(2), "", "a", "a\x00", []any{"a"}, []byte{0}}
	var keys []IndexKey
	for _, a := range vals {
		for _, b := range vals {
			keys = append(keys, IndexKey{a, b})
		}
	}
	for _, k1 := range keys {
		e1 := encodeKey(nil, k1)
		for _, k2 := range keys {
			e2 := encodeKey(nil, k2)
			if got, want := bytes.Compare(e1, e2), sign(compareExact(k1, k2)); got != want {
				t.Errorf("** bytes.Compare(enc(%v), enc(%v)) = %d, wanted %d", k1, k2, got, want)
			}
		}
	}
}

func TestDecodeKey_RoundTrip(t *testing.T) {
	key := IndexKey(orderedValues)
	raw := encodeKey(nil, key)
	decoded, err := decodeKey(raw)
	if err != nil {
		t.Fatalf("decodeKey: %v", err)
	}
	if len(decoded) != len(key) {
		t.Fatalf("** decoded %d values, wanted %d", len(decoded), len(key))
	}
	for i := range key {
		if CompareValues(decoded[i], key[i]) != 0 {
			t.Errorf("** value %d: got %#v, wanted %#v", i, decoded[i], key[i])
		}
		if mustKindOf(decoded[i]) != mustKindOf(key[i]) {
			t.Errorf("** value %d: got kind %v, wanted %v", i, mustKindOf(decoded[i]), mustKindOf(key[i]))
		}
	}

	empty, err := decodeKey(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("** decodeKey(nil) = %v, %v", empty, err)
	}
}

func TestDecodeKey_Errors(t *testing.T) {
	for _, raw := range [][]byte{
		{0x01},
		{tagInt, 1, 2},
		{tagString, 'a'},
		{tagString, 'a', 0x00, 0x05},
		{tagArray, tagNull},
		{tagObject, 0x07},
		{tagBool},
	} {
		_, err := decodeKey(raw)
		var de *DataError
		if !errors.As(err, &de) {
			t.Errorf("** decodeKey(%x) = %v, wanted *DataError", raw, err)
		}
	}
}

func TestPrefixSuccessor(t *testing.T) {
	tests := []struct {
		in, want []byte
	}{
		{[]byte{1, 2}, []byte{1, 3}},
		{[]byte{1, 0xFF}, []byte{2}},
		{[]byte{0xFF, 0xFF}, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		got := prefixSuccessor(tt.in)
		if !bytes.Equal(got, tt.want) || (got == nil) != (tt.want == nil) {
			t.Errorf("** prefixSuccessor(%x) = %x, wanted %x", tt.in, got, tt.want)
		}
	}

	prefix := encodeKey(nil, []any{"a"})
	succ := prefixSuccessor(prefix)
	for _, ext := range []IndexKey{{"a", nil}, {"a", "zzz"}, {"a", map[string]any{"z": true}}} {
		if e := encodeKey(nil, ext); bytes.Compare(e, succ) >= 0 || bytes.Compare(e, prefix) <= 0 {
			t.Errorf("** enc(%v) = %x not within (%x, %x)", ext, e, prefix, succ)
		}
	}
	if e := encodeKey(nil, []any{"a\x00"}); bytes.Compare(e, succ) < 0 {
		t.Errorf("** enc(a\\x00) = %x sorts below successor %x", e, succ)
	}
}

func TestKeyString(t *testing.T) {
	deepEqual(t, keyString(encodeKey(nil, []any{"x", int64(2), nil})), "[x 2 <nil>]")
	deepEqual(t, keyString([]byte{0x01}), "<invalid 01: invalid key tag 0x01 at 0: (1) 01>")
}
