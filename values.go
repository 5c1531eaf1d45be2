package ixscan

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// UndefinedValue is the type of Undefined.
type UndefinedValue struct{}

func (UndefinedValue) String() string { return "undefined" }

// Undefined marks a missing field or an unset key position. It sorts before
// every other value, including nil.
var Undefined = UndefinedValue{}

const (
	fieldID           = "_id"
	fieldCreationTime = "_creationTime"
)

// Document is a stored document. A nil Document inside an Item is a hole.
type Document map[string]any

func (doc Document) ID() string {
	id, _ := doc[fieldID].(string)
	return id
}

func (doc Document) CreationTime() float64 {
	ct, _ := doc[fieldCreationTime].(float64)
	return ct
}

type valueKind int

const (
	kindUndefined valueKind = iota
	kindNull
	kindInt
	kindFloat
	kindBool
	kindString
	kindBytes
	kindArray
	kindObject
)

func (k valueKind) String() string {
	return [...]string{"undefined", "null", "int64", "float64", "bool", "string", "bytes", "array", "object"}[k]
}

// canonical converts Go numeric types into int64/float64 and Document into a
// plain map. Containers are not converted deeply; comparison and encoding
// canonicalize each element as they reach it.
func canonical(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v)
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v)
		}
	case float32:
		return float64(v)
	case Document:
		return map[string]any(v)
	case IndexKey:
		return []any(v)
	}
	return v
}

func kindOf(v any) (valueKind, bool) {
	switch v.(type) {
	case UndefinedValue:
		return kindUndefined, true
	case nil:
		return kindNull, true
	case int64:
		return kindInt, true
	case float64:
		return kindFloat, true
	case bool:
		return kindBool, true
	case string:
		return kindString, true
	case []byte:
		return kindBytes, true
	case []any:
		return kindArray, true
	case map[string]any:
		return kindObject, true
	default:
		return 0, false
	}
}

func mustKindOf(v any) valueKind {
	k, ok := kindOf(v)
	if !ok {
		panic(fmt.Errorf("%w: %T", ErrUnsupportedValue, v))
	}
	return k
}

// NormalizeValue deeply converts v into the canonical value domain, returning
// ErrUnsupportedValue for anything the store cannot order.
func NormalizeValue(v any) (any, error) {
	v = canonical(v)
	k, ok := kindOf(v)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	switch k {
	case kindArray:
		arr := v.([]any)
		out := make([]any, len(arr))
		for i, el := range arr {
			nv, err := NormalizeValue(el)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case kindObject:
		obj := v.(map[string]any)
		out := make(map[string]any, len(obj))
		for key, el := range obj {
			nv, err := NormalizeValue(el)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = nv
		}
		return out, nil
	}
	return v, nil
}

// CompareValues is the store's total order over values:
// undefined < null < int64 < float64 < bool < string < bytes < array < object.
func CompareValues(a, b any) int {
	a, b = canonical(a), canonical(b)
	ka, kb := mustKindOf(a), mustKindOf(b)
	if ka != kb {
		return cmp.Compare(ka, kb)
	}
	switch ka {
	case kindUndefined, kindNull:
		return 0
	case kindInt:
		return cmp.Compare(a.(int64), b.(int64))
	case kindFloat:
		return cmp.Compare(floatOrderBits(a.(float64)), floatOrderBits(b.(float64)))
	case kindBool:
		return cmp.Compare(boolInt(a.(bool)), boolInt(b.(bool)))
	case kindString:
		return strings.Compare(a.(string), b.(string))
	case kindBytes:
		return bytes.Compare(a.([]byte), b.([]byte))
	case kindArray:
		aa, ba := a.([]any), b.([]any)
		for i := 0; i < len(aa) && i < len(ba); i++ {
			if c := CompareValues(aa[i], ba[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(aa), len(ba))
	case kindObject:
		ao, bo := a.(map[string]any), b.(map[string]any)
		ak, bk := sortedKeys(ao), sortedKeys(bo)
		for i := 0; i < len(ak) && i < len(bk); i++ {
			if c := strings.Compare(ak[i], bk[i]); c != 0 {
				return c
			}
			if c := CompareValues(ao[ak[i]], bo[bk[i]]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(ak), len(bk))
	}
	panic("unreachable")
}

// floatOrderBits maps IEEE-754 bits onto unsigned integers ordered like the
// floats themselves (-NaN < -Inf < ... < -0 < +0 < ... < +Inf < NaN).
func floatOrderBits(f float64) uint64 {
	b := math.Float64bits(f)
	if b>>63 != 0 {
		return ^b
	}
	return b | 1<<63
}

func floatFromOrderBits(u uint64) float64 {
	if u>>63 != 0 {
		return math.Float64frombits(u &^ (1 << 63))
	}
	return math.Float64frombits(^u)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// FieldValue reads a possibly dotted field path off a document. Missing
// fields (and paths through non-objects) yield Undefined.
func FieldValue(doc Document, path string) any {
	var cur any = map[string]any(doc)
	for {
		obj, ok := canonical(cur).(map[string]any)
		if !ok {
			return Undefined
		}
		head, rest, more := splitByte(path, '.')
		v, found := obj[head]
		if !found {
			return Undefined
		}
		if !more {
			return v
		}
		cur, path = v, rest
	}
}

// KeyOf extracts the index key of doc for the given index fields.
func KeyOf(doc Document, fields []string) IndexKey {
	key := make(IndexKey, len(fields))
	for i, f := range fields {
		key[i] = FieldValue(doc, f)
	}
	return key
}
