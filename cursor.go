package ixscan

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	undefinedCursorValue = "undefined"

	jsonIntegerKey = "$integer"
	jsonFloatKey   = "$float"
	jsonBytesKey   = "$bytes"
)

// SerializeCursor encodes a key as a portable JSON array. Undefined, which
// JSON cannot carry, is written as the string "undefined"; strings ending in
// "undefined" get a "_" prefix to keep the two apart.
func SerializeCursor(key IndexKey) (string, error) {
	arr := make([]any, len(key))
	for i, v := range key {
		if _, ok := v.(UndefinedValue); ok {
			arr[i] = undefinedCursorValue
			continue
		}
		if s, ok := v.(string); ok && strings.HasSuffix(s, undefinedCursorValue) {
			v = "_" + s
		}
		jv, err := valueToJSON(v)
		if err != nil {
			return "", fmt.Errorf("%w: key %v position %d: %w", ErrInvalidCursor, key, i, err)
		}
		arr[i] = jv
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(arr); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// DeserializeCursor reverses SerializeCursor.
func DeserializeCursor(cursor string) (IndexKey, error) {
	dec := json.NewDecoder(strings.NewReader(cursor))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidCursor, cursor, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: %q: trailing data", ErrInvalidCursor, cursor)
	}
	key := make(IndexKey, len(raw))
	for i, jv := range raw {
		v, err := valueFromJSON(jv)
		if err != nil {
			return nil, fmt.Errorf("%w: %q position %d: %w", ErrInvalidCursor, cursor, i, err)
		}
		if s, ok := v.(string); ok {
			if s == undefinedCursorValue {
				v = Undefined
			} else if strings.HasSuffix(s, undefinedCursorValue) {
				if !strings.HasPrefix(s, "_") {
					return nil, fmt.Errorf("%w: %q position %d: %q is missing its _ escape", ErrInvalidCursor, cursor, i, s)
				}
				v = s[1:]
			}
		}
		key[i] = v
	}
	return key, nil
}

func valueToJSON(v any) (any, error) {
	v = canonical(v)
	switch v := v.(type) {
	case nil, bool, string:
		return v, nil
	case int64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v))
		return map[string]any{jsonIntegerKey: base64.StdEncoding.EncodeToString(b[:])}, nil
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) || (v == 0 && math.Signbit(v)) {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
			return map[string]any{jsonFloatKey: base64.StdEncoding.EncodeToString(b[:])}, nil
		}
		return v, nil
	case []byte:
		return map[string]any{jsonBytesKey: base64.StdEncoding.EncodeToString(v)}, nil
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			jv, err := valueToJSON(el)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, el := range v {
			if strings.HasPrefix(k, "$") {
				return nil, fmt.Errorf("field name %q starts with $", k)
			}
			jv, err := valueToJSON(el)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = jv
		}
		return out, nil
	case UndefinedValue:
		return nil, fmt.Errorf("undefined is only allowed at the top level")
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func valueFromJSON(jv any) (any, error) {
	switch jv := jv.(type) {
	case nil, bool, string:
		return jv, nil
	case json.Number:
		f, err := strconv.ParseFloat(string(jv), 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case []any:
		out := make([]any, len(jv))
		for i, el := range jv {
			v, err := valueFromJSON(el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		if len(jv) == 1 {
			for k, el := range jv {
				if !strings.HasPrefix(k, "$") {
					break
				}
				s, ok := el.(string)
				if !ok {
					return nil, fmt.Errorf("%s: expected a base64 string, got %T", k, el)
				}
				return decodeSpecialJSON(k, s)
			}
		}
		out := make(map[string]any, len(jv))
		for k, el := range jv {
			v, err := valueFromJSON(el)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected JSON value %T", jv)
	}
}

func decodeSpecialJSON(k, s string) (any, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	switch k {
	case jsonBytesKey:
		return b, nil
	case jsonIntegerKey, jsonFloatKey:
		if len(b) != 8 {
			return nil, fmt.Errorf("%s: expected 8 bytes, got %d", k, len(b))
		}
		u := binary.LittleEndian.Uint64(b)
		if k == jsonIntegerKey {
			return int64(u), nil
		}
		return math.Float64frombits(u), nil
	default:
		return nil, fmt.Errorf("unknown special value %s", k)
	}
}
