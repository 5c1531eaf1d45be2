package ixscan

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Documents are stored as msgpack maps with sorted keys. int64 and float64
// survive the round trip as distinct types, which the key order relies on.
// Undefined never reaches storage: fields holding it are dropped.

func encodeDocument(buf []byte, doc Document) []byte {
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.Reset(&bb)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(false)
	err := enc.Encode(map[string]any(doc))
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode document %s using MsgPack: %w", doc.ID(), err))
	}
	return bb.Buf
}

func decodeDocument(buf []byte) (Document, error) {
	var r bytes.Reader
	r.Reset(buf)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	dec.UseLooseInterfaceDecoding(false)
	var m map[string]any
	err := dec.Decode(&m)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, dataErrf(buf, 0, err, "failed to decode msgpack document")
	}
	v, err := NormalizeValue(m)
	if err != nil {
		return nil, dataErrf(buf, 0, err, "unsupported value in stored document")
	}
	return Document(v.(map[string]any)), nil
}

// normalizeDocument deeply normalizes doc's values and drops Undefined
// fields at the top level. Nested Undefined values cannot be stored.
func normalizeDocument(doc Document) (Document, error) {
	out := make(Document, len(doc))
	for k, v := range doc {
		if _, ok := v.(UndefinedValue); ok {
			continue
		}
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		if containsUndefined(nv) {
			return nil, fmt.Errorf("%s: %w: nested undefined", k, ErrUnsupportedValue)
		}
		out[k] = nv
	}
	return out, nil
}

func containsUndefined(v any) bool {
	switch v := v.(type) {
	case UndefinedValue:
		return true
	case []any:
		for _, el := range v {
			if containsUndefined(el) {
				return true
			}
		}
	case map[string]any:
		for _, el := range v {
			if containsUndefined(el) {
				return true
			}
		}
	}
	return false
}
