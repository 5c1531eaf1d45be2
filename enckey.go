package ixscan

import (
	"fmt"
)

// Order-preserving key encoding: bytes.Compare on encoded values agrees with
// CompareValues. Every encoded value is self-delimiting, so a concatenation
// of encoded values orders like the corresponding IndexKey.
//
// Strings and bytes escape 0x00 as 00 FF and end with 00 01. Arrays and
// objects end with 0x00; each object entry starts with 0x01 followed by the
// escaped key and the value.
const (
	tagUndefined byte = 0x10
	tagNull      byte = 0x20
	tagInt       byte = 0x30
	tagFloat     byte = 0x40
	tagBool      byte = 0x50
	tagString    byte = 0x60
	tagBytes     byte = 0x70
	tagArray     byte = 0x80
	tagObject    byte = 0x90

	escByte   byte = 0x00
	escZero   byte = 0xFF
	escEnd    byte = 0x01
	endMarker byte = 0x00
	entryMark byte = 0x01
)

func appendKeyValue(buf []byte, v any) []byte {
	v = canonical(v)
	switch mustKindOf(v) {
	case kindUndefined:
		return append(buf, tagUndefined)
	case kindNull:
		return append(buf, tagNull)
	case kindInt:
		buf = append(buf, tagInt)
		return appendFixedUint64(buf, uint64(v.(int64))^(1<<63))
	case kindFloat:
		buf = append(buf, tagFloat)
		return appendFixedUint64(buf, floatOrderBits(v.(float64)))
	case kindBool:
		return append(buf, tagBool, byte(boolInt(v.(bool))))
	case kindString:
		buf = append(buf, tagString)
		return appendEscaped(buf, []byte(v.(string)))
	case kindBytes:
		buf = append(buf, tagBytes)
		return appendEscaped(buf, v.([]byte))
	case kindArray:
		buf = append(buf, tagArray)
		for _, el := range v.([]any) {
			buf = appendKeyValue(buf, el)
		}
		return append(buf, endMarker)
	case kindObject:
		obj := v.(map[string]any)
		buf = append(buf, tagObject)
		for _, k := range sortedKeys(obj) {
			buf = append(buf, entryMark)
			buf = appendEscaped(buf, []byte(k))
			buf = appendKeyValue(buf, obj[k])
		}
		return append(buf, endMarker)
	}
	panic("unreachable")
}

func appendEscaped(buf []byte, data []byte) []byte {
	for _, b := range data {
		if b == escByte {
			buf = append(buf, escByte, escZero)
		} else {
			buf = append(buf, b)
		}
	}
	return append(buf, escByte, escEnd)
}

// encodeKey encodes a sequence of values, typically an index key or a prefix.
func encodeKey(buf []byte, values []any) []byte {
	for _, v := range values {
		buf = appendKeyValue(buf, v)
	}
	return buf
}

// prefixSuccessor returns the smallest byte string greater than every string
// starting with prefix, or nil if there is none.
func prefixSuccessor(prefix []byte) []byte {
	n := len(prefix)
	for n > 0 && prefix[n-1] == 0xFF {
		n--
	}
	if n == 0 {
		return nil
	}
	out := appendRaw(nil, prefix[:n])
	out[n-1]++
	return out
}

func decodeKey(raw []byte) (IndexKey, error) {
	d := makeByteDecoder(raw)
	var key IndexKey
	for !d.Done() {
		v, err := d.keyValue()
		if err != nil {
			return nil, err
		}
		key = append(key, v)
	}
	return key, nil
}

func (d *byteDecoder) keyValue() (any, error) {
	off := d.Off()
	tag, err := d.Byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagUndefined:
		return Undefined, nil
	case tagNull:
		return nil, nil
	case tagInt:
		u, err := d.FixedUint64()
		if err != nil {
			return nil, err
		}
		return int64(u ^ (1 << 63)), nil
	case tagFloat:
		u, err := d.FixedUint64()
		if err != nil {
			return nil, err
		}
		return floatFromOrderBits(u), nil
	case tagBool:
		b, err := d.Byte()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case tagString:
		b, err := d.escaped()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case tagBytes:
		return d.escaped()
	case tagArray:
		arr := []any{}
		for {
			b, err := d.Peek()
			if err != nil {
				return nil, err
			}
			if b == endMarker {
				d.Buf = d.Buf[1:]
				return arr, nil
			}
			el, err := d.keyValue()
			if err != nil {
				return nil, err
			}
			arr = append(arr, el)
		}
	case tagObject:
		obj := map[string]any{}
		for {
			b, err := d.Byte()
			if err != nil {
				return nil, err
			}
			if b == endMarker {
				return obj, nil
			}
			if b != entryMark {
				return nil, dataErrf(d.Orig, d.Off()-1, nil, "invalid object entry marker 0x%02x", b)
			}
			k, err := d.escaped()
			if err != nil {
				return nil, err
			}
			el, err := d.keyValue()
			if err != nil {
				return nil, err
			}
			obj[string(k)] = el
		}
	default:
		return nil, dataErrf(d.Orig, off, nil, "invalid key tag 0x%02x", tag)
	}
}

func (d *byteDecoder) escaped() ([]byte, error) {
	out := []byte{}
	for {
		b, err := d.Byte()
		if err != nil {
			return nil, err
		}
		if b != escByte {
			out = append(out, b)
			continue
		}
		b, err = d.Byte()
		if err != nil {
			return nil, err
		}
		switch b {
		case escZero:
			out = append(out, 0)
		case escEnd:
			return out, nil
		default:
			return nil, dataErrf(d.Orig, d.Off()-1, nil, "invalid escape 0x00 0x%02x", b)
		}
	}
}

func keyString(raw []byte) string {
	key, err := decodeKey(raw)
	if err != nil {
		return fmt.Sprintf("<invalid %s: %v>", hexstr(raw), err)
	}
	return key.String()
}
