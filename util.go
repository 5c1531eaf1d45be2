package ixscan

import (
	"encoding/hex"
	"log/slog"
	"strings"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func nonNil[T any](v T) T {
	if any(v) == nil {
		panic("nil")
	}
	return v
}

func splitByte(s string, sep byte) (string, string, bool) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return s, "", false
	} else {
		return s[:i], s[i+1:], true
	}
}

func rpad(s string, n int, pad rune) string {
	rem := n - len(s)
	if rem <= 0 {
		return s
	}
	return s + strings.Repeat(string(pad), rem)
}

// seekFirst positions c on the first key >= lo.
func seekFirst(c storageCursor, lo []byte) ([]byte, []byte) {
	if len(lo) == 0 {
		return c.First()
	}
	return c.Seek(lo)
}

// seekBefore positions c on the last key < hi (the last key at all if hi is
// nil).
func seekBefore(c storageCursor, hi []byte) ([]byte, []byte) {
	if hi == nil {
		return c.Last()
	}
	k, _ := c.Seek(hi)
	if k == nil {
		return c.Last()
	}
	return c.Prev()
}

func advance(c storageCursor, reverse bool) ([]byte, []byte) {
	if reverse {
		return c.Prev()
	} else {
		return c.Next()
	}
}

func hexstr(b []byte) string {
	if b == nil {
		return "<nil>"
	}
	if len(b) == 0 {
		return "<empty>"
	}
	return hex.EncodeToString(b)
}

func hexAttr(key string, b []byte) slog.Attr {
	return slog.String(key, hexstr(b))
}

func keyAttr(key string, k IndexKey) slog.Attr {
	return slog.String(key, k.String())
}
