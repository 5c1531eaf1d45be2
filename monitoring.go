package ixscan

import (
	"encoding/json"
)

type TableStats struct {
	Rows      int
	IndexRows int

	DataSize   int64
	DataAlloc  int64
	IndexSize  int64
	IndexAlloc int64
}

func (ts *TableStats) TotalSize() int64 {
	return ts.DataSize + ts.IndexSize
}

func (ts *TableStats) TotalAlloc() int64 {
	return ts.DataAlloc + ts.IndexAlloc
}

func (tx *ReadTx) TableStats(table string) (TableStats, error) {
	tbl, err := tx.table(table)
	if err != nil {
		return TableStats{}, err
	}
	bs := tx.dataBucket(tbl).Stats()
	result := TableStats{
		Rows:      bs.KeyN,
		DataSize:  bs.LeafInuse,
		DataAlloc: bs.TotalAlloc(),
	}
	for _, idx := range tbl.indices {
		bs = tx.indexBucket(idx).Stats()
		result.IndexRows += bs.KeyN
		result.IndexSize += bs.LeafInuse
		result.IndexAlloc += bs.TotalAlloc()
	}
	return result, nil
}

// Size returns the size of the underlying database file, or 0 for in-memory
// stores.
func (tx *ReadTx) Size() int64 {
	return tx.stx.Size()
}

func loggableDoc(tbl *Table, doc Document) string {
	if doc == nil {
		return "<none>"
	}
	if tbl.suppressContent {
		return "<suppressed>"
	}
	return loggableVal(doc)
}

// MarshalJSON renders int64 as plain numbers, and bytes and non-finite
// floats the way cursors do.
func (doc Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonFriendly(map[string]any(doc)))
}

func loggableVal(v any) string {
	raw, err := json.Marshal(jsonFriendly(v))
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(raw)
}

// jsonFriendly renders bytes and non-finite floats the way cursors do.
func jsonFriendly(v any) any {
	switch v := v.(type) {
	case Document:
		return jsonFriendly(map[string]any(v))
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, el := range v {
			out[k] = jsonFriendly(el)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = jsonFriendly(el)
		}
		return out
	case UndefinedValue:
		return undefinedCursorValue
	case int64:
		return v
	default:
		if jv, err := valueToJSON(v); err == nil {
			return jv
		}
		return v
	}
}
