package ixscan

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpTableHeaders = DumpFlags(1 << iota)
	DumpRows
	DumpStats
	DumpIndices
	DumpIndexRows

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders tables, documents and index entries as text, for debugging
// and tests.
func (tx *ReadTx) Dump(f DumpFlags) string {
	var buf strings.Builder
	for _, tbl := range tx.store.schema.tables {
		tx.dumpTable(&buf, f, tbl)
	}
	return buf.String()
}

func (tx *ReadTx) dumpTable(w *strings.Builder, f DumpFlags, tbl *Table) {
	prefix := tbl.Name()
	s := must(tx.TableStats(tbl.name))

	if f.Contains(DumpTableHeaders) {
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s (%d rows)\n", prefix, s.Rows)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(w, "%s.stats: index_rows = %d, data_size = %d, data_alloc = %d, index_size = %d, index_alloc = %d, total_alloc = %d\n", prefix, s.IndexRows, s.DataSize, s.DataAlloc, s.IndexSize, s.IndexAlloc, s.TotalAlloc())
	}

	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) {
			fmt.Fprintln(w, dumpSep2)
		}
		c := tx.dataBucket(tbl).Cursor()
		var rowPos int
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rowPos++
			doc, err := decodeDocument(v)
			if err != nil {
				fmt.Fprintf(w, "%s.%d = ** ERROR: %v\n", prefix, rowPos, err)
				continue
			}
			fmt.Fprintf(w, "%s.%d = %s\n", prefix, rowPos, loggableDoc(tbl, doc))
		}
	}

	if f.Contains(DumpIndices) {
		for _, idx := range tbl.indices {
			tx.dumpIndex(w, prefix, f, idx)
		}
	}
}

func (tx *ReadTx) dumpIndex(w *strings.Builder, prefix string, f DumpFlags, idx *Index) {
	fmt.Fprintln(w, dumpSep2)
	prefix = prefix + ".i." + idx.ShortName()
	fmt.Fprintf(w, "%s %v\n", prefix, idx.fields)

	if f.Contains(DumpIndexRows) {
		c := tx.indexBucket(idx).Cursor()
		var rowPos int
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rowPos++
			fmt.Fprintf(w, "%s.%d: %s => %s\n", prefix, rowPos, rpadf(' ', "%s", keyString(k)), v)
		}
	}
}

func rpadf(pad rune, format string, args ...any) string {
	s := fmt.Sprintf(format, args...)
	return rpad(s, 40, pad)
}
