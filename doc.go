/*
Package ixscan implements ordered, lazily evaluated streams over index scans
of a document store, and resumable pagination over them.

The store can only scan a composite index with a narrow predicate grammar:
equalities on a prefix of the index fields, then at most one lower and one
upper bound on the next field. Streams lift that restriction. We implement:

1. Leaf scan streams over an arbitrary two-sided key range (IndexBounds),
split into native predicates by SplitRange.

2. Combinators: Concat, Merge, OrderBy, FlatMap, Map, FilterWith, Distinct,
Singleton and Empty.

3. Paginate, which reads one page of any stream and returns cursors to
resume it, or to re-run the same page later.

4. Store, an embedded document store on Bolt (or in memory) that the streams
read through ReadTx.

# Keys

**Values.**
Documents hold undefined, null, int64, float64, bool, string, bytes, arrays
and objects, ordered in that sequence. CompareValues is the total order.

**Index keys.**
An IndexKey holds one value per index field. Every index ends with
_creationTime and _id, so index keys are unique. Comparison keys (Key)
also carry a boundary kind: a Successor key sorts after every key it is a
prefix of, a Predecessor key before.

**Holes.**
A stream item with a nil document is a hole: a position that was read and
filtered out. Holes count toward read budgets and can end a page, so a
page that filters everything still makes progress.

## Binary encoding

**Index entries.**
Index keys are encoded so that byte order equals CompareValues order
(see enckey.go). An index entry maps the encoded key to the document _id.

**Documents**: msgpack maps keyed by _id.

**Buckets.**
Each table is a root bucket holding a "data" bucket and one "i_<index>"
bucket per index. Index buckets missing on open are filled from the data,
index buckets no longer in the schema are dropped.

# Cursors

A cursor is the JSON encoding of an index key (see SerializeCursor).
*/
package ixscan
