package ixscan

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
)

// ReadTx is a read-only view of the store. It implements Reader and
// SchemaLookup, so scan streams can be built directly on top of it. A ReadTx
// is bound to a single goroutine.
type ReadTx struct {
	store *Store
	stx   storageTx
}

func (tx *ReadTx) Store() *Store {
	return tx.store
}

func (tx *ReadTx) Schema() *Schema {
	return tx.store.schema
}

func (tx *ReadTx) IndexFields(table, index string) ([]string, error) {
	return tx.store.schema.IndexFields(table, index)
}

// Query starts a query over table, reading through this transaction.
func (tx *ReadTx) Query(table string) *QueryBuilder {
	return Query(tx, tx, table)
}

func (tx *ReadTx) table(name string) (*Table, error) {
	tbl := tx.store.schema.tablesByName[name]
	if tbl == nil {
		return nil, storeErrf(name, "", "", ErrUnknownTable, "")
	}
	return tbl, nil
}

func (tx *ReadTx) dataBucket(tbl *Table) storageBucket {
	return nonNil(tx.stx.Bucket(tbl.rootBucket(), dataBucket))
}

func (tx *ReadTx) indexBucket(idx *Index) storageBucket {
	return nonNil(tx.stx.Bucket(idx.table.rootBucket(), idx.bucket()))
}

// Get returns the document with the given id, or nil if there is none.
func (tx *ReadTx) Get(ctx context.Context, table, id string) (Document, error) {
	tbl, err := tx.table(table)
	if err != nil {
		return nil, err
	}
	return tx.get(tbl, id)
}

func (tx *ReadTx) get(tbl *Table, id string) (Document, error) {
	raw := tx.dataBucket(tbl).Get([]byte(id))
	if raw == nil {
		return nil, nil
	}
	tx.store.RowsRead.Add(1)
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, storeErrf(tbl.name, "", id, err, "")
	}
	return doc, nil
}

// RangeScan scans one native predicate over an index.
func (tx *ReadTx) RangeScan(ctx context.Context, table, index string, pred Predicate, order Order) (DocCursor, error) {
	idx, err := tx.store.schema.index(table, index)
	if err != nil {
		return nil, err
	}
	lo, hi, err := predicateRange(idx.fields, pred)
	if err != nil {
		return nil, storeErrf(table, index, "", err, "")
	}
	if idx.debugScans {
		tx.store.logger.LogAttrs(ctx, slog.LevelDebug, "range scan",
			slog.String("index", idx.FullName()),
			slog.String("pred", pred.String()),
			slog.String("order", order.String()),
			hexAttr("lo", lo),
			hexAttr("hi", hi))
	}
	return &docCursor{
		tx:      tx,
		tbl:     idx.table,
		idx:     idx,
		c:       tx.indexBucket(idx).Cursor(),
		lo:      lo,
		hi:      hi,
		reverse: order == Desc,
	}, nil
}

// predicateRange converts a native predicate into a byte range [lo, hi) of
// encoded index keys. A nil hi is unbounded.
func predicateRange(fields []string, pred Predicate) (lo, hi []byte, err error) {
	shape, err := ValidatePredicate(fields, pred)
	if err != nil {
		return nil, nil, err
	}
	var prefix []byte
	for i, v := range shape.Eqs {
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %w", ErrInvalidPredicate, fields[i], err)
		}
		prefix = appendKeyValue(prefix, nv)
	}
	bound := func(b *Bound) ([]byte, error) {
		nv, err := NormalizeValue(b.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPredicate, b.Field, err)
		}
		return appendKeyValue(appendRaw(nil, prefix), nv), nil
	}

	lo = prefix
	if b := shape.Lower; b != nil {
		enc, err := bound(b)
		if err != nil {
			return nil, nil, err
		}
		if b.Kind == Gt {
			lo = prefixSuccessor(enc)
		} else {
			lo = enc
		}
	}
	if b := shape.Upper; b != nil {
		enc, err := bound(b)
		if err != nil {
			return nil, nil, err
		}
		if b.Kind == Lte {
			hi = prefixSuccessor(enc)
		} else {
			hi = enc
		}
	} else {
		hi = prefixSuccessor(prefix)
	}
	return lo, hi, nil
}

type docCursor struct {
	tx      *ReadTx
	tbl     *Table
	idx     *Index
	c       storageCursor
	lo, hi  []byte
	reverse bool
	started bool
	done    bool
}

func (dc *docCursor) Next(ctx context.Context) (Document, bool, error) {
	if dc.done {
		return nil, false, nil
	}
	var k, v []byte
	if !dc.started {
		dc.started = true
		if dc.reverse {
			k, v = seekBefore(dc.c, dc.hi)
		} else {
			k, v = seekFirst(dc.c, dc.lo)
		}
	} else {
		k, v = advance(dc.c, dc.reverse)
	}
	if k == nil || bytes.Compare(k, dc.lo) < 0 || (dc.hi != nil && bytes.Compare(k, dc.hi) >= 0) {
		dc.done = true
		return nil, false, nil
	}
	id := string(v)
	doc, err := dc.tx.get(dc.tbl, id)
	if err != nil {
		return nil, false, err
	}
	if doc == nil {
		return nil, false, storeErrf(dc.tbl.name, dc.idx.name, id, ErrNotFound, "index entry %s points to a missing document", keyString(k))
	}
	return doc, true, nil
}

// WriteTx is a read-write transaction. Index entries are maintained on every
// write.
type WriteTx struct {
	ReadTx
	lastCreationTime float64
}

func (tx *WriteTx) nextCreationTime() float64 {
	ct := float64(tx.store.now().UnixNano()) / float64(time.Millisecond)
	if ct <= tx.lastCreationTime {
		ct = math.Nextafter(tx.lastCreationTime, math.Inf(1))
	}
	tx.lastCreationTime = ct
	return ct
}

// Insert adds a new document and returns its generated _id.
func (tx *WriteTx) Insert(table string, doc Document) (string, error) {
	tbl, err := tx.table(table)
	if err != nil {
		return "", err
	}
	if err := checkNoSystemFields(doc); err != nil {
		return "", storeErrf(table, "", "", err, "insert")
	}
	ndoc, err := normalizeDocument(doc)
	if err != nil {
		return "", storeErrf(table, "", "", err, "insert")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", storeErrf(table, "", "", err, "generating id")
	}
	ndoc[fieldID] = id.String()
	ndoc[fieldCreationTime] = tx.nextCreationTime()
	if err := tx.put(tbl, nil, ndoc); err != nil {
		return "", err
	}
	return id.String(), nil
}

// Replace overwrites every user field of an existing document.
func (tx *WriteTx) Replace(table, id string, doc Document) error {
	tbl, old, err := tx.existing(table, id)
	if err != nil {
		return err
	}
	if err := checkNoSystemFields(doc); err != nil {
		return storeErrf(table, "", id, err, "replace")
	}
	ndoc, err := normalizeDocument(doc)
	if err != nil {
		return storeErrf(table, "", id, err, "replace")
	}
	ndoc[fieldID] = old[fieldID]
	ndoc[fieldCreationTime] = old[fieldCreationTime]
	return tx.put(tbl, old, ndoc)
}

// Patch sets the given top-level fields; an Undefined value removes the field.
func (tx *WriteTx) Patch(table, id string, fields Document) error {
	tbl, old, err := tx.existing(table, id)
	if err != nil {
		return err
	}
	if err := checkNoSystemFields(fields); err != nil {
		return storeErrf(table, "", id, err, "patch")
	}
	patch, err := normalizeDocument(fields)
	if err != nil {
		return storeErrf(table, "", id, err, "patch")
	}
	ndoc := make(Document, len(old)+len(patch))
	for k, v := range old {
		ndoc[k] = v
	}
	for k, v := range fields {
		if _, ok := v.(UndefinedValue); ok {
			delete(ndoc, k)
		}
	}
	for k, v := range patch {
		ndoc[k] = v
	}
	return tx.put(tbl, old, ndoc)
}

func (tx *WriteTx) Delete(table, id string) error {
	tbl, old, err := tx.existing(table, id)
	if err != nil {
		return err
	}
	for _, idx := range tbl.indices {
		if err := tx.indexBucket(idx).Delete(idx.encodeDocKey(nil, old)); err != nil {
			return storeErrf(table, idx.name, id, err, "delete index entry")
		}
	}
	if err := tx.dataBucket(tbl).Delete([]byte(id)); err != nil {
		return storeErrf(table, "", id, err, "delete")
	}
	return nil
}

func (tx *WriteTx) existing(table, id string) (*Table, Document, error) {
	tbl, err := tx.table(table)
	if err != nil {
		return nil, nil, err
	}
	old, err := tx.get(tbl, id)
	if err != nil {
		return nil, nil, err
	}
	if old == nil {
		return nil, nil, storeErrf(table, "", id, ErrNotFound, "")
	}
	return tbl, old, nil
}

func checkNoSystemFields(doc Document) error {
	for _, f := range []string{fieldID, fieldCreationTime} {
		if _, found := doc[f]; found {
			return fmt.Errorf("%w: system field %s cannot be set", ErrContract, f)
		}
	}
	return nil
}

func (tx *WriteTx) put(tbl *Table, old, doc Document) error {
	id := doc.ID()
	data := encodeDocument(nil, doc)
	if tx.store.strict {
		decoded := must(decodeDocument(data))
		if CompareValues(map[string]any(decoded), map[string]any(doc)) != 0 {
			panic(fmt.Errorf("%s/%s: document does not survive encoding: %v vs %v", tbl.name, id, decoded, doc))
		}
	}
	for _, idx := range tbl.indices {
		newKey := idx.encodeDocKey(nil, doc)
		b := tx.indexBucket(idx)
		if old != nil {
			oldKey := idx.encodeDocKey(nil, old)
			if bytes.Equal(oldKey, newKey) {
				continue
			}
			if err := b.Delete(oldKey); err != nil {
				return storeErrf(tbl.name, idx.name, id, err, "delete index entry")
			}
		}
		if err := b.Put(newKey, []byte(id)); err != nil {
			return storeErrf(tbl.name, idx.name, id, err, "put index entry")
		}
	}
	if err := tx.dataBucket(tbl).Put([]byte(id), data); err != nil {
		return storeErrf(tbl.name, "", id, err, "put")
	}
	return nil
}

// prepareTable creates the table's buckets, fills indexes that have no
// bucket yet and drops buckets of indexes no longer in the schema.
func (tx *WriteTx) prepareTable(tbl *Table) error {
	root := tbl.rootBucket()
	if _, err := tx.stx.CreateBucket(root, dataBucket); err != nil {
		return storeErrf(tbl.name, "", "", err, "create data bucket")
	}
	existing := make(map[string]bool)
	for _, sub := range tx.stx.SubBuckets(root) {
		existing[sub] = true
	}
	for _, idx := range tbl.indices {
		if existing[idx.bucket()] {
			continue
		}
		if _, err := tx.stx.CreateBucket(root, idx.bucket()); err != nil {
			return storeErrf(tbl.name, idx.name, "", err, "create index bucket")
		}
		n, err := tx.fillIndex(idx)
		if err != nil {
			return err
		}
		if n > 0 {
			tx.store.logger.LogAttrs(context.Background(), slog.LevelInfo, "index filled", slog.String("index", idx.FullName()), slog.Int("rows", n))
		}
	}
	for sub := range existing {
		if sub == dataBucket || tbl.indicesByName[sub[len(indexBucketPrefix):]] != nil {
			continue
		}
		if err := tx.stx.DeleteBucket(root, sub); err != nil {
			return storeErrf(tbl.name, "", "", err, "drop stale bucket %s", sub)
		}
		tx.store.logger.LogAttrs(context.Background(), slog.LevelInfo, "index dropped", slog.String("table", tbl.name), slog.String("bucket", sub))
	}
	return nil
}

func (tx *WriteTx) fillIndex(idx *Index) (int, error) {
	var n int
	ib := tx.indexBucket(idx)
	c := tx.dataBucket(idx.table).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		doc, err := decodeDocument(v)
		if err != nil {
			return n, storeErrf(idx.table.name, idx.name, string(k), err, "fill index")
		}
		if err := ib.Put(idx.encodeDocKey(nil, doc), appendRaw(nil, k)); err != nil {
			return n, storeErrf(idx.table.name, idx.name, string(k), err, "fill index")
		}
		n++
	}
	return n, nil
}

func (tx *WriteTx) recoverLastCreationTime() (float64, error) {
	var last float64
	for _, tbl := range tx.store.schema.tables {
		idx := tbl.indicesByName[IndexByCreationTime]
		k, _ := tx.indexBucket(idx).Cursor().Last()
		if k == nil {
			continue
		}
		key, err := decodeKey(k)
		if err != nil {
			return 0, storeErrf(tbl.name, idx.name, "", err, "recover creation time")
		}
		if ct, ok := key[0].(float64); ok && ct > last {
			last = ct
		}
	}
	return last, nil
}
