package ixscan

// IndexByCreationTime is the index every table has; queries use it unless
// told otherwise.
const (
	IndexByID           = "by_id"
	IndexByCreationTime = "by_creation_time"
)

// QueryBuilder is the entry point for building a scan stream over one table.
//
//	s, err := ixscan.Query(tx, tx, "messages").
//		WithIndex("by_channel", func(r *ixscan.RangeBuilder) {
//			r.Eq("channel", "general").Gte("_creationTime", since)
//		}).
//		Order(ixscan.Desc).
//		Stream()
type QueryBuilder struct {
	reader    Reader
	schema    SchemaLookup
	table     string
	index     string
	rangeFunc func(*RangeBuilder)
	order     Order
}

func Query(r Reader, schema SchemaLookup, table string) *QueryBuilder {
	return &QueryBuilder{
		reader: r,
		schema: schema,
		table:  table,
		index:  IndexByCreationTime,
	}
}

// WithIndex selects the index to scan. A nil rangeFunc scans the full index.
func (q *QueryBuilder) WithIndex(index string, rangeFunc func(*RangeBuilder)) *QueryBuilder {
	nq := *q
	nq.index = index
	nq.rangeFunc = rangeFunc
	return &nq
}

func (q *QueryBuilder) Order(o Order) *QueryBuilder {
	nq := *q
	nq.order = o
	return &nq
}

// Stream validates the range against the index and returns the leaf stream.
func (q *QueryBuilder) Stream() (Stream, error) {
	s, err := q.ScanStream()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (q *QueryBuilder) ScanStream() (*ScanStream, error) {
	fields, err := q.schema.IndexFields(q.table, q.index)
	if err != nil {
		return nil, err
	}
	bounds := FullRange()
	if q.rangeFunc != nil {
		rb := NewRangeBuilder(fields)
		q.rangeFunc(rb)
		bounds, err = rb.Finish()
		if err != nil {
			return nil, err
		}
	}
	return NewScanStream(q.reader, q.schema, q.table, q.index, bounds, q.order)
}
