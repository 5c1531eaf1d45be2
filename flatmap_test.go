package ixscan

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var byChannelFields = []string{"channel", "_creationTime", "_id"}

// seedChannels inserts items 0..4 and one message each for channels c1 and c3.
func seedChannels(t *testing.T) *Store {
	s := seedItems(t, seq(0, 5)...)
	write(t, s, func(tx *WriteTx) {
		insert(t, tx, "messages", Document{"channel": "c1", "body": "one"})
		insert(t, tx, "messages", Document{"channel": "c3", "body": "three"})
	})
	return s
}

func channelMapper(tx *ReadTx) Mapper {
	return func(ctx context.Context, doc Document) (Stream, error) {
		channel := fmt.Sprintf("c%d", doc["n"])
		return tx.Query("messages").WithIndex("by_channel", func(r *RangeBuilder) { r.Eq("channel", channel) }).Stream()
	}
}

func bodies(docs []Document) []string {
	var r []string
	for _, doc := range docs {
		r = append(r, doc["body"].(string))
	}
	return r
}

func TestFlatMap(t *testing.T) {
	s := seedChannels(t)
	read(t, s, func(tx *ReadTx) {
		fm, err := FlatMap(scanOf(t, tx, "by_n", nil, Asc), channelMapper(tx), byChannelFields)
		require.NoError(t, err)
		require.Equal(t, concatFields(byNFields, byChannelFields), fm.IndexFields())

		items := allItems(t, fm)
		require.Len(t, items, 5)
		var holes int
		for i, item := range items {
			require.Len(t, item.Key, 6)
			require.Equal(t, int64(i), item.Key[0])
			if item.IsHole() {
				holes++
				require.Equal(t, []any{nil, nil, nil}, []any(item.Key[3:]))
			}
		}
		require.Equal(t, 3, holes)

		docs, err := Collect(context.Background(), fm)
		require.NoError(t, err)
		require.Equal(t, []string{"one", "three"}, bodies(docs))

		result, err := Paginate(context.Background(), fm, PaginationOptions{NumItems: 10})
		require.NoError(t, err)
		require.Len(t, result.Page, 2)
		require.Equal(t, 5, result.RowsRead)
		require.True(t, result.IsDone)
	})
}

func TestFlatMap_Paginate(t *testing.T) {
	s := seedChannels(t)
	read(t, s, func(tx *ReadTx) {
		ctx := context.Background()
		fm, err := FlatMap(scanOf(t, tx, "by_n", nil, Asc), channelMapper(tx), byChannelFields)
		require.NoError(t, err)

		r1, err := Paginate(ctx, fm, PaginationOptions{NumItems: 1})
		require.NoError(t, err)
		require.Equal(t, []string{"one"}, bodies(r1.Page))
		require.Equal(t, 2, r1.RowsRead)
		require.False(t, r1.IsDone)

		r2, err := Paginate(ctx, fm, PaginationOptions{Cursor: &r1.ContinueCursor, NumItems: 1})
		require.NoError(t, err)
		require.Equal(t, []string{"three"}, bodies(r2.Page))
		require.Equal(t, 2, r2.RowsRead)
		require.False(t, r2.IsDone)

		r3, err := Paginate(ctx, fm, PaginationOptions{Cursor: &r2.ContinueCursor, NumItems: 1})
		require.NoError(t, err)
		require.Empty(t, r3.Page)
		require.Equal(t, 1, r3.RowsRead)
		require.True(t, r3.IsDone)
	})
}

func TestFlatMap_Desc(t *testing.T) {
	s := seedChannels(t)
	write(t, s, func(tx *WriteTx) {
		insert(t, tx, "messages", Document{"channel": "c3", "body": "three again"})
	})
	read(t, s, func(tx *ReadTx) {
		mapper := func(ctx context.Context, doc Document) (Stream, error) {
			channel := fmt.Sprintf("c%d", doc["n"])
			return tx.Query("messages").WithIndex("by_channel", func(r *RangeBuilder) { r.Eq("channel", channel) }).Order(Desc).Stream()
		}
		fm, err := FlatMap(scanOf(t, tx, "by_n", nil, Desc), mapper, byChannelFields)
		require.NoError(t, err)

		docs, err := Collect(context.Background(), fm)
		require.NoError(t, err)
		require.Equal(t, []string{"three again", "three", "one"}, bodies(docs))

		r1, err := Paginate(context.Background(), fm, PaginationOptions{NumItems: 2})
		require.NoError(t, err)
		require.Equal(t, []string{"three again", "three"}, bodies(r1.Page))
		r2, err := Paginate(context.Background(), fm, PaginationOptions{Cursor: &r1.ContinueCursor, NumItems: 2})
		require.NoError(t, err)
		require.Equal(t, []string{"one"}, bodies(r2.Page))
		require.True(t, r2.IsDone)
	})
}

func TestFlatMap_DescResumeWithinOuterItem(t *testing.T) {
	s := seedChannels(t)
	read(t, s, func(tx *ReadTx) {
		ctx := context.Background()
		mapper := func(ctx context.Context, doc Document) (Stream, error) {
			channel := fmt.Sprintf("c%d", doc["n"])
			return tx.Query("messages").WithIndex("by_channel", func(r *RangeBuilder) { r.Eq("channel", channel) }).Order(Desc).Stream()
		}
		fm, err := FlatMap(scanOf(t, tx, "by_n", nil, Desc), mapper, byChannelFields)
		require.NoError(t, err)

		var pages [][]string
		var rowsRead []int
		opt := PaginationOptions{NumItems: 1}
		for {
			r, err := Paginate(ctx, fm, opt)
			require.NoError(t, err)
			pages = append(pages, bodies(r.Page))
			rowsRead = append(rowsRead, r.RowsRead)
			if r.IsDone {
				break
			}
			opt.Cursor = &r.ContinueCursor
		}
		// the outer item of the cursor yields neither documents nor a hole
		require.Equal(t, [][]string{{"three"}, {"one"}, nil}, pages)
		require.Equal(t, []int{2, 2, 1}, rowsRead)
	})
}

func TestFlatMap_OuterHoles(t *testing.T) {
	s := seedChannels(t)
	read(t, s, func(tx *ReadTx) {
		odd, err := FilterWith(scanOf(t, tx, "by_n", nil, Asc), func(ctx context.Context, doc Document) (bool, error) {
			return doc["n"].(int64)%2 == 1, nil
		})
		require.NoError(t, err)

		calls := 0
		mapper := channelMapper(tx)
		fm, err := FlatMap(odd, func(ctx context.Context, doc Document) (Stream, error) {
			calls++
			return mapper(ctx, doc)
		}, byChannelFields)
		require.NoError(t, err)

		items := allItems(t, fm)
		require.Len(t, items, 5)
		require.Equal(t, 2, calls)
		docs, err := Collect(context.Background(), fm)
		require.NoError(t, err)
		require.Equal(t, []string{"one", "three"}, bodies(docs))
	})
}

func TestFlatMap_MapperContract(t *testing.T) {
	s := seedChannels(t)
	read(t, s, func(tx *ReadTx) {
		outer := scanOf(t, tx, "by_n", nil, Asc)
		wrongOrder, err := FlatMap(outer, func(ctx context.Context, doc Document) (Stream, error) {
			return tx.Query("messages").Order(Desc).Stream()
		}, []string{"_creationTime", "_id"})
		require.NoError(t, err)
		_, err = Collect(context.Background(), wrongOrder)
		require.ErrorIs(t, err, ErrContract)

		wrongFields, err := FlatMap(outer, channelMapper(tx), []string{"channel"})
		require.NoError(t, err)
		_, err = Collect(context.Background(), wrongFields)
		require.ErrorIs(t, err, ErrContract)

		boom := fmt.Errorf("boom")
		failing, err := FlatMap(outer, func(ctx context.Context, doc Document) (Stream, error) {
			return nil, boom
		}, nil)
		require.NoError(t, err)
		_, err = Collect(context.Background(), failing)
		require.ErrorIs(t, err, boom)

		_, err = FlatMap(outer, nil, nil)
		require.ErrorIs(t, err, ErrContract)
	})
}

func TestMap(t *testing.T) {
	s := seedItems(t, seq(0, 6)...)
	read(t, s, func(tx *ReadTx) {
		base := scanOf(t, tx, "by_n", nil, Asc)
		m, err := Map(base, func(ctx context.Context, doc Document) (Document, error) {
			n := doc["n"].(int64)
			if n == 3 {
				return nil, nil
			}
			return Document{"n": n * 10}, nil
		})
		require.NoError(t, err)
		require.Equal(t, base.IndexFields(), m.IndexFields())
		require.Equal(t, ints(0, 10, 20, 40, 50), collectNs(t, m))

		baseItems, mappedItems := allItems(t, base), allItems(t, m)
		require.Len(t, mappedItems, len(baseItems))
		for i := range baseItems {
			require.Equal(t, baseItems[i].Key, mappedItems[i].Key)
		}
		require.True(t, mappedItems[3].IsHole())
	})
}

func TestFilterWith(t *testing.T) {
	s := seedItems(t, seq(0, 20)...)
	read(t, s, func(tx *ReadTx) {
		even, err := FilterWith(scanOf(t, tx, "by_n", nil, Desc), func(ctx context.Context, doc Document) (bool, error) {
			return doc["n"].(int64)%2 == 0, nil
		})
		require.NoError(t, err)
		require.Equal(t, ints(18, 16, 14, 12, 10, 8, 6, 4, 2, 0), collectNs(t, even))

		result, err := Paginate(context.Background(), even, PaginationOptions{NumItems: 3})
		require.NoError(t, err)
		require.Equal(t, ints(18, 16, 14), nsOf(result.Page))
		require.Equal(t, 6, result.RowsRead)

		next, err := Paginate(context.Background(), even, PaginationOptions{Cursor: &result.ContinueCursor, NumItems: 3})
		require.NoError(t, err)
		require.Equal(t, ints(12, 10, 8), nsOf(next.Page))
	})
}
