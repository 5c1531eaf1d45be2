package ixscan

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func paginateAll(t *testing.T, s Stream, numItems int) (pages [][]int64, results []*PaginationResult) {
	t.Helper()
	var cursor *string
	for range 100 {
		result, err := Paginate(context.Background(), s, PaginationOptions{Cursor: cursor, NumItems: numItems})
		require.NoError(t, err)
		pages = append(pages, nsOf(result.Page))
		results = append(results, result)
		if result.IsDone {
			return pages, results
		}
		cursor = &result.ContinueCursor
	}
	t.Fatalf("pagination did not finish")
	return
}

func TestPaginate(t *testing.T) {
	s := seedItems(t, seq(0, 37)...)
	read(t, s, func(tx *ReadTx) {
		pages, results := paginateAll(t, scanOf(t, tx, "by_n", nil, Asc), 10)
		require.Len(t, pages, 4)
		require.Equal(t, ints(seq(0, 10)...), pages[0])
		require.Equal(t, ints(seq(10, 20)...), pages[1])
		require.Equal(t, ints(seq(20, 30)...), pages[2])
		require.Equal(t, ints(seq(30, 37)...), pages[3])
		for i, r := range results {
			require.Equal(t, i == 3, r.IsDone)
			require.Empty(t, r.PageStatus)
		}
		require.Equal(t, fullRangeCursor, results[3].ContinueCursor)

		// paging past the end yields nothing
		r, err := Paginate(context.Background(), scanOf(t, tx, "by_n", nil, Asc), PaginationOptions{Cursor: &results[3].ContinueCursor, NumItems: 10})
		require.NoError(t, err)
		require.Empty(t, r.Page)
		require.True(t, r.IsDone)
	})
}

func TestPaginate_Desc(t *testing.T) {
	s := seedItems(t, seq(0, 37)...)
	read(t, s, func(tx *ReadTx) {
		pages, _ := paginateAll(t, scanOf(t, tx, "by_n", nil, Desc), 10)
		require.Len(t, pages, 4)
		require.Equal(t, ints(36, 35, 34, 33, 32, 31, 30, 29, 28, 27), pages[0])
		require.Equal(t, ints(6, 5, 4, 3, 2, 1, 0), pages[3])
	})
}

func TestPaginate_Exact(t *testing.T) {
	s := seedItems(t, seq(0, 20)...)
	read(t, s, func(tx *ReadTx) {
		pages, results := paginateAll(t, scanOf(t, tx, "by_n", nil, Asc), 10)
		require.Len(t, pages, 3)
		require.Empty(t, pages[2])
		require.True(t, results[2].IsDone)
		require.Equal(t, 0, results[2].RowsRead)
	})
}

func TestPaginate_EndCursorIsStable(t *testing.T) {
	var ns []int
	for i := 0; i < 40; i += 2 {
		ns = append(ns, i)
	}
	s := seedItems(t, ns...)

	var first *PaginationResult
	read(t, s, func(tx *ReadTx) {
		r, err := Paginate(context.Background(), scanOf(t, tx, "by_n", nil, Asc), PaginationOptions{NumItems: 5})
		require.NoError(t, err)
		require.Equal(t, ints(0, 2, 4, 6, 8), nsOf(r.Page))
		first = r
	})

	write(t, s, func(tx *WriteTx) {
		insert(t, tx, "items", Document{"n": 5})
		insert(t, tx, "items", Document{"n": 100})
	})

	read(t, s, func(tx *ReadTx) {
		r, err := Paginate(context.Background(), scanOf(t, tx, "by_n", nil, Asc), PaginationOptions{
			NumItems:  5,
			EndCursor: &first.ContinueCursor,
		})
		require.NoError(t, err)
		require.Equal(t, ints(0, 2, 4, 5, 6, 8), nsOf(r.Page))
		require.Equal(t, first.ContinueCursor, r.ContinueCursor)
		require.False(t, r.IsDone)
		require.Equal(t, SplitRecommended, r.PageStatus)
		require.NotEmpty(t, r.SplitCursor)

		next, err := Paginate(context.Background(), scanOf(t, tx, "by_n", nil, Asc), PaginationOptions{
			Cursor:   &r.ContinueCursor,
			NumItems: 5,
		})
		require.NoError(t, err)
		require.Equal(t, ints(10, 12, 14, 16, 18), nsOf(next.Page))
	})
}

func TestPaginate_SplitCursorDividesPage(t *testing.T) {
	s := seedItems(t, seq(0, 30)...)
	read(t, s, func(tx *ReadTx) {
		ctx := context.Background()
		end := "[]"
		r, err := Paginate(ctx, scanOf(t, tx, "by_n", nil, Asc), PaginationOptions{NumItems: 10, EndCursor: &end})
		require.NoError(t, err)
		require.Len(t, r.Page, 30)
		require.True(t, r.IsDone)
		require.Equal(t, SplitRecommended, r.PageStatus)

		left, err := Paginate(ctx, scanOf(t, tx, "by_n", nil, Asc), PaginationOptions{NumItems: 10, EndCursor: &r.SplitCursor})
		require.NoError(t, err)
		right, err := Paginate(ctx, scanOf(t, tx, "by_n", nil, Asc), PaginationOptions{Cursor: &r.SplitCursor, NumItems: 10, EndCursor: &r.ContinueCursor})
		require.NoError(t, err)
		require.Equal(t, ints(seq(0, 15)...), nsOf(left.Page))
		require.Equal(t, ints(seq(15, 30)...), nsOf(right.Page))
	})
}

func TestPaginate_MaximumRowsRead(t *testing.T) {
	s := seedItems(t, seq(0, 37)...)
	read(t, s, func(tx *ReadTx) {
		ctx := context.Background()
		tens, err := FilterWith(scanOf(t, tx, "by_n", nil, Asc), func(ctx context.Context, doc Document) (bool, error) {
			return doc["n"].(int64)%10 == 0, nil
		})
		require.NoError(t, err)

		r, err := Paginate(ctx, tens, PaginationOptions{NumItems: 10, MaximumRowsRead: 8})
		require.NoError(t, err)
		require.Equal(t, ints(0), nsOf(r.Page))
		require.Equal(t, 8, r.RowsRead)
		require.False(t, r.IsDone)
		require.Equal(t, SplitRequired, r.PageStatus)

		split, err := DeserializeCursor(r.SplitCursor)
		require.NoError(t, err)
		require.Equal(t, int64(3), split[0])
		cont, err := DeserializeCursor(r.ContinueCursor)
		require.NoError(t, err)
		require.Equal(t, int64(7), cont[0])

		r, err = Paginate(ctx, tens, PaginationOptions{NumItems: 2, MaximumRowsRead: 14})
		require.NoError(t, err)
		require.Equal(t, ints(0, 10), nsOf(r.Page))
		require.Equal(t, 11, r.RowsRead)
		require.Equal(t, SplitRecommended, r.PageStatus)

		r, err = Paginate(ctx, tens, PaginationOptions{NumItems: 2, MaximumRowsRead: 100})
		require.NoError(t, err)
		require.Equal(t, 11, r.RowsRead)
		require.Empty(t, r.PageStatus)
		require.Empty(t, r.SplitCursor)
	})
}

func TestPaginate_InvalidRequests(t *testing.T) {
	s := seedItems(t, seq(0, 5)...)
	read(t, s, func(tx *ReadTx) {
		ctx := context.Background()
		st := scanOf(t, tx, "by_n", nil, Asc)

		_, err := Paginate(ctx, st, PaginationOptions{NumItems: -1})
		require.ErrorIs(t, err, ErrInvalidPageRequest)
		_, err = Paginate(ctx, st, PaginationOptions{NumItems: 1, MaximumRowsRead: -1})
		require.ErrorIs(t, err, ErrInvalidPageRequest)
		_, err = Paginate(ctx, st, PaginationOptions{})
		require.ErrorIs(t, err, ErrInvalidPageRequest)

		bad := "not json"
		_, err = Paginate(ctx, st, PaginationOptions{Cursor: &bad, NumItems: 1})
		require.ErrorIs(t, err, ErrInvalidCursor)
		_, err = Paginate(ctx, st, PaginationOptions{EndCursor: &bad, NumItems: 1})
		require.ErrorIs(t, err, ErrInvalidCursor)

		long := `[1, 2, 3, 4, 5]`
		_, err = Paginate(ctx, st, PaginationOptions{Cursor: &long, NumItems: 2})
		require.ErrorIs(t, err, ErrInvalidCursor)
		_, err = Paginate(ctx, st, PaginationOptions{EndCursor: &long, NumItems: 2})
		require.ErrorIs(t, err, ErrInvalidCursor)

		cursor := `[{"$integer":"AgAAAAAAAAA="}]`
		r, err := Paginate(ctx, st, PaginationOptions{Cursor: &cursor})
		require.NoError(t, err)
		require.Empty(t, r.Page)
		require.False(t, r.IsDone)
		require.Equal(t, cursor, r.ContinueCursor)

		r, err = Paginate(ctx, st, PaginationOptions{Cursor: &cursor, NumItems: 10})
		require.NoError(t, err)
		require.Equal(t, ints(3, 4), nsOf(r.Page))
	})
}

func TestPaginate_EmptyStream(t *testing.T) {
	r, err := Paginate(context.Background(), Empty(Asc, []string{"x"}), PaginationOptions{NumItems: 5})
	require.NoError(t, err)
	require.Equal(t, []Document{}, r.Page)
	require.True(t, r.IsDone)
	require.Equal(t, fullRangeCursor, r.ContinueCursor)
	require.Equal(t, 0, r.RowsRead)
}

func TestPaginationResult_JSON(t *testing.T) {
	s := seedItems(t, 1, 2)
	read(t, s, func(tx *ReadTx) {
		r, err := Paginate(context.Background(), scanOf(t, tx, "by_n", nil, Asc), PaginationOptions{NumItems: 1})
		require.NoError(t, err)
		raw, err := json.Marshal(r)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.Equal(t, false, decoded["isDone"])
		require.Equal(t, r.ContinueCursor, decoded["continueCursor"])
		page := decoded["page"].([]any)
		require.Len(t, page, 1)
		require.Equal(t, float64(1), page[0].(map[string]any)["n"])
		require.NotContains(t, decoded, "pageStatus")
	})
}
