package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/andreyvit/ixscan"
	"github.com/spf13/cobra"
)

type paginateFlags struct {
	eq        []string
	gt, gte   string
	lt, lte   string
	order     string
	cursor    string
	endCursor string
	num       int
	maxRows   int
	distinct  []string
	all       bool
}

func newPaginateCommand(a *app) *cobra.Command {
	var f paginateFlags
	cmd := &cobra.Command{
		Use:   "paginate <table> [index]",
		Short: "Print one page (or, with --all, every page) of an index scan",
		Long: `Print one page of an index scan as JSON.

Range flags take field=value, where value is a JSON literal or a bare string:

  ixscan paginate messages by_channel --eq channel=general --gte _creationTime=1700000000000`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := ixscan.IndexByCreationTime
			if len(args) > 1 {
				index = args[1]
			}
			return a.store.Read(cmd.Context(), func(tx *ixscan.ReadTx) error {
				return runPaginate(cmd.Context(), tx, args[0], index, &f, json.NewEncoder(cmd.OutOrStdout()))
			})
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVar(&f.eq, "eq", nil, "equality on the next index field, field=value (repeatable, in index order)")
	fl.StringVar(&f.gt, "gt", "", "exclusive lower bound, field=value")
	fl.StringVar(&f.gte, "gte", "", "inclusive lower bound, field=value")
	fl.StringVar(&f.lt, "lt", "", "exclusive upper bound, field=value")
	fl.StringVar(&f.lte, "lte", "", "inclusive upper bound, field=value")
	fl.StringVar(&f.order, "order", "asc", "scan order, asc or desc")
	fl.StringVar(&f.cursor, "cursor", "", "continue after this cursor")
	fl.StringVar(&f.endCursor, "end-cursor", "", "end the page at this cursor (inclusive)")
	fl.IntVarP(&f.num, "num", "n", 10, "number of documents per page")
	fl.IntVar(&f.maxRows, "max-rows", 0, "maximum rows read per page (0 = unlimited)")
	fl.StringSliceVar(&f.distinct, "distinct", nil, "only return the first document per distinct value of these fields")
	fl.BoolVar(&f.all, "all", false, "keep paginating until done, one JSON result per line")
	return cmd
}

func runPaginate(ctx context.Context, tx *ixscan.ReadTx, table, index string, f *paginateFlags, enc *json.Encoder) error {
	var rangeErr error
	q := tx.Query(table).WithIndex(index, func(r *ixscan.RangeBuilder) {
		for _, s := range f.eq {
			field, value, err := parseAssignment(s)
			if err != nil {
				rangeErr = err
				return
			}
			r.Eq(field, value)
		}
		for _, b := range []struct {
			flag string
			s    string
			fn   func(string, any) *ixscan.RangeBuilder
		}{
			{"gt", f.gt, r.Gt},
			{"gte", f.gte, r.Gte},
			{"lt", f.lt, r.Lt},
			{"lte", f.lte, r.Lte},
		} {
			if b.s == "" {
				continue
			}
			field, value, err := parseAssignment(b.s)
			if err != nil {
				rangeErr = fmt.Errorf("--%s: %w", b.flag, err)
				return
			}
			b.fn(field, value)
		}
	})
	order, err := ixscan.ParseOrder(f.order)
	if err != nil {
		return err
	}
	q = q.Order(order)
	s, err := q.Stream()
	if rangeErr != nil {
		return rangeErr
	}
	if err != nil {
		return err
	}
	if len(f.distinct) > 0 {
		s, err = ixscan.Distinct(s, f.distinct)
		if err != nil {
			return err
		}
	}

	opt := ixscan.PaginationOptions{
		NumItems:        f.num,
		MaximumRowsRead: f.maxRows,
	}
	if f.cursor != "" {
		opt.Cursor = &f.cursor
	}
	if f.endCursor != "" {
		opt.EndCursor = &f.endCursor
	}
	for {
		result, err := ixscan.Paginate(ctx, s, opt)
		if err != nil {
			return err
		}
		if err := enc.Encode(result); err != nil {
			return err
		}
		if !f.all || result.IsDone {
			return nil
		}
		cursor := result.ContinueCursor
		opt.Cursor = &cursor
	}
}

// parseAssignment parses field=value.
func parseAssignment(s string) (string, any, error) {
	field, raw, ok := strings.Cut(s, "=")
	if !ok || field == "" {
		return "", nil, fmt.Errorf("invalid %q, expected field=value", s)
	}
	v, err := parseJSONValue(raw)
	if err != nil {
		return field, raw, nil
	}
	return field, v, nil
}

// parseJSONValue decodes a JSON literal, keeping integral numbers as int64.
func parseJSONValue(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return convertNumbers(v), nil
}

func convertNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i, el := range v {
			v[i] = convertNumbers(el)
		}
		return v
	case map[string]any:
		for k, el := range v {
			v[k] = convertNumbers(el)
		}
		return v
	default:
		return v
	}
}

func (a *app) load(ctx context.Context, table, file string) (int, error) {
	fd, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer fd.Close()

	var n int
	err = a.store.Write(ctx, func(tx *ixscan.WriteTx) error {
		sc := bufio.NewScanner(fd)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimSpace(sc.Text())
			if text == "" {
				continue
			}
			v, err := parseJSONValue(text)
			if err != nil {
				return fmt.Errorf("%s:%d: %w", file, line, err)
			}
			obj, ok := v.(map[string]any)
			if !ok {
				return fmt.Errorf("%s:%d: expected a JSON object", file, line)
			}
			if _, err := tx.Insert(table, ixscan.Document(obj)); err != nil {
				return fmt.Errorf("%s:%d: %w", file, line, err)
			}
			n++
		}
		return sc.Err()
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
