package ixscan

import (
	"fmt"
	"slices"
	"strings"
)

const (
	dataBucket        = "data"
	indexBucketPrefix = "i_"
)

type Schema struct {
	tables       []*Table
	tablesByName map[string]*Table
}

func NewSchema() *Schema {
	return &Schema{
		tablesByName: make(map[string]*Table),
	}
}

func (scm *Schema) Tables() []*Table {
	return slices.Clone(scm.tables)
}

func (scm *Schema) TableNamed(name string) *Table {
	return scm.tablesByName[name]
}

type tableOpt int

const (
	SuppressContentWhenLogging = tableOpt(1)
)

// AddTable defines a table with its built-in by_id and by_creation_time
// indexes.
func (scm *Schema) AddTable(name string, opts ...any) *Table {
	if name == "" || strings.ContainsAny(name, ".\x00") {
		panic(fmt.Errorf("invalid table name %q", name))
	}
	if scm.tablesByName[name] != nil {
		panic(fmt.Errorf("duplicate table %q", name))
	}
	tbl := &Table{
		schema:        scm,
		name:          name,
		pos:           len(scm.tables),
		indicesByName: make(map[string]*Index),
	}
	for _, opt := range opts {
		switch opt := opt.(type) {
		case tableOpt:
			switch opt {
			case SuppressContentWhenLogging:
				tbl.suppressContent = true
			default:
				panic(fmt.Errorf("invalid option %T %v", opt, opt))
			}
		default:
			panic(fmt.Errorf("invalid option %T %v", opt, opt))
		}
	}
	scm.tables = append(scm.tables, tbl)
	scm.tablesByName[name] = tbl

	tbl.addIndex(IndexByID, []string{fieldID}, nil)
	tbl.addIndex(IndexByCreationTime, []string{fieldCreationTime, fieldID}, nil)
	return tbl
}

// IndexFields implements SchemaLookup.
func (scm *Schema) IndexFields(table, index string) ([]string, error) {
	idx, err := scm.index(table, index)
	if err != nil {
		return nil, err
	}
	return idx.fields, nil
}

func (scm *Schema) index(table, index string) (*Index, error) {
	tbl := scm.tablesByName[table]
	if tbl == nil {
		return nil, storeErrf(table, "", "", ErrUnknownTable, "")
	}
	idx := tbl.indicesByName[index]
	if idx == nil {
		return nil, storeErrf(table, index, "", ErrUnknownIndex, "")
	}
	return idx, nil
}

type Table struct {
	schema          *Schema
	name            string
	pos             int // index in schema.tables
	indices         []*Index
	indicesByName   map[string]*Index
	suppressContent bool
}

func (tbl *Table) Name() string {
	return tbl.name
}

func (tbl *Table) Indices() []*Index {
	return slices.Clone(tbl.indices)
}

func (tbl *Table) IndexNamed(name string) *Index {
	return tbl.indicesByName[name]
}

func (tbl *Table) rootBucket() string {
	return tbl.name
}

type IndexOpt int

const (
	IndexOptDebugScans IndexOpt = iota + 1
)

// AddIndex defines an index over the given fields; _creationTime and _id are
// appended so that index keys are unique and ordered by insertion among
// equal values. Field names may be dotted paths into nested objects.
func (tbl *Table) AddIndex(name string, fields []string, opts ...any) *Index {
	if name == "" || name == IndexByID || name == IndexByCreationTime {
		panic(fmt.Errorf("%s: invalid or reserved index name %q", tbl.name, name))
	}
	if len(fields) == 0 {
		panic(fmt.Errorf("%s.%s: no fields", tbl.name, name))
	}
	for _, f := range fields {
		if f == "" || f == fieldID || f == fieldCreationTime {
			panic(fmt.Errorf("%s.%s: invalid field %q", tbl.name, name, f))
		}
	}
	all := concatFields(fields, []string{fieldCreationTime, fieldID})
	return tbl.addIndex(name, all, opts)
}

func (tbl *Table) addIndex(name string, fields []string, opts []any) *Index {
	if tbl.indicesByName[name] != nil {
		panic(fmt.Errorf("%s: duplicate index %q", tbl.name, name))
	}
	idx := &Index{
		table:  tbl,
		pos:    len(tbl.indices),
		name:   name,
		fields: fields,
	}
	for _, opt := range opts {
		switch opt := opt.(type) {
		case IndexOpt:
			switch opt {
			case IndexOptDebugScans:
				idx.debugScans = true
			default:
				panic(fmt.Errorf("invalid option %T %v", opt, opt))
			}
		default:
			panic(fmt.Errorf("invalid option %T %v", opt, opt))
		}
	}
	tbl.indices = append(tbl.indices, idx)
	tbl.indicesByName[name] = idx
	return idx
}

type Index struct {
	table  *Table
	pos    int // index in table.indices
	name   string
	fields []string

	debugScans bool
}

func (idx *Index) Table() *Table {
	return idx.table
}

func (idx *Index) ShortName() string {
	return idx.name
}

func (idx *Index) FullName() string {
	return idx.table.name + "." + idx.name
}

// Fields returns the full field list, tiebreakers included.
func (idx *Index) Fields() []string {
	return slices.Clone(idx.fields)
}

func (idx *Index) bucket() string {
	return indexBucketPrefix + idx.name
}

func (idx *Index) encodeDocKey(buf []byte, doc Document) []byte {
	for _, f := range idx.fields {
		buf = appendKeyValue(buf, FieldValue(doc, f))
	}
	return buf
}
