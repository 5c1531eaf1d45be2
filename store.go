package ixscan

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

// Store is an embedded document store: tables of schemaless documents with
// ordered composite indexes, on top of Bolt or an in-memory backend.
type Store struct {
	stor   storage
	schema *Schema
	logger *slog.Logger
	strict bool
	now    func() time.Time

	lastCreationTime atomic.Uint64 // float64 bits

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
	RowsRead   atomic.Uint64
}

type Options struct {
	Logger    *slog.Logger
	IsTesting bool
	MmapSize  int
	Timeout   time.Duration

	// Now overrides the clock used for _creationTime.
	Now func() time.Time
}

// Open opens or creates a Bolt-backed store at path.
func Open(path string, schema *Schema, opt Options) (*Store, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 64
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("ixscan: %w", err)
	}
	s, err := openStorage(newBoltStorage(bdb), schema, opt)
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory creates a transient store that lives until Close.
func OpenMemory(schema *Schema, opt Options) (*Store, error) {
	return openStorage(newMemStorage(), schema, opt)
}

func openStorage(stor storage, schema *Schema, opt Options) (*Store, error) {
	s := &Store{
		stor:   stor,
		schema: schema,
		logger: opt.Logger,
		strict: opt.IsTesting,
		now:    opt.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	err := s.Write(context.Background(), func(tx *WriteTx) error {
		for _, tbl := range schema.tables {
			if err := tx.prepareTable(tbl); err != nil {
				return err
			}
		}
		last, err := tx.recoverLastCreationTime()
		if err != nil {
			return err
		}
		s.lastCreationTime.Store(math.Float64bits(last))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Schema() *Schema {
	return s.schema
}

func (s *Store) Close() error {
	err := s.stor.Close()
	if err != nil {
		return fmt.Errorf("ixscan: closing: %w", err)
	}
	return nil
}

// Read runs fn inside a read-only transaction. Streams built over the
// transaction must not outlive fn.
func (s *Store) Read(ctx context.Context, fn func(tx *ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stx, err := s.stor.BeginTx(false)
	if err != nil {
		return fmt.Errorf("ixscan: begin read: %w", err)
	}
	defer stx.Rollback()
	s.ReadCount.Add(1)
	return safelyCall(fn, &ReadTx{store: s, stx: stx})
}

// Write runs fn inside a read-write transaction, committing if fn returns
// nil and rolling back otherwise. Writers are serialized.
func (s *Store) Write(ctx context.Context, fn func(tx *WriteTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stx, err := s.stor.BeginTx(true)
	if err != nil {
		return fmt.Errorf("ixscan: begin write: %w", err)
	}
	defer stx.Rollback()
	s.WriteCount.Add(1)

	tx := &WriteTx{
		ReadTx:           ReadTx{store: s, stx: stx},
		lastCreationTime: math.Float64frombits(s.lastCreationTime.Load()),
	}
	err = safelyCall(fn, tx)
	if err != nil {
		return err
	}
	err = stx.Commit()
	if err != nil {
		return fmt.Errorf("ixscan: commit: %w", err)
	}
	s.lastCreationTime.Store(math.Float64bits(tx.lastCreationTime))
	return nil
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall[Tx any](fn func(Tx) error, tx Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}
