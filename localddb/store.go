// Package localddb is a single-node DynamoDB stand-in backed by BadgerDB,
// covering the item operations the client depends on. Condition expressions,
// SET update expressions and document-path validation behave like the real
// service, including the typed errors it returns, so recovery logic can be
// exercised without an AWS endpoint.
package localddb

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/asayed18/tynamo/table"
)

// Store is a DynamoDB-compatible item store backed by BadgerDB.
type Store struct {
	db *badger.DB

	mu     sync.RWMutex
	tables map[string]table.Definition
}

// Options configures the underlying BadgerDB instance.
type Options struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// New opens a store and registers the given table definitions.
func New(opts Options, defs ...table.Definition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		tables: make(map[string]table.Definition, len(defs)),
	}
	for _, def := range defs {
		if err := s.CreateTable(def); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// CreateTable registers a table definition. The name must be unused.
func (s *Store) CreateTable(def table.Definition) error {
	if def.Name == "" {
		return fmt.Errorf("table name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[def.Name]; exists {
		return fmt.Errorf("table already exists: %s", def.Name)
	}
	s.tables[def.Name] = def
	return nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getTable(tableName *string) (table.Definition, error) {
	if tableName == nil {
		return table.Definition{}, fmt.Errorf("table name is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.tables[*tableName]
	if !ok {
		return table.Definition{}, fmt.Errorf("table not found: %s", *tableName)
	}
	return def, nil
}

// update runs fn in a read-write transaction, retrying on transaction
// conflicts so concurrent writers behave like independent DynamoDB calls.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if err != badger.ErrConflict {
			return err
		}
	}
}

// ZapLogger adapts a zap sugared logger to badger's logger interface.
func ZapLogger(l *zap.SugaredLogger) badger.Logger {
	return zapLogger{l}
}

type zapLogger struct {
	*zap.SugaredLogger
}

func (z zapLogger) Warningf(format string, args ...any) {
	z.Warnf(format, args...)
}
