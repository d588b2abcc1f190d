package tynamo

import (
	"fmt"

	"github.com/asayed18/tynamo/localddb"
	"github.com/asayed18/tynamo/table"
)

// NewMemoryClient returns a Client backed by an in-memory store with tbl
// registered, together with the store so the caller can Close it. Meant for
// tests and local development; panics when the store cannot be opened.
func NewMemoryClient(tbl table.Definition, opts ...Option) (*Client, *localddb.Store) {
	store, err := localddb.New(localddb.Options{InMemory: true})
	if err != nil {
		panic(fmt.Sprintf("failed to open in-memory store: %v", err))
	}
	if err := store.CreateTable(tbl); err != nil {
		panic(fmt.Sprintf("failed to register table %q: %v", tbl.Name, err))
	}
	return New(store, tbl, opts...), store
}
