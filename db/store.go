package db

import (
	"fmt"
	"strings"

	"github.com/nickyhof/TupleDB/core"
)

// Store owns every table of an instance. Names are matched case-insensitively
// and tables are listed in the order they were added.
type Store struct {
	tables map[string]*core.Table
	order  []*core.Table
}

func NewStore() *Store {
	return &Store{tables: make(map[string]*core.Table)}
}

func (store *Store) Add(table *core.Table) error {
	key := strings.ToLower(table.Name)
	if _, exists := store.tables[key]; exists {
		return fmt.Errorf("%w: table %s declared twice", core.ErrMalformedSchema, table.Name)
	}
	store.tables[key] = table
	store.order = append(store.order, table)
	return nil
}

func (store *Store) Table(name string) (*core.Table, error) {
	table, ok := store.tables[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, name)
	}
	return table, nil
}

func (store *Store) Tables() []*core.Table {
	return append([]*core.Table(nil), store.order...)
}

func (store *Store) Len() int {
	return len(store.order)
}

// Replace swaps in the tables of other, so engines sharing this store see
// a reloaded catalog.
func (store *Store) Replace(other *Store) {
	store.tables = other.tables
	store.order = other.order
}
