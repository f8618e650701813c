package op

import (
	"fmt"

	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/db"
	"github.com/nickyhof/TupleDB/ps"
)

type DatabaseOp struct {
	Persistence *ps.Persistence
}

func GetDatabase(persistence *ps.Persistence) *DatabaseOp {
	return &DatabaseOp{Persistence: persistence}
}

// LoadStore builds a store holding every table the schema file declares, in
// declaration order, with the rows of its data file.
func LoadStore(persistence *ps.Persistence) (*db.Store, error) {
	return GetDatabase(persistence).Load()
}

func (op *DatabaseOp) Load() (*db.Store, error) {
	defs, err := op.Persistence.ReadSchema()
	if err != nil {
		return nil, err
	}

	store := db.NewStore()
	for _, def := range defs {
		tableOp := &TableOp{Def: def, Persistence: op.Persistence}
		table, err := tableOp.Load()
		if err != nil {
			return nil, err
		}
		if err := store.Add(table); err != nil {
			return nil, err
		}
	}

	return store, nil
}

func (op *DatabaseOp) TableNames() ([]string, error) {
	defs, err := op.Persistence.ReadSchema()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names, nil
}

// Restore brings the data back to ref and returns a store loaded from it.
func (op *DatabaseOp) Restore(ref string, identity core.Identity) (ps.Transaction, *db.Store, error) {
	txn, err := op.Persistence.RestoreTo(ref, identity)
	if err != nil {
		return ps.Transaction{}, nil, err
	}

	store, err := op.Load()
	if err != nil {
		return ps.Transaction{}, nil, fmt.Errorf("restored %s but could not load it: %w", txn.ShortId(), err)
	}
	return txn, store, nil
}

// Writer makes engine changes durable through the persistence layer.
type Writer struct {
	Persistence *ps.Persistence
}

func NewWriter(persistence *ps.Persistence) *Writer {
	return &Writer{Persistence: persistence}
}

func (writer *Writer) Apply(change db.Change, identity core.Identity) (ps.Transaction, error) {
	tableOp := &TableOp{Def: ps.TableDef{Name: change.Table}, Persistence: writer.Persistence}

	switch change.Kind {
	case db.AppendRows:
		return tableOp.Append(change.Rows, identity)
	case db.RewriteTable:
		return tableOp.Rewrite(change.Rows, identity)
	default:
		return ps.Transaction{}, fmt.Errorf("unsupported change %s", change.Kind)
	}
}
