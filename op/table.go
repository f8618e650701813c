package op

import (
	"fmt"
	"strings"

	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/ps"
)

type TableOp struct {
	Def         ps.TableDef
	Persistence *ps.Persistence
}

// GetTable finds the named table in the schema file at HEAD.
func GetTable(tableName string, persistence *ps.Persistence) (*TableOp, error) {
	defs, err := persistence.ReadSchema()
	if err != nil {
		return nil, err
	}

	for _, def := range defs {
		if strings.EqualFold(def.Name, tableName) {
			return &TableOp{Def: def, Persistence: persistence}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, tableName)
}

// Load reads the table's data file into a new table. Every row is coerced
// through the schema; a row that does not fit fails the whole load.
func (op *TableOp) Load() (*core.Table, error) {
	rows, err := op.Persistence.ReadRows(op.Def.Name)
	if err != nil {
		return nil, err
	}

	table := core.NewTable(op.Def.Name, op.Def.Schema)
	for i, row := range rows {
		tuple := core.NewTuple(op.Def.Schema)
		if err := tuple.SetValues(row); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", ps.DataFile(op.Def.Name), i+1, err)
		}
		table.AddTuple(tuple)
	}

	return table, nil
}

func (op *TableOp) Append(rows [][]string, identity core.Identity) (ps.Transaction, error) {
	return op.Persistence.AppendRows(op.Def.Name, rows, identity)
}

func (op *TableOp) Rewrite(rows [][]string, identity core.Identity) (ps.Transaction, error) {
	return op.Persistence.RewriteRows(op.Def.Name, rows, identity)
}
