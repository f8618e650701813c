package db

import (
	"fmt"
	"time"

	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/ps"
	"github.com/nickyhof/TupleDB/sql"
)

// ResultTableName names the table holding SELECT output.
const ResultTableName = "Res"

type QueryContext struct {
	Identity core.Identity
}

type Engine struct {
	store  *Store
	writer ChangeWriter
	QueryContext
}

// NewEngine returns an engine over store. A nil writer keeps every change in
// memory only.
func NewEngine(store *Store, writer ChangeWriter, identity core.Identity) *Engine {
	return &Engine{
		store:        store,
		writer:       writer,
		QueryContext: QueryContext{Identity: identity},
	}
}

func (engine *Engine) Store() *Store {
	return engine.store
}

func (engine *Engine) Execute(query string) (Result, error) {
	parser := sql.NewParser(query)
	statement, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	switch statement.Type() {
	case sql.SelectStatementType:
		return engine.executeSelectStatement(statement.(sql.SelectStatement))
	case sql.InsertStatementType:
		return engine.executeInsertStatement(statement.(sql.InsertStatement))
	case sql.DeleteStatementType:
		return engine.executeDeleteStatement(statement.(sql.DeleteStatement))
	default:
		return nil, fmt.Errorf("%w: %v", core.ErrUnrecognizedQuery, statement.Type())
	}
}

func bindWhere(where *sql.WhereCondition, schema *core.Schema) (*core.Predicate, error) {
	if where == nil {
		return nil, nil
	}
	predicate, err := where.Condition().Bind(schema)
	if err != nil {
		return nil, err
	}
	return &predicate, nil
}

func (engine *Engine) executeSelectStatement(statement sql.SelectStatement) (QueryResult, error) {
	startTime := time.Now()

	table, err := engine.store.Table(statement.Table)
	if err != nil {
		return QueryResult{}, err
	}
	source := table.Schema()

	columns := statement.Columns
	if len(columns) == 0 {
		columns = source.Names()
	}

	schema, positions, err := source.Project(columns)
	if err != nil {
		return QueryResult{}, err
	}

	predicate, err := bindWhere(statement.Where, source)
	if err != nil {
		return QueryResult{}, err
	}

	result := core.NewTable(ResultTableName, schema)
	rowsScanned := 0
	for _, tuple := range table.Tuples() {
		rowsScanned++
		if predicate != nil && !predicate.Matches(tuple) {
			continue
		}

		row := core.NewTuple(schema)
		for i, position := range positions {
			if err := row.Set(i, tuple.Value(position)); err != nil {
				return QueryResult{}, err
			}
		}
		result.AddTuple(row)
	}

	return QueryResult{
		Table:            result,
		RecordsRead:      result.Len(),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     rowsScanned,
	}, nil
}

func (engine *Engine) executeInsertStatement(statement sql.InsertStatement) (CommitResult, error) {
	startTime := time.Now()

	if len(statement.Columns) != len(statement.Values) {
		return CommitResult{}, fmt.Errorf("%w: Mismatch between attributes and values", core.ErrArityMismatch)
	}

	table, err := engine.store.Table(statement.Table)
	if err != nil {
		return CommitResult{}, err
	}
	schema := table.Schema()

	tuple := core.NewTuple(schema)
	for i, column := range statement.Columns {
		position, ok := schema.PositionOf(column)
		if !ok {
			return CommitResult{}, fmt.Errorf("%w: attribute %s not found in table %s", core.ErrAttributeNotFound, column, table.Name)
		}
		if err := tuple.SetValue(position, core.StripQuotes(statement.Values[i])); err != nil {
			return CommitResult{}, err
		}
	}

	change := Change{
		Kind:  AppendRows,
		Table: table.Name,
		Rows:  [][]string{tuple.Strings()},
	}

	transaction, err := engine.apply(change)
	if err != nil {
		return CommitResult{}, err
	}
	table.AddTuple(tuple)

	return CommitResult{
		Transaction:      transaction,
		Change:           change,
		RecordsWritten:   1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeDeleteStatement(statement sql.DeleteStatement) (CommitResult, error) {
	startTime := time.Now()

	table, err := engine.store.Table(statement.Table)
	if err != nil {
		return CommitResult{}, err
	}

	predicate, err := bindWhere(statement.Where, table.Schema())
	if err != nil {
		return CommitResult{}, err
	}

	// survivors is a fresh slice so the table is untouched until the change is durable
	survivors := []*core.Tuple{}
	if predicate != nil {
		for _, tuple := range table.Tuples() {
			if !predicate.Matches(tuple) {
				survivors = append(survivors, tuple)
			}
		}
	}

	rows := make([][]string, len(survivors))
	for i, tuple := range survivors {
		rows[i] = tuple.Strings()
	}

	change := Change{
		Kind:  RewriteTable,
		Table: table.Name,
		Rows:  rows,
	}

	transaction, err := engine.apply(change)
	if err != nil {
		return CommitResult{}, err
	}

	deleted := table.Len() - len(survivors)
	table.Replace(survivors)

	return CommitResult{
		Transaction:      transaction,
		Change:           change,
		RecordsDeleted:   deleted,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     deleted + len(survivors),
	}, nil
}

func (engine *Engine) apply(change Change) (ps.Transaction, error) {
	if engine.writer == nil {
		return ps.Transaction{}, nil
	}
	transaction, err := engine.writer.Apply(change, engine.Identity)
	if err != nil {
		return ps.Transaction{}, fmt.Errorf("failed to write %s: %w", change.Table, err)
	}
	return transaction, nil
}
