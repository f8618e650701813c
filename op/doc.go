// Package op connects the query engine (db/) to the persistence layer (ps/).
//
// # Bootstrap
//
// LoadStore reads the schema file and every table's data file and returns a
// ready db.Store:
//
//	store, err := op.LoadStore(persistence)
//
// # Write-back
//
// Writer implements db.ChangeWriter. Appended rows are added to the end of the
// table's CSV file; a rewrite replaces the file. Each change is one commit:
//
//	engine := db.NewEngine(store, op.NewWriter(persistence), identity)
//
// # Tables
//
//	tableOp, err := op.GetTable("Students", persistence)
//	table, err := tableOp.Load()
package op
