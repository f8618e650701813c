// Package db executes TupleDB queries against an in-memory Store.
//
// # Engine Usage
//
//	engine := db.NewEngine(store, writer, identity)
//	result, err := engine.Execute("SELECT name FROM Students WHERE gpa < 3.0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display()
//
// # Result Types
//
//   - QueryResult: returned by SELECT. Holds a new table named "Res" whose
//     schema follows the projection order.
//   - CommitResult: returned by INSERT and DELETE. Holds the Change that was
//     written back and the resulting transaction.
//
// Mutations are two-phase: the engine validates the statement, hands a Change
// to its ChangeWriter and only then updates the in-memory table. A statement
// that fails at any point leaves every table as it was.
package db
