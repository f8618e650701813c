// Package TupleDB is a small Git-backed relational store.
//
// A TupleDB data directory holds a schema file declaring a fixed set of typed
// tables and one CSV file per table. Tables are queried with a tiny language:
// SELECT with an optional single-predicate filter and projection, INSERT, and
// DELETE with an optional single-predicate filter. Every INSERT and DELETE is
// a Git commit, so history can be listed, tagged and restored.
//
// # Quick Start
//
//	persistence, _ := ps.NewFilePersistence("data")
//	instance, _ := TupleDB.Open(persistence)
//	engine := instance.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.Execute("INSERT INTO Students (sid, name, gpa) VALUES (4, 'Di', 3.2)")
//	result, _ := engine.Execute("SELECT name FROM Students WHERE gpa < 3.0")
//	result.Display()
//
// # Column Types
//
//   - Integer: 64-bit signed
//   - Double: 64-bit float, always shown with a fractional digit
//   - String: compared exactly as stored
//
// # Operators
//
// =, !=, <>, <, >, <= and >=. Keywords are upper case; table and column names
// are matched ignoring case.
package TupleDB
