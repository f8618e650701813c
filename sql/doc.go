// Package sql provides lexing and parsing for the TupleDB query language.
//
// The grammar is deliberately small. Keywords are upper case and every
// statement targets a single table:
//
//	SELECT <attr, ... | *> FROM <table> [WHERE <attr> <op> <literal>]
//	INSERT INTO <table> (<attr>, ...) VALUES (<literal>, ...)
//	DELETE FROM <table> [WHERE <attr> <op> <literal>]
//
// A statement may end with a single semicolon. String literals are single
// quoted and may contain spaces. A WHERE clause is exactly three tokens; the
// operator is kept as written and checked when the condition is bound to a
// table schema (see core.Condition).
//
// # Parser Usage
//
//	parser := sql.NewParser("SELECT name FROM Students WHERE gpa < 3.0")
//	statement, err := parser.Parse()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Parse errors wrap core.ErrUnrecognizedQuery when the leading word is not a
// known statement and core.ErrMalformedQuery for everything else.
package sql
