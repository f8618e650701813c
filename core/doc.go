// Package core provides the typed data model used throughout TupleDB.
//
// The package defines Schema, Value, Tuple, Table and Condition, the
// Identity attached to every durable change, and the error taxonomy
// shared by the parser, the engine and the persistence layer.
//
// # Column Types
//
// The set of column types is closed:
//   - IntegerType: 64-bit signed integers
//   - DoubleType: 64-bit floating point numbers
//   - StringType: text, stored verbatim
//
// # Schemas and Tuples
//
//	schema, _ := core.ParseSchema([]string{"sid:Integer", "name:String", "gpa:Double"})
//	tuple := core.NewTuple(schema)           // 0, "", 0.0
//	_ = tuple.SetValues([]string{"1", "Ann", "3.5"})
//
// # Conditions
//
// A condition compares one column with one literal:
//
//	condition := core.NewCondition("gpa", "<", "3.0")
//	predicate, err := condition.Bind(schema)
//	if err == nil && predicate.Matches(tuple) {
//	    // ...
//	}
//
// # Errors
//
// Every failure wraps one of the sentinel errors (ErrMalformedQuery,
// ErrTableNotFound, ErrAttributeNotFound, ...) and can be tested with
// errors.Is.
package core
