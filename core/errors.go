package core

import "errors"

var (
	ErrMalformedQuery    = errors.New("malformed query")
	ErrUnrecognizedQuery = errors.New("unrecognized query")
	ErrTableNotFound     = errors.New("table not found")
	ErrAttributeNotFound = errors.New("attribute not found")
	ErrArityMismatch     = errors.New("arity mismatch")
	ErrTypeConversion    = errors.New("type conversion error")
	ErrInvalidOperator   = errors.New("invalid operator")
	ErrUnsupportedType   = errors.New("unsupported type")
	ErrMalformedSchema   = errors.New("malformed schema")
)
