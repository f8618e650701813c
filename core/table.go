package core

import (
	"fmt"
	"strings"
)

type ColumnType int

const (
	IntegerType ColumnType = iota
	DoubleType
	StringType
)

func (columnType ColumnType) String() string {
	switch columnType {
	case IntegerType:
		return "Integer"
	case DoubleType:
		return "Double"
	case StringType:
		return "String"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(columnType))
	}
}

// ParseColumnType maps a type token from a schema description to a ColumnType.
func ParseColumnType(token string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "integer":
		return IntegerType, nil
	case "double":
		return DoubleType, nil
	case "string":
		return StringType, nil
	default:
		return 0, fmt.Errorf("%w: unknown type %q", ErrMalformedSchema, token)
	}
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

func (column Column) String() string {
	return column.Name + ":" + column.Type.String()
}

// ParseColumn parses a "name:Type" descriptor.
func ParseColumn(descriptor string) (Column, error) {
	parts := strings.Split(Clean(descriptor), ":")
	if len(parts) != 2 {
		return Column{}, fmt.Errorf("%w: expected name:Type, got %q", ErrMalformedSchema, descriptor)
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Column{}, fmt.Errorf("%w: missing column name in %q", ErrMalformedSchema, descriptor)
	}

	columnType, err := ParseColumnType(parts[1])
	if err != nil {
		return Column{}, err
	}

	return Column{Name: name, Type: columnType}, nil
}

// Schema is the immutable, ordered column description of a table. It is
// shared read-only by the table and every tuple built against it.
type Schema struct {
	columns []Column
}

// NewSchema builds a table schema. Column names must be unique, ignoring case.
func NewSchema(columns []Column) (*Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrMalformedSchema)
	}

	seen := make(map[string]bool, len(columns))
	for _, column := range columns {
		key := strings.ToLower(column.Name)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedSchema, column.Name)
		}
		seen[key] = true
	}

	return &Schema{columns: append([]Column(nil), columns...)}, nil
}

// ParseSchema builds a schema from "name:Type" descriptors.
func ParseSchema(descriptors []string) (*Schema, error) {
	columns := make([]Column, 0, len(descriptors))
	for _, descriptor := range descriptors {
		column, err := ParseColumn(descriptor)
		if err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	return NewSchema(columns)
}

func (schema *Schema) Columns() []Column {
	return append([]Column(nil), schema.columns...)
}

func (schema *Schema) Len() int {
	return len(schema.columns)
}

func (schema *Schema) Column(position int) Column {
	return schema.columns[position]
}

func (schema *Schema) Name(position int) string {
	return schema.columns[position].Name
}

func (schema *Schema) TypeOf(position int) ColumnType {
	return schema.columns[position].Type
}

func (schema *Schema) Names() []string {
	names := make([]string, len(schema.columns))
	for i, column := range schema.columns {
		names[i] = column.Name
	}
	return names
}

// PositionOf returns the ordinal of the named column, ignoring case.
func (schema *Schema) PositionOf(name string) (int, bool) {
	for i, column := range schema.columns {
		if strings.EqualFold(column.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// Project builds the schema of a projection over this schema together with the
// source position of every projected column. Names may repeat.
func (schema *Schema) Project(names []string) (*Schema, []int, error) {
	columns := make([]Column, len(names))
	positions := make([]int, len(names))

	for i, name := range names {
		position, ok := schema.PositionOf(name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: attribute %s not found in table", ErrAttributeNotFound, name)
		}
		columns[i] = schema.columns[position]
		positions[i] = position
	}

	return &Schema{columns: columns}, positions, nil
}

func (schema *Schema) String() string {
	parts := make([]string, len(schema.columns))
	for i, column := range schema.columns {
		parts[i] = column.String()
	}
	return strings.Join(parts, ", ")
}

// Table is a named, ordered collection of tuples sharing one schema.
// Insertion order is preserved and duplicates are allowed.
type Table struct {
	Name   string
	schema *Schema
	tuples []*Tuple
}

func NewTable(name string, schema *Schema) *Table {
	return &Table{
		Name:   name,
		schema: schema,
		tuples: make([]*Tuple, 0),
	}
}

func (table *Table) Schema() *Schema {
	return table.schema
}

// Is reports whether the table answers to name, ignoring case.
func (table *Table) Is(name string) bool {
	return strings.EqualFold(table.Name, name)
}

// AddTuple appends a tuple. The caller supplies a tuple built on the table schema.
func (table *Table) AddTuple(tuple *Tuple) {
	table.tuples = append(table.tuples, tuple)
}

func (table *Table) Tuples() []*Tuple {
	return table.tuples
}

func (table *Table) Len() int {
	return len(table.tuples)
}

// RemoveWhere drops every tuple for which match returns true and reports how
// many were removed. Survivors keep their order.
func (table *Table) RemoveWhere(match func(*Tuple) bool) int {
	kept := table.tuples[:0]
	removed := 0
	for _, tuple := range table.tuples {
		if match(tuple) {
			removed++
			continue
		}
		kept = append(kept, tuple)
	}
	for i := len(kept); i < len(table.tuples); i++ {
		table.tuples[i] = nil
	}
	table.tuples = kept
	return removed
}

func (table *Table) Replace(tuples []*Tuple) {
	table.tuples = tuples
}

func (table *Table) Clear() {
	table.tuples = make([]*Tuple, 0)
}

// Rows returns the textual form of every tuple, in order.
func (table *Table) Rows() [][]string {
	rows := make([][]string, len(table.tuples))
	for i, tuple := range table.tuples {
		rows[i] = tuple.Strings()
	}
	return rows
}

// Clean strips byte order marks, NUL characters and surrounding whitespace
// from a field read out of a schema or data file.
func Clean(s string) string {
	return strings.TrimSpace(StripMarkers(s))
}

// StripMarkers removes byte order marks and NUL bytes and keeps everything
// else, whitespace included.
func StripMarkers(s string) string {
	s = strings.ReplaceAll(s, "\uFEFF", "")
	return strings.ReplaceAll(s, "\x00", "")
}
