package core

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Value is a single typed cell. Only the field matching the type tag is
// meaningful, so a value can never disagree with its own type.
type Value struct {
	columnType ColumnType

	i int64   // IntegerType
	f float64 // DoubleType
	s string  // StringType
}

func IntegerValue(v int64) Value {
	return Value{columnType: IntegerType, i: v}
}

func DoubleValue(v float64) Value {
	return Value{columnType: DoubleType, f: v}
}

func StringValue(v string) Value {
	return Value{columnType: StringType, s: v}
}

// ZeroValue is the value a fresh tuple holds for a column of the given type.
func ZeroValue(columnType ColumnType) Value {
	return Value{columnType: columnType}
}

// ParseValue coerces raw text into a value of the given type.
func ParseValue(columnType ColumnType, raw string) (Value, error) {
	switch columnType {
	case IntegerType:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a valid Integer", ErrTypeConversion, raw)
		}
		return IntegerValue(v), nil
	case DoubleType:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a valid Double", ErrTypeConversion, raw)
		}
		return DoubleValue(v), nil
	case StringType:
		return StringValue(raw), nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, columnType)
	}
}

func (value Value) Type() ColumnType {
	return value.columnType
}

func (value Value) Int() int64 {
	return value.i
}

func (value Value) Float() float64 {
	return value.f
}

func (value Value) Str() string {
	return value.s
}

// String renders the value the way it is written to data files.
func (value Value) String() string {
	switch value.columnType {
	case IntegerType:
		return strconv.FormatInt(value.i, 10)
	case DoubleType:
		return formatDouble(value.f)
	default:
		return value.s
	}
}

// Compare orders two values of the same type: numeric magnitude for numbers,
// byte (code point) order for strings.
func (value Value) Compare(other Value) int {
	switch value.columnType {
	case IntegerType:
		return cmp.Compare(value.i, other.i)
	case DoubleType:
		return cmp.Compare(value.f, other.f)
	default:
		return strings.Compare(value.s, other.s)
	}
}

func (value Value) Equal(other Value) bool {
	return value.columnType == other.columnType && value.Compare(other) == 0
}

// formatDouble keeps a fractional part on whole numbers (3 -> "3.0").
func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if strings.ContainsAny(s, ".eEnN") {
		return s
	}
	return s + ".0"
}

// Tuple is a fixed-length row of typed values bound to the schema it was
// created with. Values are coerced to the column type when written.
type Tuple struct {
	schema *Schema
	values []Value
}

// NewTuple creates a tuple with every column at its type default.
func NewTuple(schema *Schema) *Tuple {
	values := make([]Value, schema.Len())
	for i := range values {
		values[i] = ZeroValue(schema.TypeOf(i))
	}
	return &Tuple{schema: schema, values: values}
}

func (tuple *Tuple) Schema() *Schema {
	return tuple.schema
}

func (tuple *Tuple) Len() int {
	return len(tuple.values)
}

func (tuple *Tuple) checkPosition(position int) error {
	if position < 0 || position >= len(tuple.values) {
		return fmt.Errorf("%w: position %d outside %d columns", ErrArityMismatch, position, len(tuple.values))
	}
	return nil
}

// SetValue converts raw to the declared type of the column at position and
// stores it. No other position is touched.
func (tuple *Tuple) SetValue(position int, raw string) error {
	if err := tuple.checkPosition(position); err != nil {
		return err
	}

	value, err := ParseValue(tuple.schema.TypeOf(position), raw)
	if err != nil {
		return fmt.Errorf("%w (column %s)", err, tuple.schema.Name(position))
	}

	tuple.values[position] = value
	return nil
}

// Set stores an already typed value. The value type must match the column.
func (tuple *Tuple) Set(position int, value Value) error {
	if err := tuple.checkPosition(position); err != nil {
		return err
	}

	if value.Type() != tuple.schema.TypeOf(position) {
		return fmt.Errorf("%w: %s value for %s column %s",
			ErrTypeConversion, value.Type(), tuple.schema.TypeOf(position), tuple.schema.Name(position))
	}

	tuple.values[position] = value
	return nil
}

// SetValues coerces one raw input per column. Nothing is written unless every
// input converts.
func (tuple *Tuple) SetValues(raw []string) error {
	if len(raw) != len(tuple.values) {
		return fmt.Errorf("%w: %d values for %d columns", ErrArityMismatch, len(raw), len(tuple.values))
	}

	converted := make([]Value, len(raw))
	for i, input := range raw {
		value, err := ParseValue(tuple.schema.TypeOf(i), input)
		if err != nil {
			return fmt.Errorf("%w (column %s)", err, tuple.schema.Name(i))
		}
		converted[i] = value
	}

	copy(tuple.values, converted)
	return nil
}

func (tuple *Tuple) Value(position int) Value {
	return tuple.values[position]
}

// Values returns the backing slice; copy it before mutating.
func (tuple *Tuple) Values() []Value {
	return tuple.values
}

func (tuple *Tuple) Strings() []string {
	out := make([]string, len(tuple.values))
	for i, value := range tuple.values {
		out[i] = value.String()
	}
	return out
}

func (tuple *Tuple) Equal(other *Tuple) bool {
	if len(tuple.values) != len(other.values) {
		return false
	}
	for i, value := range tuple.values {
		if !value.Equal(other.values[i]) {
			return false
		}
	}
	return true
}
