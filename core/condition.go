package core

import (
	"fmt"
	"strings"
)

type Operator string

const (
	EqualsOperator             Operator = "="
	NotEqualsOperator          Operator = "!="
	LessThanOperator           Operator = "<"
	GreaterThanOperator        Operator = ">"
	LessThanOrEqualOperator    Operator = "<="
	GreaterThanOrEqualOperator Operator = ">="
)

// ParseOperator accepts the six comparison symbols, plus "<>" for "!=".
func ParseOperator(symbol string) (Operator, error) {
	switch symbol {
	case "=":
		return EqualsOperator, nil
	case "!=", "<>":
		return NotEqualsOperator, nil
	case "<":
		return LessThanOperator, nil
	case ">":
		return GreaterThanOperator, nil
	case "<=":
		return LessThanOrEqualOperator, nil
	case ">=":
		return GreaterThanOrEqualOperator, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidOperator, symbol)
	}
}

func (operator Operator) holds(comparison int) bool {
	switch operator {
	case EqualsOperator:
		return comparison == 0
	case NotEqualsOperator:
		return comparison != 0
	case LessThanOperator:
		return comparison < 0
	case GreaterThanOperator:
		return comparison > 0
	case LessThanOrEqualOperator:
		return comparison <= 0
	case GreaterThanOrEqualOperator:
		return comparison >= 0
	default:
		return false
	}
}

// Condition is a single "column operator literal" predicate, e.g. sid = 1.
type Condition struct {
	Operand1 string
	Operator string
	Operand2 string
}

// NewCondition builds a condition; quote markers around the literal are dropped.
func NewCondition(operand1, operator, operand2 string) Condition {
	return Condition{
		Operand1: operand1,
		Operator: operator,
		Operand2: StripQuotes(operand2),
	}
}

func (condition Condition) String() string {
	return fmt.Sprintf("%s %s %s", condition.Operand1, condition.Operator, condition.Operand2)
}

// Predicate is a condition resolved against one schema, ready to test rows.
type Predicate struct {
	position int
	operator Operator
	literal  Value
}

// Bind resolves the column, parses the literal in the column's type and checks
// the operator, so that errors surface before any row is examined.
func (condition Condition) Bind(schema *Schema) (Predicate, error) {
	position, ok := schema.PositionOf(condition.Operand1)
	if !ok {
		return Predicate{}, fmt.Errorf("%w: attribute %s not found in schema", ErrAttributeNotFound, condition.Operand1)
	}

	columnType := schema.TypeOf(position)
	switch columnType {
	case IntegerType, DoubleType, StringType:
	default:
		return Predicate{}, fmt.Errorf("%w: %s", ErrUnsupportedType, columnType)
	}

	literal, err := ParseValue(columnType, condition.Operand2)
	if err != nil {
		return Predicate{}, fmt.Errorf("%w (column %s)", err, schema.Name(position))
	}

	operator, err := ParseOperator(condition.Operator)
	if err != nil {
		return Predicate{}, err
	}

	return Predicate{
		position: position,
		operator: operator,
		literal:  literal,
	}, nil
}

// Evaluate tests a single tuple laid out according to schema.
func (condition Condition) Evaluate(tuple *Tuple, schema *Schema) (bool, error) {
	predicate, err := condition.Bind(schema)
	if err != nil {
		return false, err
	}
	return predicate.Matches(tuple), nil
}

func (predicate Predicate) Matches(tuple *Tuple) bool {
	return predicate.operator.holds(tuple.Value(predicate.position).Compare(predicate.literal))
}

// StripQuotes removes leading and trailing single quote characters.
func StripQuotes(s string) string {
	return strings.Trim(s, "'")
}
