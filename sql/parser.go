package sql

import (
	"fmt"

	"github.com/nickyhof/TupleDB/core"
)

type StatementType int

const (
	SelectStatementType StatementType = iota
	InsertStatementType
	DeleteStatementType
)

func (statementType StatementType) String() string {
	switch statementType {
	case SelectStatementType:
		return "SELECT"
	case InsertStatementType:
		return "INSERT"
	case DeleteStatementType:
		return "DELETE"
	default:
		return fmt.Sprintf("StatementType(%d)", int(statementType))
	}
}

type Statement interface {
	Type() StatementType
}

// SelectStatement is SELECT <columns | *> FROM <table> [WHERE <condition>].
// An empty Columns list means every column.
type SelectStatement struct {
	Table   string
	Columns []string
	Where   *WhereCondition
}

// InsertStatement is INSERT INTO <table> (<columns>) VALUES (<values>).
// String literals are stored without their quote markers.
type InsertStatement struct {
	Table   string
	Columns []string
	Values  []string
}

// DeleteStatement is DELETE FROM <table> [WHERE <condition>].
type DeleteStatement struct {
	Table string
	Where *WhereCondition
}

// WhereCondition is the single "attribute operator literal" predicate a
// statement may carry. The operator is kept verbatim and validated when the
// condition is bound to a schema.
type WhereCondition struct {
	Left     string
	Operator string
	Right    string
}

func (where WhereCondition) Condition() core.Condition {
	return core.NewCondition(where.Left, where.Operator, where.Right)
}

func (s SelectStatement) Type() StatementType {
	return SelectStatementType
}

func (s InsertStatement) Type() StatementType {
	return InsertStatementType
}

func (s DeleteStatement) Type() StatementType {
	return DeleteStatementType
}

type Parser struct {
	lexer *Lexer
}

func NewParser(sql string) *Parser {
	lexer := NewLexer(sql)
	return &Parser{lexer: lexer}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrMalformedQuery, fmt.Sprintf(format, args...))
}

func (parser *Parser) Parse() (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case Select:
		return ParseSelect(parser)
	case Insert:
		return ParseInsert(parser)
	case Delete:
		return ParseDelete(parser)
	case EOF:
		return nil, fmt.Errorf("%w: empty query", core.ErrUnrecognizedQuery)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnrecognizedQuery, token.Value)
	}
}

func ParseSelect(parser *Parser) (Statement, error) {
	var selectStatement SelectStatement

	token := parser.lexer.NextToken()

	switch token.Type {
	case From:
		return nil, malformed("missing SELECT attributes")
	case EOF:
		return nil, malformed("missing FROM")
	case Wildcard:
		selectStatement.Columns = []string{}
		token = parser.lexer.NextToken()
	case Identifier:
		selectStatement.Columns = append(selectStatement.Columns, token.Value)
		for {
			token = parser.lexer.NextToken()
			if token.Type == Comma {
				token = parser.lexer.NextToken()
				if token.Type != Identifier {
					return nil, malformed("expected attribute name after ','")
				}
				selectStatement.Columns = append(selectStatement.Columns, token.Value)
			} else {
				break
			}
		}
	default:
		return nil, malformed("expected attribute name or * after SELECT, got %s", token)
	}

	switch token.Type {
	case From:
	case EOF:
		return nil, malformed("missing FROM")
	default:
		return nil, malformed("expected ',' or FROM, got %s", token)
	}

	token = parser.lexer.NextToken()
	if token.Type == Where || token.Type == EOF || token.Type == Semicolon {
		return nil, malformed("missing FROM table name")
	}
	if token.Type != Identifier {
		return nil, malformed("expected table name after FROM, got %s", token)
	}
	selectStatement.Table = token.Value

	where, err := parseOptionalWhere(parser)
	if err != nil {
		return nil, err
	}
	selectStatement.Where = where

	return selectStatement, nil
}

// parseOptionalWhere reads what follows the table name: either the end of the
// statement or WHERE and exactly three tokens.
func parseOptionalWhere(parser *Parser) (*WhereCondition, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case EOF, Semicolon:
		return nil, expectEnd(parser, token)
	case Where:
		return ParseWhere(parser)
	default:
		return nil, malformed("unexpected %s after table name", token)
	}
}

func ParseWhere(parser *Parser) (*WhereCondition, error) {
	var tokens []Token
	for {
		token := parser.lexer.NextToken()
		if token.Type == EOF || token.Type == Semicolon {
			if err := expectEnd(parser, token); err != nil {
				return nil, err
			}
			break
		}
		tokens = append(tokens, token)
	}

	if len(tokens) == 0 {
		return nil, malformed("missing WHERE condition")
	}
	if len(tokens) != 3 {
		return nil, malformed("WHERE condition must be <attribute> <operator> <value>, got %d tokens", len(tokens))
	}
	if tokens[0].Type != Identifier {
		return nil, malformed("expected attribute name in WHERE clause, got %s", tokens[0])
	}
	if !tokens[2].IsLiteral() {
		return nil, malformed("expected value in WHERE clause, got %s", tokens[2])
	}

	return &WhereCondition{
		Left:     tokens[0].Value,
		Operator: tokens[1].Value,
		Right:    tokens[2].Value,
	}, nil
}

// expectEnd accepts a single trailing semicolon before the end of input.
func expectEnd(parser *Parser, token Token) error {
	if token.Type == Semicolon {
		token = parser.lexer.NextToken()
	}
	if token.Type != EOF {
		return malformed("unexpected %s at end of statement", token)
	}
	return nil
}

func ParseInsert(parser *Parser) (Statement, error) {
	var insertStatement InsertStatement

	token := parser.lexer.NextToken()
	if token.Type != Into {
		return nil, malformed("missing INTO after INSERT")
	}

	token = parser.lexer.NextToken()
	if token.Type == ParenOpen || token.Type == Values || token.Type == EOF {
		return nil, malformed("missing INSERT INTO table name")
	}
	if token.Type != Identifier {
		return nil, malformed("expected table name after INSERT INTO, got %s", token)
	}
	insertStatement.Table = token.Value

	token = parser.lexer.NextToken()
	if token.Type != ParenOpen {
		return nil, malformed("missing parentheses")
	}

	columns, err := parseList(parser, "attribute", func(token Token) bool { return token.Type == Identifier })
	if err != nil {
		return nil, err
	}
	insertStatement.Columns = columns

	token = parser.lexer.NextToken()
	if token.Type != Values {
		return nil, malformed("missing VALUES")
	}

	token = parser.lexer.NextToken()
	if token.Type != ParenOpen {
		return nil, malformed("missing parentheses after VALUES")
	}

	values, err := parseList(parser, "value", Token.IsLiteral)
	if err != nil {
		return nil, err
	}
	insertStatement.Values = values

	if err := expectEnd(parser, parser.lexer.NextToken()); err != nil {
		return nil, err
	}

	return insertStatement, nil
}

// parseList reads "item, item, ...)" after an opening parenthesis.
func parseList(parser *Parser, what string, accept func(Token) bool) ([]string, error) {
	var items []string

	token := parser.lexer.NextToken()
	if token.Type == ParenClose {
		return nil, malformed("missing INSERT %ss", what)
	}

	for {
		if !accept(token) {
			return nil, malformed("expected %s, got %s", what, token)
		}
		items = append(items, token.Value)

		token = parser.lexer.NextToken()
		switch token.Type {
		case Comma:
			token = parser.lexer.NextToken()
		case ParenClose:
			return items, nil
		default:
			return nil, malformed("expected ',' or ')' in %s list, got %s", what, token)
		}
	}
}

func ParseDelete(parser *Parser) (Statement, error) {
	var deleteStatement DeleteStatement

	token := parser.lexer.NextToken()
	if token.Type != From {
		return nil, malformed("missing FROM after DELETE")
	}

	token = parser.lexer.NextToken()
	if token.Type == Where || token.Type == EOF || token.Type == Semicolon {
		return nil, malformed("missing DELETE FROM table name")
	}
	if token.Type != Identifier {
		return nil, malformed("expected table name after DELETE FROM, got %s", token)
	}
	deleteStatement.Table = token.Value

	where, err := parseOptionalWhere(parser)
	if err != nil {
		return nil, err
	}
	deleteStatement.Where = where

	return deleteStatement, nil
}
