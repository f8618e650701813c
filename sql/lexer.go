package sql

type Token struct {
	Type  TokenType
	Value string
}

type TokenType int

const (
	Identifier TokenType = iota
	String
	Number
	Operator
	Wildcard
	Comma
	ParenOpen
	ParenClose
	Semicolon
	Select
	From
	Where
	Insert
	Into
	Values
	Delete
	EOF
	Unknown
)

func (tokenType TokenType) String() string {
	switch tokenType {
	case Identifier:
		return "Identifier"
	case String:
		return "String"
	case Number:
		return "Number"
	case Operator:
		return "Operator"
	case Wildcard:
		return "Wildcard"
	case Comma:
		return "Comma"
	case ParenOpen:
		return "ParenOpen"
	case ParenClose:
		return "ParenClose"
	case Semicolon:
		return "Semicolon"
	case Select:
		return "Select"
	case From:
		return "From"
	case Where:
		return "Where"
	case Insert:
		return "Insert"
	case Into:
		return "Into"
	case Values:
		return "Values"
	case Delete:
		return "Delete"
	case EOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

func (token Token) String() string {
	switch token.Type {
	case Identifier, String, Number, Operator, Unknown:
		return token.Type.String() + "(" + token.Value + ")"
	default:
		return token.Type.String()
	}
}

// IsLiteral reports whether the token can stand for a value. Bare words are
// accepted as string literals.
func (token Token) IsLiteral() bool {
	return token.Type == String || token.Type == Number || token.Type == Identifier
}

type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) NextToken() Token {
	var token Token

	lexer.skipWhitespace()

	switch lexer.ch {
	case ',':
		token = Token{Type: Comma, Value: string(lexer.ch)}
	case '(':
		token = Token{Type: ParenOpen, Value: string(lexer.ch)}
	case ')':
		token = Token{Type: ParenClose, Value: string(lexer.ch)}
	case ';':
		token = Token{Type: Semicolon, Value: string(lexer.ch)}
	case '*':
		token = Token{Type: Wildcard, Value: string(lexer.ch)}
	case 0:
		return Token{Type: EOF, Value: ""}
	case '\'':
		str, terminated := lexer.readString()
		if !terminated {
			return Token{Type: Unknown, Value: "'" + str}
		}
		token = Token{Type: String, Value: str}
	default:
		if isOperator(lexer.ch) {
			return Token{Type: Operator, Value: lexer.readOperator()}
		} else if lexer.atNumber() {
			return Token{Type: Number, Value: lexer.readNumber()}
		} else if isIdentifierStart(lexer.ch) {
			literal := lexer.readIdentifier()
			return Token{Type: lookupIdentifier(literal), Value: literal}
		} else {
			token = Token{Type: Unknown, Value: string(lexer.ch)}
		}
	}

	lexer.readChar()
	return token
}

func (lexer *Lexer) skipWhitespace() {
	for lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' {
		lexer.readChar()
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isIdentifierPart(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readString consumes a single-quoted literal and leaves the lexer on the
// closing quote. The quotes are not part of the value.
func (lexer *Lexer) readString() (string, bool) {
	lexer.readChar()
	position := lexer.position
	for lexer.ch != '\'' && lexer.ch != 0 {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position], lexer.ch == '\''
}

// atNumber reports whether a numeric literal starts here: digits, a leading
// decimal point (.5) or a sign before either.
func (lexer *Lexer) atNumber() bool {
	offset := 0
	if lexer.ch == '-' || lexer.ch == '+' {
		offset = 1
	}
	first := lexer.charAt(offset)
	return isDigit(first) || (first == '.' && isDigit(lexer.charAt(offset+1)))
}

// charAt returns the byte offset places after the current one.
func (lexer *Lexer) charAt(offset int) byte {
	if lexer.position+offset >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.position+offset]
}

// readNumber accepts the forms strconv.ParseFloat does for decimals: 3, 3.5,
// .5, 3. and an exponent such as 1e3 or 2.5E-2.
func (lexer *Lexer) readNumber() string {
	position := lexer.position
	if lexer.ch == '-' || lexer.ch == '+' {
		lexer.readChar()
	}
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	if lexer.ch == '.' {
		lexer.readChar()
		for isDigit(lexer.ch) {
			lexer.readChar()
		}
	}
	if lexer.ch == 'e' || lexer.ch == 'E' {
		offset := 1
		if sign := lexer.charAt(1); sign == '-' || sign == '+' {
			offset = 2
		}
		if isDigit(lexer.charAt(offset)) {
			for i := 0; i < offset; i++ {
				lexer.readChar()
			}
			for isDigit(lexer.ch) {
				lexer.readChar()
			}
		}
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isIdentifierStart(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isIdentifierPart(ch byte) bool {
	return isIdentifierStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}

// lookupIdentifier classifies a word. Keywords are case-sensitive: only the
// upper-case spelling is a keyword, anything else is a name or bare literal.
func lookupIdentifier(id string) TokenType {
	switch id {
	case "SELECT":
		return Select
	case "FROM":
		return From
	case "WHERE":
		return Where
	case "INSERT":
		return Insert
	case "INTO":
		return Into
	case "VALUES":
		return Values
	case "DELETE":
		return Delete
	default:
		return Identifier
	}
}
