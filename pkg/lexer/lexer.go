package lexer

// Lexer tokenizes Crystal source code. A Lexer makes a single forward pass;
// create a new one with New to scan the input again.
type Lexer struct {
	input        string
	position     int  // current position in input
	readPosition int  // current reading position (after current char)
	ch           byte // current char, 0 once the input is exhausted
}

// New creates a new Lexer.
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Tokenize scans the whole input and returns every token except the final EOF.
func Tokenize(input string) []Token {
	return New(input).Tokenize()
}

// Tokenize drains the lexer. Error tokens are included; they do not stop the scan.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.Next()
		if tok.Type == TOKEN_EOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// twoCharOperators holds the operators made of the current char and one lookahead.
var twoCharOperators = map[string]TokenType{
	"==": TOKEN_EQ,
	"!=": TOKEN_NEQ,
	">=": TOKEN_GTE,
	"<=": TOKEN_LTE,
	"&&": TOKEN_AND,
	"||": TOKEN_OR,
}

var oneCharOperators = map[byte]TokenType{
	'+': TOKEN_PLUS,
	'-': TOKEN_MINUS,
	'*': TOKEN_ASTERISK,
	'/': TOKEN_SLASH,
	'%': TOKEN_PERCENT,
	'>': TOKEN_GT,
	'<': TOKEN_LT,
	'!': TOKEN_NOT,
}

var punctuation = map[byte]TokenType{
	'{': TOKEN_LBRACE,
	'}': TOKEN_RBRACE,
	'(': TOKEN_LPAREN,
	')': TOKEN_RPAREN,
	';': TOKEN_SEMICOLON,
	'=': TOKEN_ASSIGN,
	',': TOKEN_COMMA,
}

// Next returns the next token. Once the input is exhausted it keeps
// returning TOKEN_EOF.
func (l *Lexer) Next() Token {
	l.skipWhitespaceAndComments()

	start := l.position
	// The NUL sentinel alone is not trusted: a NUL byte inside the input
	// must not end the scan early.
	if l.atEnd() {
		return Token{Type: TOKEN_EOF, Offset: len(l.input)}
	}

	switch {
	case isLetter(l.ch):
		literal := l.readIdentifier()
		return Token{Type: LookupIdent(literal), Literal: literal, Offset: start}
	case isDigit(l.ch):
		return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Offset: start}
	case l.ch == '"':
		literal, ok := l.readString()
		if !ok {
			return Token{Type: TOKEN_ERROR, Literal: literal, Offset: start}
		}
		return Token{Type: TOKEN_STRING, Literal: literal, Offset: start}
	}

	if l.readPosition < len(l.input) {
		if t, ok := twoCharOperators[l.input[l.position:l.readPosition+1]]; ok {
			l.readChar()
			l.readChar()
			return Token{Type: t, Literal: l.input[start:l.position], Offset: start}
		}
	}
	if t, ok := oneCharOperators[l.ch]; ok {
		return l.single(t, start)
	}
	if t, ok := punctuation[l.ch]; ok {
		return l.single(t, start)
	}
	return l.single(TOKEN_ERROR, start)
}

func (l *Lexer) single(t TokenType, start int) Token {
	l.readChar()
	return Token{Type: t, Literal: l.input[start:l.position], Offset: start}
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	if l.position > len(l.input) {
		l.position = len(l.input)
	}
	l.readPosition++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier() string {
	position := l.position
	for !l.atEnd() && (isLetter(l.ch) || isDigit(l.ch)) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads digits with at most one fractional part.
func (l *Lexer) readNumber() string {
	position := l.position
	for !l.atEnd() && isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume '.'
		for !l.atEnd() && isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position]
}

// readString reads a quoted literal including both quotes. Escaped
// characters are kept verbatim. ok is false when the input ends first.
func (l *Lexer) readString() (literal string, ok bool) {
	position := l.position
	l.readChar() // opening quote
	for !l.atEnd() {
		switch l.ch {
		case '\\':
			l.readChar()
			if l.atEnd() {
				return l.input[position:], false
			}
		case '"':
			l.readChar()
			return l.input[position:l.position], true
		}
		l.readChar()
	}
	return l.input[position:], false
}

// skipWhitespaceAndComments skips blanks and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

// isLetter checks if a character can start an identifier.
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch >= 0x80
}

// isDigit checks if a character is a digit.
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
