// Package lexer provides lexical analysis for Crystal scripts.
package lexer

import "fmt"

// TokenType represents the type of a token.
type TokenType int

// Token types
const (
	// Special tokens
	TOKEN_ERROR TokenType = iota
	TOKEN_EOF

	// Literals
	TOKEN_IDENT   // identifier
	TOKEN_KEYWORD // reserved word
	TOKEN_NUMBER  // number literal
	TOKEN_STRING  // string literal (quotes retained)

	// Operators
	TOKEN_PLUS     // +
	TOKEN_MINUS    // -
	TOKEN_ASTERISK // *
	TOKEN_SLASH    // /
	TOKEN_PERCENT  // %
	TOKEN_EQ       // ==
	TOKEN_NEQ      // !=
	TOKEN_GT       // >
	TOKEN_LT       // <
	TOKEN_GTE      // >=
	TOKEN_LTE      // <=
	TOKEN_AND      // &&
	TOKEN_OR       // ||
	TOKEN_NOT      // !

	// Punctuation
	TOKEN_LBRACE    // {
	TOKEN_RBRACE    // }
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_SEMICOLON // ;
	TOKEN_ASSIGN    // =
	TOKEN_COMMA     // ,
)

// Token represents a lexical token. Tokens are values and are never
// modified after the lexer produces them.
type Token struct {
	Type    TokenType
	Literal string
	Offset  int // byte offset of the first character in the source
}

// tokenTypeNames maps TokenType to its string representation.
var tokenTypeNames = map[TokenType]string{
	TOKEN_ERROR: "ERROR",
	TOKEN_EOF:   "EOF",

	TOKEN_IDENT:   "IDENT",
	TOKEN_KEYWORD: "KEYWORD",
	TOKEN_NUMBER:  "NUMBER",
	TOKEN_STRING:  "STRING",

	TOKEN_PLUS:     "+",
	TOKEN_MINUS:    "-",
	TOKEN_ASTERISK: "*",
	TOKEN_SLASH:    "/",
	TOKEN_PERCENT:  "%",
	TOKEN_EQ:       "==",
	TOKEN_NEQ:      "!=",
	TOKEN_GT:       ">",
	TOKEN_LT:       "<",
	TOKEN_GTE:      ">=",
	TOKEN_LTE:      "<=",
	TOKEN_AND:      "&&",
	TOKEN_OR:       "||",
	TOKEN_NOT:      "!",

	TOKEN_LBRACE:    "{",
	TOKEN_RBRACE:    "}",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_SEMICOLON: ";",
	TOKEN_ASSIGN:    "=",
	TOKEN_COMMA:     ",",
}

// String returns a string representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsArithmetic reports whether the token type is an arithmetic operator.
func (t TokenType) IsArithmetic() bool {
	return t >= TOKEN_PLUS && t <= TOKEN_PERCENT
}

// IsRelational reports whether the token type is a comparison operator.
func (t TokenType) IsRelational() bool {
	return t >= TOKEN_EQ && t <= TOKEN_LTE
}

// IsLogical reports whether the token type is a binary logical operator.
func (t TokenType) IsLogical() bool {
	return t == TOKEN_AND || t == TOKEN_OR
}

// IsOperator reports whether the token type is any operator.
func (t TokenType) IsOperator() bool {
	return t >= TOKEN_PLUS && t <= TOKEN_NOT
}

// IsPunctuation reports whether the token type is punctuation.
func (t TokenType) IsPunctuation() bool {
	return t >= TOKEN_LBRACE && t <= TOKEN_COMMA
}

// Priority returns the precedence tier of an arithmetic operator.
// Multiplicative operators bind tighter than additive ones; everything
// else has no arithmetic priority.
func (t TokenType) Priority() int {
	switch t {
	case TOKEN_ASTERISK, TOKEN_SLASH, TOKEN_PERCENT:
		return 2
	case TOKEN_PLUS, TOKEN_MINUS:
		return 1
	default:
		return 0
	}
}

// Keywords
const (
	KeywordCrystal   = "crystal"
	KeywordVariables = "variables"
	KeywordFunction  = "function"
	KeywordReturn    = "return"
	KeywordIf        = "if"
	KeywordElse      = "else"
	KeywordNumber    = "number"
	KeywordString    = "string"
	KeywordBool      = "bool"
	KeywordNull      = "null"
	KeywordTrue      = "true"
	KeywordFalse     = "false"
)

// keywords is the fixed reserved word set. Matching is case-sensitive.
var keywords = map[string]bool{
	KeywordCrystal:   true,
	KeywordVariables: true,
	KeywordFunction:  true,
	KeywordReturn:    true,
	KeywordIf:        true,
	KeywordElse:      true,
	KeywordNumber:    true,
	KeywordString:    true,
	KeywordBool:      true,
	KeywordNull:      true,
	KeywordTrue:      true,
	KeywordFalse:     true,
}

// LookupIdent returns TOKEN_KEYWORD for reserved words and TOKEN_IDENT otherwise.
func LookupIdent(ident string) TokenType {
	if keywords[ident] {
		return TOKEN_KEYWORD
	}
	return TOKEN_IDENT
}

// Is reports whether the token has the given type and literal.
func (tok Token) Is(t TokenType, literal string) bool {
	return tok.Type == t && tok.Literal == literal
}

// IsKeyword reports whether the token is the given keyword.
func (tok Token) IsKeyword(word string) bool {
	return tok.Is(TOKEN_KEYWORD, word)
}

// Diagnostic describes an error token. It returns "" for other tokens.
func (tok Token) Diagnostic() string {
	if tok.Type != TOKEN_ERROR {
		return ""
	}
	if len(tok.Literal) > 0 && tok.Literal[0] == '"' {
		return fmt.Sprintf("unterminated string literal at offset %d", tok.Offset)
	}
	return fmt.Sprintf("unexpected character %q at offset %d", tok.Literal, tok.Offset)
}

// String formats the token for diagnostics.
func (tok Token) String() string {
	return fmt.Sprintf("%s:%q@%d", tok.Type, tok.Literal, tok.Offset)
}
