package lexer

import (
	"testing"
)

func TestNext(t *testing.T) {
	input := `crystal Counter {
	variables { count = 0; }
	function inc(number by) {
		count = count + by;
		return count;
	}
}
if (x >= 1.5 && !done || y != "a\"b") { z = 10 % 3; }`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TOKEN_KEYWORD, "crystal"},
		{TOKEN_IDENT, "Counter"},
		{TOKEN_LBRACE, "{"},
		{TOKEN_KEYWORD, "variables"},
		{TOKEN_LBRACE, "{"},
		{TOKEN_IDENT, "count"},
		{TOKEN_ASSIGN, "="},
		{TOKEN_NUMBER, "0"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_RBRACE, "}"},
		{TOKEN_KEYWORD, "function"},
		{TOKEN_IDENT, "inc"},
		{TOKEN_LPAREN, "("},
		{TOKEN_KEYWORD, "number"},
		{TOKEN_IDENT, "by"},
		{TOKEN_RPAREN, ")"},
		{TOKEN_LBRACE, "{"},
		{TOKEN_IDENT, "count"},
		{TOKEN_ASSIGN, "="},
		{TOKEN_IDENT, "count"},
		{TOKEN_PLUS, "+"},
		{TOKEN_IDENT, "by"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_KEYWORD, "return"},
		{TOKEN_IDENT, "count"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_RBRACE, "}"},
		{TOKEN_RBRACE, "}"},
		{TOKEN_KEYWORD, "if"},
		{TOKEN_LPAREN, "("},
		{TOKEN_IDENT, "x"},
		{TOKEN_GTE, ">="},
		{TOKEN_NUMBER, "1.5"},
		{TOKEN_AND, "&&"},
		{TOKEN_NOT, "!"},
		{TOKEN_IDENT, "done"},
		{TOKEN_OR, "||"},
		{TOKEN_IDENT, "y"},
		{TOKEN_NEQ, "!="},
		{TOKEN_STRING, `"a\"b"`},
		{TOKEN_RPAREN, ")"},
		{TOKEN_LBRACE, "{"},
		{TOKEN_IDENT, "z"},
		{TOKEN_ASSIGN, "="},
		{TOKEN_NUMBER, "10"},
		{TOKEN_PERCENT, "%"},
		{TOKEN_NUMBER, "3"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_RBRACE, "}"},
		{TOKEN_EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.Next()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestTokenize_SimpleExpression(t *testing.T) {
	tokens := Tokenize("1 + 2;")

	expected := []Token{
		{Type: TOKEN_NUMBER, Literal: "1", Offset: 0},
		{Type: TOKEN_PLUS, Literal: "+", Offset: 2},
		{Type: TOKEN_NUMBER, Literal: "2", Offset: 4},
		{Type: TOKEN_SEMICOLON, Literal: ";", Offset: 5},
	}

	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i := range expected {
		if tokens[i] != expected[i] {
			t.Errorf("tokens[%d] = %v, want %v", i, tokens[i], expected[i])
		}
	}
}

func TestTokenize_EscapedQuote(t *testing.T) {
	// the four characters a \ " b inside quotes
	tokens := Tokenize(`"a\"b";`)

	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %v", len(tokens), tokens)
	}
	if tokens[0].Type != TOKEN_STRING {
		t.Fatalf("expected STRING, got %s", tokens[0].Type)
	}
	if tokens[0].Literal != `"a\"b"` {
		t.Errorf("literal = %q, want %q", tokens[0].Literal, `"a\"b"`)
	}
	if tokens[1].Type != TOKEN_SEMICOLON {
		t.Errorf("expected SEMICOLON after string, got %s", tokens[1].Type)
	}
}

func TestTokenize_EscapesAreVerbatim(t *testing.T) {
	tokens := Tokenize(`"line\nnext"`)
	if len(tokens) != 1 || tokens[0].Literal != `"line\nnext"` {
		t.Fatalf("escape sequence should pass through verbatim, got %v", tokens)
	}
}

// The last character of the input must survive the end-of-input sentinel.
func TestTokenize_LastCharacterNotTruncated(t *testing.T) {
	tests := []struct {
		input       string
		lastType    TokenType
		lastLiteral string
	}{
		{"x", TOKEN_IDENT, "x"},
		{"abc", TOKEN_IDENT, "abc"},
		{"7", TOKEN_NUMBER, "7"},
		{"3.25", TOKEN_NUMBER, "3.25"},
		{"a;", TOKEN_SEMICOLON, ";"},
		{"}", TOKEN_RBRACE, "}"},
		{"a >", TOKEN_GT, ">"},
		{"a >=", TOKEN_GTE, ">="},
		{`""`, TOKEN_STRING, `""`},
		{"return", TOKEN_KEYWORD, "return"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			if len(tokens) == 0 {
				t.Fatal("expected tokens, got none")
			}
			last := tokens[len(tokens)-1]
			if last.Type != tt.lastType || last.Literal != tt.lastLiteral {
				t.Errorf("last token = %v, want %s %q", last, tt.lastType, tt.lastLiteral)
			}
		})
	}
}

func TestTokenize_EmbeddedNULDoesNotEndScan(t *testing.T) {
	tokens := Tokenize("a\x00b")
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d: %v", len(tokens), tokens)
	}
	if tokens[1].Type != TOKEN_ERROR {
		t.Errorf("NUL byte should be an error token, got %s", tokens[1].Type)
	}
	if tokens[2].Literal != "b" {
		t.Errorf("token after NUL = %q, want %q", tokens[2].Literal, "b")
	}
}

func TestTokenize_ErrorTokensAreNotFatal(t *testing.T) {
	tokens := Tokenize("x = 1 @ 2; #")

	var errs []Token
	for _, tok := range tokens {
		if tok.Type == TOKEN_ERROR {
			errs = append(errs, tok)
		}
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 error tokens, got %d: %v", len(errs), tokens)
	}
	if errs[0].Literal != "@" || errs[0].Offset != 6 {
		t.Errorf("first error token = %v", errs[0])
	}
	if errs[0].Diagnostic() == "" {
		t.Error("error token should carry a diagnostic")
	}
	if tokens[len(tokens)-2].Type != TOKEN_SEMICOLON {
		t.Errorf("scan should continue after an error token, got %v", tokens)
	}
}

func TestTokenize_UnterminatedString(t *testing.T) {
	tokens := Tokenize(`x = "abc`)
	last := tokens[len(tokens)-1]
	if last.Type != TOKEN_ERROR {
		t.Fatalf("expected ERROR for unterminated string, got %s", last.Type)
	}
	if last.Literal != `"abc` {
		t.Errorf("literal = %q", last.Literal)
	}
	if got := last.Diagnostic(); got != "unterminated string literal at offset 4" {
		t.Errorf("diagnostic = %q", got)
	}
}

func TestTokenize_Numbers(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"42", []string{"42"}},
		{"3.14", []string{"3.14"}},
		// no exponent notation
		{"1e5", []string{"1", "e5"}},
		// a trailing dot is not part of the number
		{"1.", []string{"1", "."}},
		// no sign prefix
		{"-5", []string{"-", "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			if len(tokens) != len(tt.expected) {
				t.Fatalf("expected %d tokens, got %v", len(tt.expected), tokens)
			}
			for i, lit := range tt.expected {
				if tokens[i].Literal != lit {
					t.Errorf("tokens[%d] = %q, want %q", i, tokens[i].Literal, lit)
				}
			}
			if tokens[0].Type != TOKEN_NUMBER && tt.input != "-5" {
				t.Errorf("first token should be NUMBER, got %s", tokens[0].Type)
			}
		})
	}
}

func TestTokenize_KeywordsAreCaseSensitive(t *testing.T) {
	tokens := Tokenize("if If IF")
	if tokens[0].Type != TOKEN_KEYWORD {
		t.Errorf("if should be a keyword")
	}
	if tokens[1].Type != TOKEN_IDENT || tokens[2].Type != TOKEN_IDENT {
		t.Errorf("If and IF should be identifiers, got %v", tokens)
	}
}

func TestTokenize_Comments(t *testing.T) {
	tokens := Tokenize("a = 1; // trailing comment\nb = 2 / 4;")
	var literals []string
	for _, tok := range tokens {
		literals = append(literals, tok.Literal)
	}
	expected := []string{"a", "=", "1", ";", "b", "=", "2", "/", "4", ";"}
	if len(literals) != len(expected) {
		t.Fatalf("got %v, want %v", literals, expected)
	}
	for i := range expected {
		if literals[i] != expected[i] {
			t.Errorf("literals[%d] = %q, want %q", i, literals[i], expected[i])
		}
	}
}

func TestNext_EOFIsSticky(t *testing.T) {
	l := New("a")
	l.Next()
	for i := 0; i < 3; i++ {
		if tok := l.Next(); tok.Type != TOKEN_EOF {
			t.Fatalf("call %d: expected EOF, got %v", i, tok)
		}
	}
}

func TestTokenTypeString(t *testing.T) {
	tests := []struct {
		tokenType TokenType
		expected  string
	}{
		{TOKEN_ERROR, "ERROR"},
		{TOKEN_EOF, "EOF"},
		{TOKEN_IDENT, "IDENT"},
		{TOKEN_KEYWORD, "KEYWORD"},
		{TOKEN_NUMBER, "NUMBER"},
		{TOKEN_STRING, "STRING"},
		{TOKEN_PLUS, "+"},
		{TOKEN_LTE, "<="},
		{TOKEN_AND, "&&"},
		{TOKEN_COMMA, ","},
		{TokenType(9999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.tokenType.String(); got != tt.expected {
				t.Errorf("TokenType.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPriority(t *testing.T) {
	tests := []struct {
		tokenType TokenType
		expected  int
	}{
		{TOKEN_ASTERISK, 2},
		{TOKEN_SLASH, 2},
		{TOKEN_PERCENT, 2},
		{TOKEN_PLUS, 1},
		{TOKEN_MINUS, 1},
		{TOKEN_EQ, 0},
		{TOKEN_SEMICOLON, 0},
	}
	for _, tt := range tests {
		if got := tt.tokenType.Priority(); got != tt.expected {
			t.Errorf("%s.Priority() = %d, want %d", tt.tokenType, got, tt.expected)
		}
	}
}

func TestTokenTypeClassification(t *testing.T) {
	if !TOKEN_MINUS.IsArithmetic() || TOKEN_EQ.IsArithmetic() {
		t.Error("IsArithmetic misclassifies")
	}
	if !TOKEN_LTE.IsRelational() || TOKEN_AND.IsRelational() {
		t.Error("IsRelational misclassifies")
	}
	if !TOKEN_OR.IsLogical() || TOKEN_NOT.IsLogical() {
		t.Error("IsLogical misclassifies")
	}
	if !TOKEN_ASSIGN.IsPunctuation() || TOKEN_NOT.IsPunctuation() {
		t.Error("IsPunctuation misclassifies")
	}
}
