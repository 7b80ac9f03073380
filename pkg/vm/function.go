package vm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zurustar/crystal/pkg/lexer"
)

// AnyType is a parameter type that accepts every value. Only host-built
// native functions can declare it; script declarations always name a type.
const AnyType = "any"

// Param is a declared parameter.
type Param struct {
	Name string
	Type string
}

// NativeFunc is the host implementation behind a native function.
type NativeFunc func(args []Value) (Value, error)

// ClassID identifies a class instance. Zero means no owner.
type ClassID uint64

// Function is a callable value. A script function runs its token body;
// a native function routes into host code.
type Function struct {
	Name   string
	Params []Param
	Body   []lexer.Token
	Owner  ClassID

	native NativeFunc
	scope  *Scope // scope the body runs in; set when the function is registered
}

func (*Function) value()           {}
func (*Function) TypeName() string { return "function" }

func (f *Function) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type + " " + p.Name
	}
	return fmt.Sprintf("function %s(%s)", f.Name, strings.Join(params, ", "))
}

// NewFunction creates a script function. It is bound to a scope when it
// is registered.
func NewFunction(name string, params []Param, body []lexer.Token) *Function {
	return &Function{Name: name, Params: params, Body: body}
}

// NewNative creates a host-implemented function.
func NewNative(name string, params []Param, fn NativeFunc) *Function {
	return &Function{Name: name, Params: params, native: fn}
}

// IsNative reports whether the function is implemented by the host.
func (f *Function) IsNative() bool {
	return f.native != nil
}

// Call checks argument types against the declared parameter type names and
// invokes the function.
func (f *Function) Call(args []Value) (Value, error) {
	if len(args) != len(f.Params) {
		return nil, NewArityError(f.Name, len(f.Params), len(args))
	}
	for i, p := range f.Params {
		if p.Type != AnyType && args[i].TypeName() != p.Type {
			return nil, NewArgumentTypeError(f.Name, p, args[i])
		}
	}
	return f.Invoke(args)
}

// Invoke runs the function. It pushes a frame rooted at the owning scope's
// root frame, binds parameters, and evaluates the body. A return inside the
// body ends the call with its value; otherwise the last evaluated
// expression is the result. The frame is released before Invoke returns.
func (f *Function) Invoke(args []Value) (Value, error) {
	if len(args) != len(f.Params) {
		return nil, NewArityError(f.Name, len(f.Params), len(args))
	}
	if f.native != nil {
		return f.native(args)
	}

	s := f.scope
	if s == nil {
		// Never registered: run against a scope of its own.
		s = NewScope(nil)
		f.scope = s
	}

	idx, err := s.Push(Root)
	if err != nil {
		return nil, err
	}
	defer s.Release(idx)

	s.log.Debug("Invoking function", "name", f.Name, "args", len(args), "depth", s.Depth())

	for i, p := range f.Params {
		s.declare(idx, p.Name, args[i])
	}

	flow, err := newInterpreter(s, idx, f.Body).run()
	if err != nil {
		return nil, err
	}
	if flow.Value == nil {
		return Null{}, nil
	}
	return flow.Value, nil
}

// bind returns a copy of f owned by c. Params and body are copied so the
// clone shares nothing mutable with the original.
func (f *Function) bind(c *Class) *Function {
	return &Function{
		Name:   f.Name,
		Params: slices.Clone(f.Params),
		Body:   slices.Clone(f.Body),
		Owner:  c.ID,
		native: f.native,
		scope:  c.scope,
	}
}

// ParseFunction parses `function name(type param, ...) { body }` starting
// at tokens[pos], which must be the function keyword. It returns the
// function and the index just past its closing brace.
func ParseFunction(tokens []lexer.Token, pos int) (*Function, int, error) {
	if pos >= len(tokens) || !tokens[pos].IsKeyword(lexer.KeywordFunction) {
		return nil, pos, syntaxError("expected function", tokens, pos)
	}
	if pos+1 >= len(tokens) || tokens[pos+1].Type != lexer.TOKEN_IDENT {
		return nil, pos, syntaxError("expected function name", tokens, pos+1)
	}
	name := tokens[pos+1].Literal

	open := pos + 2
	if open >= len(tokens) || tokens[open].Type != lexer.TOKEN_LPAREN {
		return nil, pos, syntaxError("expected ( after function name", tokens, open)
	}
	closeParen := MatchingClose(tokens, open)
	if closeParen < 0 {
		return nil, pos, syntaxError("unbalanced parenthesis in parameter list", tokens, open)
	}
	params, err := parseParams(tokens[open+1 : closeParen])
	if err != nil {
		return nil, pos, err
	}

	brace := closeParen + 1
	if brace >= len(tokens) || tokens[brace].Type != lexer.TOKEN_LBRACE {
		return nil, pos, syntaxError("expected { before function body", tokens, brace)
	}
	end := MatchingClose(tokens, brace)
	if end < 0 {
		return nil, pos, syntaxError("unbalanced brace in function body", tokens, brace)
	}

	return NewFunction(name, params, slices.Clone(tokens[brace+1:end])), end + 1, nil
}

// parseParams parses comma-separated `type name` pairs.
func parseParams(tokens []lexer.Token) ([]Param, error) {
	var params []Param
	for _, span := range SplitArguments(tokens) {
		if len(span) != 2 || !isTypeToken(span[0]) || span[1].Type != lexer.TOKEN_IDENT {
			offset := -1
			if len(span) > 0 {
				offset = span[0].Offset
			}
			return nil, NewRuntimeErrorAt(ErrorSyntax, "parameter must be declared as `type name`", offset)
		}
		params = append(params, Param{Name: span[1].Literal, Type: span[0].Literal})
	}
	return params, nil
}

// isTypeToken reports whether tok can name a parameter type: a builtin
// type keyword or a class name.
func isTypeToken(tok lexer.Token) bool {
	if tok.Type == lexer.TOKEN_IDENT {
		return true
	}
	switch {
	case tok.IsKeyword(lexer.KeywordNumber),
		tok.IsKeyword(lexer.KeywordString),
		tok.IsKeyword(lexer.KeywordBool),
		tok.IsKeyword(lexer.KeywordNull),
		tok.IsKeyword(lexer.KeywordFunction):
		return true
	}
	return false
}

// MatchingClose returns the index of the token closing the bracket at
// tokens[open], or -1 if it is never closed.
func MatchingClose(tokens []lexer.Token, open int) int {
	if open < 0 || open >= len(tokens) {
		return -1
	}
	var closer lexer.TokenType
	switch tokens[open].Type {
	case lexer.TOKEN_LPAREN:
		closer = lexer.TOKEN_RPAREN
	case lexer.TOKEN_LBRACE:
		closer = lexer.TOKEN_RBRACE
	default:
		return -1
	}
	opener := tokens[open].Type
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].Type {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// SplitArguments splits tokens on commas that are not nested in parentheses.
// An empty list yields no arguments.
func SplitArguments(tokens []lexer.Token) [][]lexer.Token {
	if len(tokens) == 0 {
		return nil
	}
	var args [][]lexer.Token
	depth, start := 0, 0
	for i, tok := range tokens {
		switch tok.Type {
		case lexer.TOKEN_LPAREN:
			depth++
		case lexer.TOKEN_RPAREN:
			depth--
		case lexer.TOKEN_COMMA:
			if depth == 0 {
				args = append(args, tokens[start:i])
				start = i + 1
			}
		}
	}
	return append(args, tokens[start:])
}

func syntaxError(msg string, tokens []lexer.Token, pos int) *RuntimeError {
	offset := -1
	switch {
	case pos >= 0 && pos < len(tokens):
		offset = tokens[pos].Offset
	case len(tokens) > 0:
		offset = tokens[len(tokens)-1].Offset
	}
	return NewRuntimeErrorAt(ErrorSyntax, msg, offset)
}
