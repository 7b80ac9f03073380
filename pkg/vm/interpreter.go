// Package vm implements the Crystal value system and the token-walking
// interpreter that evaluates scripts against a scope.
package vm

import (
	"fmt"

	"github.com/zurustar/crystal/pkg/lexer"
)

// FlowKind says how a block of statements finished.
type FlowKind int

const (
	// FlowNormal means the block ran to its end.
	FlowNormal FlowKind = iota
	// FlowReturn means a return statement ended the block early.
	FlowReturn
)

// Flow is the outcome of running a block. Value is the returned value for
// FlowReturn and the last evaluated expression for FlowNormal; it may be
// nil when nothing was evaluated. Offset locates the return statement.
type Flow struct {
	Kind   FlowKind
	Value  Value
	Offset int
}

// interpreter walks one token slice with a forward cursor. Nested bodies,
// arguments and parenthesised groups each get their own interpreter over
// the sub-slice, sharing the scope and frame.
type interpreter struct {
	scope  *Scope
	frame  int
	tokens []lexer.Token
	pos    int

	left Value // value of the statement in progress
	last Value // value of the last completed statement

	// local makes assignments declare in the current frame instead of
	// updating a variable found further up the chain.
	local bool
	// terminated requires the final statement to end with ;.
	terminated bool
}

func newInterpreter(scope *Scope, frame int, tokens []lexer.Token) *interpreter {
	return &interpreter{scope: scope, frame: frame, tokens: tokens}
}

// Execute runs tokens against the root frame of scope and returns the value
// of the last evaluated expression, or Null if there was none.
//
// A return statement reaching this level is an error: return is only
// meaningful inside a function body. So is a final expression without its
// terminating ;.
func Execute(scope *Scope, tokens []lexer.Token) (Value, error) {
	in := newInterpreter(scope, Root, tokens)
	in.terminated = true
	flow, err := in.run()
	if err != nil {
		return nil, err
	}
	if flow.Kind == FlowReturn {
		return nil, NewRuntimeErrorAt(ErrorReturnOutsideFunction, "return outside function", flow.Offset)
	}
	if flow.Value == nil {
		return Null{}, nil
	}
	return flow.Value, nil
}

// run evaluates statements until the tokens are exhausted or a return
// statement is reached.
func (in *interpreter) run() (Flow, error) {
	for in.pos < len(in.tokens) {
		tok := in.tokens[in.pos]

		switch tok.Type {
		case lexer.TOKEN_EOF:
			in.pos = len(in.tokens)

		case lexer.TOKEN_ERROR:
			return Flow{}, NewRuntimeErrorAt(ErrorSyntax, tok.Diagnostic(), tok.Offset)

		case lexer.TOKEN_SEMICOLON:
			in.commit()
			in.pos++

		case lexer.TOKEN_LBRACE, lexer.TOKEN_RBRACE, lexer.TOKEN_RPAREN, lexer.TOKEN_COMMA:
			in.pos++

		case lexer.TOKEN_ASSIGN:
			return Flow{}, NewRuntimeErrorAt(ErrorSyntax, "assignment needs a variable name on the left", tok.Offset)

		case lexer.TOKEN_KEYWORD:
			flow, err := in.keyword(tok)
			if err != nil {
				return Flow{}, err
			}
			if flow.Kind == FlowReturn {
				return flow, nil
			}

		case lexer.TOKEN_IDENT:
			if err := in.identifier(tok); err != nil {
				return Flow{}, err
			}

		default:
			if err := in.expressionStatement(); err != nil {
				return Flow{}, err
			}
		}
	}
	if in.terminated && in.left != nil {
		end := in.tokens[len(in.tokens)-1]
		return Flow{}, NewRuntimeErrorAt(ErrorMissingTerminator, "expected ; at end of input", end.Offset)
	}
	in.commit()
	return Flow{Kind: FlowNormal, Value: in.last}, nil
}

// commit ends the statement in progress.
func (in *interpreter) commit() {
	if in.left != nil {
		in.last = in.left
		in.left = nil
	}
}

// expressionStatement evaluates an expression starting at the cursor. Two
// expressions in a row without a terminator are rejected.
func (in *interpreter) expressionStatement() error {
	if in.left != nil {
		tok := in.tokens[in.pos]
		return NewRuntimeErrorAt(ErrorMissingTerminator, fmt.Sprintf("expected ; before %q", tok.Literal), tok.Offset)
	}
	v, err := in.operand()
	if err != nil {
		return err
	}
	v, err = in.binary(v)
	if err != nil {
		return err
	}
	in.left = v
	return nil
}

// identifier handles a name at statement level: an assignment, a variable
// or function reference, or an implicit declaration.
func (in *interpreter) identifier(tok lexer.Token) error {
	name := tok.Literal
	if in.peekIs(1, lexer.TOKEN_ASSIGN) {
		return in.assign(tok)
	}
	if _, ok := in.scope.lookup(in.frame, name); ok {
		return in.expressionStatement()
	}
	if _, ok := in.scope.lookupFunction(in.frame, name); ok || in.peekIs(1, lexer.TOKEN_LPAREN) {
		return in.expressionStatement()
	}
	if in.left != nil {
		return NewRuntimeErrorAt(ErrorMissingTerminator, fmt.Sprintf("expected ; before %q", name), tok.Offset)
	}

	// A bare unknown name declares a variable holding null.
	in.scope.declare(in.frame, name, Null{})
	in.pos++
	v, err := in.binary(Null{})
	if err != nil {
		return err
	}
	in.left = v
	return nil
}

// assign evaluates the right-hand side up to the next semicolon and stores
// it in the variable named by tok. The variable is resolved after the
// right-hand side runs, so calls made there can create it first.
func (in *interpreter) assign(tok lexer.Token) error {
	if in.left != nil {
		return NewRuntimeErrorAt(ErrorMissingTerminator, fmt.Sprintf("expected ; before %q", tok.Literal), tok.Offset)
	}
	start := in.pos + 2
	end := in.terminator(start)
	if end < 0 {
		return NewRuntimeErrorAt(ErrorMissingTerminator, fmt.Sprintf("assignment to %s is missing ;", tok.Literal), tok.Offset)
	}
	if end == start {
		return NewRuntimeErrorAt(ErrorInvalidOperand, fmt.Sprintf("assignment to %s has no value", tok.Literal), in.tokens[in.pos+1].Offset)
	}
	v, err := in.evaluate(in.tokens[start:end])
	if err != nil {
		return err
	}
	if in.local {
		in.scope.declare(in.frame, tok.Literal, v)
	} else {
		in.scope.assign(in.frame, tok.Literal, v)
	}
	in.last = v
	in.pos = end + 1
	return nil
}

// keyword handles a keyword at statement level.
func (in *interpreter) keyword(tok lexer.Token) (Flow, error) {
	switch tok.Literal {
	case lexer.KeywordReturn:
		return in.returnStatement(tok)

	case lexer.KeywordIf:
		return in.ifStatement()

	case lexer.KeywordElse:
		return Flow{}, NewRuntimeErrorAt(ErrorSyntax, "else without if", tok.Offset)

	case lexer.KeywordFunction:
		fn, next, err := ParseFunction(in.tokens, in.pos)
		if err != nil {
			return Flow{}, err
		}
		in.scope.defineFunction(in.frame, fn)
		in.pos = next

	case lexer.KeywordCrystal:
		c, next, err := ParseClass(in.tokens, in.pos, in.scope.globals())
		if err != nil {
			return Flow{}, err
		}
		in.scope.declare(in.frame, c.Name, c)
		in.pos = next

	case lexer.KeywordVariables:
		return Flow{}, NewRuntimeErrorAt(ErrorSyntax, "variables block outside crystal", tok.Offset)

	case lexer.KeywordNumber, lexer.KeywordString, lexer.KeywordBool:
		// Type annotation in front of a declaration.
		in.pos++

	default:
		if err := in.expressionStatement(); err != nil {
			return Flow{}, err
		}
	}
	return Flow{}, nil
}

// returnStatement evaluates `return expr;`. An empty expression returns null.
func (in *interpreter) returnStatement(tok lexer.Token) (Flow, error) {
	if in.left != nil {
		return Flow{}, NewRuntimeErrorAt(ErrorMissingTerminator, "expected ; before return", tok.Offset)
	}
	start := in.pos + 1
	end := in.terminator(start)
	if end < 0 {
		return Flow{}, NewRuntimeErrorAt(ErrorMissingTerminator, "return is missing ;", tok.Offset)
	}
	var v Value = Null{}
	if end > start {
		var err error
		if v, err = in.evaluate(in.tokens[start:end]); err != nil {
			return Flow{}, err
		}
	}
	in.pos = end + 1
	return Flow{Kind: FlowReturn, Value: v, Offset: tok.Offset}, nil
}

// ifStatement evaluates an if / else if / else chain. Conditions are
// evaluated in order until one holds; at most one body runs. The cursor
// always ends past the whole chain.
func (in *interpreter) ifStatement() (Flow, error) {
	if in.left != nil {
		tok := in.tokens[in.pos]
		return Flow{}, NewRuntimeErrorAt(ErrorMissingTerminator, "expected ; before if", tok.Offset)
	}
	taken := false
	for {
		ifTok := in.tokens[in.pos]
		open := in.pos + 1
		if open >= len(in.tokens) || in.tokens[open].Type != lexer.TOKEN_LPAREN {
			return Flow{}, syntaxError("expected ( after if", in.tokens, open)
		}
		closeParen := MatchingClose(in.tokens, open)
		if closeParen < 0 {
			return Flow{}, syntaxError("unbalanced parenthesis in condition", in.tokens, open)
		}
		body, next, err := in.block(closeParen + 1)
		if err != nil {
			return Flow{}, err
		}
		in.pos = next

		if !taken {
			ok, err := in.condition(in.tokens[open+1:closeParen], ifTok.Offset)
			if err != nil {
				return Flow{}, err
			}
			if ok {
				taken = true
				if flow, err := in.runBody(body); err != nil || flow.Kind == FlowReturn {
					return flow, err
				}
			}
		}

		if in.pos >= len(in.tokens) || !in.tokens[in.pos].IsKeyword(lexer.KeywordElse) {
			return Flow{}, nil
		}
		in.pos++
		if in.pos < len(in.tokens) && in.tokens[in.pos].IsKeyword(lexer.KeywordIf) {
			continue
		}

		body, next, err = in.block(in.pos)
		if err != nil {
			return Flow{}, err
		}
		in.pos = next
		if !taken {
			if flow, err := in.runBody(body); err != nil || flow.Kind == FlowReturn {
				return flow, err
			}
		}
		return Flow{}, nil
	}
}

// block returns the tokens inside the braces opening at tokens[open] and
// the index past the closing brace.
func (in *interpreter) block(open int) ([]lexer.Token, int, error) {
	if open >= len(in.tokens) || in.tokens[open].Type != lexer.TOKEN_LBRACE {
		return nil, open, syntaxError("expected {", in.tokens, open)
	}
	end := MatchingClose(in.tokens, open)
	if end < 0 {
		return nil, open, syntaxError("unbalanced brace", in.tokens, open)
	}
	return in.tokens[open+1 : end], end + 1, nil
}

// runBody runs a conditional body in the current frame.
func (in *interpreter) runBody(body []lexer.Token) (Flow, error) {
	sub := newInterpreter(in.scope, in.frame, body)
	sub.local = in.local
	flow, err := sub.run()
	if err != nil {
		return Flow{}, err
	}
	if flow.Kind == FlowNormal && flow.Value != nil {
		in.last = flow.Value
	}
	return flow, nil
}

// condition evaluates a parenthesised if condition, which must be a bool.
func (in *interpreter) condition(tokens []lexer.Token, offset int) (bool, error) {
	if len(tokens) == 0 {
		return false, NewRuntimeErrorAt(ErrorInvalidCondition, "empty condition", offset)
	}
	v, err := in.evaluate(tokens)
	if err != nil {
		return false, err
	}
	b, ok := v.(Boolean)
	if !ok {
		return false, NewRuntimeErrorAt(ErrorInvalidCondition,
			fmt.Sprintf("condition must be bool, got %s", v.TypeName()), offset)
	}
	return bool(b), nil
}

// evaluate runs a complete expression with a fresh interpreter. Every token
// must be consumed.
func (in *interpreter) evaluate(tokens []lexer.Token) (Value, error) {
	sub := newInterpreter(in.scope, in.frame, tokens)
	v, err := sub.operand()
	if err != nil {
		return nil, err
	}
	if v, err = sub.binary(v); err != nil {
		return nil, err
	}
	if sub.pos < len(tokens) {
		tok := tokens[sub.pos]
		return nil, NewRuntimeErrorAt(ErrorSyntax, fmt.Sprintf("unexpected %q in expression", tok.Literal), tok.Offset)
	}
	return v, nil
}

// binary applies the operators following left. Arithmetic binds tighter
// than relational, which binds tighter than logical; each relational or
// logical operator takes exactly one operand of the next tier. A relational
// operator may not follow another comparison, so `a == b == c` is rejected.
func (in *interpreter) binary(left Value) (Value, error) {
	var err error
	compared := false
	for in.pos < len(in.tokens) {
		tok := in.tokens[in.pos]
		switch {
		case tok.Type.IsArithmetic():
			left, err = in.reduce(0, left)
		case tok.Type.IsRelational():
			if compared {
				return nil, NewRuntimeErrorAt(ErrorSyntax, fmt.Sprintf("comparison results cannot be compared again with %q", tok.Literal), tok.Offset)
			}
			left, err = in.relational(left)
			compared = true
		case tok.Type.IsLogical():
			left, err = in.logical(left)
			compared = true
		default:
			return left, nil
		}
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// reduce folds arithmetic operators with a priority above min into left.
// An operator of higher priority to the right of an operand is folded into
// that operand first, which makes `1 + 2 * 3` evaluate to 7 while keeping
// operators of equal priority left-associative.
func (in *interpreter) reduce(min int, left Value) (Value, error) {
	for in.pos < len(in.tokens) {
		opTok := in.tokens[in.pos]
		if !opTok.Type.IsArithmetic() || opTok.Type.Priority() <= min {
			return left, nil
		}
		in.pos++
		right, err := in.operand()
		if err != nil {
			return nil, err
		}
		if right, err = in.reduce(opTok.Type.Priority(), right); err != nil {
			return nil, err
		}
		if left, err = in.apply(opTok, left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

// relational compares left against one arithmetic operand.
func (in *interpreter) relational(left Value) (Value, error) {
	opTok := in.tokens[in.pos]
	in.pos++
	right, err := in.operand()
	if err != nil {
		return nil, err
	}
	if right, err = in.reduce(0, right); err != nil {
		return nil, err
	}
	return in.apply(opTok, left, right)
}

// logical combines left with one relational operand.
func (in *interpreter) logical(left Value) (Value, error) {
	opTok := in.tokens[in.pos]
	in.pos++
	right, err := in.operand()
	if err != nil {
		return nil, err
	}
	if right, err = in.reduce(0, right); err != nil {
		return nil, err
	}
	if in.pos < len(in.tokens) && in.tokens[in.pos].Type.IsRelational() {
		if right, err = in.relational(right); err != nil {
			return nil, err
		}
	}
	return in.apply(opTok, left, right)
}

var binaryOperators = map[lexer.TokenType]Operator{
	lexer.TOKEN_PLUS:     OpAdd,
	lexer.TOKEN_MINUS:    OpSubtract,
	lexer.TOKEN_ASTERISK: OpMultiply,
	lexer.TOKEN_SLASH:    OpDivide,
	lexer.TOKEN_PERCENT:  OpModulus,
	lexer.TOKEN_EQ:       OpEqual,
	lexer.TOKEN_NEQ:      OpNotEqual,
	lexer.TOKEN_GT:       OpGreater,
	lexer.TOKEN_LT:       OpLess,
	lexer.TOKEN_GTE:      OpGreaterEqual,
	lexer.TOKEN_LTE:      OpLessEqual,
	lexer.TOKEN_AND:      OpAnd,
	lexer.TOKEN_OR:       OpOr,
}

func (in *interpreter) apply(opTok lexer.Token, left, right Value) (Value, error) {
	op, ok := binaryOperators[opTok.Type]
	if !ok {
		return nil, NewRuntimeErrorAt(ErrorInvalidOperand, fmt.Sprintf("%q is not a binary operator", opTok.Literal), opTok.Offset)
	}
	v, err := Apply(op, left, right)
	if err != nil {
		return nil, withOffset(err, opTok.Offset)
	}
	return v, nil
}

// operand evaluates one operand: a literal, a name, a call, a
// parenthesised group or a prefix operator applied to an operand.
func (in *interpreter) operand() (Value, error) {
	if in.pos >= len(in.tokens) {
		offset := -1
		if len(in.tokens) > 0 {
			offset = in.tokens[len(in.tokens)-1].Offset
		}
		return nil, NewRuntimeErrorAt(ErrorInvalidOperand, "missing operand", offset)
	}
	tok := in.tokens[in.pos]

	switch tok.Type {
	case lexer.TOKEN_NUMBER, lexer.TOKEN_STRING:
		in.pos++
		return ParseLiteral(tok.Literal), nil

	case lexer.TOKEN_KEYWORD:
		switch tok.Literal {
		case lexer.KeywordNull:
			in.pos++
			return Null{}, nil
		case lexer.KeywordTrue:
			in.pos++
			return Boolean(true), nil
		case lexer.KeywordFalse:
			in.pos++
			return Boolean(false), nil
		}
		return nil, NewRuntimeErrorAt(ErrorSyntax, fmt.Sprintf("unexpected keyword %s", tok.Literal), tok.Offset)

	case lexer.TOKEN_IDENT:
		return in.name(tok)

	case lexer.TOKEN_LPAREN:
		end := MatchingClose(in.tokens, in.pos)
		if end < 0 {
			return nil, NewRuntimeErrorAt(ErrorSyntax, "unbalanced parenthesis", tok.Offset)
		}
		if end == in.pos+1 {
			return nil, NewRuntimeErrorAt(ErrorInvalidOperand, "empty parentheses", tok.Offset)
		}
		v, err := in.evaluate(in.tokens[in.pos+1 : end])
		if err != nil {
			return nil, err
		}
		in.pos = end + 1
		return v, nil

	case lexer.TOKEN_MINUS:
		in.pos++
		v, err := in.operand()
		if err != nil {
			return nil, err
		}
		n, ok := v.(Number)
		if !ok {
			return nil, NewRuntimeErrorAt(ErrorUnsupportedOperation,
				fmt.Sprintf("operator %s is not supported by %s", OpSubtract, v.TypeName()), tok.Offset)
		}
		return n.Negate(), nil

	case lexer.TOKEN_NOT:
		in.pos++
		v, err := in.operand()
		if err != nil {
			return nil, err
		}
		v, err = ApplyUnary(OpNot, v)
		if err != nil {
			return nil, withOffset(err, tok.Offset)
		}
		return v, nil

	case lexer.TOKEN_ERROR:
		return nil, NewRuntimeErrorAt(ErrorSyntax, tok.Diagnostic(), tok.Offset)
	}

	return nil, NewRuntimeErrorAt(ErrorInvalidOperand, fmt.Sprintf("unexpected %q", tok.Literal), tok.Offset)
}

// name resolves an identifier in operand position. Variables win over
// functions of the same name; a variable holding a function is callable.
func (in *interpreter) name(tok lexer.Token) (Value, error) {
	call := in.peekIs(1, lexer.TOKEN_LPAREN)

	if v, ok := in.scope.lookup(in.frame, tok.Literal); ok {
		in.pos++
		if fn, isFn := v.Value.(*Function); isFn && call {
			return in.call(fn, tok)
		}
		return v.Value, nil
	}
	if fn, ok := in.scope.lookupFunction(in.frame, tok.Literal); ok {
		in.pos++
		if call {
			return in.call(fn, tok)
		}
		return fn, nil
	}
	if call {
		return nil, NewRuntimeErrorAt(ErrorUndefinedFunction, fmt.Sprintf("undefined function: %s", tok.Literal), tok.Offset)
	}
	return nil, NewRuntimeErrorAt(ErrorInvalidOperand, fmt.Sprintf("undefined variable: %s", tok.Literal), tok.Offset)
}

// call evaluates the argument list at the cursor and calls fn. Each
// argument is evaluated with its own interpreter before the call.
func (in *interpreter) call(fn *Function, nameTok lexer.Token) (Value, error) {
	open := in.pos
	end := MatchingClose(in.tokens, open)
	if end < 0 {
		return nil, NewRuntimeErrorAt(ErrorSyntax, fmt.Sprintf("unbalanced parenthesis in call to %s", nameTok.Literal), in.tokens[open].Offset)
	}

	spans := SplitArguments(in.tokens[open+1 : end])
	args := make([]Value, 0, len(spans))
	for _, span := range spans {
		if len(span) == 0 {
			return nil, NewRuntimeErrorAt(ErrorInvalidOperand, fmt.Sprintf("empty argument in call to %s", nameTok.Literal), nameTok.Offset)
		}
		v, err := in.evaluate(span)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	in.pos = end + 1

	v, err := fn.Call(args)
	if err != nil {
		return nil, withOffset(err, nameTok.Offset)
	}
	return v, nil
}

// terminator returns the index of the first semicolon at or after start,
// or -1 if there is none.
func (in *interpreter) terminator(start int) int {
	for i := start; i < len(in.tokens); i++ {
		if in.tokens[i].Type == lexer.TOKEN_SEMICOLON {
			return i
		}
	}
	return -1
}

func (in *interpreter) peekIs(n int, t lexer.TokenType) bool {
	i := in.pos + n
	return i < len(in.tokens) && in.tokens[i].Type == t
}
