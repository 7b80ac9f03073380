// Package compiler provides the declaration front end for Crystal scripts.
// It slices a source file into class declarations, function declarations
// and top-level statements, and registers the declarations into a scope
// before the statements run:
//
//   - Compile: tokenizes and slices source code into a Program
//   - CompileScript: compiles a script loaded by script.Loader
//   - Program.Run: registers declarations and executes the statements
package compiler

import (
	"errors"
	"fmt"

	"github.com/zurustar/crystal/pkg/lexer"
	"github.com/zurustar/crystal/pkg/logger"
	"github.com/zurustar/crystal/pkg/script"
	"github.com/zurustar/crystal/pkg/vm"
)

// ClassDecl is a `crystal Name { ... }` declaration. The instance is built
// when the program runs, so its variables block can read globals.
type ClassDecl struct {
	Name   string
	Body   []lexer.Token
	Offset int
}

// Program is a compiled script.
type Program struct {
	// Name is the script file name, empty for inline source.
	Name string
	// Source is the decoded source text, used to locate errors.
	Source string

	Functions []*vm.Function
	Classes   []ClassDecl
	// Main holds the top-level statements in source order.
	Main []lexer.Token
}

// Compile compiles source code into a Program.
//
// Parameters:
//   - source: UTF-8 encoded source code string
//
// Returns:
//   - *Program: The sliced declarations and statements
//   - error: A *CompileError for lexer errors, unbalanced brackets or
//     malformed declaration headers
func Compile(source string) (*Program, error) {
	tokens := lexer.Tokenize(source)

	for _, tok := range tokens {
		if tok.Type == lexer.TOKEN_ERROR {
			return nil, NewErrorAt(PhaseLexer, tok.Diagnostic(), source, tok.Offset)
		}
	}
	if err := checkBalance(tokens, source); err != nil {
		return nil, err
	}

	p := &Program{Source: source}
	functions := make(map[string]bool)
	classes := make(map[string]bool)

	for pos := 0; pos < len(tokens); {
		tok := tokens[pos]
		switch {
		case tok.IsKeyword(lexer.KeywordFunction):
			fn, next, err := vm.ParseFunction(tokens, pos)
			if err != nil {
				return nil, parserError(err, source)
			}
			if functions[fn.Name] {
				return nil, NewErrorAt(PhaseParser, fmt.Sprintf("function %s is already declared", fn.Name), source, tokens[pos+1].Offset)
			}
			functions[fn.Name] = true
			p.Functions = append(p.Functions, fn)
			pos = next

		case tok.IsKeyword(lexer.KeywordCrystal):
			decl, next, err := parseClass(tokens, pos, source)
			if err != nil {
				return nil, err
			}
			if classes[decl.Name] {
				return nil, NewErrorAt(PhaseParser, fmt.Sprintf("crystal %s is already declared", decl.Name), source, decl.Offset)
			}
			classes[decl.Name] = true
			p.Classes = append(p.Classes, decl)
			pos = next

		case tok.Type == lexer.TOKEN_LBRACE:
			// Blocks stay with the statements; declarations inside them
			// are handled by the interpreter.
			end := vm.MatchingClose(tokens, pos)
			p.Main = append(p.Main, tokens[pos:end+1]...)
			pos = end + 1

		default:
			p.Main = append(p.Main, tok)
			pos++
		}
	}

	return p, nil
}

// CompileScript compiles a loaded script. Errors carry the script name.
func CompileScript(s *script.Script) (*Program, error) {
	p, err := Compile(s.Content)
	if err != nil {
		if ce, ok := IsCompileError(err); ok {
			ce.File = s.FileName
		}
		return nil, err
	}
	p.Name = s.FileName
	return p, nil
}

// Run registers the program's functions and classes in globals, then
// executes the top-level statements. Functions are registered before
// classes so that variables blocks can call them. Interpretation errors
// that carry a source offset are returned as a *CompileError in the
// runtime phase wrapping the *vm.RuntimeError.
//
// Declared functions bind to the first scope they are registered in; run a
// Program against one scope only.
func (p *Program) Run(globals *vm.Scope) (vm.Value, error) {
	log := logger.GetLogger()

	for _, fn := range p.Functions {
		globals.Define(fn)
	}
	for _, decl := range p.Classes {
		c, err := vm.NewClass(decl.Name, decl.Body, globals)
		if err != nil {
			return nil, p.locate(err)
		}
		globals.SetLocal(decl.Name, c)
	}
	log.Debug("Program loaded", "name", p.Name, "functions", len(p.Functions), "classes", len(p.Classes), "tokens", len(p.Main))

	v, err := vm.Execute(globals, p.Main)
	if err != nil {
		return nil, p.locate(err)
	}
	return v, nil
}

func (p *Program) locate(err error) error {
	err = WithContext(err, p.Source)
	if ce, ok := IsCompileError(err); ok && ce.File == "" {
		ce.File = p.Name
	}
	return err
}

// parseClass reads the header and braces of `crystal Name { ... }`.
func parseClass(tokens []lexer.Token, pos int, source string) (ClassDecl, int, error) {
	if pos+1 >= len(tokens) || tokens[pos+1].Type != lexer.TOKEN_IDENT {
		return ClassDecl{}, pos, NewErrorAt(PhaseParser, "expected class name after crystal", source, tokens[pos].Offset)
	}
	name := tokens[pos+1]
	open := pos + 2
	if open >= len(tokens) || tokens[open].Type != lexer.TOKEN_LBRACE {
		return ClassDecl{}, pos, NewErrorAt(PhaseParser, fmt.Sprintf("expected { after crystal %s", name.Literal), source, name.Offset)
	}
	end := vm.MatchingClose(tokens, open)
	return ClassDecl{
		Name:   name.Literal,
		Body:   tokens[open+1 : end],
		Offset: name.Offset,
	}, end + 1, nil
}

// checkBalance verifies that every bracket is closed by its own kind.
func checkBalance(tokens []lexer.Token, source string) error {
	var stack []lexer.Token
	for _, tok := range tokens {
		switch tok.Type {
		case lexer.TOKEN_LBRACE, lexer.TOKEN_LPAREN:
			stack = append(stack, tok)
		case lexer.TOKEN_RBRACE, lexer.TOKEN_RPAREN:
			want := lexer.TOKEN_LBRACE
			if tok.Type == lexer.TOKEN_RPAREN {
				want = lexer.TOKEN_LPAREN
			}
			if len(stack) == 0 || stack[len(stack)-1].Type != want {
				return NewErrorAt(PhaseParser, fmt.Sprintf("unexpected %s", tok.Literal), source, tok.Offset)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return NewErrorAt(PhaseParser, fmt.Sprintf("unclosed %s", open.Literal), source, open.Offset)
	}
	return nil
}

// parserError converts a declaration error from the vm into a CompileError.
func parserError(err error, source string) error {
	var re *vm.RuntimeError
	if errors.As(err, &re) && re.Offset >= 0 {
		ce := NewErrorAt(PhaseParser, re.Message, source, re.Offset)
		ce.Err = err
		return ce
	}
	return err
}
