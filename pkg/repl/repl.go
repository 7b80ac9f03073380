// Package repl implements the interactive Crystal prompt. A session keeps
// one global scope across inputs, so variables, functions and classes
// declared at the prompt stay visible to later inputs.
package repl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/zurustar/crystal/pkg/compiler"
	"github.com/zurustar/crystal/pkg/lexer"
	"github.com/zurustar/crystal/pkg/logger"
	"github.com/zurustar/crystal/pkg/vm"
)

const (
	promptMain  = "crystal> "
	promptCont  = "... "
	historyFile = ".crystal_history"
	banner      = "Crystal REPL. Type :quit to exit."
)

// LineReader reads one line of input per prompt. *liner.State implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Session is an interactive evaluation session.
type Session struct {
	globals *vm.Scope
	out     io.Writer
	errOut  io.Writer
	log     *slog.Logger
}

// NewSession creates a session whose print builtin writes to out and whose
// errors are reported on errOut.
func NewSession(out, errOut io.Writer, opts ...vm.ScopeOption) *Session {
	globals := vm.NewScope(nil, opts...)
	vm.RegisterBuiltins(globals, out)
	return NewSessionWithScope(globals, out, errOut)
}

// NewSessionWithScope creates a session that continues in an existing
// global scope, such as one a script has already run in.
func NewSessionWithScope(globals *vm.Scope, out, errOut io.Writer) *Session {
	return &Session{
		globals: globals,
		out:     out,
		errOut:  errOut,
		log:     logger.GetLogger(),
	}
}

// Scope returns the session's global scope.
func (s *Session) Scope() *vm.Scope {
	return s.globals
}

// Eval compiles and runs src against the session scope.
func (s *Session) Eval(src string) (vm.Value, error) {
	p, err := compiler.Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Run(s.globals)
}

// Incomplete reports whether src has unclosed braces or parentheses, so
// that more lines should be read before evaluating it.
func Incomplete(src string) bool {
	depth := 0
	for _, tok := range lexer.Tokenize(src) {
		switch tok.Type {
		case lexer.TOKEN_LBRACE, lexer.TOKEN_LPAREN:
			depth++
		case lexer.TOKEN_RBRACE, lexer.TOKEN_RPAREN:
			depth--
		}
	}
	return depth > 0
}

// ReadInput reads one complete input, prompting for continuation lines
// while brackets are open. It returns false at end of input.
func ReadInput(r LineReader) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := r.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl-C discards the pending input
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if !Incomplete(b.String()) {
			return b.String(), true
		}
	}
}

// Loop reads and evaluates inputs until end of input or :quit.
func (s *Session) Loop(r LineReader) {
	for {
		src, ok := ReadInput(r)
		if !ok {
			fmt.Fprintln(s.out)
			return
		}

		input := strings.TrimSpace(src)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, ":") {
			switch strings.ToLower(input) {
			case ":quit", ":exit", ":q":
				return
			default:
				fmt.Fprintln(s.errOut, "unknown command. Type :quit to exit.")
			}
			continue
		}

		r.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		v, err := s.Eval(src)
		if err != nil {
			s.log.Warn("Evaluation failed", "error", err)
			fmt.Fprintln(s.errOut, err)
			continue
		}
		if _, isNull := v.(vm.Null); !isNull {
			fmt.Fprintln(s.out, v)
		}
	}
}

// HistoryPath returns the history file in the user's home directory.
func HistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, historyFile), nil
}

// Run starts an interactive session on the terminal. History is loaded
// from and saved to HistoryPath.
func (s *Session) Run() {
	fmt.Fprintln(s.out, banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath, err := HistoryPath()
	if err != nil {
		s.log.Warn("History disabled", "error", err)
	} else {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(histPath)
			if err != nil {
				s.log.Warn("Failed to save history", "path", histPath, "error", err)
				return
			}
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}()
	}

	s.log.Debug("REPL started", "history", histPath)
	s.Loop(ln)
}
