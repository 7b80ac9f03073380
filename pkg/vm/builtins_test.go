package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/zurustar/crystal/pkg/lexer"
)

func runWithBuiltins(t *testing.T, src string) (*Scope, string, error) {
	t.Helper()
	var out bytes.Buffer
	s := NewScope(nil)
	RegisterBuiltins(s, &out)
	_, err := Execute(s, lexer.Tokenize(src))
	return s, out.String(), err
}

func TestBuiltin_Print(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"print(1 + 2);", "3\n"},
		{`print("hello");`, "hello\n"},
		{"print(1 < 2);", "true\n"},
		{"print(null);", "null\n"},
		{"print(0.5);", "0.5\n"},
		{"x = 2; print(x * x); print(x);", "4\n2\n"},
		{"function f() { return 9; } print(f());", "9\n"},
	}

	for i, tt := range tests {
		_, out, err := runWithBuiltins(t, tt.input)
		if err != nil {
			t.Fatalf("tests[%d] - %q: unexpected error: %v", i, tt.input, err)
		}
		if out != tt.want {
			t.Fatalf("tests[%d] - %q: output = %q, want %q", i, tt.input, out, tt.want)
		}
	}
}

func TestBuiltin_PrintReturnsNull(t *testing.T) {
	s, _, err := runWithBuiltins(t, "r = print(1);")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := s.Get("r"); v != (Null{}) {
		t.Errorf("r = %v, want null", v)
	}
}

func TestBuiltin_Typeof(t *testing.T) {
	tests := []struct {
		input string
		want  String
	}{
		{"r = typeof(1);", "number"},
		{`r = typeof("a");`, "string"},
		{"r = typeof(true);", "bool"},
		{"r = typeof(null);", "null"},
		{"r = typeof(print);", "function"},
		{"crystal Box { } r = typeof(Box);", "Box"},
	}

	for i, tt := range tests {
		s, _, err := runWithBuiltins(t, tt.input)
		if err != nil {
			t.Fatalf("tests[%d] - %q: unexpected error: %v", i, tt.input, err)
		}
		if v, _ := s.Get("r"); v != tt.want {
			t.Fatalf("tests[%d] - %q: r = %v, want %s", i, tt.input, v, tt.want)
		}
	}
}

func TestBuiltin_Create(t *testing.T) {
	src := `
crystal Box { variables { n = 1; } }
b = create(Box);
`
	s, _, err := runWithBuiltins(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	box, _ := s.Get("Box")
	b, _ := s.Get("b")
	orig, ok1 := box.(*Class)
	clone, ok2 := b.(*Class)
	if !ok1 || !ok2 {
		t.Fatalf("Box = %T, b = %T", box, b)
	}
	if orig.ID == clone.ID {
		t.Error("create should return a new instance")
	}

	_, _, err = runWithBuiltins(t, "create(1);")
	if !errors.Is(err, ErrArgumentType) {
		t.Errorf("create(1): error = %v, want argument type", err)
	}
}

func TestBuiltin_Arity(t *testing.T) {
	_, _, err := runWithBuiltins(t, "print(1, 2);")
	if !errors.Is(err, ErrArityMismatch) {
		t.Errorf("print(1, 2): error = %v, want arity mismatch", err)
	}
}
