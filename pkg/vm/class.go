package vm

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/zurustar/crystal/pkg/lexer"
)

// lastClassID hands out class instance ids. Ids are never reused.
var lastClassID atomic.Uint64

func nextClassID() ClassID {
	return ClassID(lastClassID.Add(1))
}

// Class is a user-defined composite value. Its member frame is the root
// frame of its own scope, whose reads fall through to the globals. Member
// functions run in that scope, so every call sees and updates the
// instance's member variables.
//
// A Class is the only mutable value; assigning it to another variable
// shares the instance. Use Create for an independent copy.
type Class struct {
	Name      string
	ID        ClassID
	Body      []lexer.Token
	Functions map[string]*Function

	scope *Scope
}

func (*Class) value()             {}
func (c *Class) TypeName() string { return c.Name }
func (c *Class) String() string   { return fmt.Sprintf("<crystal %s#%d>", c.Name, c.ID) }

// NewClass builds an instance from a class body. Member functions declared
// in the body are registered first, then the variables block (if any) is
// run to initialise the member frame. globals may be nil.
func NewClass(name string, body []lexer.Token, globals *Scope) (*Class, error) {
	c := &Class{
		Name:      name,
		ID:        nextClassID(),
		Body:      body,
		Functions: make(map[string]*Function),
		scope:     NewScope(globals),
	}
	c.scope.frames[Root].funcs = c.Functions

	block, err := c.ScanFunctions()
	if err != nil {
		return nil, fmt.Errorf("crystal %s: %w", name, err)
	}
	if block != nil {
		// Members shadow globals of the same name.
		in := newInterpreter(c.scope, Root, block)
		in.local = true
		flow, err := in.run()
		if err != nil {
			return nil, fmt.Errorf("crystal %s: variables: %w", name, err)
		}
		if flow.Kind == FlowReturn {
			return nil, NewRuntimeErrorAt(ErrorSyntax, "return inside variables block", flow.Offset)
		}
	}

	c.scope.log.Debug("Class created", "name", name, "id", c.ID, "functions", len(c.Functions))
	return c, nil
}

// ScanFunctions finds `function name(params) { ... }` declarations at the
// top level of the body and registers each as a member function. It returns
// the tokens inside the `variables { ... }` block, or nil if there is none.
// Any other top-level tokens are ignored.
func (c *Class) ScanFunctions() ([]lexer.Token, error) {
	var block []lexer.Token
	for pos := 0; pos < len(c.Body); {
		tok := c.Body[pos]
		switch {
		case tok.IsKeyword(lexer.KeywordFunction):
			fn, next, err := ParseFunction(c.Body, pos)
			if err != nil {
				return nil, err
			}
			fn.Owner = c.ID
			c.scope.defineFunction(Root, fn)
			pos = next

		case tok.IsKeyword(lexer.KeywordVariables):
			open := pos + 1
			if open >= len(c.Body) || c.Body[open].Type != lexer.TOKEN_LBRACE {
				return nil, syntaxError("expected { after variables", c.Body, open)
			}
			end := MatchingClose(c.Body, open)
			if end < 0 {
				return nil, syntaxError("unbalanced brace in variables block", c.Body, open)
			}
			if block != nil {
				return nil, syntaxError("duplicate variables block", c.Body, pos)
			}
			block = c.Body[open+1 : end]
			pos = end + 1

		case tok.Type == lexer.TOKEN_LBRACE:
			// Skip nested blocks so their declarations stay out of the member table.
			end := MatchingClose(c.Body, pos)
			if end < 0 {
				return nil, syntaxError("unbalanced brace in class body", c.Body, pos)
			}
			pos = end + 1

		default:
			pos++
		}
	}
	return block, nil
}

// Create returns an independent copy of the instance: a fresh id, a copied
// body, a copied member frame and member functions rebound to the copy.
// Class values held in member variables are copied as well. References
// between instances, including cycles, point at the copies.
func (c *Class) Create() *Class {
	return c.create(make(map[*Class]*Class))
}

func (c *Class) create(seen map[*Class]*Class) *Class {
	if clone, ok := seen[c]; ok {
		return clone
	}
	clone := &Class{
		Name:      c.Name,
		ID:        nextClassID(),
		Body:      slices.Clone(c.Body),
		Functions: make(map[string]*Function, len(c.Functions)),
		scope:     NewScope(c.scope.outer, WithMaxCallDepth(c.scope.maxDepth), WithLogger(c.scope.log)),
	}
	seen[c] = clone
	for name, v := range c.scope.frames[Root].vars {
		if member, ok := v.Value.(*Class); ok {
			clone.scope.declare(Root, name, member.create(seen))
			continue
		}
		clone.scope.declare(Root, name, v.Value)
	}
	for name, fn := range c.Functions {
		clone.Functions[name] = fn.bind(clone)
	}
	clone.scope.frames[Root].funcs = clone.Functions

	c.scope.log.Debug("Class cloned", "name", c.Name, "from", c.ID, "to", clone.ID)
	return clone
}

// Call invokes a member function with type-checked arguments.
func (c *Class) Call(name string, args ...Value) (Value, error) {
	fn, ok := c.Functions[name]
	if !ok {
		return nil, NewUndefinedFunctionError(c.Name + "." + name)
	}
	return fn.Call(args)
}

// Get returns a member variable.
func (c *Class) Get(name string) (Value, bool) {
	v, ok := c.scope.frames[Root].vars[name]
	if !ok {
		return nil, false
	}
	return v.Value, true
}

// Set creates or replaces a member variable.
func (c *Class) Set(name string, value Value) {
	c.scope.declare(Root, name, value)
}

// Members returns the member variable names.
func (c *Class) Members() []string {
	return c.scope.Keys()
}

// ParseClass parses `crystal Name { body }` starting at tokens[pos], which
// must be the crystal keyword, and builds the instance against globals. It
// returns the index just past the closing brace.
func ParseClass(tokens []lexer.Token, pos int, globals *Scope) (*Class, int, error) {
	if pos >= len(tokens) || !tokens[pos].IsKeyword(lexer.KeywordCrystal) {
		return nil, pos, syntaxError("expected crystal", tokens, pos)
	}
	if pos+1 >= len(tokens) || tokens[pos+1].Type != lexer.TOKEN_IDENT {
		return nil, pos, syntaxError("expected class name", tokens, pos+1)
	}
	open := pos + 2
	if open >= len(tokens) || tokens[open].Type != lexer.TOKEN_LBRACE {
		return nil, pos, syntaxError("expected { after class name", tokens, open)
	}
	end := MatchingClose(tokens, open)
	if end < 0 {
		return nil, pos, syntaxError("unbalanced brace in class body", tokens, open)
	}
	c, err := NewClass(tokens[pos+1].Literal, slices.Clone(tokens[open+1:end]), globals)
	if err != nil {
		return nil, pos, err
	}
	return c, end + 1, nil
}
