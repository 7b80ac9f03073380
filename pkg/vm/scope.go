// Package vm provides scope management for the Crystal interpreter.
package vm

import (
	"log/slog"

	"github.com/zurustar/crystal/pkg/logger"
)

// MaxCallDepth is the default maximum number of frames a scope may hold.
const MaxCallDepth = 1000

// Root is the index of a scope's root frame. It holds globals for the
// program scope and member variables for a class instance.
const Root = 0

// noParent marks the root frame.
const noParent = -1

// Variable is a named slot. Updating a variable replaces its Value.
type Variable struct {
	Name  string
	Value Value
}

// frame is one mapping of names to variables and functions.
type frame struct {
	vars   map[string]*Variable
	funcs  map[string]*Function
	parent int
}

// Scope is a stack of frames with index-based parent links. Frames pushed
// for a call are released in bulk when the call returns, and their maps
// are reused by the next push. Reads that miss every frame in the chain
// fall through to the root chain of the outer scope; a class instance uses
// this to see globals.
//
// A Scope is not safe for concurrent use; the host runs one
// interpretation per scope tree at a time.
type Scope struct {
	frames   []frame
	outer    *Scope
	maxDepth int
	log      *slog.Logger
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithMaxCallDepth limits how many frames may be live at once.
func WithMaxCallDepth(depth int) ScopeOption {
	return func(s *Scope) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) ScopeOption {
	return func(s *Scope) {
		if log != nil {
			s.log = log
		}
	}
}

// NewScope creates a scope with a single root frame. outer may be nil.
// Options not given are inherited from outer.
func NewScope(outer *Scope, opts ...ScopeOption) *Scope {
	s := &Scope{
		frames:   make([]frame, 0, 8),
		outer:    outer,
		maxDepth: MaxCallDepth,
		log:      logger.GetLogger(),
	}
	if outer != nil {
		s.maxDepth = outer.maxDepth
		s.log = outer.log
	}
	for _, opt := range opts {
		opt(s)
	}
	s.frames = append(s.frames, newFrame(noParent))
	return s
}

func newFrame(parent int) frame {
	return frame{
		vars:   make(map[string]*Variable),
		funcs:  make(map[string]*Function),
		parent: parent,
	}
}

// Outer returns the scope reads fall through to, or nil.
func (s *Scope) Outer() *Scope {
	return s.outer
}

// globals returns the outermost scope in the chain.
func (s *Scope) globals() *Scope {
	for s.outer != nil {
		s = s.outer
	}
	return s
}

// Depth returns the number of live frames, root included.
func (s *Scope) Depth() int {
	return len(s.frames)
}

// Push allocates a frame whose reads fall back to parent and returns its index.
func (s *Scope) Push(parent int) (int, error) {
	idx := len(s.frames)
	if idx >= s.maxDepth {
		return 0, NewStackOverflowError(idx+1, s.maxDepth)
	}
	if idx < cap(s.frames) {
		s.frames = s.frames[:idx+1]
		f := &s.frames[idx]
		if f.vars == nil {
			*f = newFrame(parent)
		} else {
			clear(f.vars)
			clear(f.funcs)
			f.parent = parent
		}
	} else {
		s.frames = append(s.frames, newFrame(parent))
	}
	s.log.Debug("Frame pushed", "frame", idx, "parent", parent)
	return idx, nil
}

// Release frees the frame at idx and every frame above it. The root frame
// is never released.
func (s *Scope) Release(idx int) {
	if idx <= Root || idx >= len(s.frames) {
		return
	}
	s.frames = s.frames[:idx]
	s.log.Debug("Frame released", "frame", idx, "depth", len(s.frames))
}

// lookup finds a variable starting at frame and walking parents, then the
// outer scope's root chain.
func (s *Scope) lookup(idx int, name string) (*Variable, bool) {
	for sc := s; sc != nil; sc = sc.outer {
		for i := idx; i >= 0 && i < len(sc.frames); i = sc.frames[i].parent {
			if v, ok := sc.frames[i].vars[name]; ok {
				return v, true
			}
		}
		idx = Root
	}
	return nil, false
}

func (s *Scope) lookupFunction(idx int, name string) (*Function, bool) {
	for sc := s; sc != nil; sc = sc.outer {
		for i := idx; i >= 0 && i < len(sc.frames); i = sc.frames[i].parent {
			if fn, ok := sc.frames[i].funcs[name]; ok {
				return fn, true
			}
		}
		idx = Root
	}
	return nil, false
}

// declare binds name in the given frame, replacing any existing slot there.
func (s *Scope) declare(idx int, name string, value Value) {
	s.frames[idx].vars[name] = &Variable{Name: name, Value: value}
}

// assign updates the variable visible from frame, or declares it in frame
// when no such variable exists.
func (s *Scope) assign(idx int, name string, value Value) {
	if v, ok := s.lookup(idx, name); ok {
		v.Value = value
		return
	}
	s.declare(idx, name, value)
}

// defineFunction registers fn in the given frame. An unbound function is
// bound to this scope so its calls push frames here.
func (s *Scope) defineFunction(idx int, fn *Function) {
	if fn.scope == nil {
		fn.scope = s
	}
	s.frames[idx].funcs[fn.Name] = fn
}

// Get retrieves a variable value visible from the root frame.
func (s *Scope) Get(name string) (Value, bool) {
	v, ok := s.lookup(Root, name)
	if !ok {
		return nil, false
	}
	return v.Value, true
}

// Set updates an existing variable visible from the root frame, or creates
// it in the root frame.
func (s *Scope) Set(name string, value Value) {
	s.assign(Root, name, value)
}

// SetLocal creates or replaces a variable in the root frame only.
func (s *Scope) SetLocal(name string, value Value) {
	s.declare(Root, name, value)
}

// Define registers a function in the root frame.
func (s *Scope) Define(fn *Function) {
	s.defineFunction(Root, fn)
}

// Function looks up a function visible from the root frame.
func (s *Scope) Function(name string) (*Function, bool) {
	return s.lookupFunction(Root, name)
}

// Keys returns the variable names of the root frame.
func (s *Scope) Keys() []string {
	keys := make([]string, 0, len(s.frames[Root].vars))
	for k := range s.frames[Root].vars {
		keys = append(keys, k)
	}
	return keys
}

// FunctionNames returns the function names of the root frame.
func (s *Scope) FunctionNames() []string {
	names := make([]string, 0, len(s.frames[Root].funcs))
	for k := range s.frames[Root].funcs {
		names = append(names, k)
	}
	return names
}
