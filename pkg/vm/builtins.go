package vm

import (
	"fmt"
	"io"
)

// RegisterBuiltins registers the host functions every script can call.
// print writes to w.
func RegisterBuiltins(scope *Scope, w io.Writer) {
	anyParam := []Param{{Name: "value", Type: AnyType}}

	// print: write the display form of a value followed by a newline
	scope.Define(NewNative("print", anyParam, func(args []Value) (Value, error) {
		if _, err := fmt.Fprintln(w, args[0].String()); err != nil {
			return nil, fmt.Errorf("print: %w", err)
		}
		return Null{}, nil
	}))

	// typeof: the name compared against declared parameter types
	scope.Define(NewNative("typeof", anyParam, func(args []Value) (Value, error) {
		return String(args[0].TypeName()), nil
	}))

	// create: an independent copy of a class instance
	scope.Define(NewNative("create", anyParam, func(args []Value) (Value, error) {
		c, ok := args[0].(*Class)
		if !ok {
			return nil, NewRuntimeError(ErrorArgumentType,
				fmt.Sprintf("create expects a crystal instance, got %s", args[0].TypeName()))
		}
		return c.Create(), nil
	}))

	scope.log.Debug("Builtins registered", "count", 3)
}
