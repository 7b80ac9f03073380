package vm

import (
	"errors"
	"strconv"
	"strings"
)

// Value is a dynamically typed script value. The set of implementations
// is closed: Number, Boolean, Null, String, *Class and *Function.
type Value interface {
	// TypeName is the name compared against declared parameter types.
	TypeName() string
	// String is the display form used by print and the REPL.
	String() string

	value()
}

// Operator identifies one operation of the value operator contract.
type Operator int

const (
	OpAdd Operator = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulus
	OpAnd
	OpOr
	OpXor
	OpNot
	OpEqual
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
)

var operatorNames = [...]string{
	OpAdd:          "add",
	OpSubtract:     "subtract",
	OpMultiply:     "multiply",
	OpDivide:       "divide",
	OpModulus:      "modulus",
	OpAnd:          "and",
	OpOr:           "or",
	OpXor:          "xor",
	OpNot:          "not",
	OpEqual:        "equal",
	OpNotEqual:     "not-equal",
	OpGreater:      "greater",
	OpLess:         "less",
	OpGreaterEqual: "greater-or-equal",
	OpLessEqual:    "less-or-equal",
}

func (op Operator) String() string {
	if int(op) < len(operatorNames) {
		return operatorNames[op]
	}
	return "unknown"
}

// Each variant opts into operators by implementing the matching interface.
// Anything a variant does not implement is unsupported.
type (
	adder       interface{ Add(Value) (Value, error) }
	subtracter  interface{ Subtract(Value) (Value, error) }
	multiplier  interface{ Multiply(Value) (Value, error) }
	divider     interface{ Divide(Value) (Value, error) }
	moduler     interface{ Modulus(Value) (Value, error) }
	ander       interface{ And(Value) (Value, error) }
	orer        interface{ Or(Value) (Value, error) }
	xorer       interface{ Xor(Value) (Value, error) }
	notter      interface{ Not() (Value, error) }
	equaler     interface{ Equal(Value) bool }
	greaterer   interface{ Greater(Value) (Value, error) }
	lesser      interface{ Less(Value) (Value, error) }
	greaterEqer interface{ GreaterEqual(Value) (Value, error) }
	lessEqer    interface{ LessEqual(Value) (Value, error) }
)

// Apply dispatches a binary operator on the kind of left.
func Apply(op Operator, left, right Value) (Value, error) {
	switch op {
	case OpAdd:
		if v, ok := left.(adder); ok {
			return v.Add(right)
		}
	case OpSubtract:
		if v, ok := left.(subtracter); ok {
			return v.Subtract(right)
		}
	case OpMultiply:
		if v, ok := left.(multiplier); ok {
			return v.Multiply(right)
		}
	case OpDivide:
		if v, ok := left.(divider); ok {
			return v.Divide(right)
		}
	case OpModulus:
		if v, ok := left.(moduler); ok {
			return v.Modulus(right)
		}
	case OpAnd:
		if v, ok := left.(ander); ok {
			return v.And(right)
		}
	case OpOr:
		if v, ok := left.(orer); ok {
			return v.Or(right)
		}
	case OpXor:
		if v, ok := left.(xorer); ok {
			return v.Xor(right)
		}
	case OpNot:
		return ApplyUnary(op, left)
	case OpEqual:
		return Boolean(Equal(left, right)), nil
	case OpNotEqual:
		return Boolean(!Equal(left, right)), nil
	case OpGreater:
		if v, ok := left.(greaterer); ok {
			return v.Greater(right)
		}
	case OpLess:
		if v, ok := left.(lesser); ok {
			return v.Less(right)
		}
	case OpGreaterEqual:
		if v, ok := left.(greaterEqer); ok {
			return v.GreaterEqual(right)
		}
	case OpLessEqual:
		if v, ok := left.(lessEqer); ok {
			return v.LessEqual(right)
		}
	}
	return nil, NewUnsupportedError(left.TypeName(), op)
}

// ApplyUnary dispatches a unary operator. Only OpNot is unary.
func ApplyUnary(op Operator, operand Value) (Value, error) {
	if op == OpNot {
		if v, ok := operand.(notter); ok {
			return v.Not()
		}
	}
	return nil, NewUnsupportedError(operand.TypeName(), op)
}

// Equal reports whether two values are equal. Variants without their own
// rule fall back to native equality.
func Equal(left, right Value) bool {
	if v, ok := left.(equaler); ok {
		return v.Equal(right)
	}
	return left == right
}

// Number wraps a 64-bit float.
type Number float64

// Boolean wraps a bool.
type Boolean bool

// String wraps script text. Escape sequences are kept verbatim.
type String string

// Null is the absent value.
type Null struct{}

func (Number) value()  {}
func (Boolean) value() {}
func (String) value()  {}
func (Null) value()    {}

func (Number) TypeName() string  { return "number" }
func (Boolean) TypeName() string { return "bool" }
func (String) TypeName() string  { return "string" }
func (Null) TypeName() string    { return "null" }

func (n Number) String() string { return strconv.FormatFloat(float64(n), 'f', -1, 64) }
func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (s String) String() string { return string(s) }
func (Null) String() string     { return "null" }

// ParseLiteral builds a value from a literal lexeme. The coercion order is
// number, then boolean, then string; the first that succeeds wins. Quotes
// around a string lexeme are removed before coercion.
func ParseLiteral(lexeme string) Value {
	text := lexeme
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	if n, ok := parseNumber(text); ok {
		return Number(n)
	}
	switch text {
	case "true":
		return Boolean(true)
	case "false":
		return Boolean(false)
	}
	return String(text)
}

// parseNumber accepts only the literal grammar of the lexer: digits with an
// optional fractional part. Signs, exponents, hex, Inf and NaN are rejected.
func parseNumber(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	intPart, fracPart, hasDot := strings.Cut(text, ".")
	if !allDigits(intPart) || (hasDot && !allDigits(fracPart)) {
		return 0, false
	}
	// Out of range digits still form a number literal and saturate to +Inf.
	n, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return n, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
