package vm

import (
	"math"
)

// Number operators. Arithmetic and ordering require a Number on the right.

func (n Number) other(op Operator, v Value) (Number, error) {
	o, ok := v.(Number)
	if !ok {
		return 0, NewOperandTypeError(n.TypeName(), op, v)
	}
	return o, nil
}

func (n Number) Add(v Value) (Value, error) {
	o, err := n.other(OpAdd, v)
	if err != nil {
		return nil, err
	}
	return n + o, nil
}

func (n Number) Subtract(v Value) (Value, error) {
	o, err := n.other(OpSubtract, v)
	if err != nil {
		return nil, err
	}
	return n - o, nil
}

func (n Number) Multiply(v Value) (Value, error) {
	o, err := n.other(OpMultiply, v)
	if err != nil {
		return nil, err
	}
	return n * o, nil
}

// Divide fails on a zero divisor instead of producing Inf or NaN.
func (n Number) Divide(v Value) (Value, error) {
	o, err := n.other(OpDivide, v)
	if err != nil {
		return nil, err
	}
	if o == 0 {
		return nil, NewDivisionByZeroError()
	}
	return n / o, nil
}

func (n Number) Modulus(v Value) (Value, error) {
	o, err := n.other(OpModulus, v)
	if err != nil {
		return nil, err
	}
	if o == 0 {
		return nil, NewDivisionByZeroError()
	}
	return Number(math.Mod(float64(n), float64(o))), nil
}

func (n Number) Greater(v Value) (Value, error) {
	o, err := n.other(OpGreater, v)
	if err != nil {
		return nil, err
	}
	return Boolean(n > o), nil
}

func (n Number) Less(v Value) (Value, error) {
	o, err := n.other(OpLess, v)
	if err != nil {
		return nil, err
	}
	return Boolean(n < o), nil
}

func (n Number) GreaterEqual(v Value) (Value, error) {
	o, err := n.other(OpGreaterEqual, v)
	if err != nil {
		return nil, err
	}
	return Boolean(n >= o), nil
}

func (n Number) LessEqual(v Value) (Value, error) {
	o, err := n.other(OpLessEqual, v)
	if err != nil {
		return nil, err
	}
	return Boolean(n <= o), nil
}

// Negate returns -n.
func (n Number) Negate() Number { return -n }

// Boolean operators. Logical operators only work against another Boolean.

func (b Boolean) other(op Operator, v Value) (Boolean, error) {
	o, ok := v.(Boolean)
	if !ok {
		return false, NewOperandTypeError(b.TypeName(), op, v)
	}
	return o, nil
}

func (b Boolean) And(v Value) (Value, error) {
	o, err := b.other(OpAnd, v)
	if err != nil {
		return nil, err
	}
	return b && o, nil
}

func (b Boolean) Or(v Value) (Value, error) {
	o, err := b.other(OpOr, v)
	if err != nil {
		return nil, err
	}
	return b || o, nil
}

func (b Boolean) Xor(v Value) (Value, error) {
	o, err := b.other(OpXor, v)
	if err != nil {
		return nil, err
	}
	return Boolean(b != o), nil
}

func (b Boolean) Not() (Value, error) {
	return !b, nil
}

// String operators: concatenation and lexicographic ordering.

func (s String) other(op Operator, v Value) (String, error) {
	o, ok := v.(String)
	if !ok {
		return "", NewOperandTypeError(s.TypeName(), op, v)
	}
	return o, nil
}

func (s String) Add(v Value) (Value, error) {
	o, err := s.other(OpAdd, v)
	if err != nil {
		return nil, err
	}
	return s + o, nil
}

func (s String) Greater(v Value) (Value, error) {
	o, err := s.other(OpGreater, v)
	if err != nil {
		return nil, err
	}
	return Boolean(s > o), nil
}

func (s String) Less(v Value) (Value, error) {
	o, err := s.other(OpLess, v)
	if err != nil {
		return nil, err
	}
	return Boolean(s < o), nil
}

func (s String) GreaterEqual(v Value) (Value, error) {
	o, err := s.other(OpGreaterEqual, v)
	if err != nil {
		return nil, err
	}
	return Boolean(s >= o), nil
}

func (s String) LessEqual(v Value) (Value, error) {
	o, err := s.other(OpLessEqual, v)
	if err != nil {
		return nil, err
	}
	return Boolean(s <= o), nil
}
