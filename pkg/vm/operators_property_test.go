package vm

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_NumberArithmetic tests that number operators agree with
// float64 arithmetic.
func TestProperty_NumberArithmetic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("add, subtract and multiply match float64", prop.ForAll(
		func(a, b float64) bool {
			sum, err1 := Apply(OpAdd, Number(a), Number(b))
			diff, err2 := Apply(OpSubtract, Number(a), Number(b))
			prod, err3 := Apply(OpMultiply, Number(a), Number(b))
			if err1 != nil || err2 != nil || err3 != nil {
				return false
			}
			return sum == Number(a+b) && diff == Number(a-b) && prod == Number(a*b)
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.Property("divide by non-zero matches float64", prop.ForAll(
		func(a, b float64) bool {
			if b == 0 {
				return true
			}
			q, err := Apply(OpDivide, Number(a), Number(b))
			return err == nil && q == Number(a/b)
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.Property("modulus by non-zero matches math.Mod", prop.ForAll(
		func(a, b int) bool {
			if b == 0 {
				return true
			}
			r, err := Apply(OpModulus, Number(a), Number(b))
			return err == nil && r == Number(math.Mod(float64(a), float64(b)))
		},
		gen.IntRange(-10000, 10000),
		gen.IntRange(-100, 100),
	))

	properties.Property("divide by zero always fails", prop.ForAll(
		func(a float64) bool {
			_, err := Apply(OpDivide, Number(a), Number(0))
			return errors.Is(err, ErrDivisionByZero)
		},
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// TestProperty_Comparison tests that ordering operators are consistent
// with each other and with equality.
func TestProperty_Comparison(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("exactly one of less, equal, greater holds", prop.ForAll(
		func(a, b int) bool {
			lt, _ := Apply(OpLess, Number(a), Number(b))
			eq, _ := Apply(OpEqual, Number(a), Number(b))
			gt, _ := Apply(OpGreater, Number(a), Number(b))
			count := 0
			for _, v := range []Value{lt, eq, gt} {
				if v == Boolean(true) {
					count++
				}
			}
			return count == 1
		},
		gen.IntRange(-50, 50),
		gen.IntRange(-50, 50),
	))

	properties.Property("not-equal is the negation of equal", prop.ForAll(
		func(a, b string) bool {
			eq, _ := Apply(OpEqual, String(a), String(b))
			ne, _ := Apply(OpNotEqual, String(a), String(b))
			return eq != ne
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("greater-or-equal is less negated", prop.ForAll(
		func(a, b string) bool {
			ge, err1 := Apply(OpGreaterEqual, String(a), String(b))
			lt, err2 := Apply(OpLess, String(a), String(b))
			return err1 == nil && err2 == nil && ge != lt
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// TestProperty_BooleanLogic tests the logical operators against Go's.
func TestProperty_BooleanLogic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("and, or, xor and not match Go", prop.ForAll(
		func(a, b bool) bool {
			and, _ := Apply(OpAnd, Boolean(a), Boolean(b))
			or, _ := Apply(OpOr, Boolean(a), Boolean(b))
			xor, _ := Apply(OpXor, Boolean(a), Boolean(b))
			not, _ := ApplyUnary(OpNot, Boolean(a))
			return and == Boolean(a && b) && or == Boolean(a || b) &&
				xor == Boolean(a != b) && not == Boolean(!a)
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
