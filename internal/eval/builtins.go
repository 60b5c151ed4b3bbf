package eval

import (
	"fmt"
	"math"
)

// Builtin implements a declared function natively.
type Builtin func(args []float64) (float64, error)

func unary(f func(float64) float64) Builtin {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("eval: builtin takes 1 argument, got %d", len(args))
		}
		return f(args[0]), nil
	}
}

func binary(f func(float64, float64) float64) Builtin {
	return func(args []float64) (float64, error) {
		if len(args) != 2 {
			return 0, fmt.Errorf("eval: builtin takes 2 arguments, got %d", len(args))
		}
		return f(args[0], args[1]), nil
	}
}

func standardBuiltins(e *Engine) map[string]Builtin {
	return map[string]Builtin{
		"sin":   unary(math.Sin),
		"cos":   unary(math.Cos),
		"tan":   unary(math.Tan),
		"sqrt":  unary(math.Sqrt),
		"exp":   unary(math.Exp),
		"log":   unary(math.Log),
		"fabs":  unary(math.Abs),
		"floor": unary(math.Floor),
		"ceil":  unary(math.Ceil),
		"atan2": binary(math.Atan2),
		"pow":   binary(math.Pow),

		// putchard writes the argument as a byte and returns 0.
		"putchard": unary(func(x float64) float64 {
			_, _ = e.out.Write([]byte{byte(int(x))})
			return 0
		}),
		// printd writes the argument followed by a newline and returns 0.
		"printd": unary(func(x float64) float64 {
			_, _ = fmt.Fprintf(e.out, "%f\n", x)
			return 0
		}),
	}
}

// Builtins returns the names bound natively, in no particular order.
func (e *Engine) Builtins() []string {
	names := make([]string, 0, len(e.builtins))
	for n := range e.builtins {
		names = append(names, n)
	}
	return names
}
