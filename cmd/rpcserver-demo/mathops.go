package main

import (
	"fmt"

	"github.com/bashkirtsevich/rabbitrpc/registry"
	"github.com/bashkirtsevich/rabbitrpc/rpcserver"
)

// registerMathOps exercises a positional-only procedure and a
// varargs-accepting procedure, the cases an incomplete proxy-generation
// stub left untested.
func registerMathOps() {
	rpcserver.MustRegister("math_ops", "demo.mathops", "add",
		registry.Signature{Positional: []string{"a", "b"}},
		"adds two numbers",
		func(args registry.CallArgs) (interface{}, error) {
			if len(args.Varargs) != 2 {
				return nil, fmt.Errorf("add expects exactly 2 arguments, got %d", len(args.Varargs))
			}
			a, aok := toFloat(args.Varargs[0])
			b, bok := toFloat(args.Varargs[1])
			if !aok || !bok {
				return nil, fmt.Errorf("add expects numeric arguments")
			}
			return a + b, nil
		},
	)

	rpcserver.MustRegister("math_ops", "demo.mathops", "sum",
		registry.Signature{VarargsName: "values"},
		"sums any number of values",
		func(args registry.CallArgs) (interface{}, error) {
			var total float64
			for _, v := range args.Varargs {
				n, ok := toFloat(v)
				if !ok {
					return nil, fmt.Errorf("sum expects numeric arguments")
				}
				total += n
			}
			return total, nil
		},
	)
}

func toFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}
