package main

import (
	"fmt"
	"strings"

	"github.com/bashkirtsevich/rabbitrpc/registry"
	"github.com/bashkirtsevich/rabbitrpc/rpcserver"
)

// registerGreeter exercises a keyword-default procedure and a no-args
// procedure, and a catch-all kwargs procedure for completeness.
func registerGreeter() {
	rpcserver.MustRegister("greeter", "demo.greeter", "hello",
		registry.Signature{Kw: []registry.KwParam{
			{Name: "name", Default: "world"},
			{Name: "shout", Default: false},
		}},
		"greets someone by name",
		func(args registry.CallArgs) (interface{}, error) {
			name, _ := args.Kwargs["name"].(string)
			shout, _ := args.Kwargs["shout"].(bool)

			greeting := fmt.Sprintf("hello, %s", name)
			if shout {
				greeting = strings.ToUpper(greeting) + "!"
			}
			return greeting, nil
		},
	)

	rpcserver.MustRegister("greeter", "demo.greeter", "ping",
		registry.Signature{},
		"always replies pong",
		func(registry.CallArgs) (interface{}, error) {
			return "pong", nil
		},
	)

	rpcserver.MustRegister("greeter", "demo.greeter", "describe",
		registry.Signature{KwargsName: "fields"},
		"echoes back whatever keyword fields it was given",
		func(args registry.CallArgs) (interface{}, error) {
			return args.Kwargs, nil
		},
	)
}
