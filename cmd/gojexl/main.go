// Command gojexl evaluates and checks GoJEXL scripts.
//
// Usage:
//
//	gojexl eval -e 'a.b + 1' --context data.yaml
//	gojexl eval --var n=10 --options '+safe' scripts/*.jexl
//	gojexl check scripts/*.jexl
package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	err := Run(context.Background(), os.Stdout, os.Exit, os.Args[1:]...)
	if err != nil {
		slog.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}
}
