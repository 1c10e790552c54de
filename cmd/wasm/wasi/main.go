//go:build wasip1

// Command gojexl-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin, single JSON object on stdout.
//
//	stdin:  { "script": "<jexl>", "context": {...}, "options": "+safe" }
//	stdout: { "result": <any JSON value> }            on success
//	        { "error": "<message>", "code": "..." }   on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o gojexl.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"script":"user.name","context":{"user":{"name":"Alice"}}}' | wasmtime gojexl.wasm
package main

import (
	"context"
	"os"

	"github.com/sandrolain/gojexl/cmd/wasm/internal/bridge"
)

func main() {
	out, ok := bridge.HandleReader(context.Background(), os.Stdin)
	_, _ = os.Stdout.Write(append(out, '\n'))
	if !ok {
		os.Exit(1)
	}
}
