//go:build js && wasm

// Command gojexl-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `gojexl` object with the following API:
//
//	gojexl.version()          → string
//	gojexl.eval(requestJSON)  → responseJSON
//
// The request and response objects are those of the WASI command:
//
//	const resp = JSON.parse(gojexl.eval(JSON.stringify({script: 'x * 2', context: {x: 21}})))
//	console.log(resp.result) // 42
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o gojexl.wasm ./cmd/wasm/js/
package main

import (
	"context"
	"syscall/js"

	"github.com/sandrolain/gojexl"
	"github.com/sandrolain/gojexl/cmd/wasm/internal/bridge"
)

func jsEval(_ js.Value, args []js.Value) interface{} {
	var data []byte
	if len(args) > 0 {
		data = []byte(args[0].String())
	}
	out, _ := bridge.HandleJSON(context.Background(), data)
	return string(out)
}

func main() {
	api := map[string]interface{}{
		"eval":    js.FuncOf(jsEval),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) interface{} {
			return gojexl.Version()
		}),
	}
	js.Global().Set("gojexl", js.ValueOf(api))

	// The JS event loop owns execution from here.
	select {}
}
