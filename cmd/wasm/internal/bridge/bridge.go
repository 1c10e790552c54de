// Package bridge implements the JSON protocol shared by the WebAssembly
// entry points.
//
//	request:  { "script": "<jexl>", "context": {...}, "args": [...], "options": "+safe -strict" }
//	response: { "result": <any JSON value> }   on success
//	          { "error": "<message>", "code": "<error code>" }   on failure
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sandrolain/gojexl"
	"github.com/sandrolain/gojexl/pkg/evaluator"
	"github.com/sandrolain/gojexl/pkg/types"
)

// Request is one evaluation.
type Request struct {
	Script  string                 `json:"script"`
	Context map[string]interface{} `json:"context"`
	Params  []string               `json:"params,omitempty"`
	Args    []interface{}          `json:"args,omitempty"`
	Options string                 `json:"options,omitempty"`
}

// Response carries the result or the error of a Request.
type Response struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Code   string      `json:"code,omitempty"`
}

// Decode reads a request. JSON integers become int64 and other numbers
// float64, matching script literals.
func Decode(data []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var req Request
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request JSON: %w", err)
	}
	req.Context, _ = numbers(req.Context).(map[string]interface{})
	req.Args, _ = numbers(req.Args).([]interface{})
	return &req, nil
}

// Handle evaluates req. The returned response is never nil.
func Handle(ctx context.Context, req *Request) *Response {
	var opts []gojexl.Option
	if strings.TrimSpace(req.Options) != "" {
		opts = append(opts, gojexl.WithOptions(req.Options))
	}
	engine, err := gojexl.New(opts...)
	if err != nil {
		return failure(err)
	}
	script, err := engine.CreateScript(req.Script, req.Params...)
	if err != nil {
		return failure(err)
	}
	result, err := engine.Execute(ctx, script, evaluator.NewMapContext(req.Context), req.Args...)
	if err != nil {
		return failure(err)
	}
	if c, ok := result.(*evaluator.Closure); ok {
		result = fmt.Sprintf("closure(%s)", c.Name())
	}
	return &Response{Result: result}
}

// HandleJSON decodes a request, evaluates it and encodes the response.
func HandleJSON(ctx context.Context, data []byte) (out []byte, ok bool) {
	var resp *Response
	if req, err := Decode(data); err != nil {
		resp = failure(err)
	} else {
		resp = Handle(ctx, req)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(failure(fmt.Errorf("marshal result: %w", err)))
		return out, false
	}
	return out, resp.Error == ""
}

// HandleReader reads a whole request from r and handles it like HandleJSON.
// A read failure is reported as an error response.
func HandleReader(ctx context.Context, r io.Reader) (out []byte, ok bool) {
	data, err := io.ReadAll(r)
	if err != nil {
		out, _ = json.Marshal(failure(fmt.Errorf("read request: %w", err)))
		return out, false
	}
	return HandleJSON(ctx, data)
}

func failure(err error) *Response {
	resp := &Response{Error: err.Error()}
	if e, ok := types.AsError(err); ok {
		resp.Code = string(e.Code)
	}
	return resp
}

func numbers(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]interface{}:
		for k, e := range x {
			x[k] = numbers(e)
		}
	case []interface{}:
		for i, e := range x {
			x[i] = numbers(e)
		}
	}
	return v
}
