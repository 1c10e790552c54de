package evaluator

import (
	"errors"

	"github.com/sandrolain/gojexl/pkg/types"
)

// frame holds the local slots of a script or lambda invocation. parent is
// the frame the lambda was defined in.
type frame struct {
	slots  []interface{}
	parent *frame
}

// newFrame creates a frame of size slots and binds args to the first
// len(params) slots. Missing arguments stay nil, extra ones are dropped.
func newFrame(size int, parent *frame, params []string, args []interface{}) *frame {
	if size < len(params) {
		size = len(params)
	}
	f := &frame{slots: make([]interface{}, size), parent: parent}
	copy(f.slots, args[:min(len(args), len(params))])
	return f
}

func (f *frame) up(depth int) *frame {
	for ; depth > 0 && f.parent != nil; depth-- {
		f = f.parent
	}
	return f
}

func (f *frame) local(node *types.ASTNode) interface{} {
	return f.up(node.Depth).slots[node.Symbol]
}

func (f *frame) setLocal(node *types.ASTNode, value interface{}) {
	f.up(node.Depth).slots[node.Symbol] = value
}

// returnSignal carries the value of a return statement up to the enclosing
// lambda or script.
type returnSignal struct {
	value interface{}
}

func (*returnSignal) Error() string {
	return "return outside of a function"
}

var (
	errBreak    = errors.New("break outside of a loop")
	errContinue = errors.New("continue outside of a loop")
)

func unwrapReturn(v interface{}, err error) (interface{}, error) {
	var ret *returnSignal
	if errors.As(err, &ret) {
		return ret.value, nil
	}
	return v, err
}
