package evaluator

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/sandrolain/gojexl/pkg/types"
)

// resolveRoot resolves a context identifier followed by steps. With antish
// resolution, the leading plain property steps may be part of a dotted
// variable name: the full name a.b.c is tried first, then a, a.b and so on.
// consumed is the number of steps the resolved name covers and name is the
// variable name, the full dotted name when nothing is defined.
func (in *interp) resolveRoot(root string, steps []*types.ASTNode) (v interface{}, consumed int, name string, defined bool) {
	run := 0
	if in.opts.Antish() {
		run = antishRun(steps)
	}
	if run == 0 {
		v, defined = in.lookup(root)
		return v, 0, root, defined
	}

	segments := make([]string, run+1)
	segments[0] = root
	for i := range run {
		segments[i+1] = steps[i].StrValue
	}
	full := strings.Join(segments, ".")
	if v, ok := in.lookup(full); ok {
		return v, run, full, true
	}
	for k := range run {
		prefix := strings.Join(segments[:k+1], ".")
		if v, ok := in.lookup(prefix); ok {
			return v, k, prefix, true
		}
	}
	return nil, run, full, false
}

// antishRun counts the leading plain property steps.
func antishRun(steps []*types.ASTNode) int {
	n := 0
	for _, s := range steps {
		if s.Type != types.NodeProperty || s.Safe {
			break
		}
		n++
	}
	return n
}

func (in *interp) undefinedVariable(node *types.ASTNode, name string) error {
	msg := fmt.Sprintf("undefined variable '%s'", name)
	if hint := in.suggest(name); hint != "" {
		msg += fmt.Sprintf(" (did you mean '%s'?)", hint)
	}
	return types.NewError(types.ErrUndefinedVariable, msg, node.Position).WithName(name)
}

// suggest returns the context variable closest to name, or "".
func (in *interp) suggest(name string) string {
	kl, ok := in.jc.(KeyLister)
	if !ok {
		return ""
	}
	keys := kl.Keys()
	if len(keys) == 0 {
		return ""
	}
	if matches := fuzzy.Find(name, keys); len(matches) > 0 {
		return matches[0].Str
	}
	// A misspelling with extra characters still contains a shorter key.
	best := ""
	for _, k := range keys {
		if len(k) > len(best) && len(fuzzy.Find(k, []string{name})) > 0 {
			best = k
		}
	}
	return best
}
