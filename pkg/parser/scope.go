package parser

import "github.com/sandrolain/gojexl/pkg/types"

// symbol is a declared local.
type symbol struct {
	slot     int
	constant bool
	let      bool
}

// block is a lexical frame: it restricts the visibility of the names declared
// in it. Its locals live in the slots of the enclosing function frame.
type block struct {
	names map[string]*symbol
	// uses records identifiers read in this block (or a nested one) that did
	// not resolve to a declaration of this block. A later declaration of the
	// same name marks them as shaded.
	uses map[string][]*types.ASTNode
}

// frame is the static frame of a script or lambda body. It owns the slot
// counter; blocks nested in it take their slots from it.
type frame struct {
	parent *frame
	blocks []*block
	locals int
}

// scope tracks the frames open while parsing.
type scope struct {
	current *frame
}

func newBlock() *block {
	return &block{}
}

// pushFrame opens a function frame with the given parameters.
func (s *scope) pushFrame(params []string) {
	f := &frame{parent: s.current}
	f.blocks = []*block{newBlock()}
	s.current = f
	for _, p := range params {
		f.declare(p)
	}
}

// popFrame closes the current function frame and returns its slot count.
func (s *scope) popFrame() int {
	f := s.current
	s.current = f.parent
	return f.locals
}

// pushBlock opens a block in the current frame.
func (s *scope) pushBlock() {
	s.current.blocks = append(s.current.blocks, newBlock())
}

// popBlock closes the innermost block of the current frame.
func (s *scope) popBlock() {
	b := s.current.blocks
	s.current.blocks = b[:len(b)-1]
}

// declare adds a name to the innermost block of f, reusing the slot when the
// block already declares it.
func (f *frame) declare(name string) (sym *symbol, redeclared bool) {
	b := f.blocks[len(f.blocks)-1]
	if b.names == nil {
		b.names = make(map[string]*symbol)
	}
	if sym, ok := b.names[name]; ok {
		return sym, true
	}
	sym = &symbol{slot: f.locals}
	f.locals++
	b.names[name] = sym
	return sym, false
}

// declare declares name in the innermost block, marking the earlier uses of
// the same name in that block as shaded.
func (s *scope) declare(name string) (*symbol, bool) {
	f := s.current
	b := f.blocks[len(f.blocks)-1]
	for _, use := range b.uses[name] {
		use.Shaded = true
	}
	delete(b.uses, name)
	return f.declare(name)
}

// resolve annotates an identifier node with the slot and frame depth of the
// local it names. It returns the symbol, or nil for a context variable.
func (s *scope) resolve(node *types.ASTNode) *symbol {
	name := node.StrValue
	depth := 0
	var passed []*block
	for f := s.current; f != nil; f = f.parent {
		for i := len(f.blocks) - 1; i >= 0; i-- {
			b := f.blocks[i]
			if sym, ok := b.names[name]; ok {
				node.Symbol = sym.slot
				node.Depth = depth
				node.Const = sym.constant
				recordUse(passed, name, node)
				return sym
			}
			passed = append(passed, b)
		}
		depth++
	}
	recordUse(passed, name, node)
	return nil
}

func recordUse(blocks []*block, name string, node *types.ASTNode) {
	for _, b := range blocks {
		if b.uses == nil {
			b.uses = make(map[string][]*types.ASTNode)
		}
		b.uses[name] = append(b.uses[name], node)
	}
}
