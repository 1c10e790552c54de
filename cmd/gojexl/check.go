package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sandrolain/gojexl/pkg/parser"
	"github.com/sandrolain/gojexl/pkg/types"
)

// Check parses scripts without evaluating them.
type Check struct {
	Files []string `arg:"" type:"existingfile" help:"Script files."`
}

// Run executes the check command.
func (c *Check) Run(out io.Writer) error {
	failed := 0
	for _, name := range c.Files {
		src, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := parser.Parse(string(src), parser.WithInfo(name, 1, 1)); err != nil {
			failed++
			fmt.Fprintf(out, "%v\n", err)
			if e, ok := types.AsError(err); ok {
				fmt.Fprintln(out, e.Snippet(string(src), types.Position{Line: 1, Column: 1}))
			}
			continue
		}
		fmt.Fprintf(out, "%s: ok\n", name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files have syntax errors", failed, len(c.Files))
	}
	return nil
}
