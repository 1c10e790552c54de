package parser_test

import (
	"testing"

	"github.com/sandrolain/gojexl/pkg/parser"
)

func FuzzParse(f *testing.F) {
	seeds := []string{
		`a.b.c`,
		`x?.y ?? 'none'`,
		`var f = (a, b) -> a + b; f(1, 2)`,
		`function fact(n) { n <= 1 ? 1 : n * fact(n - 1) }`,
		"#pragma jexl.safe true\n`${a} and ${b}`",
		`for (var i : list) { if (i > 2) break; }`,
		`{'k': [1, 2.5, null], :}`,
		`str:upper('a')`,
		`new('int', '42')`,
		``,
		`(`,
		`{ x; var x = 1; }`,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, input string) {
		_, _ = parser.Parse(input)
	})
}
