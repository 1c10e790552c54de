package parser

import "github.com/sandrolain/gojexl/pkg/types"

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenString   // "hello" or 'hello'
	TokenTemplate // `hello ${name}`
	TokenNumber   // 123, 3.14, 1e-10
	TokenName     // identifiers and keywords
	TokenPragma   // #pragma name value

	// Grouping symbols
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenBraceOpen    // {
	TokenBraceClose   // }
	TokenParenOpen    // (
	TokenParenClose   // )

	// Basic symbols
	TokenDot       // .
	TokenSafeDot   // ?.
	TokenComma     // ,
	TokenColon     // :
	TokenSemicolon // ;
	TokenQuestion  // ?
	TokenElvis     // ?:
	TokenCoalesce  // ??
	TokenArrow     // ->
	TokenFatArrow  // =>

	// Arithmetic and bitwise operators
	TokenPlus  // +
	TokenMinus // -
	TokenMult  // *
	TokenDiv   // /
	TokenMod   // %
	TokenAmp   // &
	TokenPipe  // |
	TokenCaret // ^
	TokenTilde // ~

	// Logical operators
	TokenNot    // !
	TokenAndAnd // &&
	TokenOrOr   // ||

	// Comparison operators
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Predicate operators
	TokenMatch         // =~
	TokenNotMatch      // !~
	TokenStartsWith    // =^
	TokenNotStartsWith // !^
	TokenEndsWith      // =$
	TokenNotEndsWith   // !$

	// Assignment operators
	TokenAssign    // =
	TokenAddAssign // +=
	TokenSubAssign // -=
	TokenMulAssign // *=
	TokenDivAssign // /=
	TokenModAssign // %=
	TokenAndAssign // &=
	TokenOrAssign  // |=
	TokenXorAssign // ^=

	tokenCount
)

var tokenNames = [tokenCount]string{
	TokenEOF:           "(eof)",
	TokenError:         "(error)",
	TokenString:        "(string)",
	TokenTemplate:      "(template)",
	TokenNumber:        "(number)",
	TokenName:          "(name)",
	TokenPragma:        "#pragma",
	TokenBracketOpen:   "[",
	TokenBracketClose:  "]",
	TokenBraceOpen:     "{",
	TokenBraceClose:    "}",
	TokenParenOpen:     "(",
	TokenParenClose:    ")",
	TokenDot:           ".",
	TokenSafeDot:       "?.",
	TokenComma:         ",",
	TokenColon:         ":",
	TokenSemicolon:     ";",
	TokenQuestion:      "?",
	TokenElvis:         "?:",
	TokenCoalesce:      "??",
	TokenArrow:         "->",
	TokenFatArrow:      "=>",
	TokenPlus:          "+",
	TokenMinus:         "-",
	TokenMult:          "*",
	TokenDiv:           "/",
	TokenMod:           "%",
	TokenAmp:           "&",
	TokenPipe:          "|",
	TokenCaret:         "^",
	TokenTilde:         "~",
	TokenNot:           "!",
	TokenAndAnd:        "&&",
	TokenOrOr:          "||",
	TokenEqual:         "==",
	TokenNotEqual:      "!=",
	TokenLess:          "<",
	TokenLessEqual:     "<=",
	TokenGreater:       ">",
	TokenGreaterEqual:  ">=",
	TokenMatch:         "=~",
	TokenNotMatch:      "!~",
	TokenStartsWith:    "=^",
	TokenNotStartsWith: "!^",
	TokenEndsWith:      "=$",
	TokenNotEndsWith:   "!$",
	TokenAssign:        "=",
	TokenAddAssign:     "+=",
	TokenSubAssign:     "-=",
	TokenMulAssign:     "*=",
	TokenDivAssign:     "/=",
	TokenModAssign:     "%=",
	TokenAndAssign:     "&=",
	TokenOrAssign:      "|=",
	TokenXorAssign:     "^=",
}

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	if tt < tokenCount {
		return tokenNames[tt]
	}
	return "(unknown)"
}

// Token represents a lexical token.
type Token struct {
	Type     TokenType      // Type of the token
	Value    string         // Literal value; unescaped for strings, directive name for pragmas
	Arg      string         // Raw pragma value
	Position types.Position // Line and column of the first character
	Offset   int            // Byte offset in the input
	End      int            // Byte offset just past the token
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'{': TokenBraceOpen,
	'}': TokenBraceClose,
	'(': TokenParenOpen,
	')': TokenParenClose,
	'.': TokenDot,
	',': TokenComma,
	';': TokenSemicolon,
	':': TokenColon,
	'?': TokenQuestion,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMult,
	'/': TokenDiv,
	'%': TokenMod,
	'&': TokenAmp,
	'|': TokenPipe,
	'^': TokenCaret,
	'~': TokenTilde,
	'!': TokenNot,
	'=': TokenAssign,
	'<': TokenLess,
	'>': TokenGreater,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
// The key is the first character of the sequence.
var symbols2 = [...][]runeTokenType{
	'?': {{'.', TokenSafeDot}, {':', TokenElvis}, {'?', TokenCoalesce}},
	'-': {{'>', TokenArrow}, {'=', TokenSubAssign}},
	'=': {{'>', TokenFatArrow}, {'=', TokenEqual}, {'~', TokenMatch}, {'^', TokenStartsWith}, {'$', TokenEndsWith}},
	'!': {{'=', TokenNotEqual}, {'~', TokenNotMatch}, {'^', TokenNotStartsWith}, {'$', TokenNotEndsWith}},
	'<': {{'=', TokenLessEqual}},
	'>': {{'=', TokenGreaterEqual}},
	'&': {{'&', TokenAndAnd}, {'=', TokenAndAssign}},
	'|': {{'|', TokenOrOr}, {'=', TokenOrAssign}},
	'+': {{'=', TokenAddAssign}},
	'*': {{'=', TokenMulAssign}},
	'/': {{'=', TokenDivAssign}},
	'%': {{'=', TokenModAssign}},
	'^': {{'=', TokenXorAssign}},
}

const (
	symbol1Count = rune(len(symbols1))
	symbol2Count = rune(len(symbols2))
)

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// lookupSymbol2 returns possible two-character symbol completions.
// Returns nil if the rune cannot start a two-character symbol.
func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}

// wordOperators maps operator keywords to the symbol token they stand for.
var wordOperators = map[string]TokenType{
	"and": TokenAndAnd,
	"or":  TokenOrOr,
	"not": TokenNot,
	"eq":  TokenEqual,
	"ne":  TokenNotEqual,
	"lt":  TokenLess,
	"le":  TokenLessEqual,
	"gt":  TokenGreater,
	"ge":  TokenGreaterEqual,
	"div": TokenDiv,
	"mod": TokenMod,
}

// reserved lists the words that cannot name a variable.
var reserved = map[string]bool{
	"var": true, "let": true, "const": true, "function": true,
	"if": true, "else": true, "while": true, "do": true, "for": true,
	"return": true, "break": true, "continue": true, "new": true,
	"true": true, "false": true, "null": true, "NaN": true,
	"empty": true, "size": true,
	"and": true, "or": true, "not": true,
	"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true,
	"div": true, "mod": true,
}

// isReserved reports whether s is a keyword.
func isReserved(s string) bool {
	return reserved[s]
}
