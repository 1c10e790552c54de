package parser

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/gojexl/pkg/types"
)

const eof = -1

// Lexer converts source text into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
type Lexer struct {
	input   string    // Input string being scanned
	length  int       // Length of input string
	start   int       // Start position of current token
	current int       // Current position in input
	width   int       // Width of last rune read
	last    TokenType // Type of the previous token
	err     error     // First error encountered

	lines  []int          // Byte offsets of line starts
	origin types.Position // Position of the first byte of input
}

// NewLexer creates a new lexer from the provided input string. Positions are
// reported relative to origin; a zero origin means line 1, column 1.
func NewLexer(input string, origin types.Position) *Lexer {
	if origin.Line <= 0 {
		origin.Line = 1
	}
	if origin.Column <= 0 {
		origin.Column = 1
	}
	lines := []int{0}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Lexer{
		input:  input,
		length: len(input),
		last:   TokenEOF,
		lines:  lines,
		origin: origin,
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	l.skipWhitespace()
	if l.err != nil {
		return l.errorToken()
	}

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	// Member names after a dot are plain integers, never decimals: x.0.1
	if isDigit(ch) {
		l.backup()
		if l.last == TokenDot || l.last == TokenSafeDot {
			l.acceptAll(isDigit)
			return l.newToken(TokenNumber)
		}
		return l.scanNumber()
	}

	if ch == '#' {
		return l.scanPragma()
	}

	// Check for two-character symbols first (e.g., !=, <=, ?.)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	// Check for single-character symbols
	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	switch ch {
	case '"', '\'':
		l.ignore()
		return l.scanString(ch)
	case '`':
		l.ignore()
		return l.scanTemplate()
	}

	if isNameStart(ch) {
		l.backup()
		return l.scanName()
	}

	return l.fail(types.ErrUnexpectedChar, "unexpected character "+strconv.QuoteRune(ch))
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	return l.err
}

// Position converts a byte offset of the input into a source position.
func (l *Lexer) Position(offset int) types.Position {
	i := sort.Search(len(l.lines), func(i int) bool { return l.lines[i] > offset }) - 1
	col := utf8.RuneCountInString(l.input[l.lines[i]:offset]) + 1
	pos := types.Position{Line: l.origin.Line + i, Column: col}
	if i == 0 {
		pos.Column += l.origin.Column - 1
	}
	return pos
}

// skipWhitespace skips spaces and comments: // line, ## line and /* block */.
func (l *Lexer) skipWhitespace() {
	for {
		l.acceptAll(isWhitespace)
		l.ignore()
		rest := l.input[l.current:]
		switch {
		case strings.HasPrefix(rest, "//"), strings.HasPrefix(rest, "##"):
			if i := strings.IndexByte(rest, '\n'); i >= 0 {
				l.current += i + 1
			} else {
				l.current = l.length
			}
		case strings.HasPrefix(rest, "/*"):
			i := strings.Index(rest[2:], "*/")
			if i < 0 {
				l.fail(types.ErrCommentNotClosed, "comment not closed")
				return
			}
			l.current += i + 4
		default:
			return
		}
	}
}

// scanPragma reads "#pragma name value" up to the end of the line.
// The leading '#' has already been consumed.
func (l *Lexer) scanPragma() Token {
	rest := l.input[l.current:]
	if !strings.HasPrefix(rest, "pragma") {
		return l.fail(types.ErrUnexpectedChar, "unexpected character '#'")
	}
	end := strings.IndexByte(rest, '\n')
	if end < 0 {
		end = len(rest)
	}
	line := strings.TrimSpace(rest[len("pragma"):end])
	name, arg, _ := strings.Cut(line, " ")
	if name == "" {
		return l.fail(types.ErrSyntaxError, "pragma without a name")
	}
	l.current += end
	t := l.newToken(TokenPragma)
	t.Value = name
	t.Arg = strings.TrimSpace(arg)
	return t
}

// scanString reads a quoted string literal and resolves its escapes.
// The opening quote has already been consumed.
func (l *Lexer) scanString(quote rune) Token {
	var sb strings.Builder
	for {
		r := l.nextRune()
		switch r {
		case quote:
			t := l.newToken(TokenString)
			t.Value = sb.String()
			t.Offset--
			return t
		case eof:
			return l.fail(types.ErrStringNotClosed, "unterminated string literal")
		case '\\':
			e := l.nextRune()
			switch e {
			case eof:
				return l.fail(types.ErrStringNotClosed, "unterminated string literal")
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'u':
				if l.current+4 > l.length {
					return l.fail(types.ErrUnsupportedEscape, "truncated unicode escape")
				}
				code, err := strconv.ParseUint(l.input[l.current:l.current+4], 16, 32)
				if err != nil {
					return l.fail(types.ErrUnsupportedEscape, "invalid unicode escape")
				}
				l.current += 4
				sb.WriteRune(rune(code))
			default:
				// \\, \', \" and any other escaped rune stand for themselves
				sb.WriteRune(e)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

// scanTemplate reads a backtick delimited string. Escapes and ${...}
// interpolations are left in place for the parser.
func (l *Lexer) scanTemplate() Token {
	for {
		switch l.nextRune() {
		case '`':
			l.backup()
			t := l.newToken(TokenTemplate)
			l.acceptRune('`')
			l.ignore()
			t.End = l.current
			return t
		case '\\':
			if l.nextRune() != eof {
				continue
			}
			fallthrough
		case eof:
			return l.fail(types.ErrStringNotClosed, "unterminated template literal")
		}
	}
}

// scanNumber reads a number literal from the current position.
// Format: [0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?
func (l *Lexer) scanNumber() Token {
	l.acceptAll(isDigit)

	// Decimal part; "1..2" and "1.foo" keep the dot out of the number
	if l.current+1 < l.length && l.input[l.current] == '.' && isDigit(rune(l.input[l.current+1])) {
		l.acceptRune('.')
		l.acceptAll(isDigit)
	}

	// Exponent part
	if l.acceptRunes2('e', 'E') {
		l.acceptRunes2('+', '-')
		if !l.acceptAll(isDigit) {
			return l.fail(types.ErrNumberOutOfRange, "malformed exponent")
		}
	}

	return l.newToken(TokenNumber)
}

// scanName reads an identifier or keyword. Names may contain letters,
// digits, '_' and '$'.
func (l *Lexer) scanName() Token {
	l.acceptAll(isNamePart)
	return l.newToken(TokenName)
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.Position(l.length),
		Offset:   l.length,
		End:      l.length,
	}
}

func (l *Lexer) fail(code types.ErrorCode, message string) Token {
	if l.err == nil {
		l.err = &types.Error{
			Code:     code,
			Message:  message,
			Position: l.Position(l.start),
			Token:    l.input[l.start:l.current],
		}
	}
	return l.errorToken()
}

func (l *Lexer) errorToken() Token {
	return Token{
		Type:     TokenError,
		Value:    l.input[l.start:l.current],
		Position: l.Position(l.start),
		Offset:   l.start,
		End:      l.current,
	}
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.Position(l.start),
		Offset:   l.start,
		End:      l.current,
	}
	if tt == TokenString {
		// the opening quote was ignored; report the literal from its quote
		t.Position = l.Position(max(l.start-1, 0))
	}
	l.last = tt
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.err != nil || l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var b bool
	for l.accept(isValid) {
		b = true
	}
	return b
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isNamePart(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r)
}
