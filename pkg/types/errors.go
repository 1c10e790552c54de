package types

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-runewidth"
)

// ErrorCode identifies a specific failure. The first letter encodes the
// error kind.
type ErrorCode string

// Error codes.
const (
	// S0xxx: parsing errors
	ErrStringNotClosed   ErrorCode = "S0101"
	ErrNumberOutOfRange  ErrorCode = "S0102"
	ErrUnsupportedEscape ErrorCode = "S0103"
	ErrUnexpectedEnd     ErrorCode = "S0104"
	ErrUnexpectedChar    ErrorCode = "S0105"
	ErrCommentNotClosed  ErrorCode = "S0106"
	ErrSyntaxError       ErrorCode = "S0201"
	ErrExpectedToken     ErrorCode = "S0202"
	ErrInvalidTarget     ErrorCode = "S0203"
	ErrConstAssignment   ErrorCode = "S0204"
	ErrConstRedeclared   ErrorCode = "S0205"
	ErrMissingArgument   ErrorCode = "S0206"
	ErrTooDeep           ErrorCode = "S0207"

	// V0xxx: variable errors
	ErrUndefinedVariable ErrorCode = "V0101"
	ErrNullVariable      ErrorCode = "V0102"
	ErrRedefinedVariable ErrorCode = "V0103"
	ErrShadedVariable    ErrorCode = "V0104"

	// R0xxx: property errors
	ErrUndefinedProperty ErrorCode = "R0101"
	ErrIndexOutOfRange   ErrorCode = "R0102"
	ErrNullProperty      ErrorCode = "R0103"
	ErrReadOnlyProperty  ErrorCode = "R0104"

	// O0xxx: operator errors
	ErrNoOperator     ErrorCode = "O0101"
	ErrDivisionByZero ErrorCode = "O0102"
	ErrOverflow       ErrorCode = "O0103"
	ErrNullOperand    ErrorCode = "O0104"
	ErrInvalidRegex   ErrorCode = "O0105"

	// M0xxx: method and function errors
	ErrUndefinedFunction    ErrorCode = "M0101"
	ErrInvokeNonFunction    ErrorCode = "M0102"
	ErrArgumentMismatch     ErrorCode = "M0103"
	ErrUndefinedConstructor ErrorCode = "M0104"
	ErrUndefinedMethod      ErrorCode = "M0105"
	ErrInvocation           ErrorCode = "M0106"

	// D0xxx: evaluation errors
	ErrStackOverflow ErrorCode = "D0101"
	ErrNotIterable   ErrorCode = "D0102"
	ErrInvalidPragma ErrorCode = "D0103"
	ErrInvalidKey    ErrorCode = "D0104"
	ErrInvalidScript ErrorCode = "D0105"

	// C0xxx: cancellation
	ErrCancelled ErrorCode = "C0101"
)

// Kind groups error codes into the error taxonomy.
type Kind uint8

// Error kinds.
const (
	KindEvaluation Kind = iota
	KindParsing
	KindVariable
	KindProperty
	KindOperator
	KindMethod
	KindCancel
)

var kindNames = [...]string{
	KindEvaluation: "evaluation",
	KindParsing:    "parsing",
	KindVariable:   "variable",
	KindProperty:   "property",
	KindOperator:   "operator",
	KindMethod:     "method",
	KindCancel:     "cancel",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Kind returns the kind encoded in the code's first letter.
func (c ErrorCode) Kind() Kind {
	if c == "" {
		return KindEvaluation
	}
	switch c[0] {
	case 'S':
		return KindParsing
	case 'V':
		return KindVariable
	case 'R':
		return KindProperty
	case 'O':
		return KindOperator
	case 'M':
		return KindMethod
	case 'C':
		return KindCancel
	}
	return KindEvaluation
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrParsing    = errors.New("parsing error")
	ErrVariable   = errors.New("variable error")
	ErrProperty   = errors.New("property error")
	ErrOperator   = errors.New("operator error")
	ErrMethod     = errors.New("method error")
	ErrCancel     = errors.New("cancel error")
	ErrEvaluation = errors.New("evaluation error")
)

var kindSentinels = [...]error{
	KindEvaluation: ErrEvaluation,
	KindParsing:    ErrParsing,
	KindVariable:   ErrVariable,
	KindProperty:   ErrProperty,
	KindOperator:   ErrOperator,
	KindMethod:     ErrMethod,
	KindCancel:     ErrCancel,
}

// Error represents a structured engine error.
type Error struct {
	Code     ErrorCode
	Message  string
	Position Position
	Script   string // script name given through the parser's info option
	Name     string // variable, member or index the error is about
	Token    string // offending token for parsing errors
	Err      error
}

// NewError creates a new error at the given position.
func NewError(code ErrorCode, message string, pos Position) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: pos,
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, pos Position, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...), pos)
}

// Kind returns the kind of the error.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	if e.Position.Line > 0 {
		sb.WriteString(" at ")
		if e.Script != "" {
			sb.WriteString(e.Script)
			sb.WriteByte(':')
		}
		sb.WriteString(e.Position.String())
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels (ErrVariable, ErrProperty, ...).
func (e *Error) Is(target error) bool {
	return target == kindSentinels[e.Kind()]
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithName records the variable, member or index the error is about.
func (e *Error) WithName(name string) *Error {
	e.Name = name
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// WithScript records the name of the script the error comes from.
func (e *Error) WithScript(name string) *Error {
	if e.Script == "" {
		e.Script = name
	}
	return e
}

// LogValue implements slog.LogValuer.
func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", string(e.Code)),
		slog.String("kind", e.Kind().String()),
		slog.String("message", e.Message),
	}
	if e.Position.Line > 0 {
		attrs = append(attrs, slog.String("position", e.Position.String()))
	}
	if e.Script != "" {
		attrs = append(attrs, slog.String("script", e.Script))
	}
	if e.Name != "" {
		attrs = append(attrs, slog.String("name", e.Name))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.Any("cause", e.Err))
	}
	return slog.GroupValue(attrs...)
}

// Snippet renders the source line the error points at followed by a caret
// under the offending column. Lines and columns of src are taken as 1-based
// from origin.
func (e *Error) Snippet(src string, origin Position) string {
	line := e.Position.Line - origin.Line + 1
	lines := strings.Split(src, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	text := strings.TrimRight(lines[line-1], "\r")
	col := e.Position.Column
	if line == 1 {
		col -= origin.Column - 1
	}
	runes := []rune(text)
	col = min(max(col, 1), len(runes)+1)
	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteByte('\n')
	for _, r := range runes[:col-1] {
		if r == '\t' {
			sb.WriteByte('\t')
			continue
		}
		sb.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	sb.WriteByte('^')
	return sb.String()
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
