package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Flag is a single evaluation option.
type Flag uint16

// Evaluation flags.
const (
	FlagStrict Flag = 1 << iota
	FlagSafe
	FlagSilent
	FlagLexical
	FlagLexicalShade
	FlagCancellable
	FlagSharedInstance
	FlagAntish
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{FlagStrict, "strict"},
	{FlagSafe, "safe"},
	{FlagSilent, "silent"},
	{FlagLexical, "lexical"},
	{FlagLexicalShade, "lexicalShade"},
	{FlagCancellable, "cancellable"},
	{FlagSharedInstance, "sharedInstance"},
	{FlagAntish, "antish"},
}

// String returns the flag name.
func (f Flag) String() string {
	for _, fn := range flagNames {
		if fn.flag == f {
			return fn.name
		}
	}
	return "Flag(" + strconv.Itoa(int(f)) + ")"
}

// ParseFlag returns the flag with the given name.
func ParseFlag(name string) (Flag, bool) {
	for _, fn := range flagNames {
		if fn.name == name {
			return fn.flag, true
		}
	}
	return 0, false
}

// DefaultFlags are the flags a new engine starts with.
const DefaultFlags = FlagStrict | FlagCancellable | FlagAntish

// Options is the mutable bundle of evaluation flags consulted by the
// interpreter at every decision point.
//
// A bundle is created per top-level evaluation. Closures either alias the
// bundle of their creator (sharedInstance) or keep a private copy.
type Options struct {
	flags    Flag
	defaults Flag
}

// NewOptions creates a bundle with the given flags. The same flags are
// remembered as the target of the "default" script mode.
func NewOptions(flags Flag) *Options {
	return &Options{flags: flags, defaults: flags}
}

// Copy returns an independent copy of the bundle.
func (o *Options) Copy() *Options {
	c := *o
	return &c
}

// Is reports whether every flag in f is set.
func (o *Options) Is(f Flag) bool {
	return o.flags&f == f
}

// Set sets or clears f.
func (o *Options) Set(f Flag, on bool) *Options {
	if on {
		o.flags |= f
	} else {
		o.flags &^= f
	}
	return o
}

// Flags returns the raw flag set.
func (o *Options) Flags() Flag {
	return o.flags
}

// Strict reports whether undefined variables are errors.
func (o *Options) Strict() bool { return o.Is(FlagStrict) }

// Safe reports whether null receivers short-circuit navigation to null.
func (o *Options) Safe() bool { return o.Is(FlagSafe) }

// Silent reports whether top-level errors are swallowed.
func (o *Options) Silent() bool { return o.Is(FlagSilent) }

// Lexical reports whether redeclaring a local in the same frame is an error.
func (o *Options) Lexical() bool { return o.Is(FlagLexical) }

// LexicalShade reports whether using a local before its declaration is an error.
func (o *Options) LexicalShade() bool { return o.Is(FlagLexicalShade) }

// Cancellable reports whether evaluation polls for cancellation.
func (o *Options) Cancellable() bool { return o.Is(FlagCancellable) }

// SharedInstance reports whether closures alias this bundle.
func (o *Options) SharedInstance() bool { return o.Is(FlagSharedInstance) }

// Antish reports whether dotted names are resolved as flat context keys.
func (o *Options) Antish() bool { return o.Is(FlagAntish) }

// SetFlags applies a list of "+name" / "-name" toggles. A bare name sets the
// flag. Every element may itself hold several space separated toggles.
func (o *Options) SetFlags(toggles ...string) error {
	for _, t := range toggles {
		for _, field := range strings.Fields(t) {
			on := true
			switch field[0] {
			case '+':
				field = field[1:]
			case '-':
				on = false
				field = field[1:]
			}
			f, ok := ParseFlag(field)
			if !ok {
				return fmt.Errorf("unknown option %q", field)
			}
			o.Set(f, on)
		}
	}
	return nil
}

// Script modes recognized by ApplyMode.
const (
	ModePro50   = "pro50"
	ModeDefault = "default"
)

// ApplyMode switches the bundle to a named script mode. It returns false when
// the mode is unknown, in which case the bundle is unchanged.
func (o *Options) ApplyMode(mode string) bool {
	switch mode {
	case ModePro50:
		o.Set(FlagStrict|FlagCancellable|FlagLexical|FlagLexicalShade, true)
		o.Set(FlagSafe|FlagSharedInstance, false)
	case ModeDefault:
		o.flags = o.defaults
	default:
		return false
	}
	return true
}

// Pragma names recognized by ApplyPragma.
const (
	PragmaOptions    = "jexl.options"
	PragmaScriptMode = "script.mode"
	pragmaFlagPrefix = "jexl."
)

// ApplyPragma applies an in-source directive to the bundle. It reports
// whether the pragma was recognized; unknown pragmas are not errors.
func (o *Options) ApplyPragma(name string, value interface{}) (bool, error) {
	switch name {
	case PragmaOptions:
		s, ok := value.(string)
		if !ok {
			return true, fmt.Errorf("pragma %s expects a string, got %T", name, value)
		}
		return true, o.SetFlags(s)
	case PragmaScriptMode:
		return o.ApplyMode(fmt.Sprint(value)), nil
	}
	if rest, ok := strings.CutPrefix(name, pragmaFlagPrefix); ok {
		f, known := ParseFlag(rest)
		if !known {
			return false, nil
		}
		on, err := pragmaBool(value)
		if err != nil {
			return true, fmt.Errorf("pragma %s: %w", name, err)
		}
		o.Set(f, on)
		return true, nil
	}
	return false, nil
}

func pragmaBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	case int64:
		return b != 0, nil
	}
	return false, fmt.Errorf("expects a boolean, got %T", v)
}

// String renders the bundle as "+flag -flag ..." in a fixed order.
func (o *Options) String() string {
	var sb strings.Builder
	for i, fn := range flagNames {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if o.Is(fn.flag) {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('-')
		}
		sb.WriteString(fn.name)
	}
	return sb.String()
}

// Map returns a snapshot of the flags keyed by name.
func (o *Options) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(flagNames))
	for _, fn := range flagNames {
		m[fn.name] = o.Is(fn.flag)
	}
	return m
}

// Pragma is a name/value directive found in the source.
type Pragma struct {
	Name     string
	Value    interface{}
	Position Position
}
