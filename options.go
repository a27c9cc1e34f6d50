package trickle

import "github.com/sohama/trickle/jsonschema"

// DefaultMaxDepth is the container-stack ceiling applied when Options.MaxDepth
// is zero.
const DefaultMaxDepth = 100

// Options bundles parser construction options.
//
// LLMMode enables the whole family of lenient relaxations at once: trailing
// commas, unquoted keys, single-quoted strings, tolerated missing separators,
// and recovery from stray characters. The three Allow* switches are tri-state
// so that an explicit false survives LLMMode.
type Options struct {
	Schema *jsonschema.Schema

	LLMMode             bool
	AllowTrailingCommas *bool
	AllowUnquotedKeys   *bool
	AllowSingleQuotes   *bool

	// MaxDepth caps the container stack; zero means DefaultMaxDepth.
	// Exceeding it is fatal in every mode.
	MaxDepth int

	Events Events

	Validator ValidatorOptions
}

// ValidatorOptions tunes schema validation behavior.
type ValidatorOptions struct {
	// EarlyReject makes a type mismatch short-circuit the remaining checks
	// for the same value.
	EarlyReject bool
	// AllErrors is accepted for API symmetry; issues accumulate within a
	// call either way.
	AllErrors bool
}

// Bool is a convenience for the tri-state Allow* options.
func Bool(v bool) *bool { return &v }

type flags struct {
	trailingCommas bool
	unquotedKeys   bool
	singleQuotes   bool
	lenient        bool
	maxDepth       int
}

func (o Options) effective() flags {
	f := flags{
		trailingCommas: orDefault(o.AllowTrailingCommas, o.LLMMode),
		unquotedKeys:   orDefault(o.AllowUnquotedKeys, o.LLMMode),
		singleQuotes:   orDefault(o.AllowSingleQuotes, o.LLMMode),
		lenient:        o.LLMMode,
		maxDepth:       o.MaxDepth,
	}
	if f.maxDepth <= 0 {
		f.maxDepth = DefaultMaxDepth
	}
	return f
}

func orDefault(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}
