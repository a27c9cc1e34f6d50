package trickle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sohama/trickle/jsonschema"
)

// Validation keywords (exported consts for IDE completion and type safety by
// convention). "syntax" is the synthetic keyword recorded for recovered
// syntax errors in lenient mode.
const (
	KeywordType                 = "type"
	KeywordConst                = "const"
	KeywordEnum                 = "enum"
	KeywordMinLength            = "minLength"
	KeywordMaxLength            = "maxLength"
	KeywordPattern              = "pattern"
	KeywordFormat               = "format"
	KeywordMinimum              = "minimum"
	KeywordMaximum              = "maximum"
	KeywordExclusiveMinimum     = "exclusiveMinimum"
	KeywordExclusiveMaximum     = "exclusiveMaximum"
	KeywordMultipleOf           = "multipleOf"
	KeywordMinItems             = "minItems"
	KeywordMaxItems             = "maxItems"
	KeywordUniqueItems          = "uniqueItems"
	KeywordContains             = "contains"
	KeywordAdditionalItems      = "additionalItems"
	KeywordMinProperties        = "minProperties"
	KeywordMaxProperties        = "maxProperties"
	KeywordRequired             = "required"
	KeywordAdditionalProperties = "additionalProperties"
	KeywordPropertyNames        = "propertyNames"
	KeywordAnyOf                = "anyOf"
	KeywordOneOf                = "oneOf"
	KeywordNot                  = "not"
	KeywordSyntax               = "syntax"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    []string // segments from the root; empty addresses the root
	Message string
	Keyword string             // one of the keywords listed above
	Schema  *jsonschema.Schema // the sub-schema that produced the issue, when any
	Value   any                // the offending value, when cheap to carry
}

// PathString renders the issue path in the dot-joined form used by
// Result.CompletedFields ("$" for the root).
func (it Issue) PathString() string { return JoinPath(it.Path) }

// String renders the issue as "keyword at path".
func (it Issue) String() string { return it.Keyword + " at " + it.PathString() }

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error renders each issue in turn, capping long lists.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	parts := make([]string, 0, 4)
	for i, it := range iss {
		if i == 3 {
			parts = append(parts, fmt.Sprintf("and %d more", len(iss)-i))
			break
		}
		parts = append(parts, it.String())
	}
	return strings.Join(parts, "; ")
}

// AsIssues reports whether err carries an Issues list, unwrapping as needed.
func AsIssues(err error) (Issues, bool) {
	var iss Issues
	ok := errors.As(err, &iss)
	return iss, ok
}

// ErrIncomplete is returned by Parser.Result before the parse completed.
var ErrIncomplete = errors.New("trickle: result requested before input completed")

// SyntaxError is the fatal error raised by strict-mode feeds on malformed
// input. DepthError is fatal in every mode.
type SyntaxError struct {
	Pos     int // byte offset within the feed's buffer
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("trickle: syntax error at offset %d: %s", e.Pos, e.Message)
}

// DepthError reports that the container stack exceeded the configured
// ceiling.
type DepthError struct {
	MaxDepth int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("trickle: maximum nesting depth %d exceeded", e.MaxDepth)
}
