package trickle

import (
	"github.com/sohama/trickle/internal/lexer"
	"github.com/sohama/trickle/jsonschema"
)

// State is the parser's sole authority on what the next token may be.
type State int

const (
	StateInitial State = iota
	StateExpectingKey
	StateExpectingColon
	StateExpectingValue
	StateInArray
	StateExpectingCommaOrEnd
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateExpectingKey:
		return "expecting-key"
	case StateExpectingColon:
		return "expecting-colon"
	case StateExpectingValue:
		return "expecting-value"
	case StateInArray:
		return "in-array"
	case StateExpectingCommaOrEnd:
		return "expecting-comma-or-end"
	case StateComplete:
		return "complete"
	default:
		return "error"
	}
}

type containerKind int

const (
	containerObject containerKind = iota
	containerArray
)

// frame is one open container on the stack.
type frame struct {
	kind containerKind

	object map[string]any
	array  []any

	pendingKey    string
	hasPendingKey bool
	seen          map[string]struct{}
	arrayIndex    int

	// path of this container from the root; the schema at that path is
	// cached at push time.
	path   []string
	schema *jsonschema.Schema

	// where this frame's value lands in its parent
	attachKey string
	attachIdx int

	typeRejected bool
}

func (f *frame) value() any {
	if f.kind == containerObject {
		return f.object
	}
	if f.array == nil {
		return []any{}
	}
	return f.array
}

// Parser consumes chunks, builds the value tree, tracks path-addressed
// completion state and dispatches events. Instances are not safe for
// concurrent feeds; callers serialize.
type Parser struct {
	flags     flags
	events    Events
	lex       *lexer.Lexer
	validator *Validator

	state   State
	stack   []*frame
	root    any
	hasRoot bool

	completed *pathSet
	pending   *pathSet
	// partialPath is the ephemeral pending entry derived from the lexer's
	// current partial classification; recomputed on every feed.
	partialPath string

	trailingComma bool

	errs Issues
	// reported suppresses re-reporting the same constraint violation when a
	// member validated at assignment time is seen again inside its closing
	// container's validation.
	reported map[string]struct{}
	bytes    int64
	err      error
}

// New creates a parser from options. The schema, when present, is shared by
// reference and never mutated.
func New(opts Options) *Parser {
	f := opts.effective()
	p := &Parser{
		flags:  f,
		events: opts.Events,
		lex: lexer.New(lexer.Options{
			AllowSingleQuotes: f.singleQuotes,
			AllowUnquotedKeys: f.unquotedKeys,
			Lenient:           f.lenient,
		}),
		completed: newPathSet(),
		pending:   newPathSet(),
		reported:  make(map[string]struct{}),
	}
	if opts.Schema != nil {
		p.validator = NewValidator(opts.Schema, opts.Validator)
	}
	return p
}

// Feed advances the parse with one chunk and returns a snapshot. In strict
// mode the first syntax error (and, in every mode, a depth violation) is
// returned as an error after transitioning the parser to StateError.
func (p *Parser) Feed(chunk string) (Result, error) {
	if p.state == StateError {
		return p.snapshot(), p.err
	}
	p.bytes += int64(len(chunk))
	p.lex.SetExpectingKey(p.state == StateExpectingKey)

	for _, tok := range p.lex.Feed(chunk) {
		if err := p.process(tok); err != nil {
			p.fail(err)
			return p.snapshot(), err
		}
		if p.state == StateError {
			return p.snapshot(), p.err
		}
	}
	p.refreshPartial()
	return p.snapshot(), nil
}

// Reset restores the parser to StateInitial with empty stack and completion
// sets; the schema is kept.
func (p *Parser) Reset() {
	p.state = StateInitial
	p.stack = nil
	p.root = nil
	p.hasRoot = false
	p.completed.reset()
	p.pending.reset()
	p.partialPath = ""
	p.trailingComma = false
	p.errs = nil
	clear(p.reported)
	p.bytes = 0
	p.err = nil
	p.lex.Reset()
}

// State returns the current parser state.
func (p *Parser) State() State { return p.state }

// IsComplete reports whether the root value is finished.
func (p *Parser) IsComplete() bool { return p.state == StateComplete }

// Result returns the final value, or ErrIncomplete before completion.
func (p *Parser) Result() (any, error) {
	if p.state != StateComplete {
		return nil, ErrIncomplete
	}
	return p.root, nil
}

// Errors returns the accumulated validation issues.
func (p *Parser) Errors() Issues { return append(Issues(nil), p.errs...) }

// Path returns the dot-joined path of the innermost open container ("$" at
// the root).
func (p *Parser) Path() string { return JoinPath(p.containerPath()) }

// TargetPath returns the dot-joined path of the value currently being
// constructed: the container path extended by the pending key or the next
// array index.
func (p *Parser) TargetPath() string { return JoinPath(p.targetPath()) }

// ---- token dispatch ----

func (p *Parser) process(tok lexer.Token) error {
	if tok.Kind == lexer.KindError {
		return p.syntax(tok, "unexpected character "+quoteRaw(tok.Raw))
	}

	switch p.state {
	case StateInitial:
		return p.processInitial(tok)
	case StateExpectingKey:
		return p.processExpectingKey(tok)
	case StateExpectingColon:
		return p.processExpectingColon(tok)
	case StateExpectingValue:
		return p.processExpectingValue(tok)
	case StateInArray:
		return p.processInArray(tok)
	case StateExpectingCommaOrEnd:
		return p.processCommaOrEnd(tok)
	case StateComplete:
		return p.syntax(tok, "unexpected token after the document completed")
	}
	return nil
}

func (p *Parser) processInitial(tok lexer.Token) error {
	switch tok.Kind {
	case lexer.KindObjectOpen:
		return p.pushContainer(containerObject)
	case lexer.KindArrayOpen:
		return p.pushContainer(containerArray)
	case lexer.KindString, lexer.KindNumber, lexer.KindBool, lexer.KindNull, lexer.KindKey:
		p.root = tok.Value
		p.hasRoot = true
		p.validateValue(tok.Value, nil)
		p.markCompleted(nil)
		p.state = StateComplete
		p.events.complete(p.root)
		return nil
	default:
		return p.syntax(tok, "unexpected "+tok.Kind.String()+" at document start")
	}
}

func (p *Parser) processExpectingKey(tok lexer.Token) error {
	switch tok.Kind {
	case lexer.KindKey, lexer.KindString:
		key, _ := tok.Value.(string)
		top := p.top()
		top.pendingKey = key
		top.hasPendingKey = true
		p.markPending(childPath(top.path, key))
		p.trailingComma = false
		p.state = StateExpectingColon
		return nil
	case lexer.KindObjectClose:
		if p.trailingComma && !p.flags.trailingCommas {
			if err := p.syntax(tok, "trailing comma before }"); err != nil {
				return err
			}
		}
		return p.closeContainer(containerObject, tok)
	default:
		return p.syntax(tok, "expected object key, got "+tok.Kind.String())
	}
}

func (p *Parser) processExpectingColon(tok lexer.Token) error {
	if tok.Kind == lexer.KindColon {
		p.state = StateExpectingValue
		return nil
	}
	if p.flags.lenient {
		// missing colon tolerated: reprocess as a value
		p.state = StateExpectingValue
		return p.process(tok)
	}
	return p.syntax(tok, "expected ':', got "+tok.Kind.String())
}

func (p *Parser) processExpectingValue(tok lexer.Token) error {
	switch tok.Kind {
	case lexer.KindObjectOpen:
		return p.pushContainer(containerObject)
	case lexer.KindArrayOpen:
		return p.pushContainer(containerArray)
	case lexer.KindString, lexer.KindNumber, lexer.KindBool, lexer.KindNull, lexer.KindKey:
		p.assignToPendingKey(tok.Value)
		return nil
	case lexer.KindObjectClose:
		if !p.flags.lenient {
			return p.syntax(tok, "expected value, got '}'")
		}
		// `{"a": }`-style endings: drop the dangling key
		return p.closeContainer(containerObject, tok)
	case lexer.KindArrayClose:
		if !p.flags.lenient {
			return p.syntax(tok, "expected value, got ']'")
		}
		return p.closeContainer(containerArray, tok)
	default:
		return p.syntax(tok, "expected value, got "+tok.Kind.String())
	}
}

func (p *Parser) processInArray(tok lexer.Token) error {
	switch tok.Kind {
	case lexer.KindArrayClose:
		if p.trailingComma && !p.flags.trailingCommas {
			if err := p.syntax(tok, "trailing comma before ]"); err != nil {
				return err
			}
		}
		return p.closeContainer(containerArray, tok)
	case lexer.KindObjectOpen:
		return p.pushContainer(containerObject)
	case lexer.KindArrayOpen:
		return p.pushContainer(containerArray)
	case lexer.KindString, lexer.KindNumber, lexer.KindBool, lexer.KindNull, lexer.KindKey:
		p.appendElement(tok.Value)
		return nil
	default:
		return p.syntax(tok, "expected array element, got "+tok.Kind.String())
	}
}

func (p *Parser) processCommaOrEnd(tok lexer.Token) error {
	top := p.top()
	switch tok.Kind {
	case lexer.KindComma:
		p.trailingComma = true
		if top.kind == containerObject {
			p.state = StateExpectingKey
		} else {
			p.state = StateInArray
		}
		return nil
	case lexer.KindObjectClose:
		if top.kind != containerObject {
			if err := p.syntax(tok, "mismatched '}' closes an array"); err != nil {
				return err
			}
		}
		return p.closeContainer(containerObject, tok)
	case lexer.KindArrayClose:
		if top.kind != containerArray {
			if err := p.syntax(tok, "mismatched ']' closes an object"); err != nil {
				return err
			}
		}
		return p.closeContainer(containerArray, tok)
	default:
		if p.flags.lenient {
			// missing comma tolerated: re-dispatch as if one was consumed
			if top.kind == containerObject {
				p.state = StateExpectingKey
			} else {
				p.state = StateInArray
			}
			return p.process(tok)
		}
		return p.syntax(tok, "expected ',' or container end, got "+tok.Kind.String())
	}
}

// ---- tree construction ----

func (p *Parser) pushContainer(kind containerKind) error {
	if len(p.stack)+1 > p.flags.maxDepth {
		return &DepthError{MaxDepth: p.flags.maxDepth}
	}

	f := &frame{kind: kind}
	if n := len(p.stack); n > 0 {
		par := p.stack[n-1]
		if par.kind == containerObject {
			f.path = childPath(par.path, par.pendingKey)
			f.attachKey = par.pendingKey
			par.object[par.pendingKey] = nil
		} else {
			f.path = childPath(par.path, indexSegment(par.arrayIndex))
			f.attachIdx = par.arrayIndex
			par.array = append(par.array, nil)
			par.arrayIndex++
		}
	}

	if kind == containerObject {
		f.object = make(map[string]any)
		f.seen = make(map[string]struct{})
	} else {
		f.array = []any{}
	}

	if p.validator != nil {
		f.schema = p.validator.SchemaAt(f.path)
		typeName := "object"
		if kind == containerArray {
			typeName = "array"
		}
		if !f.schema.CanBeType(typeName) {
			f.typeRejected = true
			msg := "value cannot be of type " + typeName + " here"
			if len(f.schema.Type) > 0 {
				// phrased exactly like close-time validation so the two reports
				// collapse into one
				msg = typeMismatchMessage(f.schema.Type, typeName)
			}
			p.report(Issue{
				Path:    append([]string(nil), f.path...),
				Keyword: KeywordType,
				Message: msg,
				Schema:  f.schema,
			})
		}
	}

	p.stack = append(p.stack, f)
	p.markPending(f.path)
	p.trailingComma = false
	if kind == containerObject {
		p.state = StateExpectingKey
	} else {
		p.state = StateInArray
	}
	return nil
}

func (p *Parser) assignToPendingKey(value any) {
	top := p.top()
	target := childPath(top.path, top.pendingKey)
	top.object[top.pendingKey] = value
	top.seen[top.pendingKey] = struct{}{}
	p.validateValue(value, target)
	p.markCompleted(target)
	p.events.fieldComplete(top.pendingKey, value, JoinPath(top.path))
	top.hasPendingKey = false
	p.trailingComma = false
	p.state = StateExpectingCommaOrEnd
}

func (p *Parser) appendElement(value any) {
	top := p.top()
	target := childPath(top.path, indexSegment(top.arrayIndex))
	top.array = append(top.array, value)
	top.arrayIndex++
	p.validateValue(value, target)
	p.markCompleted(target)
	p.trailingComma = false
	p.state = StateExpectingCommaOrEnd
}

func (p *Parser) closeContainer(kind containerKind, tok lexer.Token) error {
	if len(p.stack) == 0 {
		return p.syntax(tok, "unexpected container end with no open container")
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	if top.hasPendingKey {
		p.pending.remove(JoinPath(childPath(top.path, top.pendingKey)))
		top.hasPendingKey = false
	}

	value := top.value()
	p.markCompleted(top.path)
	p.validateContainer(top, value)
	p.events.containerComplete(value, JoinPath(top.path))

	if n := len(p.stack); n > 0 {
		par := p.stack[n-1]
		if par.kind == containerObject {
			par.object[top.attachKey] = value
			par.seen[top.attachKey] = struct{}{}
			par.hasPendingKey = false
			p.events.fieldComplete(top.attachKey, value, JoinPath(par.path))
		} else {
			par.array[top.attachIdx] = value
		}
		p.state = StateExpectingCommaOrEnd
	} else {
		p.root = value
		p.hasRoot = true
		p.state = StateComplete
		p.events.complete(p.root)
	}
	p.trailingComma = false
	return nil
}

// ---- validation plumbing ----

func (p *Parser) validateValue(value any, path []string) {
	if p.validator == nil {
		return
	}
	for _, it := range p.validator.Validate(value, path) {
		p.report(it)
	}
}

// validateContainer validates a just-closed container. A type mismatch
// already reported at push time is not reported again.
func (p *Parser) validateContainer(f *frame, value any) {
	if p.validator == nil || f.schema == nil {
		return
	}
	for _, it := range p.validator.validate(value, f.schema, f.path) {
		if f.typeRejected && it.Keyword == KeywordType && JoinPath(it.Path) == JoinPath(f.path) {
			continue
		}
		p.report(it)
	}
}

func (p *Parser) report(it Issue) {
	if it.Keyword != KeywordSyntax {
		key := JoinPath(it.Path) + "\x00" + it.Keyword + "\x00" + it.Message
		if _, dup := p.reported[key]; dup {
			return
		}
		p.reported[key] = struct{}{}
	}
	p.errs = append(p.errs, it)
	p.events.validationIssue(it)
}

func (p *Parser) syntax(tok lexer.Token, msg string) error {
	if p.flags.lenient {
		p.report(Issue{
			Path:    append([]string(nil), p.containerPath()...),
			Keyword: KeywordSyntax,
			Message: msg,
		})
		return nil
	}
	return &SyntaxError{Pos: tok.Pos, Message: msg}
}

func (p *Parser) fail(err error) {
	p.state = StateError
	p.err = err
	p.events.fatal(err)
}

// ---- paths, pending/completed bookkeeping ----

func (p *Parser) top() *frame { return p.stack[len(p.stack)-1] }

func (p *Parser) containerPath() []string {
	if len(p.stack) == 0 {
		return nil
	}
	return p.top().path
}

func (p *Parser) targetPath() []string {
	if len(p.stack) == 0 {
		return nil
	}
	top := p.top()
	if top.kind == containerObject {
		if top.hasPendingKey {
			return childPath(top.path, top.pendingKey)
		}
		return top.path
	}
	return childPath(top.path, indexSegment(top.arrayIndex))
}

func (p *Parser) markPending(path []string) {
	key := JoinPath(path)
	if !p.completed.has(key) {
		p.pending.add(key)
	}
}

func (p *Parser) markCompleted(path []string) {
	key := JoinPath(path)
	p.pending.remove(key)
	p.completed.add(key)
}

// refreshPartial recomputes the ephemeral pending entry from the lexer's
// current partial classification.
func (p *Parser) refreshPartial() {
	p.partialPath = ""
	if p.state == StateComplete || p.state == StateError {
		return
	}
	pt := p.lex.PartialToken()
	if pt == nil {
		return
	}
	switch pt.Kind {
	case lexer.KindPartialKey:
		if p.state == StateExpectingKey {
			if s, ok := pt.Value.(string); ok && s != "" {
				p.partialPath = JoinPath(childPath(p.containerPath(), s))
			}
		}
	case lexer.KindPartialString, lexer.KindPartialNumber:
		switch p.state {
		case StateInitial, StateExpectingValue, StateInArray:
			p.partialPath = JoinPath(p.targetPath())
		case StateExpectingKey:
			// quoted partial key in strict mode
			if s, ok := pt.Value.(string); ok && s != "" {
				p.partialPath = JoinPath(childPath(p.containerPath(), s))
			}
		}
	}
}

// ---- snapshots ----

// refreshLinks re-attaches each open frame's current value into its parent so
// that Data exposes the whole growing tree. Maps stay linked on their own;
// slices need this after reallocation.
func (p *Parser) refreshLinks() {
	for i := len(p.stack) - 1; i >= 1; i-- {
		child, par := p.stack[i], p.stack[i-1]
		if par.kind == containerObject {
			par.object[child.attachKey] = child.value()
		} else {
			par.array[child.attachIdx] = child.value()
		}
	}
}

func (p *Parser) snapshot() Result {
	p.refreshLinks()
	data := p.root
	if !p.hasRoot && len(p.stack) > 0 {
		data = p.stack[0].value()
	}
	pending := p.pending.materialize()
	if p.partialPath != "" && !p.pending.has(p.partialPath) && !p.completed.has(p.partialPath) {
		pending = append(pending, p.partialPath)
	}
	return Result{
		Complete:        p.state == StateComplete,
		Valid:           len(p.errs) == 0,
		Data:            data,
		CompletedFields: p.completed.materialize(),
		PendingFields:   pending,
		Errors:          append(Issues(nil), p.errs...),
		Depth:           len(p.stack),
		BytesProcessed:  p.bytes,
	}
}

func quoteRaw(s string) string {
	return "'" + s + "'"
}
