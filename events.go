package trickle

// Events carries optional progress callbacks. All fields may be nil. Within
// one parser, callbacks fire in the order their triggering transitions occur,
// strictly before Feed returns.
type Events struct {
	// OnContainerComplete fires on each container close with the finished
	// object or array and its dot-joined path.
	OnContainerComplete func(value any, path string)
	// OnFieldComplete fires on each assignment to an object key, scalar or
	// nested container alike.
	OnFieldComplete func(key string, value any, parentPath string)
	// OnValidationIssue fires once per issue produced.
	OnValidationIssue func(Issue)
	// OnComplete fires when the root value is finished.
	OnComplete func(root any)
	// OnError fires on fatal errors (strict-mode syntax errors, depth
	// exceeded).
	OnError func(error)
}

func (e *Events) containerComplete(value any, path string) {
	if e.OnContainerComplete != nil {
		e.OnContainerComplete(value, path)
	}
}

func (e *Events) fieldComplete(key string, value any, parentPath string) {
	if e.OnFieldComplete != nil {
		e.OnFieldComplete(key, value, parentPath)
	}
}

func (e *Events) validationIssue(it Issue) {
	if e.OnValidationIssue != nil {
		e.OnValidationIssue(it)
	}
}

func (e *Events) complete(root any) {
	if e.OnComplete != nil {
		e.OnComplete(root)
	}
}

func (e *Events) fatal(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}
