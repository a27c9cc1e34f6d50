package trickle

// Result is the snapshot returned by every Feed call.
type Result struct {
	// Complete reports whether the root value is finished.
	Complete bool
	// Valid is true while no validation issues have accumulated.
	Valid bool
	// Data is the partial or final root value. For an open root container
	// this is the growing tree (shared with the parser: treat as
	// read-only); for a root scalar it is nil until Complete.
	Data any
	// CompletedFields lists dot-joined paths whose values are fully
	// assigned, in completion order. The root appears as "$".
	CompletedFields []string
	// PendingFields lists paths that are started but unfinished: open
	// containers, keys awaiting values, and the partially-buffered lexeme
	// when one is classifiable.
	PendingFields []string
	// Errors accumulates validation issues, including synthetic "syntax"
	// entries recorded by lenient recovery.
	Errors Issues
	// Depth is the current container-stack size.
	Depth int
	// BytesProcessed counts cumulative bytes fed.
	BytesProcessed int64
}
