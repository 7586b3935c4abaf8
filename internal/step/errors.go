package step

import "fmt"

// MalformedRecordError reports a structurally broken record in the exchange
// file. It fails the whole parse: a file that cannot be tokenized has no
// usable entity graph.
type MalformedRecordError struct {
	Line    int    // 1-based physical line where the record starts
	Snippet string // leading fragment of the offending record
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at line %d: %q", e.Line, e.Snippet)
}

// DanglingReferenceError reports a parameter reference to an entity ID that
// does not exist in the graph. Per-entity and recoverable: callers skip the
// surface that needed it rather than aborting the file.
type DanglingReferenceError struct {
	From int // entity whose parameters hold the reference
	ID   int // missing entity ID
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("entity #%d references missing entity #%d", e.From, e.ID)
}

// CyclicReferenceError reports a reference chain that loops back on itself.
// Per-entity and recoverable, like DanglingReferenceError.
type CyclicReferenceError struct {
	From int // entity whose resolution closed the cycle
	ID   int // entity that was about to be revisited
}

func (e *CyclicReferenceError) Error() string {
	return fmt.Sprintf("entity #%d is part of a reference cycle through #%d", e.From, e.ID)
}
