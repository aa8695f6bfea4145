package edit

import "errors"

var (
	// ErrInvalidRequestShape rejects a request that does not carry exactly
	// one target. Nothing is mutated.
	ErrInvalidRequestShape = errors.New("edit request must carry exactly one target")

	// ErrRequestInFlight rejects a request for a session that already has
	// one in flight. Requests are not queued or coalesced.
	ErrRequestInFlight = errors.New("session already has an edit request in flight")

	// ErrDocumentNotFound marks an edit referencing a document with no live
	// buffer. Fatal to that edit only, sibling edits proceed.
	ErrDocumentNotFound = errors.New("no live buffer for document")

	// ErrEditorUnavailable marks an edit whose document cannot host a view.
	// The edit is skipped.
	ErrEditorUnavailable = errors.New("no editor view available for document")
)
