// Package types contains the wire-level types shared between the edit
// engine, the HTTP server, and clients.
package types

// Position is a zero-based (line, column) location in a document.
type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Before reports whether p is strictly before other in document order.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Col < other.Col
}

// After reports whether p is strictly after other in document order.
func (p Position) After(other Position) bool {
	return other.Before(p)
}

// Range is a half-open [Start, End) span in a document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Empty reports whether the range covers no characters.
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Contains reports whether p lies inside the range.
func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && p.Before(r.End)
}

// TextEdit is one discrete replacement: the anchor range in the target
// document is replaced by Text.
type TextEdit struct {
	Document string `json:"document"`
	Range    Range  `json:"range"`
	Text     string `json:"text"`
}

// EditBatch is one streamed partial result: an ordered sequence of discrete
// edits, possibly spanning multiple documents. Batches are immutable once
// produced; ordering between batches for the same document is preserved
// end to end.
type EditBatch struct {
	Edits []TextEdit `json:"edits"`
}

// EditTarget names the document (and optionally the range) an edit request
// is aimed at.
type EditTarget struct {
	Document string `json:"document"`
	Range    *Range `json:"range,omitempty"`
}

// EditRequest asks the agent to rewrite part of a document. A request must
// carry exactly one target.
type EditRequest struct {
	SessionID    string       `json:"sessionID"`
	ResponseID   string       `json:"responseID"`
	BlockIndex   int          `json:"blockIndex"`
	Instructions string       `json:"instructions,omitempty"`
	Targets      []EditTarget `json:"targets"`
}

// DocumentRange pairs a range with the document it belongs to.
type DocumentRange struct {
	Document string `json:"document"`
	Range    Range  `json:"range"`
}

// ChangeSummary is the human-readable progress record published while edits
// land: where the change is and a one-line description of it.
type ChangeSummary struct {
	Document   string `json:"document"`
	Range      Range  `json:"range"`
	Message    string `json:"message"`
	ResponseID string `json:"responseID"`
	BlockIndex int    `json:"blockIndex"`
}

// Options is the user-facing configuration surface.
type Options struct {
	// LogLevel is the minimum log level (DEBUG, INFO, WARN, ERROR).
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel"`
	// Agent configures the remote agent endpoint.
	Agent AgentOptions `json:"agent,omitempty" yaml:"agent"`
	// Decorations configures diff decoration rendering.
	Decorations DecorationOptions `json:"decorations,omitempty" yaml:"decorations"`
	// Diff configures diff computation.
	Diff DiffOptions `json:"diff,omitempty" yaml:"diff"`
}

// AgentOptions configures the agent endpoint used for streaming edits.
type AgentOptions struct {
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL"`
}

// DecorationOptions controls diff decoration visibility.
type DecorationOptions struct {
	// Enabled toggles decorations globally. Nil means enabled.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled"`
	// Exclude lists doublestar globs for documents that should never show
	// decorations even when globally enabled.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude"`
}

// DiffOptions bounds diff computation.
type DiffOptions struct {
	// TimeoutMS is the maximum diff computation budget in milliseconds.
	// Zero means the built-in default.
	TimeoutMS int `json:"timeoutMS,omitempty" yaml:"timeoutMS"`
}
