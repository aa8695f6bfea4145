// Package agent defines the boundary to the layer that produces edit
// batches. The engine never decides what to edit; it consumes a stream of
// partial results from a Streamer and applies them.
package agent

import (
	"context"

	"github.com/codestream-ai/codestream/pkg/types"
)

// Request is one streaming edit request handed to the agent layer.
type Request struct {
	SessionID    string           `json:"sessionID"`
	ResponseID   string           `json:"responseID"`
	BlockIndex   int              `json:"blockIndex"`
	Instructions string           `json:"instructions,omitempty"`
	Target       types.EditTarget `json:"target"`
}

// PartialResult is one streamed partial: a batch of edits.
type PartialResult struct {
	Batch types.EditBatch `json:"batch"`
}

// Response is the agent's final answer for one request. A nil response with
// a nil error means the agent produced nothing beyond its partials.
type Response struct {
	ID      string `json:"id"`
	Batches int    `json:"batches"`
}

// Streamer is the streaming edit call: partial results are delivered through
// onPartial in arrival order, and the eventual response (or its absence) is
// returned once the stream ends. Cancelling ctx stops the stream.
type Streamer interface {
	StreamEdits(ctx context.Context, req Request, onPartial func(PartialResult)) (*Response, error)
}
