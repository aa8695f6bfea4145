package agent

import (
	"context"
	"time"

	"github.com/codestream-ai/codestream/pkg/types"
)

// Scripted replays a fixed sequence of batches with a configurable delay
// between them. Used by tests.
type Scripted struct {
	Batches []types.EditBatch
	// Delay between successive partials. Zero delivers them back to back.
	Delay time.Duration
}

// StreamEdits delivers the scripted batches in order.
func (s *Scripted) StreamEdits(ctx context.Context, req Request, onPartial func(PartialResult)) (*Response, error) {
	for i, batch := range s.Batches {
		if i > 0 && s.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.Delay):
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		onPartial(PartialResult{Batch: batch})
	}
	return &Response{ID: req.ResponseID, Batches: len(s.Batches)}, nil
}
