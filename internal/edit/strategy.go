package edit

import (
	"context"
	"time"

	"github.com/codestream-ai/codestream/pkg/types"
)

// ProgressiveOptions carries pacing metadata for a progressive application.
type ProgressiveOptions struct {
	// Duration is the smoothed estimate of inter-partial latency. Each
	// edit's replacement text is revealed over roughly this long.
	Duration time.Duration
}

// Strategy is the contract every document-editing strategy satisfies. The
// coordinator only speaks this interface, so a preview-only or side-by-side
// variant can be added without touching it. LiveEditStrategy is the one
// implementation today.
type Strategy interface {
	// MakeChanges applies a finite list of discrete edits atomically.
	MakeChanges(ctx context.Context, edits []types.TextEdit) error
	// MakeProgressiveChanges reveals each edit incrementally at a pace
	// derived from opts. Cancelling ctx stops the reveal mid-edit without
	// rolling back already-applied text.
	MakeProgressiveChanges(ctx context.Context, edits []types.TextEdit, opts ProgressiveOptions) error
	// UndoChanges rewinds the buffer toward targetVersion, best effort.
	UndoChanges(targetVersion int64)
	// Apply accepts the edits: the buffer keeps its content permanently.
	Apply(ctx context.Context) error
	// Cancel rejects the edits: the buffer rewinds to its last confirmed
	// state, or to its state at first contact.
	Cancel(ctx context.Context) error
	// RenderChanges recomputes the diff, publishes the change summary, and
	// refreshes decorations.
	RenderChanges(ctx context.Context) error
	// RangesInProgress reports the current in-flight edit ranges against
	// the original snapshot's document identity.
	RangesInProgress() []types.DocumentRange
	// Dispose releases decorations and subscriptions.
	Dispose()
}
