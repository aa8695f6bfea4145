package edit

import (
	"sync"

	"github.com/codestream-ai/codestream/internal/document"
	"github.com/codestream-ai/codestream/pkg/types"
)

// decorationSetID names the view decoration set owned by the tracker.
const decorationSetID = "codestream.edits"

// changedTextStyle is the styling class for a non-empty edited range.
const changedTextStyle = "codestream-changed-text"

// DecorationTracker maintains the visual range markers for one document's
// in-flight and applied edits. Ranges are tracked sticky against buffer
// mutations; styling is rendered only while visible. Toggling visibility is
// a pure re-render and never discards tracked ranges.
type DecorationTracker struct {
	mu      sync.Mutex
	view    *document.View
	visible bool
	tracked []trackedDecoration
}

type trackedDecoration struct {
	rng   *document.TrackedRange
	style string
}

// NewDecorationTracker creates a tracker rendering into view.
func NewDecorationTracker(view *document.View, visible bool) *DecorationTracker {
	return &DecorationTracker{view: view, visible: visible}
}

// CollectEdit records a just-applied edit's resulting range. Empty resulting
// ranges carry no styling class but remain tracked.
func (t *DecorationTracker) CollectEdit(resulting types.Range) {
	style := changedTextStyle
	if resulting.Empty() {
		style = ""
	}
	t.mu.Lock()
	t.tracked = append(t.tracked, trackedDecoration{
		rng:   t.view.Buffer().TrackRange(resulting),
		style: style,
	})
	t.mu.Unlock()
}

// SetVisible toggles styling and re-renders.
func (t *DecorationTracker) SetVisible(visible bool) {
	t.mu.Lock()
	t.visible = visible
	t.mu.Unlock()
	t.Update()
}

// Update re-pushes every tracked range to the view, merging in the styling
// class only while visible.
func (t *DecorationTracker) Update() {
	t.mu.Lock()
	decorations := make([]document.Decoration, 0, len(t.tracked))
	for _, d := range t.tracked {
		deco := document.Decoration{Range: d.rng.Range()}
		if t.visible {
			deco.Style = d.style
		}
		decorations = append(decorations, deco)
	}
	t.mu.Unlock()

	t.view.SetDecorationSet(decorationSetID, decorations)
}

// Clear discards all tracked ranges and the view-level decoration set.
func (t *DecorationTracker) Clear() {
	t.mu.Lock()
	buf := t.view.Buffer()
	for _, d := range t.tracked {
		buf.Release(d.rng)
	}
	t.tracked = nil
	t.mu.Unlock()

	t.view.ClearDecorationSet(decorationSetID)
}

// Ranges returns the current live-tracked ranges in collection order.
func (t *DecorationTracker) Ranges() []types.Range {
	t.mu.Lock()
	defer t.mu.Unlock()
	ranges := make([]types.Range, 0, len(t.tracked))
	for _, d := range t.tracked {
		ranges = append(ranges, d.rng.Range())
	}
	return ranges
}
