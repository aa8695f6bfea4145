// Package diff computes line-granularity structural diffs between an
// original document snapshot and its live buffer. Computation is
// whitespace-significant, does no move detection, and is bounded by an
// explicit time budget: when the budget is exceeded the underlying algorithm
// degrades to a coarser (but still valid) diff instead of blocking.
package diff

import (
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/codestream-ai/codestream/pkg/types"
)

// DefaultBudget bounds diff computation when the caller does not supply one.
const DefaultBudget = 200 * time.Millisecond

// Hunk is one contiguous run of changed lines, in both coordinate spaces.
// Line numbers are zero-based; a pure insertion has OrigLines == 0 and a
// pure deletion has LiveLines == 0.
type Hunk struct {
	OrigStart int
	OrigLines int
	LiveStart int
	LiveLines int
}

// Result is the outcome of one diff computation.
type Result struct {
	Hunks []Hunk
	// ChangedLines counts lines touched by the change: per hunk, the larger
	// of the original and live line spans.
	ChangedLines int
}

// Lines diffs original against live at line granularity within budget.
func Lines(original, live string, budget time.Duration) Result {
	if original == live {
		return Result{}
	}
	if budget <= 0 {
		budget = DefaultBudget
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = budget
	a, b, lineArray := dmp.DiffLinesToChars(original, live)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var res Result
	origLine, liveLine := 0, 0
	var open *Hunk
	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if open != nil {
				res.Hunks = append(res.Hunks, *open)
				open = nil
			}
			origLine += n
			liveLine += n
		case diffmatchpatch.DiffDelete:
			if open == nil {
				open = &Hunk{OrigStart: origLine, LiveStart: liveLine}
			}
			open.OrigLines += n
			origLine += n
		case diffmatchpatch.DiffInsert:
			if open == nil {
				open = &Hunk{OrigStart: origLine, LiveStart: liveLine}
			}
			open.LiveLines += n
			liveLine += n
		}
	}
	if open != nil {
		res.Hunks = append(res.Hunks, *open)
	}

	for _, h := range res.Hunks {
		span := h.LiveLines
		if h.OrigLines > span {
			span = h.OrigLines
		}
		res.ChangedLines += span
	}

	return res
}

// BoundingRange returns the range covering every hunk in live-buffer
// coordinates: minimum start line to maximum end line, columns pinned to
// line start. The second return is false when there are no hunks.
func (r Result) BoundingRange() (types.Range, bool) {
	if len(r.Hunks) == 0 {
		return types.Range{}, false
	}
	minStart := r.Hunks[0].LiveStart
	maxEnd := 0
	for _, h := range r.Hunks {
		if h.LiveStart < minStart {
			minStart = h.LiveStart
		}
		end := h.LiveStart
		if h.LiveLines > 0 {
			end = h.LiveStart + h.LiveLines - 1
		}
		if end > maxEnd {
			maxEnd = end
		}
	}
	return types.Range{
		Start: types.Position{Line: minStart},
		End:   types.Position{Line: maxEnd},
	}, true
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	lines := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		lines++
	}
	return lines
}
