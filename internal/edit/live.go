package edit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/codestream-ai/codestream/internal/config"
	"github.com/codestream-ai/codestream/internal/diff"
	"github.com/codestream-ai/codestream/internal/document"
	"github.com/codestream-ai/codestream/internal/event"
	"github.com/codestream-ai/codestream/internal/logging"
	"github.com/codestream-ai/codestream/pkg/types"
)

// LiveEditStrategy applies edits directly to one document's live buffer. It
// is bound at construction to the document's buffer pair, its editor view,
// the originating response, and the code-block index being streamed.
//
// The first edit applied by an instance pushes an undo checkpoint before
// touching the buffer and scrolls the view to the edit's start, so the whole
// discrete or progressive sequence that follows undoes as one logical unit.
type LiveEditStrategy struct {
	pair       *BufferPair
	view       *document.View
	tracker    *DecorationTracker
	responseID string
	blockIndex int
	cfg        *config.Service

	unsubscribe func()

	mu          sync.Mutex
	edited      bool
	lastSummary *types.ChangeSummary
}

// NewLiveEditStrategy binds a strategy to one document.
func NewLiveEditStrategy(pair *BufferPair, view *document.View, responseID string, blockIndex int, cfg *config.Service) *LiveEditStrategy {
	doc := pair.Original.Document
	s := &LiveEditStrategy{
		pair:       pair,
		view:       view,
		tracker:    NewDecorationTracker(view, cfg.DecorationsVisible(doc)),
		responseID: responseID,
		blockIndex: blockIndex,
		cfg:        cfg,
	}
	s.unsubscribe = cfg.Subscribe(func(types.Options) {
		s.tracker.SetVisible(cfg.DecorationsVisible(doc))
	})
	return s
}

// beginEdit runs the once-per-instance first-edit protocol: close any open
// undo group so the sequence gets its own, and reveal the edit location.
func (s *LiveEditStrategy) beginEdit(at types.Position) {
	s.mu.Lock()
	first := !s.edited
	s.edited = true
	s.mu.Unlock()
	if first {
		s.pair.Live.PushUndoStop()
		s.view.Reveal(at)
	}
}

// MakeChanges applies edits to the live buffer in one atomic transaction.
func (s *LiveEditStrategy) MakeChanges(ctx context.Context, edits []types.TextEdit) error {
	if len(edits) == 0 {
		return nil
	}
	if s.pair.Live.Disposed() {
		logging.Debug().Str("document", s.pair.Original.Document).Msg("edit on disposed buffer skipped")
		return nil
	}

	s.beginEdit(edits[0].Range.Start)

	replaces := make([]document.Replace, 0, len(edits))
	for _, e := range edits {
		replaces = append(replaces, document.Replace{Range: e.Range, Text: e.Text})
	}
	results, caret, err := s.pair.Live.ApplyEdits(replaces)
	if err != nil {
		if errors.Is(err, document.ErrDisposed) {
			logging.Debug().Str("document", s.pair.Original.Document).Msg("edit on disposed buffer skipped")
			return nil
		}
		return err
	}

	for _, r := range results {
		s.tracker.CollectEdit(r)
	}
	s.view.SetSelection(types.Range{Start: caret, End: caret})

	event.Publish(event.Event{
		Type: event.FileEdited,
		Data: event.FileEditedData{Document: s.pair.Original.Document},
	})
	return nil
}

// MakeProgressiveChanges reveals each edit's replacement text word by word
// at a speed of wordCount/duration words per second. Cancellation stops the
// reveal mid-edit; text already revealed stays.
func (s *LiveEditStrategy) MakeProgressiveChanges(ctx context.Context, edits []types.TextEdit, opts ProgressiveOptions) error {
	if s.pair.Live.Disposed() {
		logging.Debug().Str("document", s.pair.Original.Document).Msg("edit on disposed buffer skipped")
		return nil
	}

	for _, e := range edits {
		s.beginEdit(e.Range.Start)
		if done := s.revealEdit(ctx, e, opts.Duration); done {
			break
		}
	}

	event.Publish(event.Event{
		Type: event.FileEdited,
		Data: event.FileEditedData{Document: s.pair.Original.Document},
	})
	return nil
}

// revealEdit types out one edit. Returns true when the reveal was cut short
// by cancellation or a disposed buffer.
func (s *LiveEditStrategy) revealEdit(ctx context.Context, e types.TextEdit, duration time.Duration) bool {
	chunks := splitChunks(e.Text)
	if len(chunks) == 0 {
		// Pure deletion: nothing to type, still one application.
		chunks = []string{""}
	}
	var delay time.Duration
	if speed := RevealSpeed(e.Text, duration); speed > 0 {
		delay = time.Duration(float64(time.Second) / speed)
	}

	interrupted := false
	var applied *types.Range
	for i, chunk := range chunks {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				interrupted = true
			case <-time.After(delay):
			}
			if interrupted {
				break
			}
		}

		target := e.Range
		if applied != nil {
			target = types.Range{Start: applied.End, End: applied.End}
		}
		results, caret, err := s.pair.Live.ApplyEdits([]document.Replace{{Range: target, Text: chunk}})
		if err != nil {
			logging.Debug().Err(err).Str("document", s.pair.Original.Document).Msg("progressive edit stopped")
			interrupted = true
			break
		}
		if applied == nil {
			r := results[0]
			applied = &r
		} else {
			applied.End = results[0].End
		}
		s.view.SetSelection(types.Range{Start: caret, End: caret})

		if ctx.Err() != nil {
			interrupted = true
			break
		}
	}

	if applied != nil {
		s.tracker.CollectEdit(*applied)
	}
	return interrupted
}

// UndoChanges rewinds the buffer until its version is at or below
// targetVersion. Running out of undo history before reaching the target is
// accepted silently.
func (s *LiveEditStrategy) UndoChanges(targetVersion int64) {
	for s.pair.Live.Version() > targetVersion {
		if !s.pair.Live.Undo() {
			logging.Debug().
				Str("document", s.pair.Original.Document).
				Int64("target", targetVersion).
				Int64("version", s.pair.Live.Version()).
				Msg("undo history exhausted before target version")
			return
		}
	}
}

// Apply accepts the edits: the undo group is closed, the current version is
// recorded as the confirmed checkpoint, and decorations are cleared. The
// live buffer keeps its edited content.
func (s *LiveEditStrategy) Apply(ctx context.Context) error {
	s.mu.Lock()
	edited := s.edited
	s.mu.Unlock()

	if edited {
		s.pair.Live.PushUndoStop()
		s.pair.Confirm(s.pair.Live.Version())
	}
	s.tracker.Clear()

	event.Publish(event.Event{
		Type: event.EditApplied,
		Data: event.EditAppliedData{Document: s.pair.Original.Document},
	})
	return nil
}

// Cancel rejects the edits: the buffer rewinds to the confirmed checkpoint
// if one was recorded, else to the pair's creation version, and decorations
// are cleared. No-op on a disposed buffer.
func (s *LiveEditStrategy) Cancel(ctx context.Context) error {
	if s.pair.Live.Disposed() {
		return nil
	}

	s.UndoChanges(s.pair.RewindTarget())
	s.tracker.Clear()

	event.Publish(event.Event{
		Type: event.EditRejected,
		Data: event.EditRejectedData{Document: s.pair.Original.Document},
	})
	return nil
}

// RenderChanges recomputes the diff against the original snapshot, publishes
// the change summary for the bound response and code block, and refreshes
// decorations.
func (s *LiveEditStrategy) RenderChanges(ctx context.Context) error {
	if s.pair.Live.Disposed() {
		return nil
	}

	result := diff.Lines(s.pair.Original.Content, s.pair.Live.Content(), s.cfg.DiffBudget())
	message := summaryMessage(result.ChangedLines)

	if bounding, ok := result.BoundingRange(); ok {
		summary := types.ChangeSummary{
			Document:   s.pair.Original.Document,
			Range:      bounding,
			Message:    message,
			ResponseID: s.responseID,
			BlockIndex: s.blockIndex,
		}
		s.mu.Lock()
		s.lastSummary = &summary
		s.mu.Unlock()

		event.Publish(event.Event{
			Type: event.EditSummary,
			Data: event.EditSummaryData{Summary: summary},
		})
	}

	s.tracker.Update()
	return nil
}

// Summary returns the last published change summary, if any.
func (s *LiveEditStrategy) Summary() *types.ChangeSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSummary == nil {
		return nil
	}
	summary := *s.lastSummary
	return &summary
}

// RangesInProgress returns every tracked decoration's current range, paired
// with the original snapshot's document identity.
func (s *LiveEditStrategy) RangesInProgress() []types.DocumentRange {
	ranges := s.tracker.Ranges()
	out := make([]types.DocumentRange, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, types.DocumentRange{Document: s.pair.Original.Document, Range: r})
	}
	return out
}

// Dispose clears decorations and releases the configuration subscription.
func (s *LiveEditStrategy) Dispose() {
	s.tracker.Clear()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// summaryMessage renders the changed-line count for humans.
func summaryMessage(changed int) string {
	switch changed {
	case 0:
		return "Nothing changed"
	case 1:
		return "Changed 1 line"
	default:
		return fmt.Sprintf("Changed %d lines", changed)
	}
}

// RevealSpeed computes the progressive reveal pace, in words per second, for
// replacement text revealed over duration.
func RevealSpeed(text string, duration time.Duration) float64 {
	words := len(strings.Fields(text))
	if words == 0 || duration <= 0 {
		return 0
	}
	return float64(words) / duration.Seconds()
}

// splitChunks slices text into typing chunks: each chunk is one word with
// its surrounding whitespace, and the chunks concatenate back to text.
func splitChunks(text string) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	var cur strings.Builder
	prevSpace := false
	for _, r := range text {
		isSpace := unicode.IsSpace(r)
		if !isSpace && prevSpace && cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteRune(r)
		prevSpace = isSpace
	}
	chunks = append(chunks, cur.String())
	return chunks
}
