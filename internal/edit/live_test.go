package edit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codestream-ai/codestream/internal/config"
	"github.com/codestream-ai/codestream/internal/document"
	"github.com/codestream-ai/codestream/pkg/types"
)

func pos(line, col int) types.Position {
	return types.Position{Line: line, Col: col}
}

func rng(sl, sc, el, ec int) types.Range {
	return types.Range{Start: pos(sl, sc), End: pos(el, ec)}
}

// newTestStrategy builds a LiveEditStrategy over a fresh workspace document.
func newTestStrategy(t *testing.T, name, content string) (*LiveEditStrategy, *document.Buffer, *config.Service) {
	t.Helper()

	ws := document.NewWorkspace()
	buf := ws.Open(name, content)
	snap, ok := ws.Snapshot(name)
	require.True(t, ok)
	view, err := ws.OpenView(name)
	require.NoError(t, err)

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	s := NewLiveEditStrategy(NewBufferPair(snap, buf), view, "resp-1", 0, cfg)
	t.Cleanup(s.Dispose)
	return s, buf, cfg
}

func TestMakeChangesAppliesAndTracks(t *testing.T) {
	s, buf, _ := newTestStrategy(t, "a.txt", "hello world")

	err := s.MakeChanges(context.Background(), []types.TextEdit{
		{Document: "a.txt", Range: rng(0, 0, 0, 5), Text: "goodbye"},
	})
	require.NoError(t, err)

	assert.Equal(t, "goodbye world", buf.Content())

	ranges := s.RangesInProgress()
	require.Len(t, ranges, 1)
	assert.Equal(t, "a.txt", ranges[0].Document)
	assert.Equal(t, rng(0, 0, 0, 7), ranges[0].Range)
}

func TestCancelRestoresOriginalContent(t *testing.T) {
	s, buf, _ := newTestStrategy(t, "a.txt", "one\ntwo\nthree")

	ctx := context.Background()
	require.NoError(t, s.MakeChanges(ctx, []types.TextEdit{
		{Document: "a.txt", Range: rng(0, 0, 0, 3), Text: "ONE"},
	}))
	require.NoError(t, s.MakeChanges(ctx, []types.TextEdit{
		{Document: "a.txt", Range: rng(2, 0, 2, 5), Text: "THREE"},
	}))
	require.Equal(t, "ONE\ntwo\nTHREE", buf.Content())

	require.NoError(t, s.Cancel(ctx))

	assert.Equal(t, "one\ntwo\nthree", buf.Content())
	assert.Empty(t, s.RangesInProgress())
}

func TestApplyMakesEditsPermanent(t *testing.T) {
	s, buf, _ := newTestStrategy(t, "a.txt", "one\ntwo")

	ctx := context.Background()
	require.NoError(t, s.MakeChanges(ctx, []types.TextEdit{
		{Document: "a.txt", Range: rng(0, 0, 0, 3), Text: "ONE"},
	}))
	require.NoError(t, s.Apply(ctx))

	assert.Empty(t, s.RangesInProgress())

	// Cancel after apply rewinds only to the confirmed checkpoint: the
	// buffer keeps its edits.
	require.NoError(t, s.Cancel(ctx))
	assert.Equal(t, "ONE\ntwo", buf.Content())
}

func TestCancelOnDisposedBufferIsNoop(t *testing.T) {
	s, buf, _ := newTestStrategy(t, "a.txt", "text")

	require.NoError(t, s.MakeChanges(context.Background(), []types.TextEdit{
		{Document: "a.txt", Range: rng(0, 0, 0, 4), Text: "edit"},
	}))
	buf.Dispose()

	assert.NoError(t, s.Cancel(context.Background()))
	assert.Equal(t, "edit", buf.Content())
}

func TestRenderChangesIdempotent(t *testing.T) {
	s, _, _ := newTestStrategy(t, "a.txt", "one\ntwo\nthree")

	ctx := context.Background()
	require.NoError(t, s.MakeChanges(ctx, []types.TextEdit{
		{Document: "a.txt", Range: rng(1, 0, 1, 3), Text: "TWO"},
	}))

	require.NoError(t, s.RenderChanges(ctx))
	first := s.Summary()
	require.NotNil(t, first)
	firstRanges := s.tracker.Ranges()

	require.NoError(t, s.RenderChanges(ctx))
	second := s.Summary()
	require.NotNil(t, second)

	assert.Equal(t, first.Message, second.Message)
	assert.Equal(t, first.Range, second.Range)
	assert.Equal(t, firstRanges, s.tracker.Ranges())
}

func TestSummaryMessageBoundaries(t *testing.T) {
	assert.Equal(t, "Nothing changed", summaryMessage(0))
	assert.Equal(t, "Changed 1 line", summaryMessage(1))
	assert.Equal(t, "Changed 2 lines", summaryMessage(2))
	assert.Equal(t, "Changed 17 lines", summaryMessage(17))
}

func TestRevealSpeed(t *testing.T) {
	assert.InDelta(t, 5.0, RevealSpeed("one two three four five", time.Second), 1e-9)
	assert.InDelta(t, 10.0, RevealSpeed("one two three four five", 500*time.Millisecond), 1e-9)
	assert.Zero(t, RevealSpeed("", time.Second))
	assert.Zero(t, RevealSpeed("words here", 0))
}

func TestSplitChunksRoundTrips(t *testing.T) {
	for _, text := range []string{
		"one two three",
		"  leading space",
		"trailing\n",
		"multi\nline text here",
		"single",
	} {
		chunks := splitChunks(text)
		var joined string
		for _, c := range chunks {
			joined += c
		}
		assert.Equal(t, text, joined)
	}
	assert.Len(t, splitChunks("one two three"), 3)
	assert.Nil(t, splitChunks(""))
}

func TestProgressiveRevealAppliesFullText(t *testing.T) {
	s, buf, _ := newTestStrategy(t, "a.txt", "start end")

	err := s.MakeProgressiveChanges(context.Background(), []types.TextEdit{
		{Document: "a.txt", Range: rng(0, 5, 0, 5), Text: " alpha beta gamma"},
	}, ProgressiveOptions{Duration: 10 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, "start alpha beta gamma end", buf.Content())

	// The whole reveal lands as one tracked decoration.
	ranges := s.RangesInProgress()
	require.Len(t, ranges, 1)
	assert.Equal(t, rng(0, 5, 0, 22), ranges[0].Range)
}

func TestProgressiveCancellationKeepsPartialText(t *testing.T) {
	s, buf, _ := newTestStrategy(t, "a.txt", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.MakeProgressiveChanges(ctx, []types.TextEdit{
		{Document: "a.txt", Range: rng(0, 0, 0, 0), Text: "first second third"},
	}, ProgressiveOptions{Duration: time.Second})
	require.NoError(t, err)

	// The first chunk lands before the cancellation check; nothing is
	// rolled back.
	assert.Equal(t, "first ", buf.Content())
}

func TestProgressiveDeletionAppliesWithoutText(t *testing.T) {
	s, buf, _ := newTestStrategy(t, "a.txt", "remove me")

	err := s.MakeProgressiveChanges(context.Background(), []types.TextEdit{
		{Document: "a.txt", Range: rng(0, 6, 0, 9), Text: ""},
	}, ProgressiveOptions{Duration: 10 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, "remove", buf.Content())
}

func TestUndoChangesBestEffort(t *testing.T) {
	s, buf, _ := newTestStrategy(t, "a.txt", "v1")

	ctx := context.Background()
	require.NoError(t, s.MakeChanges(ctx, []types.TextEdit{
		{Document: "a.txt", Range: rng(0, 0, 0, 2), Text: "v2"},
	}))
	target := buf.Version()

	require.NoError(t, s.MakeChanges(ctx, []types.TextEdit{
		{Document: "a.txt", Range: rng(0, 0, 0, 2), Text: "v3"},
	}))

	s.UndoChanges(target)
	assert.LessOrEqual(t, buf.Version(), target)

	// Rewinding below available history stops silently.
	s.UndoChanges(-100)
	assert.Equal(t, "v1", buf.Content())
}

func TestDecorationVisibilityFollowsConfig(t *testing.T) {
	s, _, cfg := newTestStrategy(t, "a.txt", "hello")

	require.NoError(t, s.MakeChanges(context.Background(), []types.TextEdit{
		{Document: "a.txt", Range: rng(0, 0, 0, 5), Text: "HELLO"},
	}))
	require.NoError(t, s.RenderChanges(context.Background()))

	decos := s.view.DecorationSet(decorationSetID)
	require.Len(t, decos, 1)
	assert.Equal(t, changedTextStyle, decos[0].Style)

	disabled := false
	opts := cfg.Options()
	opts.Decorations.Enabled = &disabled
	cfg.SetOptions(opts)

	// Toggling visibility re-renders without styling but keeps the ranges.
	decos = s.view.DecorationSet(decorationSetID)
	require.Len(t, decos, 1)
	assert.Empty(t, decos[0].Style)
	assert.Len(t, s.RangesInProgress(), 1)
}
