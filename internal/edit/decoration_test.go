package edit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codestream-ai/codestream/internal/document"
)

func newTestTracker(t *testing.T, content string, visible bool) (*DecorationTracker, *document.Buffer) {
	t.Helper()
	ws := document.NewWorkspace()
	buf := ws.Open("a.txt", content)
	view, err := ws.OpenView("a.txt")
	require.NoError(t, err)
	return NewDecorationTracker(view, visible), buf
}

func TestCollectEditStylesByEmptiness(t *testing.T) {
	tracker, _ := newTestTracker(t, "content", true)

	tracker.CollectEdit(rng(0, 0, 0, 3))
	tracker.CollectEdit(rng(0, 5, 0, 5))
	tracker.Update()

	decos := tracker.view.DecorationSet(decorationSetID)
	require.Len(t, decos, 2)
	assert.Equal(t, changedTextStyle, decos[0].Style)
	assert.Empty(t, decos[1].Style)
}

func TestVisibilityToggleKeepsRanges(t *testing.T) {
	tracker, _ := newTestTracker(t, "content", true)
	tracker.CollectEdit(rng(0, 0, 0, 7))

	tracker.SetVisible(false)
	decos := tracker.view.DecorationSet(decorationSetID)
	require.Len(t, decos, 1)
	assert.Empty(t, decos[0].Style)

	tracker.SetVisible(true)
	decos = tracker.view.DecorationSet(decorationSetID)
	require.Len(t, decos, 1)
	assert.Equal(t, changedTextStyle, decos[0].Style)
}

func TestTrackedDecorationsFollowBufferEdits(t *testing.T) {
	tracker, buf := newTestTracker(t, "aaa\nbbb", true)
	tracker.CollectEdit(rng(1, 0, 1, 3))

	_, _, err := buf.ApplyEdits([]document.Replace{{Range: rng(0, 0, 0, 0), Text: "new line\n"}})
	require.NoError(t, err)

	ranges := tracker.Ranges()
	require.Len(t, ranges, 1)
	assert.Equal(t, rng(2, 0, 2, 3), ranges[0])
}

func TestClearDiscardsEverything(t *testing.T) {
	tracker, _ := newTestTracker(t, "content", true)
	tracker.CollectEdit(rng(0, 0, 0, 3))
	tracker.Update()

	tracker.Clear()
	assert.Empty(t, tracker.Ranges())
	assert.Empty(t, tracker.view.DecorationSet(decorationSetID))
}
