package edit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codestream-ai/codestream/internal/agent"
	"github.com/codestream-ai/codestream/internal/config"
	"github.com/codestream-ai/codestream/internal/document"
	"github.com/codestream-ai/codestream/internal/event"
	"github.com/codestream-ai/codestream/pkg/types"
)

// streamFunc adapts a function to agent.Streamer.
type streamFunc func(ctx context.Context, req agent.Request, onPartial func(agent.PartialResult)) (*agent.Response, error)

func (f streamFunc) StreamEdits(ctx context.Context, req agent.Request, onPartial func(agent.PartialResult)) (*agent.Response, error) {
	return f(ctx, req, onPartial)
}

func newTestCoordinator(t *testing.T, ws *document.Workspace, streamer agent.Streamer) *Coordinator {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	c := NewCoordinator(ws, streamer, cfg)
	t.Cleanup(c.Close)
	return c
}

func editRequest(session string) types.EditRequest {
	return types.EditRequest{
		SessionID:  session,
		ResponseID: "resp-1",
		BlockIndex: 0,
		Targets:    []types.EditTarget{{Document: "a.txt"}},
	}
}

func TestSendEditRequestValidatesShape(t *testing.T) {
	c := newTestCoordinator(t, document.NewWorkspace(), &agent.Scripted{})

	req := editRequest("s1")
	req.Targets = nil
	handle, err := c.SendEditRequest(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequestShape)
	assert.Nil(t, handle)

	req.Targets = []types.EditTarget{{Document: "a.txt"}, {Document: "b.txt"}}
	handle, err = c.SendEditRequest(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequestShape)
	assert.Nil(t, handle)

	// Nothing was mutated: no in-progress marker, no in-flight entry.
	assert.False(t, c.Progress().Active)
}

func TestDuplicateInFlightRequestRejected(t *testing.T) {
	ws := document.NewWorkspace()
	ws.Open("a.txt", "content")

	release := make(chan struct{})
	c := newTestCoordinator(t, ws, streamFunc(func(ctx context.Context, req agent.Request, onPartial func(agent.PartialResult)) (*agent.Response, error) {
		<-release
		return &agent.Response{ID: req.ResponseID}, nil
	}))

	first, err := c.SendEditRequest(context.Background(), editRequest("s1"))
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := c.SendEditRequest(context.Background(), editRequest("s1"))
	assert.ErrorIs(t, err, ErrRequestInFlight)
	assert.Nil(t, second)

	// A different session is unaffected.
	other, err := c.SendEditRequest(context.Background(), editRequest("s2"))
	require.NoError(t, err)
	require.NotNil(t, other)

	close(release)
	require.NoError(t, first.Wait(context.Background()))
	require.NoError(t, other.Wait(context.Background()))

	// The session is free again once the request settles.
	again, err := c.SendEditRequest(context.Background(), editRequest("s1"))
	require.NoError(t, err)
	require.NotNil(t, again)
	require.NoError(t, again.Wait(context.Background()))
}

func TestBatchesApplyInArrivalOrder(t *testing.T) {
	ws := document.NewWorkspace()
	ws.Open("a.txt", "start")

	var batches []types.EditBatch
	for i := 1; i <= 10; i++ {
		batches = append(batches, types.EditBatch{Edits: []types.TextEdit{{
			Document: "a.txt",
			// An out-of-bounds column clamps to line end: an append.
			Range: rng(0, 1<<20, 0, 1<<20),
			Text:  fmt.Sprintf(" b%d", i),
		}}})
	}
	c := newTestCoordinator(t, ws, &agent.Scripted{Batches: batches, Delay: 3 * time.Millisecond})

	handle, err := c.SendEditRequest(context.Background(), editRequest("s1"))
	require.NoError(t, err)
	require.NoError(t, handle.Wait(context.Background()))

	buf, _ := ws.Buffer("a.txt")
	assert.Equal(t, "start b1 b2 b3 b4 b5 b6 b7 b8 b9 b10", buf.Content())
}

func TestEndToEndEditWithSummaryAndAccept(t *testing.T) {
	ws := document.NewWorkspace()
	ws.Open("a.txt", "hello\nworld")

	summaries := make(chan types.ChangeSummary, 8)
	unsubscribe := event.Subscribe(event.EditSummary, func(ev event.Event) {
		if data, ok := ev.Data.(event.EditSummaryData); ok {
			summaries <- data.Summary
		}
	})
	defer unsubscribe()

	c := newTestCoordinator(t, ws, &agent.Scripted{Batches: []types.EditBatch{
		{Edits: []types.TextEdit{{Document: "a.txt", Range: rng(0, 0, 0, 5), Text: "x"}}},
	}})

	handle, err := c.SendEditRequest(context.Background(), editRequest("s1"))
	require.NoError(t, err)
	require.NoError(t, handle.Wait(context.Background()))

	buf, _ := ws.Buffer("a.txt")
	assert.Equal(t, "x\nworld", buf.Content())

	select {
	case summary := <-summaries:
		assert.Equal(t, "a.txt", summary.Document)
		assert.Equal(t, "Changed 1 line", summary.Message)
		assert.Equal(t, 0, summary.Range.Start.Line)
		assert.Equal(t, 0, summary.Range.End.Line)
		assert.Equal(t, "resp-1", summary.ResponseID)
	case <-time.After(2 * time.Second):
		t.Fatal("no summary event published")
	}

	// The in-progress marker is reset once the request settles.
	assert.False(t, c.Progress().Active)

	ranges := c.EditRangesInProgress("a.txt")
	require.NotEmpty(t, ranges)
	assert.Equal(t, "a.txt", ranges[0].Document)

	require.NoError(t, c.ConfirmEdits(context.Background(), "a.txt", true))
	assert.Equal(t, "x\nworld", buf.Content())
	assert.Empty(t, c.EditRangesInProgress("a.txt"))
}

func TestRejectRestoresOriginal(t *testing.T) {
	ws := document.NewWorkspace()
	ws.Open("a.txt", "original content")

	c := newTestCoordinator(t, ws, &agent.Scripted{Batches: []types.EditBatch{
		{Edits: []types.TextEdit{{Document: "a.txt", Range: rng(0, 0, 0, 8), Text: "rewritten"}}},
	}})

	handle, err := c.SendEditRequest(context.Background(), editRequest("s1"))
	require.NoError(t, err)
	require.NoError(t, handle.Wait(context.Background()))

	buf, _ := ws.Buffer("a.txt")
	require.Equal(t, "rewritten content", buf.Content())

	require.NoError(t, c.ConfirmEdits(context.Background(), "a.txt", false))
	assert.Equal(t, "original content", buf.Content())
}

func TestUnknownDocumentEditSkippedSiblingProceeds(t *testing.T) {
	ws := document.NewWorkspace()
	ws.Open("a.txt", "keep")

	c := newTestCoordinator(t, ws, &agent.Scripted{Batches: []types.EditBatch{
		{Edits: []types.TextEdit{
			{Document: "missing.txt", Range: rng(0, 0, 0, 0), Text: "lost"},
			{Document: "a.txt", Range: rng(0, 0, 0, 4), Text: "kept"},
		}},
	}})

	handle, err := c.SendEditRequest(context.Background(), editRequest("s1"))
	require.NoError(t, err)
	require.NoError(t, handle.Wait(context.Background()))

	buf, _ := ws.Buffer("a.txt")
	assert.Equal(t, "kept", buf.Content())
}

func TestConfirmEditsUnknownDocumentIsNoop(t *testing.T) {
	c := newTestCoordinator(t, document.NewWorkspace(), &agent.Scripted{})
	assert.NoError(t, c.ConfirmEdits(context.Background(), "nothing.txt", true))
	assert.NoError(t, c.ConfirmEdits(context.Background(), "nothing.txt", false))
}

func TestCancelStopsFurtherPartials(t *testing.T) {
	ws := document.NewWorkspace()
	ws.Open("a.txt", "start")

	firstApplied := make(chan struct{}, 4)
	unsubscribe := event.Subscribe(event.FileEdited, func(ev event.Event) {
		firstApplied <- struct{}{}
	})
	defer unsubscribe()

	c := newTestCoordinator(t, ws, streamFunc(func(ctx context.Context, req agent.Request, onPartial func(agent.PartialResult)) (*agent.Response, error) {
		onPartial(agent.PartialResult{Batch: types.EditBatch{Edits: []types.TextEdit{{
			Document: "a.txt", Range: rng(0, 1<<20, 0, 1<<20), Text: " one",
		}}}})
		<-ctx.Done()
		// Delivered after cancellation: must be ignored.
		onPartial(agent.PartialResult{Batch: types.EditBatch{Edits: []types.TextEdit{{
			Document: "a.txt", Range: rng(0, 1<<20, 0, 1<<20), Text: " two",
		}}}})
		return nil, ctx.Err()
	}))

	handle, err := c.SendEditRequest(context.Background(), editRequest("s1"))
	require.NoError(t, err)

	select {
	case <-firstApplied:
	case <-time.After(2 * time.Second):
		t.Fatal("first batch never applied")
	}
	handle.Cancel()
	require.NoError(t, handle.Wait(context.Background()))

	// Cancellation is not an error and does not roll back applied text.
	assert.NoError(t, handle.Err())
	buf, _ := ws.Buffer("a.txt")
	assert.Equal(t, "start one", buf.Content())
}

func TestEditRangesAcrossAllDocuments(t *testing.T) {
	ws := document.NewWorkspace()
	ws.Open("a.txt", "aaa")
	ws.Open("b.txt", "bbb")

	c := newTestCoordinator(t, ws, &agent.Scripted{Batches: []types.EditBatch{
		{Edits: []types.TextEdit{
			{Document: "a.txt", Range: rng(0, 0, 0, 3), Text: "AAA"},
			{Document: "b.txt", Range: rng(0, 0, 0, 3), Text: "BBB"},
		}},
	}})

	handle, err := c.SendEditRequest(context.Background(), editRequest("s1"))
	require.NoError(t, err)
	require.NoError(t, handle.Wait(context.Background()))

	all := c.EditRangesInProgress("")
	assert.Len(t, all, 2)
	assert.Len(t, c.EditRangesInProgress("a.txt"), 1)
	assert.Len(t, c.EditRangesInProgress("b.txt"), 1)
}
