// Package edit implements the progressive streaming edit session engine: it
// deduplicates in-flight edit requests per session, fans streamed partial
// batches out to per-document edit strategies through per-document FIFO
// queues, applies edits at a human-readable typing cadence, and maintains
// diff decorations and change summaries as edits land.
package edit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/codestream-ai/codestream/internal/agent"
	"github.com/codestream-ai/codestream/internal/config"
	"github.com/codestream-ai/codestream/internal/document"
	"github.com/codestream-ai/codestream/internal/event"
	"github.com/codestream-ai/codestream/internal/logging"
	"github.com/codestream-ai/codestream/pkg/types"
)

// ProgressMarker records which response and code block currently has an edit
// in progress. It is reset when the in-flight request settles.
type ProgressMarker struct {
	Active     bool   `json:"active"`
	ResponseID string `json:"responseID"`
	BlockIndex int    `json:"blockIndex"`
}

// Handle represents eventual completion of one whole streamed edit.
type Handle struct {
	id     string
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// ID returns the request's identifier.
func (h *Handle) ID() string { return h.id }

// Done is closed when the streamed edit settles.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the failure, if any, once Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Cancel stops further partial-result processing and halts the in-flight
// progressive reveal. Already-applied text stays; rolling it back is the
// reject path, not cancellation.
func (h *Handle) Cancel() { h.cancel() }

// Wait blocks until the edit settles or ctx is cancelled.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.Err()
	}
}

func (h *Handle) fail(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

// inflightRequest is one session's active streaming task.
type inflightRequest struct {
	handle *Handle
	queues *queueArena

	mu          sync.Mutex
	pending     []types.EditBatch
	lastPartial time.Time
	gapSum      time.Duration
	gapCount    int
}

// observeGap records the time since the previous partial and returns the
// running average, the pacing input for progressive reveals.
func (in *inflightRequest) observeGap(now time.Time) time.Duration {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.gapSum += now.Sub(in.lastPartial)
	in.gapCount++
	in.lastPartial = now
	return in.gapSum / time.Duration(in.gapCount)
}

// Coordinator orchestrates edit sessions: one in-flight request per session,
// a lazily built buffer pair and strategy per document, and per-document
// sequenced application of streamed batches.
type Coordinator struct {
	workspace *document.Workspace
	streamer  agent.Streamer
	cfg       *config.Service

	mu         sync.Mutex
	inflight   map[string]*inflightRequest
	pairs      map[string]*BufferPair
	strategies map[string]Strategy
	progress   ProgressMarker
}

// NewCoordinator creates a coordinator over the given workspace and agent.
func NewCoordinator(workspace *document.Workspace, streamer agent.Streamer, cfg *config.Service) *Coordinator {
	return &Coordinator{
		workspace:  workspace,
		streamer:   streamer,
		cfg:        cfg,
		inflight:   make(map[string]*inflightRequest),
		pairs:      make(map[string]*BufferPair),
		strategies: make(map[string]Strategy),
	}
}

// SendEditRequest starts a streaming edit for the request's session. The
// progress marker is published before any asynchronous work so UI can
// reflect the in-progress state immediately. A malformed request fails with
// ErrInvalidRequestShape before any state change; a session with a request
// already in flight gets ErrRequestInFlight and the original request
// continues unaffected.
func (c *Coordinator) SendEditRequest(ctx context.Context, req types.EditRequest) (*Handle, error) {
	if len(req.Targets) != 1 {
		logging.Error().
			Str("session", req.SessionID).
			Int("targets", len(req.Targets)).
			Msg("edit request must carry exactly one target")
		return nil, ErrInvalidRequestShape
	}

	c.mu.Lock()
	c.progress = ProgressMarker{Active: true, ResponseID: req.ResponseID, BlockIndex: req.BlockIndex}
	if _, ok := c.inflight[req.SessionID]; ok {
		c.mu.Unlock()
		logging.Trace().Str("session", req.SessionID).Msg("edit request ignored, one already in flight")
		return nil, ErrRequestInFlight
	}

	sctx, cancel := context.WithCancel(context.Background())
	handle := &Handle{
		id:     ulid.Make().String(),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	in := &inflightRequest{
		handle:      handle,
		queues:      newQueueArena(),
		lastPartial: time.Now(),
	}
	c.inflight[req.SessionID] = in
	c.mu.Unlock()

	event.Publish(event.Event{
		Type: event.EditStarted,
		Data: event.EditStartedData{
			SessionID:  req.SessionID,
			RequestID:  handle.id,
			ResponseID: req.ResponseID,
			BlockIndex: req.BlockIndex,
		},
	})

	go c.run(sctx, req, in)
	return handle, nil
}

// run is the streaming task for one accepted request.
func (c *Coordinator) run(ctx context.Context, req types.EditRequest, in *inflightRequest) {
	// Cleanup runs regardless of which exit path the stream took.
	defer func() {
		in.mu.Lock()
		in.pending = nil
		in.mu.Unlock()

		c.mu.Lock()
		c.progress = ProgressMarker{}
		delete(c.inflight, req.SessionID)
		c.mu.Unlock()

		in.handle.cancel()
		close(in.handle.done)
	}()

	areq := agent.Request{
		SessionID:    req.SessionID,
		ResponseID:   req.ResponseID,
		BlockIndex:   req.BlockIndex,
		Instructions: req.Instructions,
		Target:       req.Targets[0],
	}

	resp, err := c.streamer.StreamEdits(ctx, areq, func(p agent.PartialResult) {
		if ctx.Err() != nil {
			return
		}
		pace := in.observeGap(time.Now())

		in.mu.Lock()
		in.pending = append(in.pending, p.Batch)
		in.mu.Unlock()

		for _, group := range groupByDocument(p.Batch.Edits) {
			group := group
			in.queues.Enqueue(group.document, func() {
				if ctx.Err() != nil {
					return
				}
				c.applyToDocument(ctx, group.document, group.edits, pace)
			})
		}
	})

	in.queues.Wait()

	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		logging.Warn().Err(err).Str("session", req.SessionID).Msg("edit stream failed")
		in.handle.fail(err)
	case err == nil && resp == nil:
		logging.Debug().Str("session", req.SessionID).Msg("agent returned no response")
	}
}

type documentEdits struct {
	document string
	edits    []types.TextEdit
}

// groupByDocument splits a batch per target document, preserving the
// batch's edit order within each group.
func groupByDocument(edits []types.TextEdit) []documentEdits {
	index := make(map[string]int)
	var groups []documentEdits
	for _, e := range edits {
		i, ok := index[e.Document]
		if !ok {
			i = len(groups)
			index[e.Document] = i
			groups = append(groups, documentEdits{document: e.Document})
		}
		groups[i].edits = append(groups[i].edits, e)
	}
	return groups
}

// applyToDocument resolves the document's strategy and dispatches one
// batch's edits, progressive when pacing metadata is present. Failures are
// local: the edits are skipped, sibling documents proceed.
func (c *Coordinator) applyToDocument(ctx context.Context, name string, edits []types.TextEdit, pace time.Duration) {
	strategy, err := c.strategyFor(name)
	if err != nil {
		logging.Warn().Err(err).Str("document", name).Int("edits", len(edits)).Msg("edits skipped")
		return
	}

	if pace > 0 {
		err = strategy.MakeProgressiveChanges(ctx, edits, ProgressiveOptions{Duration: pace})
	} else {
		err = strategy.MakeChanges(ctx, edits)
	}
	if err != nil {
		logging.Warn().Err(err).Str("document", name).Msg("edit application failed")
	}

	if err := strategy.RenderChanges(ctx); err != nil {
		logging.Warn().Err(err).Str("document", name).Msg("render failed")
	}
}

// strategyFor returns the document's strategy, creating its buffer pair and
// view on first edit. Creation binds the strategy to the response and
// code-block index currently marked in progress.
func (c *Coordinator) strategyFor(name string) (Strategy, error) {
	c.mu.Lock()
	if s, ok := c.strategies[name]; ok {
		c.mu.Unlock()
		return s, nil
	}
	progress := c.progress
	c.mu.Unlock()

	pair, err := c.pairFor(name)
	if err != nil {
		return nil, err
	}
	view, err := c.workspace.OpenView(name)
	if err != nil {
		return nil, ErrEditorUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.strategies[name]; ok {
		return s, nil
	}
	s := NewLiveEditStrategy(pair, view, progress.ResponseID, progress.BlockIndex, c.cfg)
	c.strategies[name] = s
	return s, nil
}

// pairFor returns the document's buffer pair, snapshotting the original
// content at first contact.
func (c *Coordinator) pairFor(name string) (*BufferPair, error) {
	c.mu.Lock()
	if p, ok := c.pairs[name]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	live, ok := c.workspace.Buffer(name)
	if !ok {
		return nil, ErrDocumentNotFound
	}
	snapshot, ok := c.workspace.Snapshot(name)
	if !ok {
		return nil, ErrDocumentNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pairs[name]; ok {
		return p, nil
	}
	p := NewBufferPair(snapshot, live)
	c.pairs[name] = p
	return p, nil
}

// EditRangesInProgress returns the in-progress edit ranges for one document,
// or for every tracked document when name is empty. Within a document,
// ranges come back in decoration creation order.
func (c *Coordinator) EditRangesInProgress(name string) []types.DocumentRange {
	c.mu.Lock()
	strategies := make([]Strategy, 0, len(c.strategies))
	if name != "" {
		if s, ok := c.strategies[name]; ok {
			strategies = append(strategies, s)
		}
	} else {
		for _, s := range c.strategies {
			strategies = append(strategies, s)
		}
	}
	c.mu.Unlock()

	var ranges []types.DocumentRange
	for _, s := range strategies {
		ranges = append(ranges, s.RangesInProgress()...)
	}
	return ranges
}

// ConfirmEdits accepts or rejects one document's edits. A document with no
// strategy is a logged no-op.
func (c *Coordinator) ConfirmEdits(ctx context.Context, name string, accept bool) error {
	c.mu.Lock()
	s, ok := c.strategies[name]
	c.mu.Unlock()
	if !ok {
		logging.Debug().Str("document", name).Msg("confirm for document with no edits")
		return nil
	}
	if accept {
		return s.Apply(ctx)
	}
	return s.Cancel(ctx)
}

// Progress returns the current in-progress marker.
func (c *Coordinator) Progress() ProgressMarker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Close disposes every tracked strategy and clears the registry.
func (c *Coordinator) Close() {
	c.mu.Lock()
	strategies := make([]Strategy, 0, len(c.strategies))
	for _, s := range c.strategies {
		strategies = append(strategies, s)
	}
	c.strategies = make(map[string]Strategy)
	c.pairs = make(map[string]*BufferPair)
	c.mu.Unlock()

	for _, s := range strategies {
		s.Dispose()
	}
}
