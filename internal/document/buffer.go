// Package document provides the in-process document layer: named versioned
// text buffers with undo checkpoints and sticky range tracking, editor views
// with decoration sets, and the workspace registry that owns them.
package document

import (
	"errors"
	"strings"
	"sync"

	"github.com/codestream-ai/codestream/pkg/types"
)

// ErrDisposed is returned by operations on a disposed buffer.
var ErrDisposed = errors.New("buffer is disposed")

// Replace is one replacement operation against the current buffer state.
type Replace struct {
	Range types.Range
	Text  string
}

// undoGroup captures the buffer state at an undo checkpoint. Everything
// applied after the checkpoint reverts as one unit.
type undoGroup struct {
	lines   []string
	version int64
}

// Buffer is a mutable, versioned text buffer. The version stamp increases by
// one per ApplyEdits transaction; Undo restores the version recorded at the
// checkpoint it rewinds to.
type Buffer struct {
	mu       sync.Mutex
	name     string
	lines    []string
	version  int64
	disposed bool

	open  *undoGroup
	stack []*undoGroup

	tracked map[*TrackedRange]struct{}
}

// NewBuffer creates a buffer holding content.
func NewBuffer(name, content string) *Buffer {
	return &Buffer{
		name:    name,
		lines:   strings.Split(content, "\n"),
		version: 1,
		tracked: make(map[*TrackedRange]struct{}),
	}
}

// Name returns the buffer's document name.
func (b *Buffer) Name() string {
	return b.name
}

// Content returns the full buffer text.
func (b *Buffer) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

// Version returns the current version stamp.
func (b *Buffer) Version() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Dispose marks the buffer as disposed. Further edits fail with ErrDisposed.
func (b *Buffer) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
}

// Disposed reports whether the buffer has been disposed.
func (b *Buffer) Disposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// ApplyEdits applies the replacements in order as one atomic transaction.
// Each replacement's range is interpreted against the buffer state left by
// the previous one. It returns the resulting range of every replacement and
// the computed caret: the end position of the last applied edit, later
// buffer position winning on ties.
func (b *Buffer) ApplyEdits(edits []Replace) ([]types.Range, types.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disposed {
		return nil, types.Position{}, ErrDisposed
	}
	if b.open == nil {
		b.open = &undoGroup{lines: append([]string(nil), b.lines...), version: b.version}
	}

	results := make([]types.Range, 0, len(edits))
	var caret types.Position
	for _, edit := range edits {
		res := b.replace(edit.Range, edit.Text)
		results = append(results, res)
		if !res.End.Before(caret) {
			caret = res.End
		}
	}
	b.version++

	return results, caret, nil
}

// replace performs one replacement and adjusts tracked ranges. Caller holds
// the lock.
func (b *Buffer) replace(r types.Range, text string) types.Range {
	start := b.clamp(r.Start)
	end := b.clamp(r.End)
	if end.Before(start) {
		start, end = end, start
	}

	prefix := b.lines[start.Line][:start.Col]
	suffix := b.lines[end.Line][end.Col:]

	inserted := strings.Split(text, "\n")
	newEnd := types.Position{
		Line: start.Line + len(inserted) - 1,
		Col:  len(inserted[len(inserted)-1]),
	}
	if len(inserted) == 1 {
		newEnd.Col = start.Col + len(text)
	}

	inserted[0] = prefix + inserted[0]
	inserted[len(inserted)-1] = inserted[len(inserted)-1] + suffix

	replaced := make([]string, 0, len(b.lines)-(end.Line-start.Line+1)+len(inserted))
	replaced = append(replaced, b.lines[:start.Line]...)
	replaced = append(replaced, inserted...)
	replaced = append(replaced, b.lines[end.Line+1:]...)
	b.lines = replaced

	old := types.Range{Start: start, End: end}
	for t := range b.tracked {
		t.r.Start = adjustPosition(t.r.Start, old, newEnd, true)
		t.r.End = adjustPosition(t.r.End, old, newEnd, false)
	}

	return types.Range{Start: start, End: newEnd}
}

func (b *Buffer) clamp(p types.Position) types.Position {
	if p.Line < 0 {
		p.Line = 0
	}
	if p.Line >= len(b.lines) {
		p.Line = len(b.lines) - 1
	}
	if p.Col < 0 {
		p.Col = 0
	}
	if p.Col > len(b.lines[p.Line]) {
		p.Col = len(b.lines[p.Line])
	}
	return p
}

// adjustPosition maps a tracked position across one replacement. Positions
// before the replaced span are unaffected; positions inside it collapse to
// the new end; positions at or past its end shift by the growth of the span.
// A range start sitting exactly at an insertion point stays put so the range
// grows when text is appended at its end.
func adjustPosition(p types.Position, old types.Range, newEnd types.Position, isStart bool) types.Position {
	if p.Before(old.Start) {
		return p
	}
	if p == old.Start {
		// Boundary before the replaced span. Range ends grow across an
		// insertion made exactly at the end point; starts stay anchored.
		if !isStart && old.Empty() {
			return newEnd
		}
		return p
	}
	if p.Before(old.End) {
		return newEnd
	}
	// At or past the end of the replaced span.
	if p.Line == old.End.Line {
		return types.Position{Line: newEnd.Line, Col: newEnd.Col + (p.Col - old.End.Col)}
	}
	return types.Position{Line: p.Line + (newEnd.Line - old.End.Line), Col: p.Col}
}

// PushUndoStop closes the currently open undo group, if any. The next edit
// starts a new group.
func (b *Buffer) PushUndoStop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open != nil {
		b.stack = append(b.stack, b.open)
		b.open = nil
	}
}

// Undo rewinds the buffer to the most recent undo checkpoint, restoring both
// content and version. Returns false when there is nothing to undo.
func (b *Buffer) Undo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	group := b.open
	b.open = nil
	if group == nil {
		if len(b.stack) == 0 {
			return false
		}
		group = b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
	}

	b.lines = group.lines
	b.version = group.version
	return true
}

// TrackedRange is a range that follows buffer mutations: every applied edit
// shifts it the way an editor shifts a sticky marker.
type TrackedRange struct {
	buf *Buffer
	r   types.Range
}

// Range returns the tracked range's current location.
func (t *TrackedRange) Range() types.Range {
	t.buf.mu.Lock()
	defer t.buf.mu.Unlock()
	return t.r
}

// TrackRange starts tracking r against future edits.
func (b *Buffer) TrackRange(r types.Range) *TrackedRange {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &TrackedRange{buf: b, r: r}
	b.tracked[t] = struct{}{}
	return t
}

// Release stops tracking t.
func (b *Buffer) Release(t *TrackedRange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tracked, t)
}
