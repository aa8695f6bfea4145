package document

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when a named document has no live buffer.
var ErrNotFound = errors.New("document not found")

// Snapshot is an immutable point-in-time copy of a buffer.
type Snapshot struct {
	Document string
	Content  string
	Version  int64
}

// Workspace owns the live buffers and open views, keyed by document name.
type Workspace struct {
	mu      sync.RWMutex
	buffers map[string]*Buffer
	views   map[string]*View
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{
		buffers: make(map[string]*Buffer),
		views:   make(map[string]*View),
	}
}

// Open creates a buffer for name holding content, or returns the existing
// buffer unchanged.
func (w *Workspace) Open(name, content string) *Buffer {
	w.mu.Lock()
	defer w.mu.Unlock()
	if buf, ok := w.buffers[name]; ok {
		return buf
	}
	buf := NewBuffer(name, content)
	w.buffers[name] = buf
	return buf
}

// Buffer returns the live buffer for name.
func (w *Workspace) Buffer(name string) (*Buffer, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	buf, ok := w.buffers[name]
	return buf, ok
}

// Snapshot takes a point-in-time copy of the named buffer.
func (w *Workspace) Snapshot(name string) (Snapshot, bool) {
	w.mu.RLock()
	buf, ok := w.buffers[name]
	w.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{Document: name, Content: buf.Content(), Version: buf.Version()}, true
}

// View returns the already-open view for name, if any.
func (w *Workspace) View(name string) (*View, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.views[name]
	return v, ok
}

// OpenView returns the open view for name, creating one when the document
// has a live buffer. Fails with ErrNotFound otherwise, or ErrDisposed when
// the buffer can no longer host a view.
func (w *Workspace) OpenView(name string) (*View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v, ok := w.views[name]; ok {
		return v, nil
	}
	buf, ok := w.buffers[name]
	if !ok {
		return nil, ErrNotFound
	}
	if buf.Disposed() {
		return nil, ErrDisposed
	}
	v := NewView(buf)
	w.views[name] = v
	return v, nil
}

// Views returns every open view.
func (w *Workspace) Views() []*View {
	w.mu.RLock()
	defer w.mu.RUnlock()
	views := make([]*View, 0, len(w.views))
	for _, v := range w.views {
		views = append(views, v)
	}
	return views
}

// Close disposes the named buffer and drops its view.
func (w *Workspace) Close(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if buf, ok := w.buffers[name]; ok {
		buf.Dispose()
		delete(w.buffers, name)
	}
	delete(w.views, name)
}

// Names returns every open document name.
func (w *Workspace) Names() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.buffers))
	for name := range w.buffers {
		names = append(names, name)
	}
	return names
}
