package document

import (
	"sync"

	"github.com/codestream-ai/codestream/pkg/types"
)

// Decoration is one visual range marker with an optional styling class.
type Decoration struct {
	Range types.Range
	Style string
}

// View is an editor view onto one buffer: a selection, a revealed position,
// and named decoration sets.
type View struct {
	mu          sync.Mutex
	buf         *Buffer
	selection   types.Range
	revealed    types.Position
	decorations map[string][]Decoration
}

// NewView creates a view for buf.
func NewView(buf *Buffer) *View {
	return &View{
		buf:         buf,
		decorations: make(map[string][]Decoration),
	}
}

// Buffer returns the underlying buffer.
func (v *View) Buffer() *Buffer {
	return v.buf
}

// SetSelection moves the selection.
func (v *View) SetSelection(r types.Range) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selection = r
}

// Selection returns the current selection.
func (v *View) Selection() types.Range {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selection
}

// Reveal scrolls the view so p is visible.
func (v *View) Reveal(p types.Position) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.revealed = p
}

// Revealed returns the last revealed position.
func (v *View) Revealed() types.Position {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.revealed
}

// SetDecorationSet replaces the named decoration set.
func (v *View) SetDecorationSet(id string, decorations []Decoration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.decorations[id] = decorations
}

// DecorationSet returns the named decoration set.
func (v *View) DecorationSet(id string) []Decoration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Decoration(nil), v.decorations[id]...)
}

// ClearDecorationSet removes the named decoration set.
func (v *View) ClearDecorationSet(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.decorations, id)
}
