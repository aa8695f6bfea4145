package edit

import (
	"sync"

	"github.com/codestream-ai/codestream/internal/document"
)

// BufferPair tracks one edited document: the immutable snapshot taken at
// first contact, the live buffer being mutated, the live buffer's version at
// pair creation, and the optional version of the last accepted state.
type BufferPair struct {
	Original       document.Snapshot
	Live           *document.Buffer
	CreatedVersion int64

	mu        sync.Mutex
	confirmed *int64
}

// NewBufferPair pairs a snapshot with its live buffer. The snapshot and the
// buffer must hold the same content at call time.
func NewBufferPair(original document.Snapshot, live *document.Buffer) *BufferPair {
	return &BufferPair{
		Original:       original,
		Live:           live,
		CreatedVersion: original.Version,
	}
}

// Confirm records version as the accepted checkpoint. A later reject rewinds
// here instead of to the creation version.
func (p *BufferPair) Confirm(version int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = &version
}

// RewindTarget returns the version a reject should rewind to.
func (p *BufferPair) RewindTarget() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.confirmed != nil {
		return *p.confirmed
	}
	return p.CreatedVersion
}
