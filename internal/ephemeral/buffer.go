// Package ephemeral holds request-scoped byte buffers that are zeroed and
// dropped on release. A Tracker counts buffers that are still live so a
// request handler (or a test) can prove nothing outlived the request.
package ephemeral

import (
	"sync/atomic"
)

// Tracker counts live and total buffers. The zero value is ready to use.
type Tracker struct {
	live  atomic.Int64
	total atomic.Int64
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Live returns the number of buffers created but not yet released.
func (t *Tracker) Live() int64 {
	return t.live.Load()
}

// Total returns the number of buffers ever created.
func (t *Tracker) Total() int64 {
	return t.total.Load()
}

// Buffer owns a byte slice for the lifetime of one request.
type Buffer struct {
	data     []byte
	tracker  *Tracker
	released atomic.Bool
}

// Wrap takes ownership of data. The caller must not keep its own reference.
func (t *Tracker) Wrap(data []byte) *Buffer {
	t.live.Add(1)
	t.total.Add(1)
	return &Buffer{data: data, tracker: t}
}

// Bytes returns the owned slice, or nil once released.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.released.Load() {
		return nil
	}
	return b.data
}

func (b *Buffer) Len() int {
	return len(b.Bytes())
}

// Release zeroes the slice and drops it. Safe to call more than once and on nil.
// Only this slice is zeroed: copies the caller made before Wrap, such as the
// string a slice was converted from, are merely left unreachable.
func (b *Buffer) Release() {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return
	}
	clear(b.data)
	b.data = nil
	b.tracker.live.Add(-1)
}

func (b *Buffer) Released() bool {
	return b == nil || b.released.Load()
}
