// Package pool is the heap the bootstrap installs: every block comes from the
// firmware's AllocatePool and goes back through FreePool.
package pool

import (
	"errors"
	"fmt"
	"unsafe"

	"efiboot/src/uefi"
)

// PoolAlign is the alignment the firmware guarantees for pool memory.
const PoolAlign = 8

var (
	ErrDisabled     = errors.New("pool: boot services are no longer available")
	ErrNotFromPool  = errors.New("pool: buffer was not allocated from this pool")
	ErrBadAlignment = errors.New("pool: alignment must be a power of two")
	ErrBadSize      = errors.New("pool: size must be positive")
)

type block struct {
	raw  []byte // what AllocatePool returned
	size int
}

// Stats is a snapshot of allocator activity.
type Stats struct {
	Allocs    int
	Frees     int
	LiveBytes int
	PeakBytes int
}

// Allocator hands out firmware pool memory.  It is not safe for concurrent
// use; the firmware environment has one thread of control.
type Allocator struct {
	bs       uefi.BootServices
	memType  uefi.MemoryType
	live     map[uintptr]block
	disabled bool
	stats    Stats
}

// New returns an allocator drawing LoaderData pool memory from bs.
func New(bs uefi.BootServices) *Allocator {
	return NewWithType(bs, uefi.LoaderData)
}

func NewWithType(bs uefi.BootServices, memType uefi.MemoryType) *Allocator {
	return &Allocator{bs: bs, memType: memType, live: make(map[uintptr]block)}
}

// Alloc returns size bytes with the firmware's natural alignment.
func (a *Allocator) Alloc(size int) ([]byte, error) {
	return a.AllocAligned(size, PoolAlign)
}

// AllocAligned returns size bytes starting on an align boundary.  The pool
// only promises PoolAlign, so larger alignments over-allocate by align
// bytes and hand out an aligned window of the block.
func (a *Allocator) AllocAligned(size, align int) ([]byte, error) {
	if a.disabled {
		return nil, ErrDisabled
	}
	if size <= 0 {
		return nil, ErrBadSize
	}
	if align <= 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadAlignment, align)
	}
	n := size
	if align > PoolAlign {
		n += align
	}
	raw, st := a.bs.AllocatePool(a.memType, uint(n))
	if st.IsError() {
		return nil, st.OpErr("AllocatePool")
	}
	if len(raw) < n {
		return nil, fmt.Errorf("pool: firmware returned %d bytes, asked for %d", len(raw), n)
	}
	off := 0
	if align > PoolAlign {
		base := addr(raw)
		off = int((base+uintptr(align)-1)&^(uintptr(align)-1) - base)
	}
	b := raw[off : off+size : off+size]
	a.live[addr(b)] = block{raw: raw, size: size}

	a.stats.Allocs++
	a.stats.LiveBytes += size
	if a.stats.LiveBytes > a.stats.PeakBytes {
		a.stats.PeakBytes = a.stats.LiveBytes
	}
	return b, nil
}

// Free returns b, which must be a slice returned by Alloc or AllocAligned
// (its length may have been changed, its start may not).
func (a *Allocator) Free(b []byte) error {
	if cap(b) == 0 {
		return ErrNotFromPool
	}
	k := addr(b)
	blk, ok := a.live[k]
	if !ok {
		return ErrNotFromPool
	}
	delete(a.live, k)
	a.stats.Frees++
	a.stats.LiveBytes -= blk.size
	if a.disabled {
		// the memory is the OS's now, there is nobody to give it back to
		return ErrDisabled
	}
	if st := a.bs.FreePool(blk.raw); st.IsError() {
		return st.OpErr("FreePool")
	}
	return nil
}

// Live is the number of outstanding blocks.
func (a *Allocator) Live() int {
	return len(a.live)
}

func (a *Allocator) Stats() Stats {
	return a.stats
}

// Disable makes every later Alloc fail; called when boot services go away.
func (a *Allocator) Disable() {
	a.disabled = true
}

func (a *Allocator) Disabled() bool {
	return a.disabled
}

func addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b[:cap(b)])))
}
