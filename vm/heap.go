package vm

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Heap allocator
//
// The heap occupies [start, memory size) once the first malloc happens. It
// is tiled by blocks kept in address order; allocation is first fit and
// freed neighbours are merged. When the last allocation is freed the
// address space shrinks back to where the heap began.
// ---------------------------------------------------------------------------

type heapBlock struct {
	addr uint32
	size uint32
	free bool
}

type heap struct {
	start  uint32 // zero when no heap is active
	blocks []heapBlock
}

func (h *heap) clear() {
	h.start = 0
	h.blocks = nil
}

func (h *heap) active() bool {
	return h.start != 0
}

// allocations lists the in-use blocks as address/length pairs.
func (h *heap) allocations() []uint32 {
	var out []uint32
	for _, b := range h.blocks {
		if !b.free {
			out = append(out, b.addr, b.size)
		}
	}
	return out
}

func roundUp256(n uint64) uint64 {
	return (n + 0xFF) &^ 0xFF
}

// malloc returns the address of a new zeroed block, or 0 on failure.
func (vm *VM) malloc(size uint32) uint32 {
	if int32(size) <= 0 {
		return 0
	}
	h := &vm.heap
	if !h.active() {
		h.start = uint32(len(vm.mem))
	}

	for i := range h.blocks {
		b := &h.blocks[i]
		if !b.free || b.size < size {
			continue
		}
		if b.size > size {
			rest := heapBlock{addr: b.addr + size, size: b.size - size, free: true}
			h.blocks = append(h.blocks, heapBlock{})
			copy(h.blocks[i+2:], h.blocks[i+1:])
			h.blocks[i+1] = rest
			b = &h.blocks[i]
		}
		b.size = size
		b.free = false
		clear(vm.mem[b.addr : b.addr+size])
		return b.addr
	}

	// Nothing fits: grow memory, absorbing a free block at the end.
	base := uint32(len(vm.mem))
	if n := len(h.blocks); n > 0 && h.blocks[n-1].free {
		base = h.blocks[n-1].addr
		h.blocks = h.blocks[:n-1]
	}
	newEnd := roundUp256(uint64(base) + uint64(size))
	if newEnd > 0xFFFFFF00 {
		if len(h.blocks) == 0 {
			h.clear()
		} else if base < uint32(len(vm.mem)) {
			h.blocks = append(h.blocks, heapBlock{addr: base, size: uint32(len(vm.mem)) - base, free: true})
		}
		return 0
	}
	vm.resizeMem(uint32(newEnd))
	clear(vm.mem[base : base+size])
	h.blocks = append(h.blocks, heapBlock{addr: base, size: size})
	if tail := uint32(newEnd) - (base + size); tail > 0 {
		h.blocks = append(h.blocks, heapBlock{addr: base + size, size: tail, free: true})
	}
	return base
}

// mfree releases a block returned by malloc.
func (vm *VM) mfree(addr uint32) {
	h := &vm.heap
	i := sort.Search(len(h.blocks), func(i int) bool { return h.blocks[i].addr >= addr })
	if i == len(h.blocks) || h.blocks[i].addr != addr || h.blocks[i].free {
		vm.fatal(ErrHeap, "mfree of $%08X, which is not an allocated block", addr)
	}
	h.blocks[i].free = true

	if i+1 < len(h.blocks) && h.blocks[i+1].free {
		h.blocks[i].size += h.blocks[i+1].size
		h.blocks = append(h.blocks[:i+1], h.blocks[i+2:]...)
	}
	if i > 0 && h.blocks[i-1].free {
		h.blocks[i-1].size += h.blocks[i].size
		h.blocks = append(h.blocks[:i], h.blocks[i+1:]...)
	}

	if len(h.blocks) == 1 && h.blocks[0].free {
		vm.resizeMem(h.start)
		h.clear()
	}
}

// heapLayout builds the block list of a heap running from start to end
// with the given address/length pairs in use. Blocks that overlap or fall
// outside the heap are rejected.
func heapLayout(start uint32, allocs []uint32, end uint32) ([]heapBlock, error) {
	if start == 0 {
		if len(allocs) > 0 {
			return nil, fmt.Errorf("%w: heap blocks without a heap", ErrSaveFormat)
		}
		return nil, nil
	}
	if start > end {
		return nil, fmt.Errorf("%w: heap start $%X past end of memory", ErrSaveFormat, start)
	}
	type span struct{ addr, size uint32 }
	spans := make([]span, 0, len(allocs)/2)
	for i := 0; i+1 < len(allocs); i += 2 {
		spans = append(spans, span{allocs[i], allocs[i+1]})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].addr < spans[j].addr })

	pos := start
	var blocks []heapBlock
	for _, s := range spans {
		if s.size == 0 || s.addr < pos || uint64(s.addr)+uint64(s.size) > uint64(end) {
			return nil, fmt.Errorf("%w: heap block $%08X+%d overlaps or lies outside the heap", ErrSaveFormat, s.addr, s.size)
		}
		if s.addr > pos {
			blocks = append(blocks, heapBlock{addr: pos, size: s.addr - pos, free: true})
		}
		blocks = append(blocks, heapBlock{addr: s.addr, size: s.size})
		pos = s.addr + s.size
	}
	if pos < end {
		blocks = append(blocks, heapBlock{addr: pos, size: end - pos, free: true})
	}
	return blocks, nil
}

// setMemSize implements setmemsize. It returns 0 on success.
func (vm *VM) setMemSize(size uint32) uint32 {
	if vm.heap.active() || size%256 != 0 || size < vm.hdr.EndMem {
		return 1
	}
	vm.resizeMem(size)
	return 0
}
