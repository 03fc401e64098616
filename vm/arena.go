package vm

import "github.com/chazu/glulx/glk"

// ---------------------------------------------------------------------------
// Retained buffers
//
// Memory streams and line input hand the capability a buffer that it fills
// later. The arena keeps each buffer under an integer handle together with
// the VM address it mirrors, and copies it back into memory when the
// stream closes or the line request completes.
// ---------------------------------------------------------------------------

type retained struct {
	buf  *glk.Buffer
	addr uint32
}

type arena struct {
	next    uint32
	entries map[uint32]*retained
	streams map[glk.StreamID]uint32 // memory stream -> handle
	lines   map[glk.WindowID]uint32 // pending line request -> handle
}

func newArena() *arena {
	return &arena{
		entries: make(map[uint32]*retained),
		streams: make(map[glk.StreamID]uint32),
		lines:   make(map[glk.WindowID]uint32),
	}
}

func (a *arena) retain(addr uint32, buf *glk.Buffer) uint32 {
	a.next++
	buf.Handle = a.next
	a.entries[a.next] = &retained{buf: buf, addr: addr}
	return a.next
}

func (a *arena) release(handle uint32) *retained {
	r := a.entries[handle]
	delete(a.entries, handle)
	return r
}

// copyBack writes a retained buffer back to VM memory and forgets it.
func (vm *VM) copyBack(handle uint32) {
	r := vm.arena.release(handle)
	if r == nil {
		return
	}
	if r.buf.Runes != nil {
		vm.writeWords(r.addr, r.buf.Runes)
	} else if r.buf.Bytes != nil {
		vm.writeBytes(r.addr, r.buf.Bytes)
	}
}

// retainBuffer copies n bytes (or n code points when unicode) out of
// memory at addr into a buffer owned by the arena.
func (vm *VM) retainBuffer(addr, n uint32, unicode bool) *glk.Buffer {
	buf := &glk.Buffer{}
	if addr == 0 {
		return buf
	}
	if unicode {
		buf.Runes = vm.readWords(addr, n)
	} else {
		buf.Bytes = vm.readBytes(addr, n)
	}
	vm.arena.retain(addr, buf)
	return buf
}

// completeLine copies back the buffer of win's line request, if any.
func (vm *VM) completeLine(win glk.WindowID) {
	if h, ok := vm.arena.lines[win]; ok {
		delete(vm.arena.lines, win)
		vm.copyBack(h)
	}
}

// closeMemoryStream copies back str's buffer if it is a memory stream.
func (vm *VM) closeMemoryStream(str glk.StreamID) {
	if h, ok := vm.arena.streams[str]; ok {
		delete(vm.arena.streams, str)
		vm.copyBack(h)
	}
}
