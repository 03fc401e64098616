package vm

import "encoding/binary"

// ---------------------------------------------------------------------------
// Memory access
//
// The address space is a single byte slice: ROM below RAMSTART, RAM up to
// the current memory size, and the heap above the original ENDMEM once
// malloc has been used. All multi-byte values are big-endian.
// ---------------------------------------------------------------------------

func (vm *VM) checkRead(addr uint32, n uint32) {
	if uint64(addr)+uint64(n) > uint64(len(vm.mem)) {
		vm.fatal(ErrMemoryRange, "read of %d bytes at $%08X (memory size $%08X)", n, addr, len(vm.mem))
	}
}

func (vm *VM) checkWrite(addr uint32, n uint32) {
	if uint64(addr)+uint64(n) > uint64(len(vm.mem)) {
		vm.fatal(ErrMemoryRange, "write of %d bytes at $%08X (memory size $%08X)", n, addr, len(vm.mem))
	}
	if addr < vm.hdr.RAMStart {
		vm.fatal(ErrReadOnly, "address $%08X", addr)
	}
}

func (vm *VM) read8(addr uint32) uint32 {
	vm.checkRead(addr, 1)
	return uint32(vm.mem[addr])
}

func (vm *VM) read16(addr uint32) uint32 {
	vm.checkRead(addr, 2)
	return uint32(binary.BigEndian.Uint16(vm.mem[addr:]))
}

func (vm *VM) read32(addr uint32) uint32 {
	vm.checkRead(addr, 4)
	return binary.BigEndian.Uint32(vm.mem[addr:])
}

func (vm *VM) write8(addr uint32, v uint32) {
	vm.checkWrite(addr, 1)
	vm.mem[addr] = byte(v)
}

func (vm *VM) write16(addr uint32, v uint32) {
	vm.checkWrite(addr, 2)
	binary.BigEndian.PutUint16(vm.mem[addr:], uint16(v))
}

func (vm *VM) write32(addr uint32, v uint32) {
	vm.checkWrite(addr, 4)
	binary.BigEndian.PutUint32(vm.mem[addr:], v)
}

// readBytes copies n bytes out of memory.
func (vm *VM) readBytes(addr, n uint32) []byte {
	vm.checkRead(addr, n)
	out := make([]byte, n)
	copy(out, vm.mem[addr:])
	return out
}

// writeBytes copies buf into memory at addr.
func (vm *VM) writeBytes(addr uint32, buf []byte) {
	vm.checkWrite(addr, uint32(len(buf)))
	copy(vm.mem[addr:], buf)
}

// readWords copies n big-endian words out of memory.
func (vm *VM) readWords(addr, n uint32) []uint32 {
	vm.checkRead(addr, n*4)
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(vm.mem[addr+uint32(i)*4:])
	}
	return out
}

// writeWords copies words into memory at addr.
func (vm *VM) writeWords(addr uint32, words []uint32) {
	vm.checkWrite(addr, uint32(len(words))*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(vm.mem[addr+uint32(i)*4:], w)
	}
}

// readCString reads a zero-terminated Latin-1 string.
func (vm *VM) readCString(addr uint32) []byte {
	var out []byte
	for {
		ch := vm.read8(addr)
		if ch == 0 {
			return out
		}
		out = append(out, byte(ch))
		addr++
	}
}

// readUniString reads a zero-terminated array of code points.
func (vm *VM) readUniString(addr uint32) []uint32 {
	var out []uint32
	for {
		ch := vm.read32(addr)
		if ch == 0 {
			return out
		}
		out = append(out, ch)
		addr += 4
	}
}

// resizeMem grows or truncates the address space. New bytes are zero.
func (vm *VM) resizeMem(size uint32) {
	cur := uint32(len(vm.mem))
	switch {
	case size < cur:
		vm.mem = vm.mem[:size]
	case size > cur:
		if uint32(cap(vm.mem)) >= size {
			vm.mem = vm.mem[:size]
			clear(vm.mem[cur:])
		} else {
			grown := make([]byte, size)
			copy(grown, vm.mem)
			vm.mem = grown
		}
	}
}

// resetMem restores RAM to its initial contents and discards the heap.
func (vm *VM) resetMem() {
	vm.mem = make([]byte, vm.hdr.EndMem)
	copy(vm.mem, vm.rom)
	vm.heap.clear()
}
