package vm

// ---------------------------------------------------------------------------
// Destinations
//
// A store operand decodes to a destination that is written only after the
// instruction has computed its results. Call stubs record the same
// destination kinds, plus the string resume codes.
// ---------------------------------------------------------------------------

const (
	destDiscard = 0x00
	destMemory  = 0x01
	destLocal   = 0x02
	destStack   = 0x03

	destResumeCompressed = 0x10 // addr is the bit number within the current byte
	destStringEnd        = 0x11
	destResumeNumber     = 0x12 // addr is the index of the next digit
	destResumeCString    = 0x13
	destResumeUnicode    = 0x14
)

type dest struct {
	kind  uint32
	addr  uint32 // memory address or local byte offset
	width uint32 // bytes written to memory
}

// instruction holds the decoded operands of the instruction in flight.
type instruction struct {
	op      Opcode
	loads   [8]uint32
	stores  [2]dest
	nloads  int
	nstores int
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// readOpcode decodes the variable-length opcode number at pc.
func (vm *VM) readOpcode() Opcode {
	b := vm.read8(vm.pc)
	switch {
	case b < 0x80:
		vm.pc++
		return Opcode(b)
	case b < 0xC0:
		op := vm.read16(vm.pc) & 0x7FFF
		vm.pc += 2
		return Opcode(op)
	default:
		op := vm.read32(vm.pc) & 0x3FFFFFFF
		vm.pc += 4
		return Opcode(op)
	}
}

// decodeOperands reads the mode nibbles and operand data for sig. Loads are
// performed immediately, left to right, so stack pops happen in operand
// order.
func (vm *VM) decodeOperands(in *instruction, sig string) {
	width := in.op.operandWidth()
	modes := vm.pc
	vm.pc += uint32(len(sig)+1) / 2
	for i := 0; i < len(sig); i++ {
		b := vm.read8(modes + uint32(i/2))
		mode := b & 0x0F
		if i%2 == 1 {
			mode = b >> 4
		}
		if sig[i] == 'L' {
			in.loads[in.nloads] = vm.loadOperand(mode, width)
			in.nloads++
		} else {
			in.stores[in.nstores] = vm.storeOperand(mode, width)
			in.nstores++
		}
	}
}

// operandData reads an unsigned immediate of the size implied by mode.
func (vm *VM) operandData(mode uint32) uint32 {
	var v uint32
	switch mode & 3 {
	case 1:
		v = vm.read8(vm.pc)
		vm.pc++
	case 2:
		v = vm.read16(vm.pc)
		vm.pc += 2
	case 3:
		v = vm.read32(vm.pc)
		vm.pc += 4
	}
	return v
}

func widthMask(width uint32) uint32 {
	switch width {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	}
	return 0xFFFFFFFF
}

func (vm *VM) loadOperand(mode, width uint32) uint32 {
	switch mode {
	case 0x0:
		return 0
	case 0x1:
		return uint32(int32(int8(vm.operandData(mode)))) & widthMask(width)
	case 0x2:
		return uint32(int32(int16(vm.operandData(mode)))) & widthMask(width)
	case 0x3:
		return vm.operandData(mode) & widthMask(width)
	case 0x5, 0x6, 0x7:
		return vm.readWidth(vm.operandData(mode), width)
	case 0x8:
		return vm.pop() & widthMask(width)
	case 0x9, 0xA, 0xB:
		off := vm.operandData(mode)
		if width != 4 {
			vm.fatal(ErrBadAddressingMode, "local operand in %d-byte instruction", width)
		}
		return vm.stack[vm.localIndex(off)]
	case 0xD, 0xE, 0xF:
		return vm.readWidth(vm.hdr.RAMStart+vm.operandData(mode), width)
	}
	vm.fatal(ErrBadAddressingMode, "load mode %X", mode)
	return 0
}

func (vm *VM) storeOperand(mode, width uint32) dest {
	switch mode {
	case 0x0:
		return dest{kind: destDiscard}
	case 0x5, 0x6, 0x7:
		return dest{kind: destMemory, addr: vm.operandData(mode), width: width}
	case 0x8:
		return dest{kind: destStack, width: width}
	case 0x9, 0xA, 0xB:
		off := vm.operandData(mode)
		if width != 4 {
			vm.fatal(ErrBadAddressingMode, "local operand in %d-byte instruction", width)
		}
		vm.localIndex(off)
		return dest{kind: destLocal, addr: off, width: width}
	case 0xD, 0xE, 0xF:
		return dest{kind: destMemory, addr: vm.hdr.RAMStart + vm.operandData(mode), width: width}
	}
	vm.fatal(ErrBadAddressingMode, "store mode %X", mode)
	return dest{}
}

func (vm *VM) readWidth(addr, width uint32) uint32 {
	switch width {
	case 1:
		return vm.read8(addr)
	case 2:
		return vm.read16(addr)
	}
	return vm.read32(addr)
}

// localIndex converts a local byte offset into a stack index.
func (vm *VM) localIndex(off uint32) uint32 {
	if off%4 != 0 {
		vm.fatal(ErrBadAddressingMode, "unaligned local offset %d", off)
	}
	idx := uint64(vm.localsBase) + uint64(off/4)
	if idx >= uint64(vm.valueBase) {
		vm.fatal(ErrMemoryRange, "local offset %d beyond locals", off)
	}
	return uint32(idx)
}

// ---------------------------------------------------------------------------
// Storing
// ---------------------------------------------------------------------------

// store writes v to d.
func (vm *VM) store(d dest, v uint32) {
	switch d.kind {
	case destDiscard:
	case destMemory:
		switch d.width {
		case 1:
			vm.write8(d.addr, v)
		case 2:
			vm.write16(d.addr, v)
		default:
			vm.write32(d.addr, v)
		}
	case destLocal:
		vm.stack[vm.localIndex(d.addr)] = v
	case destStack:
		vm.push(v & widthMask(d.width))
	default:
		vm.fatal(ErrBadDestType, "destination type %d", d.kind)
	}
}

// storeResult writes v to the instruction's i'th store operand.
func (vm *VM) storeResult(in *instruction, i int, v uint32) {
	vm.store(in.stores[i], v)
}
