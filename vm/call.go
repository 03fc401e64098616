package vm

// ---------------------------------------------------------------------------
// Call frames
//
// A frame is laid out on the stack as:
//
//	[frame length][locals position][locals format, padded][locals][values]
//
// Lengths and positions are in bytes. Function type 0xC0 receives its
// arguments on the value stack topped by the count; type 0xC1 receives
// them in its locals.
// ---------------------------------------------------------------------------

const (
	funcStackArgs = 0xC0
	funcLocalArgs = 0xC1
)

// enterFunction builds a frame for the function at addr and moves pc to
// its first instruction.
func (vm *VM) enterFunction(addr uint32, args []uint32) {
	vm.tick()

	if fn := vm.accel.lookup(addr); fn != nil {
		vm.popCallstub(fn(vm, args))
		return
	}

	typ := vm.read8(addr)
	if typ != funcStackArgs && typ != funcLocalArgs {
		vm.fatal(ErrNotFunction, "type byte $%02X at $%08X", typ, addr)
	}
	if vm.profiler != nil {
		vm.profiler.RecordCall(addr)
	}

	// Locals format: (type, count) byte pairs ending with a zero type.
	p := addr + 1
	var format []byte
	var nlocals uint32
	for {
		lt, lc := vm.read8(p), vm.read8(p+1)
		p += 2
		format = append(format, byte(lt), byte(lc))
		if lt == 0 {
			break
		}
		if lt != 4 {
			vm.fatal(ErrUnsupportedLocals, "local type %d in function $%08X", lt, addr)
		}
		nlocals += lc
	}
	for len(format)%4 != 0 {
		format = append(format, 0)
	}

	fp := uint32(len(vm.stack))
	localsPos := 8 + uint32(len(format))
	frameLen := localsPos + 4*nlocals
	if int(fp+frameLen/4) > vm.stackLimit {
		vm.fatal(ErrStackOverflow, "frame of %d bytes for $%08X", frameLen, addr)
	}

	vm.stack = append(vm.stack, frameLen, localsPos)
	for i := 0; i < len(format); i += 4 {
		vm.stack = append(vm.stack, uint32(format[i])<<24|uint32(format[i+1])<<16|uint32(format[i+2])<<8|uint32(format[i+3]))
	}
	for i := uint32(0); i < nlocals; i++ {
		vm.stack = append(vm.stack, 0)
	}
	vm.setFrame(fp)
	vm.pc = p

	if typ == funcStackArgs {
		for i := len(args) - 1; i >= 0; i-- {
			vm.push(args[i])
		}
		vm.push(uint32(len(args)))
		return
	}
	for i := 0; i < len(args) && uint32(i) < nlocals; i++ {
		vm.stack[vm.localsBase+uint32(i)] = args[i]
	}
}

// setFrame makes the frame at word index fp current.
func (vm *VM) setFrame(fp uint32) {
	if uint64(fp)+2 > uint64(len(vm.stack)) {
		vm.fatal(ErrStackUnderflow, "frame pointer %d beyond stack", fp*4)
	}
	frameLen, localsPos := vm.stack[fp], vm.stack[fp+1]
	vm.framePtr = fp
	vm.localsBase = fp + localsPos/4
	vm.valueBase = fp + frameLen/4
	if uint64(vm.valueBase) > uint64(len(vm.stack)) || vm.localsBase > vm.valueBase {
		vm.fatal(ErrStackUnderflow, "corrupt frame at %d", fp*4)
	}
}

// leaveFunction discards the current frame.
func (vm *VM) leaveFunction() {
	vm.stack = vm.stack[:vm.framePtr]
}

// ---------------------------------------------------------------------------
// Call stubs
// ---------------------------------------------------------------------------

func (vm *VM) pushCallstub(kind, addr uint32) {
	vm.push(kind)
	vm.push(addr)
	vm.push(vm.pc)
	vm.push(vm.framePtr * 4)
}

// popCallstub unwinds to the most recent call stub and delivers val to its
// destination. With no stub left the program has returned from its
// outermost function and the machine halts.
func (vm *VM) popCallstub(val uint32) {
	n := len(vm.stack)
	if n == 0 {
		vm.halt(nil)
		return
	}
	if n < 4 {
		vm.fatal(ErrStackUnderflow, "call stub needs 4 words, have %d", n)
	}
	fp, pc, addr, kind := vm.stack[n-1], vm.stack[n-2], vm.stack[n-3], vm.stack[n-4]
	vm.stack = vm.stack[:n-4]
	vm.pc = pc
	vm.setFrame(fp / 4)

	switch kind {
	case destResumeCompressed:
		vm.streamString(pc, 0xE1, addr)
	case destResumeNumber:
		vm.streamNum(pc, true, addr)
	case destResumeCString:
		vm.streamString(pc, 0xE0, 0)
	case destResumeUnicode:
		vm.streamString(pc, 0xE2, 0)
	case destStringEnd:
		vm.fatal(ErrBadDestType, "string terminator reached by function return")
	default:
		vm.store(dest{kind: kind, addr: addr, width: 4}, val)
	}
}

// popCallstubString pops the stub pushed on entry to a nested string. It
// restores pc but leaves the frame alone.
func (vm *VM) popCallstubString() (kind, addr uint32) {
	vm.need(4)
	n := len(vm.stack)
	kind, addr, vm.pc = vm.stack[n-4], vm.stack[n-3], vm.stack[n-2]
	vm.stack = vm.stack[:n-4]
	return kind, addr
}

// ---------------------------------------------------------------------------
// Control transfer
// ---------------------------------------------------------------------------

// call pushes a stub for d and enters addr.
func (vm *VM) call(addr uint32, args []uint32, d dest) {
	vm.pushCallstub(d.kind, d.addr)
	vm.enterFunction(addr, args)
}

func (vm *VM) tailcall(addr uint32, args []uint32) {
	vm.leaveFunction()
	vm.enterFunction(addr, args)
}

func (vm *VM) ret(val uint32) {
	vm.leaveFunction()
	vm.popCallstub(val)
}

// branch applies a branch offset: 0 and 1 return that value from the
// current function, anything else is relative to the end of the
// instruction.
func (vm *VM) branch(off uint32) {
	vm.tick()
	if off == 0 || off == 1 {
		vm.ret(off)
		return
	}
	vm.pc += off - 2
}

// catch stores a token identifying the current stack position and branches.
func (vm *VM) catch(d dest, off uint32) {
	vm.pushCallstub(d.kind, d.addr)
	token := uint32(len(vm.stack)) * 4
	vm.store(d, token)
	vm.branch(off)
}

// throw unwinds to the stub recorded by catch and delivers val there.
func (vm *VM) throw(val, token uint32) {
	if token%4 != 0 || token/4 > uint32(len(vm.stack)) || token/4 < 4 {
		vm.fatal(ErrStackUnderflow, "invalid catch token %d", token)
	}
	vm.stack = vm.stack[:token/4]
	vm.popCallstub(val)
}
