package vm

// ---------------------------------------------------------------------------
// Value stack
//
// The stack is a slice of words. framePtr, localsBase and valueBase are
// word indices into it; the program only sees byte offsets (four per word).
// Pops never reach below valueBase.
// ---------------------------------------------------------------------------

func (vm *VM) push(v uint32) {
	if len(vm.stack) >= vm.stackLimit {
		vm.fatal(ErrStackOverflow, "stack limit %d words", vm.stackLimit)
	}
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() uint32 {
	n := uint32(len(vm.stack))
	if n <= vm.valueBase {
		vm.fatal(ErrStackUnderflow, "pop from empty frame")
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

// stackValues is the number of values above the current frame.
func (vm *VM) stackValues() uint32 {
	return uint32(len(vm.stack)) - vm.valueBase
}

func (vm *VM) need(n uint32) {
	if vm.stackValues() < n {
		vm.fatal(ErrStackUnderflow, "need %d values, have %d", n, vm.stackValues())
	}
}

// popArgs pops n call arguments; args[0] is the first value popped.
func (vm *VM) popArgs(n uint32) []uint32 {
	vm.need(n)
	args := make([]uint32, n)
	for i := range args {
		args[i] = vm.pop()
	}
	return args
}

func (vm *VM) stkpeek(pos uint32) uint32 {
	if pos >= vm.stackValues() {
		vm.fatal(ErrStackUnderflow, "stkpeek %d with %d values", pos, vm.stackValues())
	}
	return vm.stack[uint32(len(vm.stack))-1-pos]
}

func (vm *VM) stkswap() {
	vm.need(2)
	n := len(vm.stack)
	vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]
}

// stkroll rotates the top count values by shift positions toward the top.
func (vm *VM) stkroll(count uint32, shift int32) {
	if int32(count) < 0 {
		vm.fatal(ErrStackUnderflow, "stkroll count %d", int32(count))
	}
	if count == 0 {
		return
	}
	vm.need(count)
	s := int(shift % int32(count))
	if s < 0 {
		s += int(count)
	}
	if s == 0 {
		return
	}
	top := vm.stack[len(vm.stack)-int(count):]
	rolled := make([]uint32, count)
	for i, v := range top {
		rolled[(i+s)%int(count)] = v
	}
	copy(top, rolled)
}

func (vm *VM) stkcopy(count uint32) {
	if int32(count) < 0 {
		vm.fatal(ErrStackUnderflow, "stkcopy count %d", int32(count))
	}
	vm.need(count)
	start := len(vm.stack) - int(count)
	for i := 0; i < int(count); i++ {
		vm.push(vm.stack[start+i])
	}
}
