package vm

// ---------------------------------------------------------------------------
// Accelerated functions
//
// A program may ask for a function address to be replaced by a native
// implementation of a well-known routine. Calls to a registered address
// skip the bytecode entirely and deliver the native result to the caller.
// ---------------------------------------------------------------------------

type accelFunc func(vm *VM, args []uint32) uint32

// accelParamCount is the number of accelparam slots.
const accelParamCount = 9

var accelFuncs = map[uint32]accelFunc{
	1: accelZRegion,
}

type accelTable struct {
	enabled bool
	funcs   map[uint32]accelFunc // function address -> native routine
	params  [accelParamCount]uint32
}

func newAccelTable() accelTable {
	return accelTable{enabled: true, funcs: make(map[uint32]accelFunc)}
}

// supported reports whether routine index has a native implementation.
func (t *accelTable) supported(index uint32) bool {
	_, ok := accelFuncs[index]
	return ok
}

// set registers or, for index 0 and unknown routines, removes addr.
func (t *accelTable) set(index, addr uint32) {
	fn, ok := accelFuncs[index]
	if !ok {
		delete(t.funcs, addr)
		return
	}
	t.funcs[addr] = fn
}

func (t *accelTable) setParam(index, val uint32) {
	if index < accelParamCount {
		t.params[index] = val
	}
}

func (t *accelTable) lookup(addr uint32) accelFunc {
	if !t.enabled || len(t.funcs) == 0 {
		return nil
	}
	return t.funcs[addr]
}

func arg(args []uint32, i int) uint32 {
	if i < len(args) {
		return args[i]
	}
	return 0
}

// accelZRegion classifies an address: 1 object, 2 function, 3 string,
// 0 anything else.
func accelZRegion(vm *VM, args []uint32) uint32 {
	addr := arg(args, 0)
	if addr < headerSize || addr >= uint32(len(vm.mem)) {
		return 0
	}
	tb := vm.mem[addr]
	switch {
	case tb >= 0xE0:
		return 3
	case tb >= 0xC0:
		return 2
	case tb >= 0x70 && tb <= 0x7F && addr >= vm.hdr.RAMStart:
		return 1
	}
	return 0
}
