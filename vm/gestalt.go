package vm

// Gestalt selectors.
const (
	GestaltGlulxVersion = 0
	GestaltTerpVersion  = 1
	GestaltResizeMem    = 2
	GestaltUndo         = 3
	GestaltIOSystem     = 4
	GestaltUnicode      = 5
	GestaltMemCopy      = 6
	GestaltMAlloc       = 7
	GestaltMAllocHeap   = 8
	GestaltAcceleration = 9
	GestaltAccelFunc    = 10
	GestaltFloat        = 11
	GestaltExtUndo      = 12
	GestaltDoubleFloat  = 13
)

// GlulxVersion is the Glulx format version this machine implements.
const GlulxVersion = 0x00030103

func (vm *VM) gestalt(sel, arg uint32) uint32 {
	switch sel {
	case GestaltGlulxVersion:
		return GlulxVersion
	case GestaltTerpVersion:
		return InterpreterVersion
	case GestaltResizeMem, GestaltUndo, GestaltUnicode, GestaltMemCopy,
		GestaltMAlloc, GestaltAcceleration, GestaltFloat, GestaltExtUndo:
		return 1
	case GestaltIOSystem:
		if arg <= IOSysGlk {
			return 1
		}
	case GestaltMAllocHeap:
		return vm.heap.start
	case GestaltAccelFunc:
		if vm.accel.supported(arg) {
			return 1
		}
	}
	return 0
}
