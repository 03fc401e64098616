package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/glulx/glk"
)

// InterpreterVersion is reported by gestalt selector 1.
const InterpreterVersion = 0x00000100

// ErrNoImage is returned by Run before an image has been loaded.
var ErrNoImage = errors.New("no game image loaded")

// ---------------------------------------------------------------------------
// VM: The Glulx virtual machine
// ---------------------------------------------------------------------------

// VM is a single Glulx machine. It is not safe for concurrent use; Run
// drives it from the calling goroutine until the program quits, faults or
// the context is cancelled.
type VM struct {
	glk glk.Capability
	log commonlog.Logger

	// Image
	hdr    Header
	rom    []byte // first EXTSTART bytes of the image
	loaded bool

	// Memory
	mem                      []byte
	heap                     heap
	protectStart, protectEnd uint32

	// Registers
	pc      uint32
	instrPC uint32 // start of the instruction being executed
	opcode  Opcode

	// Stack, in words
	stack      []uint32
	stackLimit int
	framePtr   uint32
	localsBase uint32
	valueBase  uint32

	// Output
	stringTable uint32
	iosysMode   uint32
	iosysRock   uint32

	undo  undoRing
	accel accelTable
	rng   random

	// Capability marshalling
	arena     *arena
	glkWarned map[uint32]bool

	// Run state
	started bool
	halted  bool
	exitErr error
	ctx     context.Context

	// Options
	trace         bool
	stackOverride int
	profiler      *Profiler
}

// NewVM creates a machine that performs I/O through capability. A nil
// capability is replaced with glk.Unsupported.
func NewVM(capability glk.Capability) *VM {
	if capability == nil {
		capability = glk.Unsupported{}
	}
	vm := &VM{
		glk:       capability,
		log:       commonlog.GetLogger("glulx.vm"),
		arena:     newArena(),
		glkWarned: make(map[uint32]bool),
		accel:     newAccelTable(),
	}
	vm.rng.seed(0)
	return vm
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// SetAccelEnabled turns native function acceleration on or off. With it
// off, accelfunc registrations are accepted but never used.
func (vm *VM) SetAccelEnabled(on bool) {
	vm.accel.enabled = on
}

// SetTrace logs every executed instruction at debug level.
func (vm *VM) SetTrace(on bool) {
	vm.trace = on
}

// SetStackLimit overrides the header's stack size, in words. Zero restores
// the header value.
func (vm *VM) SetStackLimit(words int) {
	vm.stackOverride = words
	vm.applyStackLimit()
}

// SeedRandom seeds the random number generator. Zero seeds from the clock.
func (vm *VM) SeedRandom(seed uint32) {
	vm.rng.seed(seed)
}

// EnableProfiler starts counting function calls and opcodes.
func (vm *VM) EnableProfiler() *Profiler {
	if vm.profiler == nil {
		vm.profiler = NewProfiler()
	}
	return vm.profiler
}

// Profiler returns the active profiler, or nil.
func (vm *VM) Profiler() *Profiler {
	return vm.profiler
}

func (vm *VM) applyStackLimit() {
	vm.stackLimit = int(vm.hdr.StackSize / 4)
	if vm.stackOverride > 0 {
		vm.stackLimit = vm.stackOverride
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Header returns the loaded image's header.
func (vm *VM) Header() Header {
	return vm.hdr
}

// MemorySize returns the current size of the address space.
func (vm *VM) MemorySize() uint32 {
	return uint32(len(vm.mem))
}

// Halted reports whether the program has finished.
func (vm *VM) Halted() bool {
	return vm.halted
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Run executes the program until it quits, returns from its start
// function, faults, or ctx is cancelled. A runtime fault is returned as a
// *Fault.
func (vm *VM) Run(ctx context.Context) (err error) {
	if !vm.loaded {
		return ErrNoImage
	}
	vm.ctx = ctx

	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			if f.Instr == "" {
				f.Instr = vm.safeDisassemble(f.PC)
			}
			vm.halted = true
			vm.log.Errorf("%s", f)
			err = f
		}
	}()

	if !vm.started {
		vm.started = true
		vm.restart()
	}
	for !vm.halted {
		vm.step()
	}
	return vm.exitErr
}

// halt stops the machine. err is returned from Run.
func (vm *VM) halt(err error) {
	vm.halted = true
	vm.exitErr = err
}

// tick is called on every function entry and taken branch.
func (vm *VM) tick() {
	vm.glk.Tick()
	if vm.ctx == nil {
		return
	}
	select {
	case <-vm.ctx.Done():
		vm.fatal(ErrInterrupted, "%v", context.Cause(vm.ctx))
	default:
	}
}

// restart resets memory, the stack and the output system, then enters the
// start function. The protected range keeps its contents.
func (vm *VM) restart() {
	restore := vm.preserveProtected()
	vm.resetMem()
	restore()

	vm.applyStackLimit()
	vm.stack = vm.stack[:0]
	vm.framePtr, vm.localsBase, vm.valueBase = 0, 0, 0
	vm.stringTable = vm.hdr.StringTable
	vm.iosysMode, vm.iosysRock = IOSysNull, 0
	vm.halted = false
	vm.exitErr = nil
	vm.pc = 0
	vm.enterFunction(vm.hdr.StartFunc, nil)
}

// preserveProtected captures the protected range and returns a function
// that writes it back.
func (vm *VM) preserveProtected() func() {
	start, end := vm.protectStart, vm.protectEnd
	if end > uint32(len(vm.mem)) {
		end = uint32(len(vm.mem))
	}
	if start >= end {
		return func() {}
	}
	saved := append([]byte(nil), vm.mem[start:end]...)
	return func() {
		if start < uint32(len(vm.mem)) {
			copy(vm.mem[start:], saved)
		}
	}
}

func (vm *VM) safeDisassemble(addr uint32) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	s, _ = vm.disassembleAt(addr)
	return s
}

func (vm *VM) String() string {
	return fmt.Sprintf("glulx vm (pc $%08X, stack %d words, mem $%08X)", vm.pc, len(vm.stack), len(vm.mem))
}
