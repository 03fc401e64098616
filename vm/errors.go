package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Load-time errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidMagic     = errors.New("invalid magic number: expected Glul")
	ErrVersionMismatch  = errors.New("unsupported Glulx version")
	ErrCorruptHeader    = errors.New("corrupt image header")
	ErrChecksum         = errors.New("image checksum mismatch")
	ErrBadStartFunction = errors.New("start function is not a function")
)

// ---------------------------------------------------------------------------
// Save-data errors
// ---------------------------------------------------------------------------

var (
	ErrSaveFormat   = errors.New("malformed save data")
	ErrSaveMismatch = errors.New("save data belongs to a different game")
	ErrNoUndo       = errors.New("no undo state available")
)

// ---------------------------------------------------------------------------
// Runtime faults
// ---------------------------------------------------------------------------

var (
	ErrMemoryRange       = errors.New("memory access out of range")
	ErrReadOnly          = errors.New("memory write to read-only address")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrStackOverflow     = errors.New("stack overflow")
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrBadAddressingMode = errors.New("invalid addressing mode")
	ErrNotFunction       = errors.New("call to non-function")
	ErrUnsupportedLocals = errors.New("unsupported locals format")
	ErrBadDestType       = errors.New("invalid call stub destination type")
	ErrSearchKeySize     = errors.New("invalid search key size")
	ErrDivideByZero      = errors.New("division by zero")
	ErrHeap              = errors.New("heap error")
	ErrStringDecode      = errors.New("string decoding error")
	ErrDebugTrap         = errors.New("user debugtrap encountered")
	ErrInterrupted       = errors.New("execution interrupted")
)

// Fault is an unrecoverable runtime error. It ends the current run; the
// program cannot catch it.
type Fault struct {
	PC     uint32 // address of the faulting instruction
	Opcode Opcode // opcode being executed, if decoding got that far
	Err    error  // one of the Err* runtime sentinels
	Detail string // condition-specific detail
	Instr  string // disassembly of the faulting instruction, when available
}

func (f *Fault) Error() string {
	msg := "glulx: " + f.Err.Error()
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	msg += fmt.Sprintf(" at $%08X", f.PC)
	if f.Instr != "" {
		msg += " (" + f.Instr + ")"
	}
	return msg
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// fatal aborts the current instruction. The panic is recovered by Run.
func (vm *VM) fatal(err error, format string, args ...interface{}) {
	panic(&Fault{
		PC:     vm.instrPC,
		Opcode: vm.opcode,
		Err:    err,
		Detail: fmt.Sprintf(format, args...),
	})
}
