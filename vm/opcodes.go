package vm

import (
	"fmt"
	"sort"
)

// Opcode is a decoded instruction number.
type Opcode uint32

const (
	// ========================================================================
	// Integer arithmetic and bitwise (0x00-0x1F)
	// ========================================================================

	OpNop     Opcode = 0x00
	OpAdd     Opcode = 0x10
	OpSub     Opcode = 0x11
	OpMul     Opcode = 0x12
	OpDiv     Opcode = 0x13
	OpMod     Opcode = 0x14
	OpNeg     Opcode = 0x15
	OpBitAnd  Opcode = 0x18
	OpBitOr   Opcode = 0x19
	OpBitXor  Opcode = 0x1A
	OpBitNot  Opcode = 0x1B
	OpShiftL  Opcode = 0x1C
	OpSShiftR Opcode = 0x1D
	OpUShiftR Opcode = 0x1E

	// ========================================================================
	// Branches (0x20-0x2F)
	// ========================================================================

	OpJump Opcode = 0x20
	OpJz   Opcode = 0x22
	OpJnz  Opcode = 0x23
	OpJeq  Opcode = 0x24
	OpJne  Opcode = 0x25
	OpJlt  Opcode = 0x26
	OpJge  Opcode = 0x27
	OpJgt  Opcode = 0x28
	OpJle  Opcode = 0x29
	OpJltu Opcode = 0x2A
	OpJgeu Opcode = 0x2B
	OpJgtu Opcode = 0x2C
	OpJleu Opcode = 0x2D

	// ========================================================================
	// Calls and non-local control (0x30-0x3F)
	// ========================================================================

	OpCall     Opcode = 0x30
	OpReturn   Opcode = 0x31
	OpCatch    Opcode = 0x32
	OpThrow    Opcode = 0x33
	OpTailcall Opcode = 0x34

	// ========================================================================
	// Moves and array access (0x40-0x4F)
	// ========================================================================

	OpCopy      Opcode = 0x40
	OpCopys     Opcode = 0x41
	OpCopyb     Opcode = 0x42
	OpSexs      Opcode = 0x44
	OpSexb      Opcode = 0x45
	OpAload     Opcode = 0x48
	OpAloads    Opcode = 0x49
	OpAloadb    Opcode = 0x4A
	OpAloadbit  Opcode = 0x4B
	OpAstore    Opcode = 0x4C
	OpAstores   Opcode = 0x4D
	OpAstoreb   Opcode = 0x4E
	OpAstorebit Opcode = 0x4F

	// ========================================================================
	// Stack (0x50-0x5F)
	// ========================================================================

	OpStkcount Opcode = 0x50
	OpStkpeek  Opcode = 0x51
	OpStkswap  Opcode = 0x52
	OpStkroll  Opcode = 0x53
	OpStkcopy  Opcode = 0x54

	// ========================================================================
	// Output (0x70-0x7F)
	// ========================================================================

	OpStreamchar    Opcode = 0x70
	OpStreamnum     Opcode = 0x71
	OpStreamstr     Opcode = 0x72
	OpStreamunichar Opcode = 0x73

	// ========================================================================
	// System (0x100-0x14F)
	// ========================================================================

	OpGestalt      Opcode = 0x100
	OpDebugtrap    Opcode = 0x101
	OpGetmemsize   Opcode = 0x102
	OpSetmemsize   Opcode = 0x103
	OpJumpabs      Opcode = 0x104
	OpRandom       Opcode = 0x110
	OpSetrandom    Opcode = 0x111
	OpQuit         Opcode = 0x120
	OpVerify       Opcode = 0x121
	OpRestart      Opcode = 0x122
	OpSave         Opcode = 0x123
	OpRestore      Opcode = 0x124
	OpSaveundo     Opcode = 0x125
	OpRestoreundo  Opcode = 0x126
	OpProtect      Opcode = 0x127
	OpHasundo      Opcode = 0x128
	OpDiscardundo  Opcode = 0x129
	OpGlk          Opcode = 0x130
	OpGetstringtbl Opcode = 0x140
	OpSetstringtbl Opcode = 0x141
	OpGetiosys     Opcode = 0x148
	OpSetiosys     Opcode = 0x149

	// ========================================================================
	// Search, function calls, memory blocks, heap, acceleration (0x150-0x18F)
	// ========================================================================

	OpLinearsearch Opcode = 0x150
	OpBinarysearch Opcode = 0x151
	OpLinkedsearch Opcode = 0x152
	OpCallf        Opcode = 0x160
	OpCallfi       Opcode = 0x161
	OpCallfii      Opcode = 0x162
	OpCallfiii     Opcode = 0x163
	OpMzero        Opcode = 0x170
	OpMcopy        Opcode = 0x171
	OpMalloc       Opcode = 0x178
	OpMfree        Opcode = 0x179
	OpAccelfunc    Opcode = 0x180
	OpAccelparam   Opcode = 0x181

	// ========================================================================
	// Floating point (0x190-0x1CF)
	// ========================================================================

	OpNumtof  Opcode = 0x190
	OpFtonumz Opcode = 0x191
	OpFtonumn Opcode = 0x192
	OpCeil    Opcode = 0x198
	OpFloor   Opcode = 0x199
	OpFadd    Opcode = 0x1A0
	OpFsub    Opcode = 0x1A1
	OpFmul    Opcode = 0x1A2
	OpFdiv    Opcode = 0x1A3
	OpFmod    Opcode = 0x1A4
	OpSqrt    Opcode = 0x1A8
	OpExp     Opcode = 0x1A9
	OpLog     Opcode = 0x1AA
	OpPow     Opcode = 0x1AB
	OpSin     Opcode = 0x1B0
	OpCos     Opcode = 0x1B1
	OpTan     Opcode = 0x1B2
	OpAsin    Opcode = 0x1B3
	OpAcos    Opcode = 0x1B4
	OpAtan    Opcode = 0x1B5
	OpAtan2   Opcode = 0x1B6
	OpJfeq    Opcode = 0x1C0
	OpJfne    Opcode = 0x1C1
	OpJflt    Opcode = 0x1C2
	OpJfle    Opcode = 0x1C3
	OpJfgt    Opcode = 0x1C4
	OpJfge    Opcode = 0x1C5
	OpJisnan  Opcode = 0x1C8
	OpJisinf  Opcode = 0x1C9
)

// OpcodeInfo provides metadata about each opcode for decoding and
// disassembly.
type OpcodeInfo struct {
	Name     string // Assembler mnemonic
	Operands string // One letter per operand: L = load, S = store
	Branch   bool   // Last load operand is a branch offset
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:     {"nop", "", false},
	OpAdd:     {"add", "LLS", false},
	OpSub:     {"sub", "LLS", false},
	OpMul:     {"mul", "LLS", false},
	OpDiv:     {"div", "LLS", false},
	OpMod:     {"mod", "LLS", false},
	OpNeg:     {"neg", "LS", false},
	OpBitAnd:  {"bitand", "LLS", false},
	OpBitOr:   {"bitor", "LLS", false},
	OpBitXor:  {"bitxor", "LLS", false},
	OpBitNot:  {"bitnot", "LS", false},
	OpShiftL:  {"shiftl", "LLS", false},
	OpSShiftR: {"sshiftr", "LLS", false},
	OpUShiftR: {"ushiftr", "LLS", false},

	OpJump: {"jump", "L", true},
	OpJz:   {"jz", "LL", true},
	OpJnz:  {"jnz", "LL", true},
	OpJeq:  {"jeq", "LLL", true},
	OpJne:  {"jne", "LLL", true},
	OpJlt:  {"jlt", "LLL", true},
	OpJge:  {"jge", "LLL", true},
	OpJgt:  {"jgt", "LLL", true},
	OpJle:  {"jle", "LLL", true},
	OpJltu: {"jltu", "LLL", true},
	OpJgeu: {"jgeu", "LLL", true},
	OpJgtu: {"jgtu", "LLL", true},
	OpJleu: {"jleu", "LLL", true},

	OpCall:     {"call", "LLS", false},
	OpReturn:   {"return", "L", false},
	OpCatch:    {"catch", "SL", true},
	OpThrow:    {"throw", "LL", false},
	OpTailcall: {"tailcall", "LL", false},

	OpCopy:      {"copy", "LS", false},
	OpCopys:     {"copys", "LS", false},
	OpCopyb:     {"copyb", "LS", false},
	OpSexs:      {"sexs", "LS", false},
	OpSexb:      {"sexb", "LS", false},
	OpAload:     {"aload", "LLS", false},
	OpAloads:    {"aloads", "LLS", false},
	OpAloadb:    {"aloadb", "LLS", false},
	OpAloadbit:  {"aloadbit", "LLS", false},
	OpAstore:    {"astore", "LLL", false},
	OpAstores:   {"astores", "LLL", false},
	OpAstoreb:   {"astoreb", "LLL", false},
	OpAstorebit: {"astorebit", "LLL", false},

	OpStkcount: {"stkcount", "S", false},
	OpStkpeek:  {"stkpeek", "LS", false},
	OpStkswap:  {"stkswap", "", false},
	OpStkroll:  {"stkroll", "LL", false},
	OpStkcopy:  {"stkcopy", "L", false},

	OpStreamchar:    {"streamchar", "L", false},
	OpStreamnum:     {"streamnum", "L", false},
	OpStreamstr:     {"streamstr", "L", false},
	OpStreamunichar: {"streamunichar", "L", false},

	OpGestalt:      {"gestalt", "LLS", false},
	OpDebugtrap:    {"debugtrap", "L", false},
	OpGetmemsize:   {"getmemsize", "S", false},
	OpSetmemsize:   {"setmemsize", "LS", false},
	OpJumpabs:      {"jumpabs", "L", false},
	OpRandom:       {"random", "LS", false},
	OpSetrandom:    {"setrandom", "L", false},
	OpQuit:         {"quit", "", false},
	OpVerify:       {"verify", "S", false},
	OpRestart:      {"restart", "", false},
	OpSave:         {"save", "LS", false},
	OpRestore:      {"restore", "LS", false},
	OpSaveundo:     {"saveundo", "S", false},
	OpRestoreundo:  {"restoreundo", "S", false},
	OpProtect:      {"protect", "LL", false},
	OpHasundo:      {"hasundo", "S", false},
	OpDiscardundo:  {"discardundo", "", false},
	OpGlk:          {"glk", "LLS", false},
	OpGetstringtbl: {"getstringtbl", "S", false},
	OpSetstringtbl: {"setstringtbl", "L", false},
	OpGetiosys:     {"getiosys", "SS", false},
	OpSetiosys:     {"setiosys", "LL", false},

	OpLinearsearch: {"linearsearch", "LLLLLLLS", false},
	OpBinarysearch: {"binarysearch", "LLLLLLLS", false},
	OpLinkedsearch: {"linkedsearch", "LLLLLLS", false},
	OpCallf:        {"callf", "LS", false},
	OpCallfi:       {"callfi", "LLS", false},
	OpCallfii:      {"callfii", "LLLS", false},
	OpCallfiii:     {"callfiii", "LLLLS", false},
	OpMzero:        {"mzero", "LL", false},
	OpMcopy:        {"mcopy", "LLL", false},
	OpMalloc:       {"malloc", "LS", false},
	OpMfree:        {"mfree", "L", false},
	OpAccelfunc:    {"accelfunc", "LL", false},
	OpAccelparam:   {"accelparam", "LL", false},

	OpNumtof:  {"numtof", "LS", false},
	OpFtonumz: {"ftonumz", "LS", false},
	OpFtonumn: {"ftonumn", "LS", false},
	OpCeil:    {"ceil", "LS", false},
	OpFloor:   {"floor", "LS", false},
	OpFadd:    {"fadd", "LLS", false},
	OpFsub:    {"fsub", "LLS", false},
	OpFmul:    {"fmul", "LLS", false},
	OpFdiv:    {"fdiv", "LLS", false},
	OpFmod:    {"fmod", "LLSS", false},
	OpSqrt:    {"sqrt", "LS", false},
	OpExp:     {"exp", "LS", false},
	OpLog:     {"log", "LS", false},
	OpPow:     {"pow", "LLS", false},
	OpSin:     {"sin", "LS", false},
	OpCos:     {"cos", "LS", false},
	OpTan:     {"tan", "LS", false},
	OpAsin:    {"asin", "LS", false},
	OpAcos:    {"acos", "LS", false},
	OpAtan:    {"atan", "LS", false},
	OpAtan2:   {"atan2", "LLS", false},
	OpJfeq:    {"jfeq", "LLLL", true},
	OpJfne:    {"jfne", "LLLL", true},
	OpJflt:    {"jflt", "LLL", true},
	OpJfle:    {"jfle", "LLL", true},
	OpJfgt:    {"jfgt", "LLL", true},
	OpJfge:    {"jfge", "LLL", true},
	OpJisnan:  {"jisnan", "LL", true},
	OpJisinf:  {"jisinf", "LL", true},
}

// GetOpcodeInfo returns metadata for an opcode and whether it is defined.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	if info, ok := opcodeInfoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("unknown(0x%X)", uint32(op))
}

// operandWidth is the memory access width, in bytes, used by an opcode's
// operands. Only the narrow copies differ from a full word.
func (op Opcode) operandWidth() uint32 {
	switch op {
	case OpCopyb:
		return 1
	case OpCopys:
		return 2
	}
	return 4
}

// AllOpcodes returns every defined opcode in ascending order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
