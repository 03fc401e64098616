package vm

import (
	"math"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Instruction execution
// ---------------------------------------------------------------------------

// step decodes and executes one instruction.
func (vm *VM) step() {
	vm.instrPC = vm.pc
	vm.opcode = 0
	op := vm.readOpcode()
	vm.opcode = op

	info, ok := opcodeInfoTable[op]
	if !ok {
		vm.fatal(ErrUnknownOpcode, "opcode $%X", uint32(op))
	}
	if vm.trace && vm.log.AllowLevel(commonlog.Debug) {
		vm.log.Debugf("%08X  %s", vm.instrPC, vm.safeDisassemble(vm.instrPC))
	}
	if vm.profiler != nil {
		vm.profiler.RecordOpcode(op)
	}

	in := instruction{op: op}
	vm.decodeOperands(&in, info.Operands)
	vm.execute(&in)
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (vm *VM) execute(in *instruction) {
	l := in.loads
	s := func(v uint32) { vm.storeResult(in, 0, v) }
	cond := func(c bool, off uint32) {
		if c {
			vm.branch(off)
		}
	}

	switch in.op {
	case OpNop:

	// Integer arithmetic
	case OpAdd:
		s(l[0] + l[1])
	case OpSub:
		s(l[0] - l[1])
	case OpMul:
		s(l[0] * l[1])
	case OpDiv:
		if l[1] == 0 {
			vm.fatal(ErrDivideByZero, "div")
		}
		s(uint32(int32(l[0]) / int32(l[1])))
	case OpMod:
		if l[1] == 0 {
			vm.fatal(ErrDivideByZero, "mod")
		}
		s(uint32(int32(l[0]) % int32(l[1])))
	case OpNeg:
		s(-l[0])
	case OpBitAnd:
		s(l[0] & l[1])
	case OpBitOr:
		s(l[0] | l[1])
	case OpBitXor:
		s(l[0] ^ l[1])
	case OpBitNot:
		s(^l[0])
	case OpShiftL:
		if l[1] >= 32 {
			s(0)
		} else {
			s(l[0] << l[1])
		}
	case OpUShiftR:
		if l[1] >= 32 {
			s(0)
		} else {
			s(l[0] >> l[1])
		}
	case OpSShiftR:
		if l[1] >= 32 {
			s(uint32(int32(l[0]) >> 31))
		} else {
			s(uint32(int32(l[0]) >> l[1]))
		}

	// Branches
	case OpJump:
		vm.branch(l[0])
	case OpJz:
		cond(l[0] == 0, l[1])
	case OpJnz:
		cond(l[0] != 0, l[1])
	case OpJeq:
		cond(l[0] == l[1], l[2])
	case OpJne:
		cond(l[0] != l[1], l[2])
	case OpJlt:
		cond(int32(l[0]) < int32(l[1]), l[2])
	case OpJge:
		cond(int32(l[0]) >= int32(l[1]), l[2])
	case OpJgt:
		cond(int32(l[0]) > int32(l[1]), l[2])
	case OpJle:
		cond(int32(l[0]) <= int32(l[1]), l[2])
	case OpJltu:
		cond(l[0] < l[1], l[2])
	case OpJgeu:
		cond(l[0] >= l[1], l[2])
	case OpJgtu:
		cond(l[0] > l[1], l[2])
	case OpJleu:
		cond(l[0] <= l[1], l[2])
	case OpJumpabs:
		vm.tick()
		vm.pc = l[0]

	// Calls
	case OpCall:
		vm.call(l[0], vm.popArgs(l[1]), in.stores[0])
	case OpCallf:
		vm.call(l[0], nil, in.stores[0])
	case OpCallfi:
		vm.call(l[0], []uint32{l[1]}, in.stores[0])
	case OpCallfii:
		vm.call(l[0], []uint32{l[1], l[2]}, in.stores[0])
	case OpCallfiii:
		vm.call(l[0], []uint32{l[1], l[2], l[3]}, in.stores[0])
	case OpReturn:
		vm.ret(l[0])
	case OpTailcall:
		vm.tailcall(l[0], vm.popArgs(l[1]))
	case OpCatch:
		vm.catch(in.stores[0], l[0])
	case OpThrow:
		vm.throw(l[0], l[1])

	// Moves and arrays
	case OpCopy, OpCopys, OpCopyb:
		s(l[0])
	case OpSexs:
		s(uint32(int32(int16(l[0]))))
	case OpSexb:
		s(uint32(int32(int8(l[0]))))
	case OpAload:
		s(vm.read32(l[0] + 4*l[1]))
	case OpAloads:
		s(vm.read16(l[0] + 2*l[1]))
	case OpAloadb:
		s(vm.read8(l[0] + l[1]))
	case OpAloadbit:
		addr, bit := bitAddress(l[0], l[1])
		s(b2u(vm.read8(addr)&(1<<bit) != 0))
	case OpAstore:
		vm.write32(l[0]+4*l[1], l[2])
	case OpAstores:
		vm.write16(l[0]+2*l[1], l[2])
	case OpAstoreb:
		vm.write8(l[0]+l[1], l[2])
	case OpAstorebit:
		addr, bit := bitAddress(l[0], l[1])
		v := vm.read8(addr)
		if l[2] != 0 {
			v |= 1 << bit
		} else {
			v &^= 1 << bit
		}
		vm.write8(addr, v)

	// Stack
	case OpStkcount:
		s(vm.stackValues())
	case OpStkpeek:
		s(vm.stkpeek(l[0]))
	case OpStkswap:
		vm.stkswap()
	case OpStkroll:
		vm.stkroll(l[0], int32(l[1]))
	case OpStkcopy:
		vm.stkcopy(l[0])

	// Output
	case OpStreamchar:
		vm.streamChar(l[0])
	case OpStreamunichar:
		vm.streamUniChar(l[0])
	case OpStreamnum:
		vm.streamNum(l[0], false, 0)
	case OpStreamstr:
		vm.streamString(l[0], 0, 0)
	case OpGetstringtbl:
		s(vm.stringTable)
	case OpSetstringtbl:
		vm.stringTable = l[0]
	case OpGetiosys:
		vm.storeResult(in, 0, vm.iosysMode)
		vm.storeResult(in, 1, vm.iosysRock)
	case OpSetiosys:
		vm.setIOSys(l[0], l[1])

	// System
	case OpGestalt:
		s(vm.gestalt(l[0], l[1]))
	case OpDebugtrap:
		vm.fatal(ErrDebugTrap, "argument %d", l[0])
	case OpGetmemsize:
		s(uint32(len(vm.mem)))
	case OpSetmemsize:
		s(vm.setMemSize(l[0]))
	case OpRandom:
		s(vm.rng.next(l[0]))
	case OpSetrandom:
		vm.rng.seed(l[0])
	case OpQuit:
		vm.halt(nil)
	case OpVerify:
		s(vm.verify())
	case OpRestart:
		vm.log.Info("restarting")
		vm.restart()
	case OpSave:
		vm.save(l[0], in.stores[0])
	case OpRestore:
		vm.restore(l[0], in.stores[0])
	case OpSaveundo:
		vm.saveUndo(in.stores[0])
	case OpRestoreundo:
		vm.restoreUndo(in.stores[0])
	case OpHasundo:
		s(b2u(!vm.undo.has()))
	case OpDiscardundo:
		vm.undo.discard()
	case OpProtect:
		vm.protectStart, vm.protectEnd = l[0], l[0]+l[1]
		if l[1] == 0 {
			vm.protectStart, vm.protectEnd = 0, 0
		}
	case OpGlk:
		s(vm.glkCall(l[0], vm.popArgs(l[1])))

	// Search
	case OpLinearsearch:
		s(vm.linearSearch(l[0], l[1], l[2], l[3], l[4], l[5], l[6]))
	case OpBinarysearch:
		s(vm.binarySearch(l[0], l[1], l[2], l[3], l[4], l[5], l[6]))
	case OpLinkedsearch:
		s(vm.linkedSearch(l[0], l[1], l[2], l[3], l[4], l[5]))

	// Memory blocks and heap
	case OpMzero:
		if l[0] > 0 {
			vm.checkWrite(l[1], l[0])
			clear(vm.mem[l[1] : l[1]+l[0]])
		}
	case OpMcopy:
		if l[0] > 0 {
			vm.writeBytes(l[2], vm.readBytes(l[1], l[0]))
		}
	case OpMalloc:
		s(vm.malloc(l[0]))
	case OpMfree:
		vm.mfree(l[0])
	case OpAccelfunc:
		vm.accel.set(l[0], l[1])
	case OpAccelparam:
		vm.accel.setParam(l[0], l[1])

	// Floating point
	case OpNumtof:
		s(fromF(float32(int32(l[0]))))
	case OpFtonumz:
		s(ftonumz(l[0]))
	case OpFtonumn:
		s(ftonumn(l[0]))
	case OpCeil:
		s(f64op(math.Ceil, l[0]))
	case OpFloor:
		s(f64op(math.Floor, l[0]))
	case OpFadd:
		s(fromF(toF(l[0]) + toF(l[1])))
	case OpFsub:
		s(fromF(toF(l[0]) - toF(l[1])))
	case OpFmul:
		s(fromF(toF(l[0]) * toF(l[1])))
	case OpFdiv:
		s(fromF(toF(l[0]) / toF(l[1])))
	case OpFmod:
		rem, quo := fmod(l[0], l[1])
		vm.storeResult(in, 0, rem)
		vm.storeResult(in, 1, quo)
	case OpSqrt:
		s(f64op(math.Sqrt, l[0]))
	case OpExp:
		s(f64op(math.Exp, l[0]))
	case OpLog:
		s(f64op(math.Log, l[0]))
	case OpPow:
		s(fpow(l[0], l[1]))
	case OpSin:
		s(f64op(math.Sin, l[0]))
	case OpCos:
		s(f64op(math.Cos, l[0]))
	case OpTan:
		s(f64op(math.Tan, l[0]))
	case OpAsin:
		s(f64op(math.Asin, l[0]))
	case OpAcos:
		s(f64op(math.Acos, l[0]))
	case OpAtan:
		s(f64op(math.Atan, l[0]))
	case OpAtan2:
		s(fatan2(l[0], l[1]))
	case OpJfeq:
		cond(floatEqual(l[0], l[1], l[2]), l[3])
	case OpJfne:
		cond(!floatEqual(l[0], l[1], l[2]), l[3])
	case OpJflt:
		cond(toF(l[0]) < toF(l[1]), l[2])
	case OpJfle:
		cond(toF(l[0]) <= toF(l[1]), l[2])
	case OpJfgt:
		cond(toF(l[0]) > toF(l[1]), l[2])
	case OpJfge:
		cond(toF(l[0]) >= toF(l[1]), l[2])
	case OpJisnan:
		cond(isNaNBits(l[0]), l[1])
	case OpJisinf:
		cond(isInfBits(l[0]), l[1])

	default:
		vm.fatal(ErrUnknownOpcode, "opcode $%X", uint32(in.op))
	}
}

// bitAddress locates bit number bit (signed) relative to the byte at addr.
func bitAddress(addr, bit uint32) (uint32, uint32) {
	b := int32(bit)
	return addr + uint32(b>>3), uint32(b & 7)
}

// verify recomputes the image checksum. It returns 0 when it matches.
func (vm *VM) verify() uint32 {
	if Checksum(vm.rom) == vm.hdr.Checksum {
		return 0
	}
	return 1
}
