package vm

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/glulx/glk/glktest"
)

func TestArithmetic(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.op(OpAdd, imm(7), imm(5), ram(0))
	b.op(OpSub, imm(3), imm(10), ram(4))
	b.op(OpMul, imm(-4), imm(6), ram(8))
	b.op(OpDiv, imm(-7), imm(2), ram(12))
	b.op(OpMod, imm(-7), imm(2), ram(16))
	b.op(OpNeg, imm(5), ram(20))
	b.op(OpShiftL, imm(1), imm(31), ram(24))
	b.op(OpSShiftR, word(0x80000000), imm(40), ram(28))
	b.op(OpUShiftR, word(0x80000000), imm(31), ram(32))
	b.op(OpBitXor, imm(0x0F), imm(0xFF), ram(36))
	b.op(OpSexb, imm(0x80), ram(40))
	b.op(OpSexs, word(0x8000), ram(44))
	b.op(OpShiftL, imm(1), imm(32), ram(48))
	b.op(OpBitNot, imm(0), ram(52))
	b.op(OpAdd, word(0x7FFFFFFF), word(0x7FFFFFFE), ram(56))
	b.op(OpDiv, word(0x80000000), word(0xFFFFFFFF), ram(60))
	b.op(OpMod, word(0x80000000), word(0xFFFFFFFF), ram(64))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))

	tests := []struct {
		off  uint32
		want uint32
	}{
		{0, 12},
		{4, 0xFFFFFFF9},
		{8, 0xFFFFFFE8},
		{12, 0xFFFFFFFD},
		{16, 0xFFFFFFFF},
		{20, 0xFFFFFFFB},
		{24, 0x80000000},
		{28, 0xFFFFFFFF},
		{32, 1},
		{36, 0xF0},
		{40, 0xFFFFFF80},
		{44, 0xFFFF8000},
		{48, 0},
		{52, 0xFFFFFFFF},
		{56, 0xFFFFFFFD},
		{60, 0x80000000},
		{64, 0},
	}
	for _, tt := range tests {
		if got := ramWord(vm, tt.off); got != tt.want {
			t.Errorf("result at +%d = $%08X, want $%08X", tt.off, got, tt.want)
		}
	}
}

func TestLoopAndBranchReturn(t *testing.T) {
	b := newImage()
	b.fn("one", funcLocalArgs, 0)
	b.op(OpJz, imm(0), imm(1))
	b.op(OpReturn, imm(5))

	b.fn("main", funcLocalArgs, 2)
	b.op(OpCopy, imm(1), local(1))
	b.label("loop")
	b.op(OpAdd, local(0), local(1), local(0))
	b.op(OpAdd, local(1), imm(1), local(1))
	b.op(OpJle, local(1), imm(10), to("loop"))
	b.op(OpCopy, local(0), ram(0))
	b.op(OpCallf, addrOf("one"), ram(4))
	b.op(OpJumpabs, addrOf("end"))
	b.op(OpCopy, imm(99), ram(8))
	b.label("end")
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	if got := ramWord(vm, 0); got != 55 {
		t.Errorf("sum = %d, want 55", got)
	}
	if got := ramWord(vm, 4); got != 1 {
		t.Errorf("branch offset 1 returned %d, want 1", got)
	}
	if got := ramWord(vm, 8); got != 0 {
		t.Errorf("jumpabs fell through (got %d)", got)
	}
}

func TestCallConventions(t *testing.T) {
	b := newImage()
	// diff(a, b) = a - b, arguments in locals.
	b.fn("diff", funcLocalArgs, 2)
	b.op(OpSub, local(0), local(1), sp)
	b.op(OpReturn, sp)

	// count: arguments on the stack, topped by their count.
	b.fn("count", funcStackArgs, 0)
	b.op(OpCopy, sp, ram(4))
	b.op(OpCopy, sp, ram(8))
	b.op(OpReturn, imm(0))

	b.fn("tail", funcLocalArgs, 0)
	b.op(OpCopy, imm(1), sp)
	b.op(OpCopy, imm(9), sp)
	b.op(OpTailcall, addrOf("diff"), imm(2))

	b.fn("main", funcLocalArgs, 0)
	b.op(OpCallfii, addrOf("diff"), imm(10), imm(3), ram(0))
	b.op(OpCallfii, addrOf("count"), imm(10), imm(3), discard)
	b.op(OpCopy, imm(3), sp)
	b.op(OpCopy, imm(10), sp)
	b.op(OpCall, addrOf("diff"), imm(2), ram(12))
	b.op(OpCallf, addrOf("tail"), ram(16))
	b.op(OpCallfiii, addrOf("diff"), imm(20), imm(5), imm(7), ram(20))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	want := map[uint32]uint32{0: 7, 4: 2, 8: 10, 12: 7, 16: 8, 20: 15}
	for off, w := range want {
		if got := ramWord(vm, off); got != w {
			t.Errorf("result at +%d = %d, want %d", off, got, w)
		}
	}
}

// recursionPeak counts n down to zero, recursing with op, and leaves the
// deepest stack length seen.
func recursionPeak(t *testing.T, op Opcode, n int32) int {
	t.Helper()
	b := newImage()
	b.fn("down", funcLocalArgs, 1)
	b.op(OpJz, local(0), imm(0))
	b.op(OpSub, local(0), imm(1), local(0))
	if op == OpTailcall {
		b.op(OpCopy, local(0), sp)
		b.op(OpTailcall, addrOf("down"), imm(1))
	} else {
		b.op(OpCallfi, addrOf("down"), local(0), sp)
		b.op(OpReturn, sp)
	}

	b.fn("main", funcLocalArgs, 0)
	b.op(OpCallfi, addrOf("down"), imm(n), ram(0))
	b.op(OpReturn, imm(0))

	vm := NewVM(glktest.New())
	if err := vm.LoadImageFromBytes(b.build(t)); err != nil {
		t.Fatalf("LoadImageFromBytes: %v", err)
	}
	vm.started = true
	vm.restart()
	peak := len(vm.stack)
	for !vm.halted {
		vm.step()
		peak = max(peak, len(vm.stack))
	}
	if got := ramWord(vm, 0); got != 0 {
		t.Fatalf("down(%d) = %d, want 0", n, got)
	}
	return peak
}

func TestTailCallDepth(t *testing.T) {
	for _, n := range []int32{1, 2, 10, 50} {
		tail := recursionPeak(t, OpTailcall, n)
		call := recursionPeak(t, OpCallfi, n)
		if tail > call {
			t.Errorf("n=%d: tailcall peak %d exceeds callfi peak %d", n, tail, call)
		}
		if base := recursionPeak(t, OpTailcall, 1); tail != base {
			t.Errorf("n=%d: tailcall peak %d, want %d as for n=1", n, tail, base)
		}
	}
}

func TestCatchThrow(t *testing.T) {
	b := newImage()
	b.fn("thrower", funcLocalArgs, 1)
	b.op(OpThrow, imm(42), local(0))
	b.op(OpReturn, imm(0))

	b.fn("main", funcLocalArgs, 0)
	b.op(OpCatch, ram(0), to("body"))
	b.op(OpReturn, imm(0))
	b.label("body")
	b.op(OpCallfi, addrOf("thrower"), ram(0), discard)
	b.op(OpCopy, imm(99), ram(4))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	if got := ramWord(vm, 0); got != 42 {
		t.Errorf("caught %d, want 42", got)
	}
	if got := ramWord(vm, 4); got != 0 {
		t.Errorf("execution continued after throw")
	}
}

func TestStackOpcodes(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.op(OpCopy, imm(1), sp)
	b.op(OpCopy, imm(2), sp)
	b.op(OpCopy, imm(3), sp)
	b.op(OpStkcount, ram(0))
	b.op(OpStkpeek, imm(0), ram(4))
	b.op(OpStkpeek, imm(2), ram(8))
	b.op(OpStkswap)                 // 1 3 2
	b.op(OpStkroll, imm(3), imm(1)) // 2 1 3
	b.op(OpStkcopy, imm(2))         // 2 1 3 1 3
	for i := uint32(0); i < 5; i++ {
		b.op(OpCopy, sp, ram(12+4*i))
	}
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	want := []uint32{3, 3, 1, 3, 1, 3, 1, 2}
	for i, w := range want {
		if got := ramWord(vm, uint32(4*i)); got != w {
			t.Errorf("word %d = %d, want %d", i, got, w)
		}
	}
}

func TestArraysAndBits(t *testing.T) {
	base := uint32(testRAMStart + 0x100)
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.op(OpAstore, word(base), imm(1), word(0xDEADBEEF))
	b.op(OpAload, word(base), imm(1), ram(0))
	b.op(OpAloads, word(base), imm(2), ram(4))
	b.op(OpAloadb, word(base), imm(7), ram(8))
	b.op(OpAstorebit, word(base+8), imm(10), imm(1))
	b.op(OpAloadb, word(base+8), imm(1), ram(12))
	b.op(OpAstorebit, word(base+8), imm(-8), imm(0))
	b.op(OpAloadbit, word(base+8), imm(-8), ram(16))
	b.op(OpCopyb, word(0x12345678), ram(20))
	b.op(OpCopys, imm(-2), ram(24))
	b.op(OpMcopy, imm(4), word(base+4), word(testRAMStart+28))
	b.op(OpMzero, imm(2), word(base+4))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	want := map[uint32]uint32{
		0:     0xDEADBEEF,
		4:     0xDEAD,
		8:     0xEF,
		12:    0x04,
		16:    0,
		20:    0x78000000,
		24:    0xFFFE0000,
		28:    0xDEADBEEE,
		0x104: 0x0000BEEE,
	}
	for off, w := range want {
		if got := ramWord(vm, off); got != w {
			t.Errorf("word at +$%X = $%08X, want $%08X", off, got, w)
		}
	}
}

func TestFloatOpcodes(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 2)
	b.op(OpNumtof, imm(3), local(0))
	b.op(OpNumtof, imm(2), local(1))
	b.op(OpFdiv, local(0), local(1), ram(0))
	b.op(OpFtonumz, ram(0), ram(4))
	b.op(OpFtonumn, ram(0), ram(8))
	b.op(OpFmod, word(fromF(7)), word(fromF(2)), ram(12), ram(16))
	b.op(OpJisnan, word(0x7FC00000), to("nan"))
	b.op(OpReturn, imm(0))
	b.label("nan")
	b.op(OpJfeq, word(fromF(1)), word(fromF(1.05)), word(fromF(0.1)), to("close"))
	b.op(OpReturn, imm(0))
	b.label("close")
	b.op(OpCopy, imm(1), ram(20))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	want := map[uint32]uint32{
		0:  fromF(1.5),
		4:  1,
		8:  2,
		12: fromF(1),
		16: fromF(3),
		20: 1,
	}
	for off, w := range want {
		if got := ramWord(vm, off); got != w {
			t.Errorf("word at +%d = $%08X, want $%08X", off, got, w)
		}
	}
}

func TestProtectSurvivesRestart(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.op(OpAdd, ram(0), imm(1), ram(0))
	b.op(OpAdd, ram(4), imm(1), ram(4))
	b.op(OpProtect, word(testRAMStart+4), imm(4))
	b.op(OpJgt, ram(4), imm(1), to("done"))
	b.op(OpRestart)
	b.label("done")
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	if got := ramWord(vm, 0); got != 1 {
		t.Errorf("unprotected counter = %d, want 1", got)
	}
	if got := ramWord(vm, 4); got != 2 {
		t.Errorf("protected counter = %d, want 2", got)
	}
}

func TestRandomIsReproducible(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.op(OpSetrandom, imm(7))
	b.op(OpRandom, imm(10), ram(0))
	b.op(OpRandom, imm(10), ram(4))
	b.op(OpSetrandom, imm(7))
	b.op(OpRandom, imm(10), ram(8))
	b.op(OpRandom, imm(10), ram(12))
	b.op(OpRandom, imm(-5), ram(16))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	if ramWord(vm, 0) != ramWord(vm, 8) || ramWord(vm, 4) != ramWord(vm, 12) {
		t.Errorf("same seed gave different sequences")
	}
	for _, off := range []uint32{0, 4} {
		if v := ramWord(vm, off); v >= 10 {
			t.Errorf("random(10) = %d", v)
		}
	}
	if v := int32(ramWord(vm, 16)); v > 0 || v <= -5 {
		t.Errorf("random(-5) = %d", v)
	}
}

func TestQuitHalts(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.op(OpCopy, imm(1), ram(0))
	b.op(OpQuit)
	b.op(OpCopy, imm(2), ram(0))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	if !vm.Halted() {
		t.Error("machine not halted after quit")
	}
	if got := ramWord(vm, 0); got != 1 {
		t.Errorf("ran past quit: %d", got)
	}
}

func TestVerifyAndMemSize(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.op(OpVerify, ram(0))
	b.op(OpGetmemsize, ram(4))
	b.op(OpSetmemsize, word(0x2800), ram(8))
	b.op(OpGetmemsize, ram(12))
	b.op(OpSetmemsize, word(0x2801), ram(16))
	b.op(OpSetmemsize, word(0x1000), ram(20))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	want := map[uint32]uint32{0: 0, 4: testEndMem, 8: 0, 12: 0x2800, 16: 1, 20: 1}
	for off, w := range want {
		if got := ramWord(vm, off); got != w {
			t.Errorf("word at +%d = $%X, want $%X", off, got, w)
		}
	}
}

// ---------------------------------------------------------------------------
// Faults
// ---------------------------------------------------------------------------

func TestFaults(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *imageBuilder)
		want  error
	}{
		{"divide by zero", func(b *imageBuilder) {
			b.op(OpDiv, imm(1), imm(0), ram(0))
		}, ErrDivideByZero},
		{"mod by zero", func(b *imageBuilder) {
			b.op(OpMod, imm(1), imm(0), ram(0))
		}, ErrDivideByZero},
		{"unknown opcode", func(b *imageBuilder) {
			b.emit(0x01)
		}, ErrUnknownOpcode},
		{"write to ROM", func(b *imageBuilder) {
			b.op(OpCopy, imm(1), mem(0x200))
		}, ErrReadOnly},
		{"read past memory", func(b *imageBuilder) {
			b.op(OpCopy, mem(0x10000), ram(0))
		}, ErrMemoryRange},
		{"stack underflow", func(b *imageBuilder) {
			b.op(OpCopy, sp, ram(0))
		}, ErrStackUnderflow},
		{"call non-function", func(b *imageBuilder) {
			b.op(OpCallf, word(testRAMStart), discard)
		}, ErrNotFunction},
		{"debugtrap", func(b *imageBuilder) {
			b.op(OpDebugtrap, imm(3))
		}, ErrDebugTrap},
		{"mode 4", func(b *imageBuilder) {
			b.op(OpCopy, operand{mode: 0x4}, ram(0))
		}, ErrBadAddressingMode},
		{"store to constant", func(b *imageBuilder) {
			b.op(OpCopy, imm(0), imm(5))
		}, ErrBadAddressingMode},
		{"local beyond frame", func(b *imageBuilder) {
			b.op(OpCopy, local(3), ram(0))
		}, ErrMemoryRange},
		{"bad search key", func(b *imageBuilder) {
			b.op(OpLinearsearch, imm(1), imm(3), word(testRAMStart), imm(4), imm(1), imm(0), imm(0), ram(0))
		}, ErrSearchKeySize},
		{"mfree of unallocated block", func(b *imageBuilder) {
			b.op(OpMfree, word(testRAMStart))
		}, ErrHeap},
		{"stkpeek on empty frame", func(b *imageBuilder) {
			b.op(OpStkpeek, imm(0), ram(0))
		}, ErrStackUnderflow},
		{"throw with bad token", func(b *imageBuilder) {
			b.op(OpThrow, imm(0), imm(2))
		}, ErrStackUnderflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newImage()
			b.fn("main", funcLocalArgs, 1)
			b.op(OpNop)
			at := b.label("fault")
			tt.build(b)
			b.op(OpReturn, imm(0))

			_, _, err := runImage(t, b.build(t))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Run error = %v, want %v", err, tt.want)
			}
			var f *Fault
			if !errors.As(err, &f) {
				t.Fatalf("error %T is not a *Fault", err)
			}
			if f.PC != at {
				t.Errorf("fault PC = $%X, want $%X", f.PC, at)
			}
		})
	}
}

func TestStkpeekStaysInFrame(t *testing.T) {
	b := newImage()
	b.fn("peek", funcLocalArgs, 0)
	b.op(OpCopy, imm(3), sp)
	b.op(OpStkpeek, imm(0), ram(0))
	b.op(OpStkpeek, imm(1), ram(4))
	b.op(OpReturn, imm(0))

	b.fn("main", funcLocalArgs, 0)
	b.op(OpCopy, imm(1), sp)
	b.op(OpCopy, imm(2), sp)
	b.op(OpCallf, addrOf("peek"), discard)
	b.op(OpReturn, imm(0))

	vm, _, err := runImage(t, b.build(t))
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("Run error = %v, want %v", err, ErrStackUnderflow)
	}
	if got := ramWord(vm, 0); got != 3 {
		t.Errorf("stkpeek 0 = %d, want 3", got)
	}
	if got := ramWord(vm, 4); got != 0 {
		t.Errorf("stkpeek 1 stored %d from the caller's frame", got)
	}
}

func TestUnsupportedLocals(t *testing.T) {
	b := newImage()
	b.label("bad")
	b.emit(funcLocalArgs, 2, 1, 0, 0)
	b.op(OpReturn, imm(0))
	b.fn("main", funcLocalArgs, 0)
	b.op(OpCallf, addrOf("bad"), discard)
	b.op(OpReturn, imm(0))

	_, _, err := runImage(t, b.build(t))
	if !errors.Is(err, ErrUnsupportedLocals) {
		t.Fatalf("Run error = %v, want %v", err, ErrUnsupportedLocals)
	}
}

func TestStackOverflow(t *testing.T) {
	b := newImage()
	b.stack = 0x100
	b.fn("main", funcLocalArgs, 0)
	b.label("loop")
	b.op(OpCopy, imm(1), sp)
	b.op(OpJump, to("loop"))

	_, _, err := runImage(t, b.build(t))
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("Run error = %v, want %v", err, ErrStackOverflow)
	}
}

func TestRunCancelled(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.label("loop")
	b.op(OpJump, to("loop"))

	vm := NewVM(nil)
	if err := vm.LoadImageFromBytes(b.build(t)); err != nil {
		t.Fatalf("LoadImageFromBytes: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := vm.Run(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("Run error = %v, want %v", err, ErrInterrupted)
	}
}

func TestRunWithoutImage(t *testing.T) {
	if err := NewVM(nil).Run(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Fatalf("Run error = %v, want %v", err, ErrNoImage)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestFloatHelpers(t *testing.T) {
	inf := fromF(float32(math.Inf(1)))
	ninf := fromF(float32(math.Inf(-1)))
	nan := uint32(0x7FC00000)

	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"ftonumz(-2.7)", ftonumz(fromF(-2.7)), uint32(0xFFFFFFFE)},
		{"ftonumn(-2.5)", ftonumn(fromF(-2.5)), uint32(0xFFFFFFFD)},
		{"ftonumz(+inf)", ftonumz(inf), 0x7FFFFFFF},
		{"ftonumz(-inf)", ftonumz(ninf), 0x80000000},
		{"ftonumn(nan)", ftonumn(nan), 0x7FFFFFFF},
		{"ftonumz(-nan)", ftonumz(nan | 0x80000000), 0x80000000},
		{"ftonumz(1e10)", ftonumz(fromF(1e10)), 0x7FFFFFFF},
		{"pow(2, 10)", fpow(fromF(2), fromF(10)), fromF(1024)},
		{"pow(1, nan)", fpow(fromF(1), nan), fromF(1)},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = $%08X, want $%08X", tt.name, tt.got, tt.want)
		}
	}

	rem, quo := fmod(fromF(-7), fromF(2))
	if rem != fromF(-1) || quo != fromF(-3) {
		t.Errorf("fmod(-7, 2) = %v, %v", toF(rem), toF(quo))
	}
	_, quo = fmod(fromF(-1), fromF(2))
	if quo != 0x80000000 {
		t.Errorf("fmod(-1, 2) quotient = $%08X, want -0", quo)
	}

	if floatEqual(nan, nan, inf) {
		t.Error("NaN compared equal")
	}
	if !floatEqual(fromF(1), fromF(100), inf) {
		t.Error("infinite tolerance did not match")
	}
	if !floatEqual(inf, inf, 0) {
		t.Error("equal infinities did not match")
	}
	if floatEqual(fromF(1), fromF(1.5), fromF(0.25)) {
		t.Error("1 and 1.5 within 0.25")
	}
}

func TestBitAddress(t *testing.T) {
	tests := []struct {
		bit     int32
		addr    uint32
		wantBit uint32
	}{
		{0, 100, 0},
		{10, 101, 2},
		{-1, 99, 7},
		{-8, 99, 0},
		{-9, 98, 7},
	}
	for _, tt := range tests {
		addr, bit := bitAddress(100, uint32(tt.bit))
		if addr != tt.addr || bit != tt.wantBit {
			t.Errorf("bitAddress(100, %d) = %d, %d; want %d, %d", tt.bit, addr, bit, tt.addr, tt.wantBit)
		}
	}
}
