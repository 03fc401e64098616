package vm

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeapProgram(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.op(OpGetmemsize, ram(0))
	b.op(OpMalloc, imm(100), ram(4))
	b.op(OpMalloc, imm(50), ram(8))
	b.op(OpGestalt, imm(GestaltMAllocHeap), imm(0), ram(12))
	b.op(OpGetmemsize, ram(16))
	b.op(OpSetmemsize, word(0x3000), ram(20))
	b.op(OpMfree, ram(4))
	b.op(OpMfree, ram(8))
	b.op(OpGetmemsize, ram(24))
	b.op(OpGestalt, imm(GestaltMAllocHeap), imm(0), ram(28))
	b.op(OpMalloc, imm(0), ram(32))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	want := map[uint32]uint32{
		0:  testEndMem,
		4:  testEndMem,
		8:  testEndMem + 100,
		12: testEndMem,
		16: testEndMem + 0x100,
		20: 1,
		24: testEndMem,
		28: 0,
		32: 0,
	}
	for off, w := range want {
		if got := ramWord(vm, off); got != w {
			t.Errorf("word at +%d = $%X, want $%X", off, got, w)
		}
	}
}

func TestHeapReuseAndMerge(t *testing.T) {
	vm := loadedVM(t)
	a := vm.malloc(0x40)
	c := vm.malloc(0x40)
	d := vm.malloc(0x40)
	if a != testEndMem || c != a+0x40 || d != c+0x40 {
		t.Fatalf("allocations at $%X $%X $%X", a, c, d)
	}

	vm.mem[c] = 0xAA
	vm.mfree(c)
	if got := vm.malloc(0x20); got != c {
		t.Errorf("first fit gave $%X, want $%X", got, c)
	}
	if vm.mem[c] != 0 {
		t.Error("reused block was not zeroed")
	}

	big := vm.malloc(0x200)
	if big < d+0x40 {
		t.Errorf("large block $%X overlaps existing blocks", big)
	}
	if vm.MemorySize()%256 != 0 {
		t.Errorf("memory size $%X not a multiple of 256", vm.MemorySize())
	}

	for _, addr := range []uint32{a, c, d, big} {
		vm.mfree(addr)
	}
	if vm.heap.active() || vm.MemorySize() != testEndMem {
		t.Errorf("heap still active after freeing everything (size $%X)", vm.MemorySize())
	}
}

func TestHeapLayout(t *testing.T) {
	end := uint32(testEndMem + 0x200)
	blocks, err := heapLayout(testEndMem, []uint32{testEndMem + 0x100, 0x10, testEndMem, 0x20}, end)
	if err != nil {
		t.Fatalf("heapLayout: %v", err)
	}
	want := []heapBlock{
		{addr: testEndMem, size: 0x20},
		{addr: testEndMem + 0x20, size: 0xE0, free: true},
		{addr: testEndMem + 0x100, size: 0x10},
		{addr: testEndMem + 0x110, size: 0xF0, free: true},
	}
	if len(blocks) != len(want) {
		t.Fatalf("blocks = %+v, want %+v", blocks, want)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("block %d = %+v, want %+v", i, blocks[i], want[i])
		}
	}

	tests := []struct {
		name   string
		start  uint32
		allocs []uint32
	}{
		{"past end", testEndMem, []uint32{testEndMem + 0x1F0, 0x20}},
		{"overlap", testEndMem, []uint32{testEndMem, 16, testEndMem + 8, 16}},
		{"below start", testEndMem + 0x100, []uint32{testEndMem, 16}},
		{"empty block", testEndMem, []uint32{testEndMem, 0}},
		{"blocks without heap", 0, []uint32{testEndMem, 16}},
		{"start past end", end + 0x100, nil},
	}
	for _, tt := range tests {
		if _, err := heapLayout(tt.start, tt.allocs, end); !errors.Is(err, ErrSaveFormat) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, ErrSaveFormat)
		}
	}
}

func TestHeapFreeInEitherOrder(t *testing.T) {
	for _, order := range [][2]int{{0, 1}, {1, 0}} {
		vm := loadedVM(t)
		blocks := [2]uint32{vm.malloc(16), vm.malloc(512)}
		if blocks[0] != testEndMem || blocks[1] != testEndMem+16 {
			t.Fatalf("allocations at $%X $%X", blocks[0], blocks[1])
		}
		vm.mfree(blocks[order[0]])
		vm.mfree(blocks[order[1]])
		if vm.heap.active() || len(vm.heap.allocations()) != 0 {
			t.Errorf("free order %v: heap still active", order)
		}
		if vm.MemorySize() != testEndMem {
			t.Errorf("free order %v: memory size $%X, want $%X", order, vm.MemorySize(), testEndMem)
		}
	}
}

func TestResetMemMatchesFreshLoad(t *testing.T) {
	b := newImage()
	b.poke(testRAMStart, 1, 2, 3, 4)
	b.fn("main", funcLocalArgs, 0)
	b.op(OpReturn, imm(0))
	img := b.build(t)

	vm := NewVM(nil)
	if err := vm.LoadImageFromBytes(img); err != nil {
		t.Fatalf("LoadImageFromBytes: %v", err)
	}
	fresh := append([]byte(nil), vm.mem...)

	vm.mem[testRAMStart] = 0xFF
	vm.mem[testEndMem-1] = 0xFF
	vm.malloc(0x40)
	vm.resetMem()
	if !bytes.Equal(vm.mem, fresh) {
		t.Error("memory after reset differs from a fresh load")
	}
}
