package vm

import (
	"errors"
	"testing"

	"github.com/chazu/glulx/glk"
	"github.com/chazu/glulx/glk/glktest"
)

func TestLineInput(t *testing.T) {
	buf := uint32(testRAMStart + 0x100)
	b := newImage()
	prompt := b.cstring(">")
	b.fn("main", funcLocalArgs, 0)
	b.window()
	b.glk(selPutString, discard, word(prompt))
	b.glk(selRequestLineEvent, discard, imm(int32(glktest.RootWindow)), word(buf), imm(32), imm(0))
	b.glk(selSelect, discard, word(testRAMStart))
	b.op(OpCopy, imm(1), ram(0x20))
	b.op(OpReturn, imm(0))

	vm, rec := mustRun(t, b.build(t), "look")
	if got := string(vm.mem[buf : buf+4]); got != "look" {
		t.Errorf("line buffer = %q, want %q", got, "look")
	}
	if ramWord(vm, 0) != uint32(glk.EvtLineInput) || ramWord(vm, 4) != uint32(glktest.RootWindow) || ramWord(vm, 8) != 4 {
		t.Errorf("event = %d %d %d %d", ramWord(vm, 0), ramWord(vm, 4), ramWord(vm, 8), ramWord(vm, 12))
	}
	if ramWord(vm, 0x20) != 1 {
		t.Error("execution stopped after select")
	}
	if got, want := rec.Text(), ">look\n"; got != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}
}

func TestSelectAtEndOfInputHalts(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.window()
	b.glk(selRequestLineEvent, discard, imm(int32(glktest.RootWindow)), word(testRAMStart+0x100), imm(32), imm(0))
	b.glk(selSelect, discard, word(testRAMStart))
	b.op(OpCopy, imm(1), ram(0x20))
	b.op(OpReturn, imm(0))

	vm, _, err := runImage(t, b.build(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !vm.Halted() || ramWord(vm, 0x20) != 0 {
		t.Error("machine kept running after input ended")
	}
}

func TestMemoryStream(t *testing.T) {
	buf := uint32(testRAMStart + 0x200)
	b := newImage()
	hello := b.cstring("hello")
	b.fn("main", funcLocalArgs, 1)
	b.glk(selStreamOpenMemory, local(0), word(buf), imm(16), imm(int32(glk.FileModeWrite)), imm(0))
	b.glk(selStreamSetCurrent, discard, local(0))
	b.op(OpSetiosys, imm(IOSysGlk), imm(0))
	b.op(OpStreamstr, word(hello))
	b.glk(selStreamClose, discard, local(0), word(testRAMStart+0x10))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	if got := string(vm.mem[buf : buf+5]); got != "hello" {
		t.Errorf("memory stream contents = %q", got)
	}
	if ramWord(vm, 0x10) != 0 || ramWord(vm, 0x14) != 5 {
		t.Errorf("stream result = %d read, %d written", ramWord(vm, 0x10), ramWord(vm, 0x14))
	}
	if len(vm.arena.entries) != 0 {
		t.Errorf("%d buffers still retained after close", len(vm.arena.entries))
	}
}

func TestStackReferences(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.window()
	b.glk(selRequestLineEvent, discard, imm(int32(glktest.RootWindow)), word(testRAMStart+0x100), imm(8), imm(0))
	b.glk(selSelect, discard, word(stackRef))
	// The event's four words are pushed in order, so the type is deepest.
	b.op(OpCopy, sp, ram(12))
	b.op(OpCopy, sp, ram(8))
	b.op(OpCopy, sp, ram(4))
	b.op(OpCopy, sp, ram(0))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t), "hi")
	want := []uint32{uint32(glk.EvtLineInput), uint32(glktest.RootWindow), 2, 0}
	for i, w := range want {
		if got := ramWord(vm, uint32(4*i)); got != w {
			t.Errorf("event word %d = %d, want %d", i, got, w)
		}
	}
}

func TestGlkGestaltAndUnknownSelector(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.glk(selGestalt, ram(0), imm(int32(glk.GestaltUnicode)), imm(0))
	b.glk(0x7FF, ram(4))
	b.glk(0x7FF, ram(8))
	b.glk(selCharToUpper, ram(12), imm('a'))
	b.op(OpReturn, imm(0))

	vm, _ := mustRun(t, b.build(t))
	if ramWord(vm, 0) != 1 {
		t.Errorf("gestalt(unicode) = %d, want 1", ramWord(vm, 0))
	}
	if ramWord(vm, 4) != 0 || ramWord(vm, 8) != 0 {
		t.Error("unknown selector returned nonzero")
	}
	if !vm.glkWarned[0x7FF] {
		t.Error("unknown selector was not recorded")
	}
	if got := ramWord(vm, 12); got != 'A' {
		t.Errorf("char_to_upper('a') = %q", rune(got))
	}
}

func TestPutStringRejectsWrongType(t *testing.T) {
	b := newImage()
	uni := b.unistring("x")
	b.fn("main", funcLocalArgs, 0)
	b.window()
	b.glk(selPutString, discard, word(uni))
	b.op(OpReturn, imm(0))

	_, _, err := runImage(t, b.build(t))
	if !errors.Is(err, ErrStringDecode) {
		t.Fatalf("Run error = %v, want %v", err, ErrStringDecode)
	}
}

func TestGlkExit(t *testing.T) {
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.glk(selExit, discard)
	b.op(OpCopy, imm(1), ram(0))
	b.op(OpReturn, imm(0))

	vm, rec := mustRun(t, b.build(t))
	if !rec.Exited {
		t.Error("capability Exit not called")
	}
	if ramWord(vm, 0) != 0 {
		t.Error("execution continued after glk_exit")
	}
}

func TestRefHelpers(t *testing.T) {
	vm := loadedVM(t)
	vm.writeRef(testRAMStart, 1, 2, 3)
	if got := vm.readRef(testRAMStart, 3); got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("memory ref round trip = %v", got)
	}
	vm.writeRef(0, 9)
	if got := vm.readRef(0, 2); got[0] != 0 || got[1] != 0 {
		t.Errorf("null ref read = %v", got)
	}

	d := glk.Date{Year: 2024, Month: 2, Day: 29, Weekday: 4, Hour: 23, Minute: 59, Second: 58, Microsec: 1}
	vm.writeDate(testRAMStart+0x40, d)
	if got := vm.readDate(testRAMStart + 0x40); got != d {
		t.Errorf("date round trip = %+v", got)
	}
	tv := glk.TimeVal{HighSec: -1, LowSec: 12345, Microsec: 678}
	vm.writeTimeVal(testRAMStart+0x80, tv)
	if got := vm.readTimeVal(testRAMStart + 0x80); got != tv {
		t.Errorf("timeval round trip = %+v", got)
	}
}

func TestLatin1String(t *testing.T) {
	if got := latin1String([]byte{'c', 'a', 'f', 0xE9}); got != "café" {
		t.Errorf("latin1String = %q", got)
	}
}

// loadedVM returns a machine with a trivial image loaded but not started.
func loadedVM(t *testing.T) *VM {
	t.Helper()
	b := newImage()
	b.fn("main", funcLocalArgs, 0)
	b.op(OpReturn, imm(0))
	vm := NewVM(glktest.New())
	if err := vm.LoadImageFromBytes(b.build(t)); err != nil {
		t.Fatalf("LoadImageFromBytes: %v", err)
	}
	return vm
}
