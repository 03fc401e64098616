package vm

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/chazu/glulx/glk/glktest"
)

// Layout of images built by imageBuilder.
const (
	testRAMStart = 0x1000
	testExtStart = 0x2000
	testEndMem   = 0x2000
	testStack    = 0x1000
	testCodeBase = 0x100
)

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

type operand struct {
	mode  byte
	data  []byte
	label string
	abs   bool
}

func be16(v uint16) []byte { return binary.BigEndian.AppendUint16(nil, v) }
func be32(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }

// imm is a load constant in the shortest encoding.
func imm(v int32) operand {
	switch {
	case v == 0:
		return operand{mode: 0x0}
	case v >= -0x80 && v <= 0x7F:
		return operand{mode: 0x1, data: []byte{byte(v)}}
	case v >= -0x8000 && v <= 0x7FFF:
		return operand{mode: 0x2, data: be16(uint16(v))}
	}
	return operand{mode: 0x3, data: be32(uint32(v))}
}

// word is a four-byte constant.
func word(v uint32) operand { return operand{mode: 0x3, data: be32(v)} }

// mem addresses memory absolutely.
func mem(addr uint32) operand { return operand{mode: 0x7, data: be32(addr)} }

// ram addresses memory relative to RAMSTART.
func ram(off uint32) operand { return operand{mode: 0xF, data: be32(off)} }

// local is the i'th four-byte local.
func local(i int) operand { return operand{mode: 0x9, data: []byte{byte(4 * i)}} }

// to is a branch offset to a label.
func to(label string) operand { return operand{mode: 0x3, data: make([]byte, 4), label: label} }

// addrOf is the absolute address of a label.
func addrOf(label string) operand {
	return operand{mode: 0x3, data: make([]byte, 4), label: label, abs: true}
}

var (
	sp      = operand{mode: 0x8}
	discard = operand{mode: 0x0}
)

// ---------------------------------------------------------------------------
// Image builder
// ---------------------------------------------------------------------------

type fixup struct {
	pos   uint32
	end   uint32
	label string
	abs   bool
}

// imageBuilder assembles a small game image: code and constant data from
// testCodeBase up to RAMSTART, initialised RAM up to EXTSTART.
type imageBuilder struct {
	img     []byte
	pc      uint32
	labels  map[string]uint32
	fixups  []fixup
	strtab  uint32
	endMem  uint32
	stack   uint32
	version uint32
}

func newImage() *imageBuilder {
	return &imageBuilder{
		img:     make([]byte, testExtStart),
		pc:      testCodeBase,
		labels:  make(map[string]uint32),
		endMem:  testEndMem,
		stack:   testStack,
		version: 0x00030103,
	}
}

func (b *imageBuilder) emit(data ...byte) {
	copy(b.img[b.pc:], data)
	b.pc += uint32(len(data))
}

// label names the current address.
func (b *imageBuilder) label(name string) uint32 {
	b.labels[name] = b.pc
	return b.pc
}

// fn starts a function with nlocals four-byte locals.
func (b *imageBuilder) fn(name string, typ byte, nlocals int) uint32 {
	addr := b.label(name)
	b.emit(typ)
	if nlocals > 0 {
		b.emit(4, byte(nlocals))
	}
	b.emit(0, 0)
	return addr
}

// op assembles one instruction.
func (b *imageBuilder) op(code Opcode, ops ...operand) {
	switch {
	case code < 0x80:
		b.emit(byte(code))
	case code < 0x4000:
		b.emit(be16(uint16(code) | 0x8000)...)
	default:
		b.emit(be32(uint32(code) | 0xC0000000)...)
	}
	modes := make([]byte, (len(ops)+1)/2)
	for i, o := range ops {
		modes[i/2] |= o.mode << (4 * (i % 2))
	}
	b.emit(modes...)

	var pending []fixup
	for _, o := range ops {
		if o.label != "" {
			pending = append(pending, fixup{pos: b.pc, label: o.label, abs: o.abs})
		}
		b.emit(o.data...)
	}
	for _, f := range pending {
		f.end = b.pc
		b.fixups = append(b.fixups, f)
	}
}

// glk pushes args and calls a capability selector.
func (b *imageBuilder) glk(sel uint32, store operand, args ...operand) {
	for i := len(args) - 1; i >= 0; i-- {
		b.op(OpCopy, args[i], sp)
	}
	b.op(OpGlk, imm(int32(sel)), imm(int32(len(args))), store)
}

// window opens a text buffer window and makes it current.
func (b *imageBuilder) window() {
	b.op(OpSetiosys, imm(IOSysGlk), imm(0))
	b.glk(selWindowOpen, sp, imm(0), imm(0), imm(0), imm(int32(3)), imm(0))
	b.glk(selSetWindow, discard, sp)
}

// cstring stores a Latin-1 string object in ROM and returns its address.
func (b *imageBuilder) cstring(s string) uint32 {
	addr := b.pc
	b.emit(stringCString)
	b.emit([]byte(s)...)
	b.emit(0)
	return addr
}

// unistring stores a Unicode string object in ROM.
func (b *imageBuilder) unistring(s string) uint32 {
	addr := b.pc
	b.emit(stringUnicode, 0, 0, 0)
	for _, r := range s {
		b.emit(be32(uint32(r))...)
	}
	b.emit(0, 0, 0, 0)
	return addr
}

// poke writes raw bytes anywhere in the image.
func (b *imageBuilder) poke(addr uint32, data ...byte) {
	copy(b.img[addr:], data)
}

func (b *imageBuilder) build(t *testing.T) []byte {
	t.Helper()
	for _, f := range b.fixups {
		target, ok := b.labels[f.label]
		if !ok {
			t.Fatalf("undefined label %q", f.label)
		}
		v := target
		if !f.abs {
			v = target - f.end + 2
		}
		binary.BigEndian.PutUint32(b.img[f.pos:], v)
	}
	start, ok := b.labels["main"]
	if !ok {
		t.Fatal("image has no main function")
	}
	if b.pc > testRAMStart {
		t.Fatalf("code overflows into RAM (pc $%X)", b.pc)
	}

	img := append([]byte(nil), b.img...)
	for i, w := range []uint32{magicGlul, b.version, testRAMStart, testExtStart, b.endMem, b.stack, start, b.strtab, 0} {
		binary.BigEndian.PutUint32(img[i*4:], w)
	}
	binary.BigEndian.PutUint32(img[checksumOffset:], Checksum(img))
	return img
}

// ---------------------------------------------------------------------------
// Running
// ---------------------------------------------------------------------------

func runImage(t *testing.T, img []byte, input ...string) (*VM, *glktest.Recorder, error) {
	t.Helper()
	return runConfigured(t, img, nil, input...)
}

// runConfigured lets setup adjust the machine before it runs.
func runConfigured(t *testing.T, img []byte, setup func(*VM), input ...string) (*VM, *glktest.Recorder, error) {
	t.Helper()
	rec := glktest.New(input...)
	vm := NewVM(rec)
	vm.SeedRandom(1)
	if setup != nil {
		setup(vm)
	}
	if err := vm.LoadImageFromBytes(img); err != nil {
		t.Fatalf("LoadImageFromBytes: %v", err)
	}
	err := vm.Run(context.Background())
	return vm, rec, err
}

func mustRun(t *testing.T, img []byte, input ...string) (*VM, *glktest.Recorder) {
	t.Helper()
	vm, rec, err := runImage(t, img, input...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return vm, rec
}

// ramWord reads a result word the program left at RAMSTART+off.
func ramWord(vm *VM, off uint32) uint32 {
	return binary.BigEndian.Uint32(vm.mem[testRAMStart+off:])
}
