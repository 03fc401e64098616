package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/chazu/glulx/glk"
	"github.com/chazu/glulx/iff"
)

// ---------------------------------------------------------------------------
// Snapshots
//
// A snapshot is everything that save, restore and undo carry: RAM, the
// stack (with the saving instruction's call stub on top) and the heap
// layout.
// ---------------------------------------------------------------------------

type snapshot struct {
	ram       []byte // memory from RAMSTART to the end
	stack     []uint32
	heapStart uint32
	allocs    []uint32 // address/length pairs
}

func (vm *VM) takeSnapshot() *snapshot {
	return &snapshot{
		ram:       append([]byte(nil), vm.mem[vm.hdr.RAMStart:]...),
		stack:     append([]uint32(nil), vm.stack...),
		heapStart: vm.heap.start,
		allocs:    vm.heap.allocations(),
	}
}

// applySnapshot replaces machine state with s. Nothing changes unless the
// whole snapshot is valid. The protected range keeps its current contents.
func (vm *VM) applySnapshot(s *snapshot) error {
	size := uint64(vm.hdr.RAMStart) + uint64(len(s.ram))
	if size < uint64(vm.hdr.EndMem) || size%256 != 0 || size > 0xFFFFFFFF {
		return fmt.Errorf("%w: memory size $%X", ErrSaveFormat, size)
	}
	if len(s.stack) > vm.stackLimit {
		return fmt.Errorf("%w: stack of %d words exceeds limit", ErrSaveFormat, len(s.stack))
	}
	if err := s.checkStub(uint32(size)); err != nil {
		return err
	}
	if s.heapStart != 0 && s.heapStart < vm.hdr.EndMem {
		return fmt.Errorf("%w: heap start $%X below ENDMEM", ErrSaveFormat, s.heapStart)
	}
	blocks, err := heapLayout(s.heapStart, s.allocs, uint32(size))
	if err != nil {
		return err
	}

	restore := vm.preserveProtected()
	mem := make([]byte, size)
	copy(mem, vm.rom[:vm.hdr.RAMStart])
	copy(mem[vm.hdr.RAMStart:], s.ram)
	vm.mem = mem
	restore()

	vm.stack = append(vm.stack[:0], s.stack...)
	vm.heap.start = s.heapStart
	vm.heap.blocks = blocks
	return nil
}

// checkStub verifies that the stack ends with a call stub that resumes
// into a well-formed frame.
func (s *snapshot) checkStub(memSize uint32) error {
	n := uint32(len(s.stack))
	if n < 4 {
		return fmt.Errorf("%w: stack of %d words has no call stub", ErrSaveFormat, n)
	}
	kind, addr, pc, fp := s.stack[n-4], s.stack[n-3], s.stack[n-2], s.stack[n-1]
	base := n - 4
	if fp%4 != 0 || uint64(fp/4)+2 > uint64(base) {
		return fmt.Errorf("%w: frame pointer %d outside stack", ErrSaveFormat, fp)
	}
	f := fp / 4
	frameLen, localsPos := s.stack[f], s.stack[f+1]
	if frameLen%4 != 0 || localsPos%4 != 0 || localsPos > frameLen || uint64(f)+uint64(frameLen/4) > uint64(base) {
		return fmt.Errorf("%w: corrupt frame at %d", ErrSaveFormat, fp)
	}
	if pc >= memSize {
		return fmt.Errorf("%w: resume address $%X outside memory", ErrSaveFormat, pc)
	}
	switch kind {
	case destDiscard, destStack:
	case destMemory:
		if uint64(addr)+4 > uint64(memSize) {
			return fmt.Errorf("%w: result address $%X outside memory", ErrSaveFormat, addr)
		}
	case destLocal:
		if addr%4 != 0 || addr >= frameLen-localsPos {
			return fmt.Errorf("%w: result local %d outside frame", ErrSaveFormat, addr)
		}
	default:
		return fmt.Errorf("%w: call stub destination type %d", ErrSaveFormat, kind)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Quetzal-style save files
// ---------------------------------------------------------------------------

// encodeSave serializes s as a FORM/IFZS container.
func (vm *VM) encodeSave(s *snapshot, compress bool) []byte {
	form := iff.NewForm("IFZS")
	form.Add("IFhd", append([]byte(nil), vm.rom[:identifySize]...))

	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, vm.hdr.RAMStart+uint32(len(s.ram)))
	if compress {
		form.Add("CMem", append(size, compressMemory(s.ram, vm.rom[vm.hdr.RAMStart:])...))
	} else {
		form.Add("UMem", append(size, s.ram...))
	}

	stks := make([]byte, 4*len(s.stack))
	for i, w := range s.stack {
		binary.BigEndian.PutUint32(stks[i*4:], w)
	}
	form.Add("Stks", stks)

	if s.heapStart != 0 {
		mall := make([]byte, 8+4*len(s.allocs))
		binary.BigEndian.PutUint32(mall, s.heapStart)
		binary.BigEndian.PutUint32(mall[4:], uint32(len(s.allocs)/2))
		for i, w := range s.allocs {
			binary.BigEndian.PutUint32(mall[8+i*4:], w)
		}
		form.Add("MAll", mall)
	}
	return form.Bytes()
}

// decodeSave parses a save file produced for the loaded image.
func (vm *VM) decodeSave(data []byte) (*snapshot, error) {
	form, err := iff.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSaveFormat, err)
	}
	if form.Type != "IFZS" {
		return nil, fmt.Errorf("%w: form type %q", ErrSaveFormat, form.Type)
	}

	hd := form.Chunk("IFhd")
	if hd == nil {
		return nil, fmt.Errorf("%w: missing IFhd", ErrSaveFormat)
	}
	if !bytes.Equal(hd.Data, vm.rom[:identifySize]) {
		return nil, ErrSaveMismatch
	}

	s := &snapshot{}
	switch c, u := form.Chunk("CMem"), form.Chunk("UMem"); {
	case c != nil:
		if len(c.Data) < 4 {
			return nil, fmt.Errorf("%w: short CMem", ErrSaveFormat)
		}
		size := binary.BigEndian.Uint32(c.Data)
		if size < vm.hdr.RAMStart {
			return nil, fmt.Errorf("%w: memory size $%X below RAMSTART", ErrSaveFormat, size)
		}
		s.ram, err = decompressMemory(c.Data[4:], vm.rom[vm.hdr.RAMStart:], size-vm.hdr.RAMStart)
		if err != nil {
			return nil, err
		}
	case u != nil:
		if len(u.Data) < 4 {
			return nil, fmt.Errorf("%w: short UMem", ErrSaveFormat)
		}
		size := binary.BigEndian.Uint32(u.Data)
		if size < vm.hdr.RAMStart || uint64(len(u.Data)-4) != uint64(size-vm.hdr.RAMStart) {
			return nil, fmt.Errorf("%w: UMem length does not match size $%X", ErrSaveFormat, size)
		}
		s.ram = append([]byte(nil), u.Data[4:]...)
	default:
		return nil, fmt.Errorf("%w: no memory chunk", ErrSaveFormat)
	}

	stks := form.Chunk("Stks")
	if stks == nil || len(stks.Data)%4 != 0 {
		return nil, fmt.Errorf("%w: missing or misaligned Stks", ErrSaveFormat)
	}
	s.stack = make([]uint32, len(stks.Data)/4)
	for i := range s.stack {
		s.stack[i] = binary.BigEndian.Uint32(stks.Data[i*4:])
	}

	if mall := form.Chunk("MAll"); mall != nil {
		if len(mall.Data) < 8 {
			return nil, fmt.Errorf("%w: short MAll", ErrSaveFormat)
		}
		s.heapStart = binary.BigEndian.Uint32(mall.Data)
		count := binary.BigEndian.Uint32(mall.Data[4:])
		if uint64(len(mall.Data)) != 8+8*uint64(count) {
			return nil, fmt.Errorf("%w: MAll length", ErrSaveFormat)
		}
		end := uint64(vm.hdr.RAMStart) + uint64(len(s.ram))
		for i := uint32(0); i < count*2; i += 2 {
			addr := binary.BigEndian.Uint32(mall.Data[8+i*4:])
			n := binary.BigEndian.Uint32(mall.Data[12+i*4:])
			if addr < s.heapStart || uint64(addr)+uint64(n) > end {
				return nil, fmt.Errorf("%w: heap block $%08X+%d outside heap", ErrSaveFormat, addr, n)
			}
			s.allocs = append(s.allocs, addr, n)
		}
	}
	return s, nil
}

// compressMemory XORs cur against orig (zero past its end) and run-length
// encodes zero bytes as 0x00 followed by the run length minus one. A
// trailing run of zeros is omitted.
func compressMemory(cur, orig []byte) []byte {
	var out []byte
	run := 0
	for i, b := range cur {
		if i < len(orig) {
			b ^= orig[i]
		}
		if b == 0 {
			run++
			continue
		}
		for run > 0 {
			n := min(run, 256)
			out = append(out, 0, byte(n-1))
			run -= n
		}
		out = append(out, b)
	}
	return out
}

// decompressMemory reverses compressMemory into a block of size bytes.
func decompressMemory(data, orig []byte, size uint32) ([]byte, error) {
	out := make([]byte, size)
	copy(out, orig)
	pos := uint32(0)
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == 0 {
			if i+1 >= len(data) {
				return nil, fmt.Errorf("%w: CMem ends inside a run", ErrSaveFormat)
			}
			i++
			pos += uint32(data[i]) + 1
			if pos > size {
				return nil, fmt.Errorf("%w: CMem run past end of memory", ErrSaveFormat)
			}
			continue
		}
		if pos >= size {
			return nil, fmt.Errorf("%w: CMem data past end of memory", ErrSaveFormat)
		}
		out[pos] ^= b
		pos++
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Opcodes
// ---------------------------------------------------------------------------

// save writes the machine state to a capability stream. The stub pushed
// here is what restore later resumes.
func (vm *VM) save(str uint32, d dest) {
	if !vm.streamOpen(glk.StreamID(str)) {
		vm.log.Warningf("save failed: stream %d is not open", str)
		vm.store(d, 1)
		return
	}
	vm.pushCallstub(d.kind, d.addr)
	data := vm.encodeSave(vm.takeSnapshot(), true)
	vm.glk.PutBufferStream(glk.StreamID(str), data)
	vm.log.Infof("saved game: %d bytes to stream %d", len(data), str)
	vm.popCallstub(0)
}

// restore reads a save from a capability stream. On success execution
// continues after the save instruction that produced it.
func (vm *VM) restore(str uint32, d dest) {
	data := vm.readStream(glk.StreamID(str))
	s, err := vm.decodeSave(data)
	if err == nil {
		err = vm.applySnapshot(s)
	}
	if err != nil {
		vm.log.Warningf("restore failed: %v", err)
		vm.store(d, 1)
		return
	}
	vm.log.Info("restored game")
	vm.popCallstub(0xFFFFFFFF)
}

// streamOpen reports whether the capability lists str among its streams.
func (vm *VM) streamOpen(str glk.StreamID) bool {
	if str == 0 {
		return false
	}
	for s, _ := vm.glk.StreamIterate(0); s != 0; s, _ = vm.glk.StreamIterate(s) {
		if s == str {
			return true
		}
	}
	return false
}

func (vm *VM) readStream(str glk.StreamID) []byte {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n := vm.glk.GetBufferStream(str, buf)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}
