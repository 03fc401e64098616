package vm

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Header layout constants
const (
	headerSize     = 36
	checksumOffset = 32

	minVersion = 0x00020000
	maxVersion = 0x000301FF

	// ROM bytes recorded in a save file's IFhd chunk.
	identifySize = 128
)

// ---------------------------------------------------------------------------
// Header: Parsed image header
// ---------------------------------------------------------------------------

// Header contains the fixed 36-byte header of a game image.
type Header struct {
	Magic       uint32 // "Glul"
	Version     uint32
	RAMStart    uint32
	ExtStart    uint32
	EndMem      uint32
	StackSize   uint32 // bytes
	StartFunc   uint32
	StringTable uint32 // initial decoding table address
	Checksum    uint32
}

const magicGlul = 0x476C756C

// ParseHeader decodes and validates the header at the start of data.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: image is %d bytes, need at least %d", ErrCorruptHeader, len(data), headerSize)
	}
	word := func(i int) uint32 { return binary.BigEndian.Uint32(data[i*4:]) }
	h := &Header{
		Magic:       word(0),
		Version:     word(1),
		RAMStart:    word(2),
		ExtStart:    word(3),
		EndMem:      word(4),
		StackSize:   word(5),
		StartFunc:   word(6),
		StringTable: word(7),
		Checksum:    word(8),
	}
	if h.Magic != magicGlul {
		return nil, ErrInvalidMagic
	}
	if h.Version < minVersion || h.Version > maxVersion {
		return nil, fmt.Errorf("%w: %s", ErrVersionMismatch, FormatVersion(h.Version))
	}
	for _, f := range []struct {
		name string
		val  uint32
	}{
		{"RAMSTART", h.RAMStart},
		{"EXTSTART", h.ExtStart},
		{"ENDMEM", h.EndMem},
		{"stack size", h.StackSize},
	} {
		if f.val%256 != 0 {
			return nil, fmt.Errorf("%w: %s $%08X is not a multiple of 256", ErrCorruptHeader, f.name, f.val)
		}
	}
	if h.RAMStart < 256 {
		return nil, fmt.Errorf("%w: RAMSTART $%08X below $100", ErrCorruptHeader, h.RAMStart)
	}
	if h.RAMStart > h.ExtStart || h.ExtStart > h.EndMem {
		return nil, fmt.Errorf("%w: segments out of order (RAMSTART $%08X, EXTSTART $%08X, ENDMEM $%08X)",
			ErrCorruptHeader, h.RAMStart, h.ExtStart, h.EndMem)
	}
	return h, nil
}

// FormatVersion renders a packed version word as major.minor.sub.
func FormatVersion(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>16, (v>>8)&0xFF, v&0xFF)
}

// Checksum computes the image checksum of rom: the wrapping sum of its
// big-endian words with the header's checksum word counted as zero.
func Checksum(rom []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(rom); i += 4 {
		if i == checksumOffset {
			continue
		}
		sum += binary.BigEndian.Uint32(rom[i:])
	}
	return sum
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadImage reads a complete game image from r and prepares the machine to
// run it.
func (vm *VM) LoadImage(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	return vm.LoadImageFromBytes(data)
}

// LoadImageFromBytes validates data as a game image and prepares the
// machine to run it. The slice is not retained.
func (vm *VM) LoadImageFromBytes(data []byte) error {
	h, err := ParseHeader(data)
	if err != nil {
		return err
	}
	if uint32(len(data)) < h.ExtStart {
		return fmt.Errorf("%w: image is %d bytes but EXTSTART is $%08X", ErrCorruptHeader, len(data), h.ExtStart)
	}
	rom := make([]byte, h.ExtStart)
	copy(rom, data)

	if sum := Checksum(rom); sum != h.Checksum {
		return fmt.Errorf("%w: header says $%08X, computed $%08X", ErrChecksum, h.Checksum, sum)
	}
	if h.StartFunc >= h.ExtStart {
		return fmt.Errorf("%w: start function $%08X outside ROM", ErrBadStartFunction, h.StartFunc)
	}
	if t := rom[h.StartFunc]; t != 0xC0 && t != 0xC1 {
		return fmt.Errorf("%w: type byte $%02X at $%08X", ErrBadStartFunction, t, h.StartFunc)
	}

	vm.hdr = *h
	vm.rom = rom
	vm.loaded = true
	vm.protectStart, vm.protectEnd = 0, 0
	vm.resetMem()
	vm.applyStackLimit()
	vm.stack = vm.stack[:0]
	vm.undo.clear()
	vm.started, vm.halted = false, false

	vm.log.Infof("loaded image: version %s, RAM $%08X, EXT $%08X, END $%08X, stack %d bytes",
		FormatVersion(h.Version), h.RAMStart, h.ExtStart, h.EndMem, h.StackSize)
	return nil
}
