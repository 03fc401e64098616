package vm

import "strconv"

// I/O system modes selected by setiosys.
const (
	IOSysNull   = 0
	IOSysFilter = 1
	IOSysGlk    = 2
)

// String types, identified by their first byte.
const (
	stringCString     = 0xE0
	stringCompressed  = 0xE1
	stringUnicode     = 0xE2
	stringTypeMinimum = 0xE0
)

// Decoding table node types.
const (
	nodeBranch             = 0x00
	nodeEnd                = 0x01
	nodeChar               = 0x02
	nodeCString            = 0x03
	nodeUniChar            = 0x04
	nodeUniString          = 0x05
	nodeIndirect           = 0x08
	nodeDoubleIndirect     = 0x09
	nodeIndirectArgs       = 0x0A
	nodeDoubleIndirectArgs = 0x0B
)

func (vm *VM) setIOSys(mode, rock uint32) {
	switch mode {
	case IOSysNull, IOSysFilter, IOSysGlk:
		vm.iosysMode, vm.iosysRock = mode, rock
	default:
		vm.iosysMode, vm.iosysRock = IOSysNull, 0
	}
}

// ---------------------------------------------------------------------------
// Characters and numbers
// ---------------------------------------------------------------------------

func (vm *VM) streamChar(ch uint32) {
	switch vm.iosysMode {
	case IOSysGlk:
		vm.glk.PutChar(byte(ch))
	case IOSysFilter:
		vm.pushCallstub(destDiscard, 0)
		vm.enterFunction(vm.iosysRock, []uint32{ch & 0xFF})
	}
}

func (vm *VM) streamUniChar(ch uint32) {
	switch vm.iosysMode {
	case IOSysGlk:
		vm.glk.PutCharUni(ch)
	case IOSysFilter:
		vm.pushCallstub(destDiscard, 0)
		vm.enterFunction(vm.iosysRock, []uint32{ch})
	}
}

// streamNum prints val as a signed decimal. In filter mode each digit is a
// separate call, resumed through a number stub that records the next digit.
func (vm *VM) streamNum(val uint32, inmiddle bool, charnum uint32) {
	digits := strconv.FormatInt(int64(int32(val)), 10)

	switch vm.iosysMode {
	case IOSysGlk:
		if charnum < uint32(len(digits)) {
			vm.glk.PutBuffer([]byte(digits[charnum:]))
		}
	case IOSysFilter:
		if !inmiddle {
			vm.pushCallstub(destStringEnd, 0)
			inmiddle = true
		}
		if charnum < uint32(len(digits)) {
			vm.pc = val
			vm.pushCallstub(destResumeNumber, charnum+1)
			vm.enterFunction(vm.iosysRock, []uint32{uint32(digits[charnum])})
			return
		}
	}

	if inmiddle {
		if kind, _ := vm.popCallstubString(); kind != destStringEnd {
			vm.fatal(ErrBadDestType, "stub type %#x at end of number", kind)
		}
	}
}

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

// streamString prints the string object at addr. inmiddle is zero for a
// fresh string, or the string type being resumed at addr (with bitnum for
// compressed strings).
func (vm *VM) streamString(addr uint32, inmiddle uint32, bitnum uint32) {
	substring := inmiddle != 0

	for {
		var typ uint32
		if inmiddle == 0 {
			typ = vm.read8(addr)
			if typ == stringUnicode {
				if vm.read32(addr)&0x00FFFFFF != 0 {
					vm.fatal(ErrStringDecode, "unicode string at $%08X has nonzero padding", addr)
				}
				addr += 4
			} else {
				addr++
			}
			bitnum = 0
		} else {
			typ = inmiddle
		}

		var switched, called bool
		switch typ {
		case stringCompressed:
			addr, bitnum, inmiddle, switched, called = vm.decodeCompressed(addr, bitnum, &substring)
		case stringCString:
			if vm.iosysMode == IOSysFilter {
				if !substring {
					vm.pushCallstub(destStringEnd, 0)
					substring = true
				}
				if ch := vm.read8(addr); ch != 0 {
					vm.pc = addr + 1
					vm.pushCallstub(destResumeCString, 0)
					vm.enterFunction(vm.iosysRock, []uint32{ch})
					return
				}
			} else {
				s := vm.readCString(addr)
				if vm.iosysMode == IOSysGlk {
					vm.glk.PutBuffer(s)
				}
			}
		case stringUnicode:
			if vm.iosysMode == IOSysFilter {
				if !substring {
					vm.pushCallstub(destStringEnd, 0)
					substring = true
				}
				if ch := vm.read32(addr); ch != 0 {
					vm.pc = addr + 4
					vm.pushCallstub(destResumeUnicode, 0)
					vm.enterFunction(vm.iosysRock, []uint32{ch})
					return
				}
			} else {
				s := vm.readUniString(addr)
				if vm.iosysMode == IOSysGlk {
					vm.glk.PutBufferUni(s)
				}
			}
		default:
			if typ >= stringTypeMinimum {
				vm.fatal(ErrStringDecode, "unknown string type $%02X", typ)
			}
			vm.fatal(ErrStringDecode, "streamstr of non-string ($%02X)", typ)
		}

		if called {
			return
		}
		if switched {
			continue
		}

		// This string is finished. Return to the enclosing one if any.
		if !substring {
			return
		}
		kind, bits := vm.popCallstubString()
		switch kind {
		case destStringEnd:
			return
		case destResumeCompressed:
			inmiddle = stringCompressed
			addr = vm.pc
			bitnum = bits
		default:
			vm.fatal(ErrBadDestType, "stub type %#x inside string", kind)
		}
	}
}

// decodeCompressed walks the decoding tree from the root, printing
// characters until the string ends, a nested string must be entered
// (switched), or a function has been called (called).
func (vm *VM) decodeCompressed(addr, bitnum uint32, substring *bool) (newAddr, newBit, inmiddle uint32, switched, called bool) {
	if vm.stringTable == 0 {
		vm.fatal(ErrStringDecode, "compressed string with no decoding table")
	}
	root := vm.read32(vm.stringTable + 8)

	enterSubstring := func() {
		if !*substring {
			vm.pushCallstub(destStringEnd, 0)
			*substring = true
		}
		vm.pc = addr
		vm.pushCallstub(destResumeCompressed, bitnum)
	}

	node := root
	ch := vm.read8(addr)
	for {
		nodeType := vm.read8(node)
		node++
		switch nodeType {
		case nodeBranch:
			bit := ch & (1 << bitnum)
			bitnum++
			if bitnum == 8 {
				bitnum = 0
				addr++
				ch = vm.read8(addr)
			}
			if bit != 0 {
				node = vm.read32(node + 4)
			} else {
				node = vm.read32(node)
			}
			continue

		case nodeEnd:
			return addr, bitnum, 0, false, false

		case nodeChar, nodeUniChar:
			var c uint32
			if nodeType == nodeChar {
				c = vm.read8(node)
			} else {
				c = vm.read32(node)
			}
			switch vm.iosysMode {
			case IOSysGlk:
				if nodeType == nodeChar {
					vm.glk.PutChar(byte(c))
				} else {
					vm.glk.PutCharUni(c)
				}
			case IOSysFilter:
				enterSubstring()
				vm.enterFunction(vm.iosysRock, []uint32{c})
				return addr, bitnum, 0, false, true
			}

		case nodeCString, nodeUniString:
			switch vm.iosysMode {
			case IOSysGlk:
				if nodeType == nodeCString {
					vm.glk.PutBuffer(vm.readCString(node))
				} else {
					vm.glk.PutBufferUni(vm.readUniString(node))
				}
			case IOSysFilter:
				enterSubstring()
				if nodeType == nodeCString {
					return node, 0, stringCString, true, false
				}
				return node, 0, stringUnicode, true, false
			}

		case nodeIndirect, nodeDoubleIndirect, nodeIndirectArgs, nodeDoubleIndirectArgs:
			target := vm.read32(node)
			if nodeType == nodeDoubleIndirect || nodeType == nodeDoubleIndirectArgs {
				target = vm.read32(target)
			}
			var args []uint32
			if nodeType == nodeIndirectArgs || nodeType == nodeDoubleIndirectArgs {
				args = vm.readWords(node+8, vm.read32(node+4))
			}
			targetType := vm.read8(target)
			enterSubstring()
			switch {
			case targetType >= stringTypeMinimum:
				return target, 0, 0, true, false
			case targetType >= funcStackArgs:
				vm.enterFunction(target, args)
				return addr, bitnum, 0, false, true
			default:
				vm.fatal(ErrStringDecode, "indirect reference to $%08X (type $%02X)", target, targetType)
			}

		default:
			vm.fatal(ErrStringDecode, "unknown decoding node type $%02X at $%08X", nodeType, node-1)
		}
		node = root
	}
}
