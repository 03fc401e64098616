package vm

import "bytes"

// Search option flags.
const (
	SearchKeyIndirect       = 0x01
	SearchZeroKeyTerminates = 0x02
	SearchReturnIndex       = 0x04
)

// searchKey returns the key bytes for a search. A direct key is the low
// keysize bytes of the operand, big-endian.
func (vm *VM) searchKey(key, keysize, options uint32) []byte {
	if options&SearchKeyIndirect != 0 {
		return vm.readBytes(key, keysize)
	}
	switch keysize {
	case 1:
		return []byte{byte(key)}
	case 2:
		return []byte{byte(key >> 8), byte(key)}
	case 4:
		return []byte{byte(key >> 24), byte(key >> 16), byte(key >> 8), byte(key)}
	}
	vm.fatal(ErrSearchKeySize, "direct key of %d bytes", keysize)
	return nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func notFound(options uint32) uint32 {
	if options&SearchReturnIndex != 0 {
		return 0xFFFFFFFF
	}
	return 0
}

// linearSearch scans numstructs structures (unbounded when -1) for key.
func (vm *VM) linearSearch(key, keysize, start, structsize, numstructs, keyoffset, options uint32) uint32 {
	k := vm.searchKey(key, keysize, options)
	zeroTerm := options&SearchZeroKeyTerminates != 0
	for i := uint32(0); int32(numstructs) == -1 || i < numstructs; i++ {
		addr := start + i*structsize
		got := vm.readBytes(addr+keyoffset, keysize)
		if bytes.Equal(got, k) {
			if options&SearchReturnIndex != 0 {
				return i
			}
			return addr
		}
		if zeroTerm && isZero(got) {
			break
		}
	}
	return notFound(options)
}

// binarySearch searches numstructs structures sorted by key, compared as
// unsigned big-endian byte strings.
func (vm *VM) binarySearch(key, keysize, start, structsize, numstructs, keyoffset, options uint32) uint32 {
	k := vm.searchKey(key, keysize, options)
	lo, hi := uint32(0), numstructs
	for lo < hi {
		mid := lo + (hi-lo)/2
		addr := start + mid*structsize
		switch cmp := bytes.Compare(vm.readBytes(addr+keyoffset, keysize), k); {
		case cmp == 0:
			if options&SearchReturnIndex != 0 {
				return mid
			}
			return addr
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return notFound(options)
}

// linkedSearch follows the chain of next pointers from start.
func (vm *VM) linkedSearch(key, keysize, start, keyoffset, nextoffset, options uint32) uint32 {
	k := vm.searchKey(key, keysize, options)
	zeroTerm := options&SearchZeroKeyTerminates != 0
	for addr := start; addr != 0; addr = vm.read32(addr + nextoffset) {
		got := vm.readBytes(addr+keyoffset, keysize)
		if bytes.Equal(got, k) {
			return addr
		}
		if zeroTerm && isZero(got) {
			break
		}
	}
	return 0
}
