package vm

import (
	"fmt"
	"strings"
)

// disassembleAt renders the instruction at addr and returns the address of
// the next one. It reads memory but changes no machine state; bad
// addresses fault like any other read.
func (vm *VM) disassembleAt(addr uint32) (string, uint32) {
	saved := vm.pc
	defer func() { vm.pc = saved }()

	vm.pc = addr
	op := vm.readOpcode()
	info, ok := GetOpcodeInfo(op)
	if !ok {
		return op.String(), vm.pc
	}

	var sb strings.Builder
	sb.WriteString(info.Name)

	modes := vm.pc
	vm.pc += uint32(len(info.Operands)+1) / 2
	for i := 0; i < len(info.Operands); i++ {
		b := vm.read8(modes + uint32(i/2))
		mode := b & 0x0F
		if i%2 == 1 {
			mode = b >> 4
		}
		sb.WriteByte(' ')
		if info.Operands[i] == 'S' {
			sb.WriteString("-> ")
		}
		sb.WriteString(vm.formatOperand(mode, info.Operands[i] == 'S'))
	}
	return sb.String(), vm.pc
}

func (vm *VM) formatOperand(mode uint32, store bool) string {
	switch mode {
	case 0x0:
		if store {
			return "discard"
		}
		return "0"
	case 0x1:
		return fmt.Sprintf("#%d", int8(vm.operandData(mode)))
	case 0x2:
		return fmt.Sprintf("#%d", int16(vm.operandData(mode)))
	case 0x3:
		return fmt.Sprintf("#$%X", vm.operandData(mode))
	case 0x5, 0x6, 0x7:
		return fmt.Sprintf("*$%X", vm.operandData(mode))
	case 0x8:
		return "sp"
	case 0x9, 0xA, 0xB:
		return fmt.Sprintf("local%d", vm.operandData(mode))
	case 0xD, 0xE, 0xF:
		return fmt.Sprintf("*(ram+$%X)", vm.operandData(mode))
	}
	return fmt.Sprintf("?mode%X", mode)
}

// Disassemble renders count instructions starting at addr, one per line.
func (vm *VM) Disassemble(addr uint32, count int) (listing string, err error) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			err = f
		}
	}()

	var sb strings.Builder
	for i := 0; i < count; i++ {
		text, next := vm.disassembleAt(addr)
		sb.WriteString(fmt.Sprintf("%08X  %s\n", addr, text))
		addr = next
	}
	return sb.String(), nil
}

// FunctionBody returns the address of the first instruction of the
// function at addr, skipping its type byte and locals format.
func (vm *VM) FunctionBody(addr uint32) (body uint32, err error) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			err = f
		}
	}()

	if t := vm.read8(addr); t != funcStackArgs && t != funcLocalArgs {
		return 0, fmt.Errorf("%w: type byte $%02X at $%08X", ErrNotFunction, t, addr)
	}
	p := addr + 1
	for vm.read8(p) != 0 {
		p += 2
	}
	return p + 2, nil
}
