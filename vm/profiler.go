package vm

import (
	"fmt"
	"sort"
	"strings"
)

// Profiler counts function entries and executed opcodes. Counts for
// accelerated calls are not recorded since no bytecode runs.
type Profiler struct {
	Instructions uint64 // total instructions executed

	calls   map[uint32]uint64 // function address -> entries
	opcodes map[Opcode]uint64
}

// ProfileEntry is one row of a profile report.
type ProfileEntry struct {
	Key   uint32
	Name  string
	Count uint64
}

// NewProfiler creates an empty profiler.
func NewProfiler() *Profiler {
	return &Profiler{
		calls:   make(map[uint32]uint64),
		opcodes: make(map[Opcode]uint64),
	}
}

// RecordCall counts an entry into the function at addr.
func (p *Profiler) RecordCall(addr uint32) {
	p.calls[addr]++
}

// RecordOpcode counts one executed instruction.
func (p *Profiler) RecordOpcode(op Opcode) {
	p.Instructions++
	p.opcodes[op]++
}

// CallCount returns the number of entries into the function at addr.
func (p *Profiler) CallCount(addr uint32) uint64 {
	return p.calls[addr]
}

// OpcodeCount returns how many times op has executed.
func (p *Profiler) OpcodeCount(op Opcode) uint64 {
	return p.opcodes[op]
}

func topN(entries []ProfileEntry, n int) []ProfileEntry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// HotFunctions returns the n most frequently entered functions.
func (p *Profiler) HotFunctions(n int) []ProfileEntry {
	entries := make([]ProfileEntry, 0, len(p.calls))
	for addr, c := range p.calls {
		entries = append(entries, ProfileEntry{Key: addr, Name: fmt.Sprintf("$%08X", addr), Count: c})
	}
	return topN(entries, n)
}

// HotOpcodes returns the n most frequently executed opcodes.
func (p *Profiler) HotOpcodes(n int) []ProfileEntry {
	entries := make([]ProfileEntry, 0, len(p.opcodes))
	for op, c := range p.opcodes {
		entries = append(entries, ProfileEntry{Key: uint32(op), Name: op.String(), Count: c})
	}
	return topN(entries, n)
}

// Report formats the top n functions and opcodes.
func (p *Profiler) Report(n int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("; %d instructions\n", p.Instructions))
	sb.WriteString("; Functions:\n")
	for _, e := range p.HotFunctions(n) {
		sb.WriteString(fmt.Sprintf(";   %s %10d\n", e.Name, e.Count))
	}
	sb.WriteString("; Opcodes:\n")
	for _, e := range p.HotOpcodes(n) {
		sb.WriteString(fmt.Sprintf(";   %-14s %10d\n", e.Name, e.Count))
	}
	return sb.String()
}
