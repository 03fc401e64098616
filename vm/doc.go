// Package vm implements the Glulx virtual machine.
//
// This package contains:
//   - Image loading and header validation
//   - Memory map with a growable heap
//   - Operand decoding and the instruction loop
//   - Call frames, string decoding and output systems
//   - Save, restore and undo in Quetzal format
//   - Dispatch of glk calls to a glk.Capability
package vm
