// Package pointer describes where a decodable value lives during execution: in account storage, in memory, on the
// operand stack, as a literal word already taken off the stack, or as a compile-time constant definition.
package pointer

import (
	"fmt"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/holiman/uint256"
)

// DataPointer is a located pointer to a value. It is a closed variant: StoragePointer, MemoryPointer, StackPointer,
// StackLiteralPointer and ConstantDefinitionPointer are the only implementations.
type DataPointer interface {
	fmt.Stringer

	// isDataPointer seals the interface to this package.
	isDataPointer()
}

// StoragePointer points to a value in account storage. Values are addressed from the right (least significant) end of
// a slot, as the compiler packs them. A value longer than a slot spans Length bytes over consecutive slots, starting
// at Slot with Offset zero.
type StoragePointer struct {
	// Slot is the first storage slot of the value.
	Slot uint256.Int

	// Offset is the byte offset of the value within Slot, counted from the least significant byte.
	Offset int

	// Length is the amount of bytes the value occupies.
	Length int
}

// MemoryPointer points to a byte range in memory.
type MemoryPointer struct {
	Start  uint64
	Length uint64
}

// StackPointer points to an operand stack slot, indexed from the bottom of the stack.
type StackPointer struct {
	Index int
}

// StackLiteralPointer carries a word that was already taken off the stack.
type StackLiteralPointer struct {
	Literal uint256.Int
}

// ConstantDefinitionPointer points to a compile-time constant, which never materializes in the trace and is decoded
// from its definition alone.
type ConstantDefinitionPointer struct {
	Definition *types.Node
}

func (StoragePointer) isDataPointer()            {}
func (MemoryPointer) isDataPointer()             {}
func (StackPointer) isDataPointer()              {}
func (StackLiteralPointer) isDataPointer()       {}
func (ConstantDefinitionPointer) isDataPointer() {}

// String returns a string representation of the pointer.
func (p StoragePointer) String() string {
	return fmt.Sprintf("storage(slot=%s, offset=%d, length=%d)", p.Slot.Hex(), p.Offset, p.Length)
}

// String returns a string representation of the pointer.
func (p MemoryPointer) String() string {
	return fmt.Sprintf("memory(start=%d, length=%d)", p.Start, p.Length)
}

// String returns a string representation of the pointer.
func (p StackPointer) String() string {
	return fmt.Sprintf("stack(%d)", p.Index)
}

// String returns a string representation of the pointer.
func (p StackLiteralPointer) String() string {
	return fmt.Sprintf("literal(%s)", p.Literal.Hex())
}

// String returns a string representation of the pointer.
func (p ConstantDefinitionPointer) String() string {
	if p.Definition == nil {
		return "definition(nil)"
	}
	return fmt.Sprintf("definition(%d)", p.Definition.ID)
}

// SlotCount returns the amount of storage slots the value pointed to spans.
func (p StoragePointer) SlotCount() int {
	if p.Length <= 0 {
		return 1
	}
	return (p.Offset + p.Length + 31) / 32
}
