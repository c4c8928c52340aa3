// Package storage computes where state variables and struct members live in account storage, following the layout
// rules of the Solidity compiler.
package storage

import (
	"fmt"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding/pointer"
	"golang.org/x/exp/slices"
)

// SlotSize is the byte size of a storage slot.
const SlotSize = 32

// Size describes the storage a type occupies. Types smaller than a slot occupy Bytes and may share a slot with their
// neighbours. Every other type occupies whole Slots.
type Size struct {
	Bytes int
	Slots uint64
}

// IsPacked reports whether the type may share a slot with its neighbours.
func (s Size) IsPacked() bool {
	return s.Slots == 0
}

// String returns a string representation of the size.
func (s Size) String() string {
	if s.IsPacked() {
		return fmt.Sprintf("%d bytes", s.Bytes)
	}
	return fmt.Sprintf("%d slots", s.Slots)
}

// Member describes where a single state variable or struct member lives.
type Member struct {
	// Definition is the variable declaration of the member.
	Definition *types.Node

	// Pointer locates the member: a storage location relative to the start of its container, or the definition of the
	// value of a constant.
	Pointer pointer.Ref
}

// Allocation describes the storage layout of a contract or struct.
type Allocation struct {
	// ID is the AST id of the contract or struct definition.
	ID int

	// Members maps member declaration ids to their Member.
	Members map[int]*Member

	// Size is the storage a struct occupies. It is unused for contracts.
	Size Size
}

// MemberIDs returns the ids of every member of the allocation in ascending order.
func (a *Allocation) MemberIDs() []int {
	ids := make([]int, 0, len(a.Members))
	for id := range a.Members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Allocations maps contract and struct definition ids to their Allocation.
type Allocations map[int]*Allocation
