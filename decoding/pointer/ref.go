package pointer

import (
	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ErrUnclassifiablePointer indicates a reference or pointer which is none of the five known pointer kinds. This is a
// broken invariant rather than a decoding failure, and terminates the session it occurs in.
var ErrUnclassifiablePointer = errors.New("pointer matches no known pointer kind")

// Ref is the partial, mergeable reference recorded for an assignment. Fields are filled in as they are discovered,
// possibly over several trace steps. Nil fields are unknown.
type Ref struct {
	Storage    *StoragePointer `json:"storage,omitempty"`
	Memory     *MemoryPointer  `json:"memory,omitempty"`
	Stack      *int            `json:"stack,omitempty"`
	Literal    *uint256.Int    `json:"literal,omitempty"`
	Definition *types.Node     `json:"-"`
}

// StackRef creates a reference to the operand stack slot with the provided index.
func StackRef(index int) Ref {
	return Ref{Stack: &index}
}

// LiteralRef creates a reference holding the provided word.
func LiteralRef(literal *uint256.Int) Ref {
	return Ref{Literal: new(uint256.Int).Set(literal)}
}

// StorageRef creates a reference to a storage location.
func StorageRef(storage StoragePointer) Ref {
	return Ref{Storage: &storage}
}

// DefinitionRef creates a reference to a compile-time constant definition.
func DefinitionRef(definition *types.Node) Ref {
	return Ref{Definition: definition}
}

// Merge returns a reference holding the fields of the receiver, overlaid with every known field of overlay. Neither
// reference is modified.
func (r Ref) Merge(overlay Ref) Ref {
	merged := r
	if overlay.Storage != nil {
		merged.Storage = overlay.Storage
	}
	if overlay.Memory != nil {
		merged.Memory = overlay.Memory
	}
	if overlay.Stack != nil {
		merged.Stack = overlay.Stack
	}
	if overlay.Literal != nil {
		merged.Literal = overlay.Literal
	}
	if overlay.Definition != nil {
		merged.Definition = overlay.Definition
	}
	return merged
}

// IsEmpty reports whether no field of the reference is known.
func (r Ref) IsEmpty() bool {
	return r.Storage == nil && r.Memory == nil && r.Stack == nil && r.Literal == nil && r.Definition == nil
}

// Equal reports whether two references hold the same fields.
func (r Ref) Equal(other Ref) bool {
	if (r.Storage == nil) != (other.Storage == nil) || (r.Storage != nil && *r.Storage != *other.Storage) {
		return false
	}
	if (r.Memory == nil) != (other.Memory == nil) || (r.Memory != nil && *r.Memory != *other.Memory) {
		return false
	}
	if (r.Stack == nil) != (other.Stack == nil) || (r.Stack != nil && *r.Stack != *other.Stack) {
		return false
	}
	if (r.Literal == nil) != (other.Literal == nil) || (r.Literal != nil && !r.Literal.Eq(other.Literal)) {
		return false
	}
	return r.Definition == other.Definition
}

// Pointer classifies the reference into a located DataPointer. When several fields are known, they are preferred in
// the order storage, memory, stack, literal, definition.
// Returns ErrUnclassifiablePointer if no field is known.
func (r Ref) Pointer() (DataPointer, error) {
	switch {
	case r.Storage != nil:
		return *r.Storage, nil
	case r.Memory != nil:
		return *r.Memory, nil
	case r.Stack != nil:
		return StackPointer{Index: *r.Stack}, nil
	case r.Literal != nil:
		return StackLiteralPointer{Literal: *r.Literal}, nil
	case r.Definition != nil:
		return ConstantDefinitionPointer{Definition: r.Definition}, nil
	}
	return nil, errors.WithStack(ErrUnclassifiablePointer)
}
