package types

import (
	"strconv"
	"strings"

	"github.com/crytic/medusa-geth/core/vm"
	"github.com/pkg/errors"
)

// Reference: Source mapping is performed according to the rules specified in solidity documentation:
// https://docs.soliditylang.org/en/latest/internals/source_mappings.html

// SourceMapJumpType describes the type of jump operation occurring within a SourceMapElement if the instruction
// is jumping.
type SourceMapJumpType string

const (
	// SourceMapJumpTypeNone indicates no jump occurred.
	SourceMapJumpTypeNone SourceMapJumpType = ""

	// SourceMapJumpTypeJumpIn indicates a jump into a function occurred.
	SourceMapJumpTypeJumpIn SourceMapJumpType = "i"

	// SourceMapJumpTypeJumpOut indicates a return from a function occurred.
	SourceMapJumpTypeJumpOut SourceMapJumpType = "o"

	// SourceMapJumpTypeJumpWithin indicates a jump occurred within the same function, e.g. for loops.
	SourceMapJumpTypeJumpWithin SourceMapJumpType = "-"
)

// SourceMap describes a list of elements which correspond to instruction indexes in compiled bytecode, describing
// which source files and the start/end range of the source code which the instruction maps to.
type SourceMap []SourceMapElement

// SourceMapElement describes an individual element of a source mapping output by the compiler.
// The index of each element in a source map corresponds to an instruction index (not to be mistaken with offset).
type SourceMapElement struct {
	// Index refers to the index of the SourceMapElement within its parent SourceMap.
	Index int

	// Offset refers to the byte offset which marks the start of the source range the instruction maps to.
	Offset int

	// Length refers to the byte length of the source range the instruction maps to.
	Length int

	// FileID refers to an identifier for the source file which houses the relevant source code.
	FileID int

	// JumpType refers to the SourceMapJumpType which provides information about any type of jump that occurred.
	JumpType SourceMapJumpType

	// ModifierDepth refers to the depth in which code has executed a modifier function.
	ModifierDepth int
}

// SameSourceRange reports whether two elements map to the same range of the same source file.
func (e SourceMapElement) SameSourceRange(other SourceMapElement) bool {
	return e.Offset == other.Offset && e.Length == other.Length && e.FileID == other.FileID
}

// ParseSourceMap takes a source mapping string returned by the compiler and parses it into an array of
// SourceMapElement objects. Empty elements and fields inherit the value of the previous element.
// Returns the list of SourceMapElement objects.
func ParseSourceMap(sourceMapStr string) (SourceMap, error) {
	var sourceMap SourceMap
	if len(sourceMapStr) == 0 {
		return sourceMap, nil
	}

	current := SourceMapElement{
		Index:  -1,
		Offset: -1,
		Length: -1,
		FileID: -1,
	}

	for _, element := range strings.Split(sourceMapStr, ";") {
		current.Index = len(sourceMap)
		fields := strings.Split(element, ":")

		integerFields := []*int{&current.Offset, &current.Length, &current.FileID}
		for i, target := range integerFields {
			if len(fields) <= i || fields[i] == "" {
				continue
			}
			value, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, errors.Wrapf(err, "malformed source map element %d", current.Index)
			}
			*target = value
		}

		if len(fields) > 3 && fields[3] != "" {
			current.JumpType = SourceMapJumpType(fields[3])
		}

		if len(fields) > 4 && fields[4] != "" {
			value, err := strconv.Atoi(fields[4])
			if err != nil {
				return nil, errors.Wrapf(err, "malformed source map element %d", current.Index)
			}
			current.ModifierDepth = value
		}

		sourceMap = append(sourceMap, current)
	}

	return sourceMap, nil
}

// GetOffsetToInstructionIndexLookup obtains a lookup from program counter (bytecode offset) to instruction index,
// skipping over push data.
// Returns the lookup, or an error if the source map describes more instructions than the bytecode holds.
func (s SourceMap) GetOffsetToInstructionIndexLookup(bytecode []byte) (map[uint64]int, error) {
	lookup := make(map[uint64]int, len(s))
	offset := 0
	for i := 0; i < len(s); i++ {
		if offset >= len(bytecode) {
			return nil, errors.Errorf("failed to obtain a lookup of offsets to instruction indexes. current offset: %v, length: %v", offset, len(bytecode))
		}
		lookup[uint64(offset)] = i

		// Skip the instruction and any push data following it
		op := vm.OpCode(bytecode[offset])
		operandCount := 0
		if op.IsPush() && op != vm.PUSH0 {
			operandCount = int(op) - int(vm.PUSH1) + 1
		}
		offset += operandCount + 1
	}
	return lookup, nil
}
