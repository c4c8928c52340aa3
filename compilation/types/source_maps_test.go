package types

import (
	"testing"

	"github.com/crytic/medusa-geth/core/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseSourceMapInheritance verifies that omitted fields inherit the value of the previous element.
func TestParseSourceMapInheritance(t *testing.T) {
	sourceMap, err := ParseSourceMap("0:10:0:-:0;;5:3;:::i;2:1:1:o:1")
	require.NoError(t, err)
	require.Len(t, sourceMap, 5)

	assert.EqualValues(t, SourceMapElement{Index: 0, Offset: 0, Length: 10, FileID: 0, JumpType: SourceMapJumpTypeJumpWithin}, sourceMap[0])
	assert.EqualValues(t, SourceMapElement{Index: 1, Offset: 0, Length: 10, FileID: 0, JumpType: SourceMapJumpTypeJumpWithin}, sourceMap[1])
	assert.EqualValues(t, SourceMapElement{Index: 2, Offset: 5, Length: 3, FileID: 0, JumpType: SourceMapJumpTypeJumpWithin}, sourceMap[2])
	assert.EqualValues(t, SourceMapJumpTypeJumpIn, sourceMap[3].JumpType)
	assert.EqualValues(t, SourceMapElement{Index: 4, Offset: 2, Length: 1, FileID: 1, JumpType: SourceMapJumpTypeJumpOut, ModifierDepth: 1}, sourceMap[4])

	_, err = ParseSourceMap("0:x:0")
	assert.Error(t, err)
}

// TestSameSourceRange verifies elements compare by offset, length and file only.
func TestSameSourceRange(t *testing.T) {
	sourceMap, err := ParseSourceMap("0:10:0;:::i;5:3:0;0:10:1")
	require.NoError(t, err)

	assert.True(t, sourceMap[0].SameSourceRange(sourceMap[1]))
	assert.False(t, sourceMap[1].SameSourceRange(sourceMap[2]))
	assert.False(t, sourceMap[0].SameSourceRange(sourceMap[3]))
}

// TestOffsetToInstructionIndexLookup verifies push data is skipped when mapping offsets to instruction indexes.
func TestOffsetToInstructionIndexLookup(t *testing.T) {
	bytecode := []byte{
		byte(vm.PUSH1), 0x80,
		byte(vm.PUSH0),
		byte(vm.PUSH2), 0x01, 0x02,
		byte(vm.MSTORE),
	}
	sourceMap, err := ParseSourceMap("0:1:0;1:1:0;2:1:0;3:1:0")
	require.NoError(t, err)

	lookup, err := sourceMap.GetOffsetToInstructionIndexLookup(bytecode)
	require.NoError(t, err)
	assert.EqualValues(t, map[uint64]int{0: 0, 2: 1, 3: 2, 6: 3}, lookup)

	_, err = sourceMap.GetOffsetToInstructionIndexLookup(bytecode[:3])
	assert.Error(t, err)
}
