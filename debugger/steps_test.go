package debugger

import (
	"testing"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarkFinalInstructions verifies only the last instruction of each source range is marked final.
func TestMarkFinalInstructions(t *testing.T) {
	// PUSH1 0x01, PUSH1 0x02, ADD, STOP
	bytecode := []byte{0x60, 0x01, 0x60, 0x02, 0x01, 0x00}
	sourceMap, err := types.ParseSourceMap("0:10:0;;10:5:0;0:20:0")
	require.NoError(t, err)

	steps := []*data.TraceStep{
		{Index: 0, ProgramCounter: 0},
		{Index: 1, ProgramCounter: 2},
		{Index: 2, ProgramCounter: 4},
		{Index: 3, ProgramCounter: 5},
	}
	require.NoError(t, MarkFinalInstructions(steps, sourceMap, bytecode))

	final := make([]bool, len(steps))
	for i, step := range steps {
		final[i] = step.AtLastInstructionForSourceRange
	}
	assert.EqualValues(t, []bool{false, true, true, true}, final)

	// Push data is not an instruction
	assert.Error(t, MarkFinalInstructions([]*data.TraceStep{{ProgramCounter: 1}}, sourceMap, bytecode))
}

// TestMarkFinalInstructionsJump verifies a jump leaving a source range is final even when the instruction after it in
// bytecode maps to the same range.
func TestMarkFinalInstructionsJump(t *testing.T) {
	// PUSH1 0x04, JUMP, JUMPDEST (unreached), JUMPDEST, STOP
	bytecode := []byte{0x60, 0x04, 0x56, 0x5b, 0x5b, 0x00}
	sourceMap, err := types.ParseSourceMap("0:10:0;;;20:5:0;")
	require.NoError(t, err)

	steps := []*data.TraceStep{
		{Index: 0, ProgramCounter: 0},
		{Index: 1, ProgramCounter: 2},
		{Index: 2, ProgramCounter: 4},
		{Index: 3, ProgramCounter: 5},
	}
	require.NoError(t, MarkFinalInstructions(steps, sourceMap, bytecode))

	final := make([]bool, len(steps))
	for i, step := range steps {
		final[i] = step.AtLastInstructionForSourceRange
	}
	assert.EqualValues(t, []bool{false, true, false, true}, final)
}
