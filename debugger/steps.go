package debugger

import (
	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/data"
	"github.com/pkg/errors"
)

// MarkFinalInstructions sets AtLastInstructionForSourceRange on every step executing the provided bytecode: a step is
// final when the step executed after it maps to a different source range. The last step is always final.
// Returns an error if the source map does not describe the bytecode, or a step executes an instruction the source map
// does not describe.
func MarkFinalInstructions(steps []*data.TraceStep, sourceMap types.SourceMap, bytecode []byte) error {
	lookup, err := sourceMap.GetOffsetToInstructionIndexLookup(bytecode)
	if err != nil {
		return err
	}

	elements := make([]types.SourceMapElement, len(steps))
	for i, step := range steps {
		instructionIndex, ok := lookup[step.ProgramCounter]
		if !ok {
			return errors.Errorf("trace step %d executes unmapped program counter %d", step.Index, step.ProgramCounter)
		}
		elements[i] = sourceMap[instructionIndex]
	}

	// Jumps leave a source range even when the instruction following them in bytecode maps to the same range
	for i, step := range steps {
		step.AtLastInstructionForSourceRange = i == len(steps)-1 || !elements[i].SameSourceRange(elements[i+1])
	}
	return nil
}
