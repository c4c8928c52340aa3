package data

import (
	"testing"

	"github.com/crytic/medusa-debugger/decoding/pointer"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAssignment creates an assignment, failing the test on error.
func newTestAssignment(t *testing.T, identity IdentityDescriptor, ref pointer.Ref) *Assignment {
	assignment, err := NewAssignment(identity, ref)
	require.NoError(t, err)
	return assignment
}

// TestApplyIdempotent verifies applying the same assignments twice leaves the table as applying them once.
func TestApplyIdempotent(t *testing.T) {
	payload := []*Assignment{
		newTestAssignment(t, StackframeIdentity{AstID: 1, Stackframe: 0}, pointer.StackRef(2)),
		newTestAssignment(t, StackframeIdentity{AstID: 2, Stackframe: 0}, pointer.LiteralRef(uint256.NewInt(5))),
	}

	table := NewAssignmentTable()
	table.Apply(payload)
	once := table.All()

	table.Apply(payload)
	twice := table.All()

	require.Len(t, twice, len(once))
	for i := range once {
		assert.EqualValues(t, once[i].ID, twice[i].ID)
		assert.True(t, once[i].Ref.Equal(twice[i].Ref))
	}
	assert.Len(t, table.ByAstID(1), 1)
}

// TestApplyMergesReferences verifies a known assignment keeps its reference fields unless the new reference knows them.
func TestApplyMergesReferences(t *testing.T) {
	identity := StackframeIdentity{AstID: 3, Stackframe: 1}
	table := NewAssignmentTable()
	table.Apply([]*Assignment{newTestAssignment(t, identity, pointer.StackRef(4))})
	applied := table.Apply([]*Assignment{newTestAssignment(t, identity, pointer.LiteralRef(uint256.NewInt(9)))})

	require.Len(t, applied, 1)
	assignment, ok := table.Get(mustHash(t, identity))
	require.True(t, ok)
	require.NotNil(t, assignment.Ref.Stack)
	require.NotNil(t, assignment.Ref.Literal)
	assert.EqualValues(t, 4, *assignment.Ref.Stack)
	assert.EqualValues(t, 9, assignment.Ref.Literal.Uint64())
	assert.True(t, applied[0].Ref.Equal(assignment.Ref))
}

// TestByAstID verifies every instance of a declaration is found, in the order first recorded.
func TestByAstID(t *testing.T) {
	table := NewAssignmentTable()
	table.Apply([]*Assignment{
		newTestAssignment(t, StackframeIdentity{AstID: 5, Stackframe: 2}, pointer.StackRef(0)),
		newTestAssignment(t, StackframeIdentity{AstID: 6, Stackframe: 2}, pointer.StackRef(1)),
		newTestAssignment(t, StackframeIdentity{AstID: 5, Stackframe: 1}, pointer.StackRef(2)),
	})

	instances := table.ByAstID(5)
	require.Len(t, instances, 2)
	assert.EqualValues(t, StackframeIdentity{AstID: 5, Stackframe: 2}, instances[0].Identity)
	assert.EqualValues(t, StackframeIdentity{AstID: 5, Stackframe: 1}, instances[1].Identity)
	assert.Empty(t, table.ByAstID(7))
	assert.EqualValues(t, 3, table.Len())

	table.Clear()
	assert.EqualValues(t, 0, table.Len())
	assert.Empty(t, table.ByAstID(5))
}

// TestApplyCopiesAssignments verifies the table does not share state with the assignments provided to it.
func TestApplyCopiesAssignments(t *testing.T) {
	assignment := newTestAssignment(t, StackframeIdentity{AstID: 8}, pointer.StackRef(1))
	table := NewAssignmentTable()
	table.Apply([]*Assignment{assignment})

	assignment.Ref = pointer.StackRef(5)
	stored, ok := table.Get(assignment.ID)
	require.True(t, ok)
	assert.EqualValues(t, 1, *stored.Ref.Stack)
}
