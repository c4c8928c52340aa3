package data

import (
	"bytes"

	"github.com/crytic/medusa-debugger/decoding/pointer"
	"golang.org/x/exp/slices"
)

// Assignment binds one live instance of a declaration to the reference its value can be decoded from. ID is always
// the hash of Identity.
type Assignment struct {
	ID       AssignmentID
	Identity IdentityDescriptor
	Ref      pointer.Ref
}

// NewAssignment creates an Assignment of the provided identity and reference.
func NewAssignment(identity IdentityDescriptor, ref pointer.Ref) (*Assignment, error) {
	id, err := HashIdentity(identity)
	if err != nil {
		return nil, err
	}
	return &Assignment{ID: id, Identity: identity, Ref: ref}, nil
}

// AssignmentTable indexes every assignment of a session by id and by declaration id. It only grows: references of
// existing assignments are merged with newer ones, and assignments are only removed by Clear.
type AssignmentTable struct {
	byID    map[AssignmentID]*Assignment
	byAstID map[int][]AssignmentID
}

// NewAssignmentTable creates an empty AssignmentTable.
func NewAssignmentTable() *AssignmentTable {
	return &AssignmentTable{
		byID:    make(map[AssignmentID]*Assignment),
		byAstID: make(map[int][]AssignmentID),
	}
}

// Apply records the provided assignments. The reference of an assignment already in the table is overlaid with the
// known fields of the new one. Applying the same assignments again leaves the table unchanged.
// Returns the resulting assignments, in the order provided.
func (t *AssignmentTable) Apply(assignments []*Assignment) []Assignment {
	applied := make([]Assignment, 0, len(assignments))
	for _, assignment := range assignments {
		if existing, ok := t.byID[assignment.ID]; ok {
			existing.Ref = existing.Ref.Merge(assignment.Ref)
			applied = append(applied, *existing)
			continue
		}

		stored := *assignment
		t.byID[stored.ID] = &stored
		astID := stored.Identity.DeclarationID()
		t.byAstID[astID] = append(t.byAstID[astID], stored.ID)
		applied = append(applied, stored)
	}
	return applied
}

// Get returns the assignment with the provided id.
func (t *AssignmentTable) Get(id AssignmentID) (Assignment, bool) {
	if assignment, ok := t.byID[id]; ok {
		return *assignment, true
	}
	return Assignment{}, false
}

// ByAstID returns every assignment of the declaration with the provided id, in the order they were first recorded.
func (t *AssignmentTable) ByAstID(astID int) []Assignment {
	ids := t.byAstID[astID]
	assignments := make([]Assignment, 0, len(ids))
	for _, id := range ids {
		assignments = append(assignments, *t.byID[id])
	}
	return assignments
}

// All returns every assignment in the table, ordered by id.
func (t *AssignmentTable) All() []Assignment {
	assignments := make([]Assignment, 0, len(t.byID))
	for _, assignment := range t.byID {
		assignments = append(assignments, *assignment)
	}
	slices.SortFunc(assignments, func(a, b Assignment) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return assignments
}

// Len returns the amount of assignments in the table.
func (t *AssignmentTable) Len() int {
	return len(t.byID)
}

// Clear removes every assignment from the table.
func (t *AssignmentTable) Clear() {
	t.byID = make(map[AssignmentID]*Assignment)
	t.byAstID = make(map[int][]AssignmentID)
}
