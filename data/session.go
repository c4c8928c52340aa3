package data

import (
	"github.com/crytic/medusa-debugger/compilation"
	"github.com/crytic/medusa-debugger/decoding/values"
	"github.com/crytic/medusa-debugger/storage"
	"github.com/crytic/medusa-geth/common"
	"github.com/google/uuid"
)

// Session holds the state of a single debugging session: the assignments recorded so far, the storage allocations of
// the program, the mapping keys seen and the contract addresses learnt. A Session is mutated only by the Tracker which
// owns it. Every other consumer reads it through the accessors below or subscribes to its Events.
type Session struct {
	// ID uniquely identifies the session.
	ID uuid.UUID

	// Program is the compiled program the session decodes against.
	Program *compilation.Program

	// Events describes the event emitters notified of every change to the session state.
	Events SessionEvents

	// assignments holds every assignment recorded during the session.
	assignments *AssignmentTable

	// allocations caches the storage allocations of the program. It is nil until first computed.
	allocations storage.Allocations

	// mappingKeys holds the keys seen per mapping declaration id, in the order they were first seen.
	mappingKeys map[int][]values.Value

	// seenMappingKeys holds the canonical encodings of mappingKeys, per mapping declaration id.
	seenMappingKeys map[int]map[string]struct{}

	// addressAliases maps placeholder contract addresses to the real addresses learnt for them.
	addressAliases map[common.Address]common.Address
}

// NewSession creates an empty Session for the provided program.
func NewSession(program *compilation.Program) *Session {
	s := &Session{
		ID:          uuid.New(),
		Program:     program,
		assignments: NewAssignmentTable(),
	}
	s.clear()
	return s
}

// clear removes every assignment, mapping key and learnt address. Storage allocations only depend on the program and
// are kept.
func (s *Session) clear() {
	s.assignments.Clear()
	s.mappingKeys = make(map[int][]values.Value)
	s.seenMappingKeys = make(map[int]map[string]struct{})
	s.addressAliases = make(map[common.Address]common.Address)
}

// Assignments returns every assignment recorded in the session, ordered by id.
func (s *Session) Assignments() []Assignment {
	return s.assignments.All()
}

// Assignment returns the assignment with the provided id.
func (s *Session) Assignment(id AssignmentID) (Assignment, bool) {
	return s.assignments.Get(id)
}

// AssignmentsByAstID returns every live instance of the declaration or expression with the provided id.
func (s *Session) AssignmentsByAstID(astID int) []Assignment {
	return s.assignments.ByAstID(astID)
}

// MappingKeys returns the keys seen for the mapping declaration with the provided id, in the order they were first
// seen.
func (s *Session) MappingKeys(baseDeclarationID int) []values.Value {
	return append([]values.Value(nil), s.mappingKeys[baseDeclarationID]...)
}

// LookupAddress returns the real address learnt for a placeholder contract address.
func (s *Session) LookupAddress(dummyAddress common.Address) (common.Address, bool) {
	address, ok := s.addressAliases[dummyAddress]
	return address, ok
}

// Allocations returns the storage allocations of the program, or nil if they were not computed yet.
func (s *Session) Allocations() storage.Allocations {
	return s.allocations
}
