package data

import (
	"github.com/crytic/medusa-debugger/storage"
	"github.com/pkg/errors"
)

// RecordAllocations computes the storage allocations of every contract of the session's program, along with the
// structs, enums and contracts they may refer to, and caches them for the rest of the session. Allocations are
// computed at most once per session.
// Returns the allocations, or a FatalError if they could not be computed.
func (t *Tracker) RecordAllocations() (storage.Allocations, error) {
	if t.session.allocations != nil {
		return t.session.allocations, nil
	}

	program := t.session.Program
	allocations, err := t.allocator.Allocate(program.ReferenceDeclarations(), program.ContractDefinitions())
	if err != nil {
		return nil, NewFatalError(errors.Wrap(err, "could not compute storage allocations"))
	}
	t.session.allocations = allocations
	t.logger.Debug("Recorded storage allocations of ", len(allocations), " contracts and structs")

	if err := t.session.Events.Allocate.Publish(AllocateEvent{Allocations: allocations}); err != nil {
		return nil, err
	}
	return allocations, nil
}
