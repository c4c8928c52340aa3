package data

import (
	"github.com/crytic/medusa-debugger/decoding/values"
	"github.com/crytic/medusa-debugger/events"
	"github.com/crytic/medusa-debugger/storage"
	"github.com/crytic/medusa-geth/common"
	"github.com/google/uuid"
)

// NoTreeID is the TreeID of an AssignEvent which is not caused by a node of any tree, such as the migration of
// assignments when an address is learnt.
const NoTreeID = -1

// SessionEvents defines event emitters for a Session.
type SessionEvents struct {
	// Assign emits events when assignments are recorded or their references are updated.
	Assign events.EventEmitter[AssignEvent]

	// Allocate emits events when the storage allocations of the program are computed.
	Allocate events.EventEmitter[AllocateEvent]

	// MapKey emits events when a mapping key is resolved.
	MapKey events.EventEmitter[MapKeyEvent]

	// MapKeyDecoding emits events before and after every attempt to resolve a mapping key.
	MapKeyDecoding events.EventEmitter[MapKeyDecodingEvent]

	// LearnAddress emits events when the real address of a contract instance becomes known.
	LearnAddress events.EventEmitter[LearnAddressEvent]

	// Reset emits events when the session state is cleared.
	Reset events.EventEmitter[ResetEvent]
}

// AssignEvent describes assignments which were recorded or updated while processing a node of a tree.
type AssignEvent struct {
	// TreeID is the id of the tree the node belongs to, or NoTreeID.
	TreeID int

	// Assignments holds the assignments as they are recorded in the table after the update.
	Assignments []Assignment
}

// AllocateEvent describes the storage allocations computed for a session.
type AllocateEvent struct {
	Allocations storage.Allocations
}

// MapKeyEvent describes a key which was used to access a mapping.
type MapKeyEvent struct {
	// BaseDeclarationID is the id of the mapping's declaration. Keys are shared by every instance of the mapping.
	BaseDeclarationID int

	// Key is the decoded key.
	Key values.Value
}

// MapKeyDecodingEvent signals the start (Decoding is true) and the end (Decoding is false) of an attempt to resolve a
// mapping key. It carries no result.
type MapKeyDecodingEvent struct {
	Decoding bool
}

// LearnAddressEvent describes a contract instance whose placeholder address was replaced by its real address.
type LearnAddressEvent struct {
	DummyAddress common.Address
	Address      common.Address
}

// ResetEvent describes the session whose state was cleared.
type ResetEvent struct {
	SessionID uuid.UUID
}
