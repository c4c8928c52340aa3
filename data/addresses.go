package data

import (
	"github.com/crytic/medusa-debugger/logging/colors"
	"github.com/crytic/medusa-geth/common"
	"github.com/pkg/errors"
)

// LearnAddress records the real address of a contract instance which was so far identified by a placeholder address.
// State variables of the instance seen on later steps are identified by the real address. Every assignment already
// recorded under the placeholder is copied to the real address identity, keeping any reference fields already known
// for the real address. Assignments recorded under the placeholder are kept as they are.
// Returns an error if a different real address was already learnt for the placeholder.
func (t *Tracker) LearnAddress(dummyAddress common.Address, address common.Address) error {
	if known, ok := t.session.addressAliases[dummyAddress]; ok && known != address {
		return errors.Errorf("placeholder address %s is already bound to %s, cannot bind it to %s", dummyAddress.Hex(), known.Hex(), address.Hex())
	}
	t.session.addressAliases[dummyAddress] = address
	t.logger.Debug("Learnt address ", colors.Green, address.Hex(), colors.Reset, " of placeholder ", dummyAddress.Hex())

	var copies []*Assignment
	for _, assignment := range t.session.assignments.All() {
		identity, ok := assignment.Identity.(DummyAddressIdentity)
		if !ok || identity.DummyAddress != dummyAddress {
			continue
		}

		copied, err := NewAssignment(AddressIdentity{AstID: identity.AstID, Address: address}, assignment.Ref)
		if err != nil {
			return err
		}
		if existing, ok := t.session.assignments.Get(copied.ID); ok {
			copied.Ref = assignment.Ref.Merge(existing.Ref)
		}
		copies = append(copies, copied)
	}

	err := t.session.Events.LearnAddress.Publish(LearnAddressEvent{DummyAddress: dummyAddress, Address: address})
	if err != nil {
		return err
	}
	return t.assign(NoTreeID, copies)
}

// contractIdentity returns the identity of a state variable of the contract instance executing at the provided step.
// The real address is preferred, followed by a real address learnt for the placeholder address.
// Returns false if the step carries neither.
func (t *Tracker) contractIdentity(astID int, step *TraceStep) (IdentityDescriptor, bool) {
	if address := t.contractAddress(step); address != nil {
		return AddressIdentity{AstID: astID, Address: *address}, true
	}
	if step.DummyAddress != nil {
		return DummyAddressIdentity{AstID: astID, DummyAddress: *step.DummyAddress}, true
	}
	return nil, false
}

// contractAddress returns the real address of the contract instance executing at the provided step, if known.
func (t *Tracker) contractAddress(step *TraceStep) *common.Address {
	if step.Address != nil {
		return step.Address
	}
	if step.DummyAddress != nil {
		if address, ok := t.session.LookupAddress(*step.DummyAddress); ok {
			return &address
		}
	}
	return nil
}
