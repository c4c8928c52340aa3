// Package data tracks which source-level variables are live at each step of an execution trace, and where their
// values can be decoded from.
package data

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/fxamacker/cbor"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// AssignmentID is the content-addressed id of an assignment: the keccak256 hash of the canonical encoding of its
// IdentityDescriptor.
type AssignmentID common.Hash

// Hex returns the hex string representation of the id.
func (id AssignmentID) Hex() string {
	return common.Hash(id).Hex()
}

// String returns the hex string representation of the id.
func (id AssignmentID) String() string {
	return id.Hex()
}

// IdentityDescriptor identifies one live instance of a declaration. It is a closed variant: StackframeIdentity,
// AddressIdentity and DummyAddressIdentity are the only implementations.
type IdentityDescriptor interface {
	// DeclarationID returns the AST id of the declaration or expression the identity refers to.
	DeclarationID() int

	// encoding returns the value whose canonical CBOR encoding is hashed into the AssignmentID.
	encoding() any
}

// StackframeIdentity identifies a local variable or expression within the call frame at the given depth.
type StackframeIdentity struct {
	AstID      int
	Stackframe int
}

// AddressIdentity identifies a state variable of the contract deployed at Address.
type AddressIdentity struct {
	AstID   int
	Address common.Address
}

// DummyAddressIdentity identifies a state variable of a contract whose address is not yet known, by the placeholder
// address standing in for it.
type DummyAddressIdentity struct {
	AstID        int
	DummyAddress common.Address
}

// The encodings carry exactly the fields of their variant. Fields are declared in canonical (length-first) key
// order.
type stackframeEncoding struct {
	AstID      int `cbor:"astId"`
	Stackframe int `cbor:"stackframe"`
}

type addressEncoding struct {
	AstID   int    `cbor:"astId"`
	Address []byte `cbor:"address"`
}

type dummyAddressEncoding struct {
	AstID        int    `cbor:"astId"`
	DummyAddress []byte `cbor:"dummyAddress"`
}

func (i StackframeIdentity) DeclarationID() int   { return i.AstID }
func (i AddressIdentity) DeclarationID() int      { return i.AstID }
func (i DummyAddressIdentity) DeclarationID() int { return i.AstID }

func (i StackframeIdentity) encoding() any {
	return stackframeEncoding{AstID: i.AstID, Stackframe: i.Stackframe}
}

func (i AddressIdentity) encoding() any {
	return addressEncoding{AstID: i.AstID, Address: i.Address.Bytes()}
}

func (i DummyAddressIdentity) encoding() any {
	return dummyAddressEncoding{AstID: i.AstID, DummyAddress: i.DummyAddress.Bytes()}
}

// IsContractMember reports whether the identity refers to a state variable of a contract instance, as opposed to a
// local variable or expression.
func IsContractMember(identity IdentityDescriptor) bool {
	switch identity.(type) {
	case AddressIdentity, DummyAddressIdentity:
		return true
	}
	return false
}

// HashIdentity computes the AssignmentID of an identity: the keccak256 hash of its canonical CBOR encoding.
// Structurally equal identities always produce the same id.
func HashIdentity(identity IdentityDescriptor) (AssignmentID, error) {
	if identity == nil {
		return AssignmentID{}, errors.New("cannot hash a nil identity")
	}
	encoded, err := cbor.Marshal(identity.encoding(), cbor.EncOptions{Canonical: true})
	if err != nil {
		return AssignmentID{}, errors.Wrapf(err, "could not encode identity %+v", identity)
	}

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(encoded)
	var id AssignmentID
	copy(id[:], hasher.Sum(nil))
	return id, nil
}
