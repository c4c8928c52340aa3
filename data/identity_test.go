package data

import (
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHashIdentityDeterminism verifies structurally equal identities hash to the same id, and hashing is repeatable.
func TestHashIdentityDeterminism(t *testing.T) {
	address := common.HexToAddress("0x1234")
	identities := []IdentityDescriptor{
		StackframeIdentity{AstID: 11, Stackframe: 3},
		AddressIdentity{AstID: 11, Address: address},
		DummyAddressIdentity{AstID: 11, DummyAddress: address},
	}

	for _, identity := range identities {
		first := mustHash(t, identity)
		second := mustHash(t, identity)
		assert.EqualValues(t, first, second)
	}

	// Copies are structurally equal
	copied := identities[0].(StackframeIdentity)
	assert.EqualValues(t, mustHash(t, identities[0]), mustHash(t, copied))
}

// TestHashIdentityDistinct verifies distinct identities hash to distinct ids, including identities of different
// variants carrying the same values.
func TestHashIdentityDistinct(t *testing.T) {
	seen := make(map[AssignmentID]IdentityDescriptor)
	for astID := 0; astID < 32; astID++ {
		for depth := 0; depth < 8; depth++ {
			address := make([]byte, common.AddressLength)
			address[0] = byte(depth)
			address[common.AddressLength-1] = 1
			identities := []IdentityDescriptor{
				StackframeIdentity{AstID: astID, Stackframe: depth},
				AddressIdentity{AstID: astID, Address: common.BytesToAddress(address)},
				DummyAddressIdentity{AstID: astID, DummyAddress: common.BytesToAddress(address)},
			}
			for _, identity := range identities {
				id := mustHash(t, identity)
				previous, ok := seen[id]
				require.False(t, ok, "%+v and %+v share id %s", identity, previous, id)
				seen[id] = identity
			}
		}
	}
	assert.Len(t, seen, 32*8*3)
}

// TestHashIdentityNil verifies a nil identity cannot be hashed.
func TestHashIdentityNil(t *testing.T) {
	_, err := HashIdentity(nil)
	assert.Error(t, err)
}

// TestIsContractMember verifies only address qualified identities are contract members.
func TestIsContractMember(t *testing.T) {
	assert.False(t, IsContractMember(StackframeIdentity{AstID: 1}))
	assert.True(t, IsContractMember(AddressIdentity{AstID: 1}))
	assert.True(t, IsContractMember(DummyAddressIdentity{AstID: 1}))
	assert.EqualValues(t, 7, DummyAddressIdentity{AstID: 7}.DeclarationID())
}
