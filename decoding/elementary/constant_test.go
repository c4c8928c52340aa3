package elementary

import (
	"context"
	"testing"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// literalOf creates a literal node of the provided kind, type identifier and value.
func literalOf(kind string, typeIdentifier string, value string, hexValue string) *types.Node {
	return &types.Node{
		ID:               200,
		NodeType:         types.NodeTypeLiteral,
		Kind:             kind,
		LiteralValue:     &value,
		HexValue:         hexValue,
		TypeDescriptions: &types.TypeDescriptions{TypeIdentifier: typeIdentifier},
	}
}

// decodeConstant decodes a constant as the provided definition.
func decodeConstant(definition *types.Node, constant *types.Node) (string, error) {
	value, err := NewDecoder().DecodeConstant(context.Background(), definition, pointer.ConstantDefinitionPointer{Definition: constant})
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// TestDecodeNumberConstants verifies number constants are decoded exactly as the requested type.
func TestDecodeNumberConstants(t *testing.T) {
	value, err := decodeConstant(definitionOf("t_uint256", "uint256"), literalOf("number", "t_rational_42_by_1", "42", "3432"))
	require.NoError(t, err)
	assert.EqualValues(t, "42", value)

	value, err = decodeConstant(definitionOf("t_int8", "int8"), literalOf("number", "t_rational_minus_3_by_1", "-3", ""))
	require.NoError(t, err)
	assert.EqualValues(t, "-3", value)

	value, err = decodeConstant(definitionOf("t_ufixed128x2", "ufixed128x2"), literalOf("number", "t_rational_5_by_2", "2.5", ""))
	require.NoError(t, err)
	assert.EqualValues(t, "2.5", value)

	_, err = decodeConstant(definitionOf("t_uint256", "uint256"), literalOf("number", "t_rational_minus_1_by_1", "-1", ""))
	assert.Error(t, err)

	_, err = decodeConstant(definitionOf("t_uint256", "uint256"), literalOf("number", "t_rational_1_by_2", "0.5", ""))
	assert.Error(t, err)
}

// TestDecodeStringConstants verifies string literals are decoded as strings and byte arrays.
func TestDecodeStringConstants(t *testing.T) {
	literal := literalOf("string", "t_stringliteral_a9f0", "hi", "6869")

	value, err := decodeConstant(definitionOf("t_string_memory_ptr", "string memory"), literal)
	require.NoError(t, err)
	assert.EqualValues(t, "hi", value)

	value, err = decodeConstant(definitionOf("t_bytes4", "bytes4"), literal)
	require.NoError(t, err)
	assert.EqualValues(t, "0x68690000", value)

	_, err = decodeConstant(definitionOf("t_bytes1", "bytes1"), literal)
	assert.Error(t, err)
}

// TestDecodeConstantDeclaration verifies constant declarations are decoded from their value.
func TestDecodeConstantDeclaration(t *testing.T) {
	declaration := definitionOf("t_uint256", "uint256")
	declaration.Constant = true
	declaration.SetChild("value", literalOf("number", "t_rational_1000_by_1", "1_000", ""))

	value, err := decodeConstant(declaration, declaration)
	require.NoError(t, err)
	assert.EqualValues(t, "1000", value)

	boolean, err := decodeConstant(definitionOf("t_bool", "bool"), literalOf("bool", "t_bool", "true", "74727565"))
	require.NoError(t, err)
	assert.EqualValues(t, "true", boolean)
}
