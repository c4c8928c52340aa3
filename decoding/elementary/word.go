package elementary

import (
	"math/big"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding"
	"github.com/crytic/medusa-debugger/decoding/values"
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// decodeWord decodes a value type held in a single word, laid out as it is on the stack or in memory: numbers,
// addresses and booleans right-aligned, fixed size byte arrays left-aligned.
func decodeWord(definition *types.Node, word *uint256.Int, info *decoding.EvmInfo) (values.Value, error) {
	switch class := types.TypeClass(definition); class {
	case "uint":
		return values.UintValue{Value: *truncate(word, integerBits(definition))}, nil
	case "int":
		return values.IntValue{Value: signed(word, integerBits(definition))}, nil
	case "bool":
		return values.BoolValue{Value: !word.IsZero()}, nil
	case "address", "contract":
		b := word.Bytes32()
		return values.AddressValue{Address: common.BytesToAddress(b[12:]), Contract: class == "contract"}, nil
	case "bytes":
		size, ok := types.SpecifiedSize(definition)
		if !ok {
			return nil, errors.Errorf("%s is not a value type", definition.TypeString())
		}
		b := word.Bytes32()
		return values.FixedBytesValue{Value: append([]byte(nil), b[:size]...)}, nil
	case "enum":
		return decodeEnum(definition, word, info)
	case "fixed", "ufixed":
		bits, ok := types.SpecifiedSize(definition)
		if !ok {
			bits = 128
		}
		var unscaled *big.Int
		if class == "fixed" {
			unscaled = signed(word, bits)
		} else {
			unscaled = truncate(word, bits).ToBig()
		}
		return values.FixedValue{Value: decimal.NewFromBigInt(unscaled, -int32(types.DecimalPlaces(definition)))}, nil
	}
	return nil, errors.Errorf("decoding of %s is unsupported", definition.TypeString())
}

// decodeEnum decodes an enum member index, naming it when its enum definition can be found.
func decodeEnum(definition *types.Node, word *uint256.Int, info *decoding.EvmInfo) (values.Value, error) {
	if !word.IsUint64() {
		return nil, errors.Errorf("enum index %s is out of range", word.Dec())
	}
	value := values.EnumValue{Index: word.Uint64()}

	if id, ok := types.ReferencedTypeId(definition); ok && info != nil {
		if members := info.Scopes.Definition(id).Members(); value.Index < uint64(len(members)) {
			value.Name = members[value.Index].Name
		} else if members != nil {
			return nil, errors.Errorf("enum index %d is out of range of %d members", value.Index, len(members))
		}
	}
	return value, nil
}

// integerBits returns the declared width of an integer type, defaulting to 256.
func integerBits(definition *types.Node) int {
	if bits, ok := types.SpecifiedSize(definition); ok {
		return bits
	}
	return 256
}

// truncate returns the lowest bits of word.
func truncate(word *uint256.Int, bits int) *uint256.Int {
	value := new(uint256.Int).Set(word)
	if bits >= 256 {
		return value
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bits))
	mask.SubUint64(mask, 1)
	return value.And(value, mask)
}

// signed interprets the lowest bits of word as a two's complement integer.
func signed(word *uint256.Int, bits int) *big.Int {
	value := new(uint256.Int).Set(word)
	if bits < 256 {
		value.ExtendSign(value, uint256.NewInt(uint64(bits/8-1)))
	}
	if value.Sign() >= 0 {
		return value.ToBig()
	}
	magnitude := new(uint256.Int).Neg(value)
	return new(big.Int).Neg(magnitude.ToBig())
}
