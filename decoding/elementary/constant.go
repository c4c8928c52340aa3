package elementary

import (
	"context"
	"math/big"
	"strings"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding/pointer"
	"github.com/crytic/medusa-debugger/decoding/values"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DecodeConstant decodes a compile-time constant from its definition, interpreted as the type of definition. The
// constant is the pointer's definition: a number or string literal, or a constant declaration with such a value.
func (d *Decoder) DecodeConstant(ctx context.Context, definition *types.Node, ptr pointer.ConstantDefinitionPointer) (values.Value, error) {
	constant := ptr.Definition
	if constant == nil {
		constant = definition
	}

	// Constant declarations hold their literal as their value
	if constant.NodeType == types.NodeTypeVariableDeclaration && constant.Child("value") != nil {
		constant = constant.Child("value")
	}

	if types.TypeClass(constant) == "stringliteral" || (constant.Kind == "string" || constant.Kind == "hexString") {
		data, err := literalBytes(constant)
		if err != nil {
			return nil, err
		}
		return bytesAs(definition, data)
	}

	if constant.Kind == "bool" && constant.LiteralValue != nil {
		return values.BoolValue{Value: *constant.LiteralValue == "true"}, nil
	}

	number, err := constantNumber(constant)
	if err != nil {
		return nil, err
	}
	return numberAs(definition, number)
}

// literalBytes returns the bytes of a string literal. The hex value is preferred since it also covers hex string
// literals and non UTF-8 content.
func literalBytes(constant *types.Node) ([]byte, error) {
	if constant.HexValue != "" {
		data, err := hexutil.Decode("0x" + constant.HexValue)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed hex value of literal %d", constant.ID)
		}
		return data, nil
	}
	if constant.LiteralValue != nil {
		return []byte(*constant.LiteralValue), nil
	}
	return nil, errors.Errorf("literal %d carries no value", constant.ID)
}

// bytesAs interprets string literal data as the type of definition.
func bytesAs(definition *types.Node, data []byte) (values.Value, error) {
	switch types.TypeClass(definition) {
	case "string", "stringliteral":
		return values.StringValue{Value: string(data)}, nil
	case "bytes":
		size, ok := types.SpecifiedSize(definition)
		if !ok {
			return values.BytesValue{Value: data}, nil
		}
		if len(data) > size {
			return nil, errors.Errorf("literal of %d bytes does not fit %s", len(data), definition.TypeString())
		}
		padded := make([]byte, size)
		copy(padded, data)
		return values.FixedBytesValue{Value: padded}, nil
	}
	return nil, errors.Errorf("cannot decode a string literal as %s", definition.TypeString())
}

// constantNumber returns the exact value of a number constant, from its rational type when available and from its
// literal otherwise.
func constantNumber(constant *types.Node) (*big.Rat, error) {
	if negative, num, den, ok := types.RationalParts(constant); ok {
		number, ok := new(big.Rat).SetString(num + "/" + den)
		if !ok {
			return nil, errors.Errorf("malformed rational type %s", constant.TypeIdentifier())
		}
		if negative {
			number.Neg(number)
		}
		return number, nil
	}

	if constant.Kind == "number" && constant.LiteralValue != nil {
		literal := strings.ReplaceAll(*constant.LiteralValue, "_", "")
		if integer, ok := new(big.Int).SetString(literal, 0); ok {
			return new(big.Rat).SetInt(integer), nil
		}
		if number, ok := new(big.Rat).SetString(literal); ok {
			return number, nil
		}
		return nil, errors.Errorf("malformed number literal %q", *constant.LiteralValue)
	}

	return nil, errors.Errorf("node %d is not a compile-time constant", constant.ID)
}

// numberAs interprets an exact number as the type of definition.
func numberAs(definition *types.Node, number *big.Rat) (values.Value, error) {
	class := types.TypeClass(definition)
	if class == "fixed" || class == "ufixed" {
		places := int32(types.DecimalPlaces(definition))
		value := decimal.NewFromBigInt(number.Num(), 0).DivRound(decimal.NewFromBigInt(number.Denom(), 0), places)
		return values.FixedValue{Value: value}, nil
	}
	if !number.IsInt() {
		return nil, errors.Errorf("cannot decode the fractional constant %s as %s", number.RatString(), definition.TypeString())
	}

	integer := number.Num()
	switch class {
	case "int", "rational":
		return values.IntValue{Value: integer}, nil
	case "uint", "address", "contract", "enum", "bool", "bytes":
		if integer.Sign() < 0 {
			return nil, errors.Errorf("cannot decode the negative constant %s as %s", integer, definition.TypeString())
		}
		word, overflow := uint256.FromBig(integer)
		if overflow {
			return nil, errors.Errorf("constant %s does not fit %s", integer, definition.TypeString())
		}
		if class == "bytes" {
			size, ok := types.SpecifiedSize(definition)
			if !ok {
				return nil, errors.Errorf("cannot decode a number constant as %s", definition.TypeString())
			}
			word.Lsh(word, uint(8*(slotSize-size)))
		}
		return decodeWord(definition, word, nil)
	}
	return nil, errors.Errorf("cannot decode a number constant as %s", definition.TypeString())
}
