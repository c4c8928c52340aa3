// Package values describes the typed values produced by decoding.
package values

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Kind describes the class of a decoded Value.
type Kind string

const (
	KindUint       Kind = "uint"
	KindInt        Kind = "int"
	KindBool       Kind = "bool"
	KindAddress    Kind = "address"
	KindContract   Kind = "contract"
	KindFixedBytes Kind = "bytesN"
	KindBytes      Kind = "bytes"
	KindString     Kind = "string"
	KindEnum       Kind = "enum"
	KindFixed      Kind = "fixed"
)

// Value is a decoded value.
type Value interface {
	fmt.Stringer

	// Kind returns the class of the value.
	Kind() Kind
}

// UintValue is a decoded unsigned integer.
type UintValue struct {
	Value uint256.Int
}

// IntValue is a decoded signed integer.
type IntValue struct {
	Value *big.Int
}

// BoolValue is a decoded boolean.
type BoolValue struct {
	Value bool
}

// AddressValue is a decoded address. Contract is set when the value was declared as a contract type.
type AddressValue struct {
	Address  common.Address
	Contract bool
}

// FixedBytesValue is a decoded fixed size byte array (bytes1 to bytes32).
type FixedBytesValue struct {
	Value []byte
}

// BytesValue is a decoded dynamically sized byte array.
type BytesValue struct {
	Value []byte
}

// StringValue is a decoded string.
type StringValue struct {
	Value string
}

// EnumValue is a decoded enum member. Name is empty if the enum definition was unavailable.
type EnumValue struct {
	Index uint64
	Name  string
}

// FixedValue is a decoded fixed point number.
type FixedValue struct {
	Value decimal.Decimal
}

func (v UintValue) Kind() Kind       { return KindUint }
func (v IntValue) Kind() Kind        { return KindInt }
func (v BoolValue) Kind() Kind       { return KindBool }
func (v FixedBytesValue) Kind() Kind { return KindFixedBytes }
func (v BytesValue) Kind() Kind      { return KindBytes }
func (v StringValue) Kind() Kind     { return KindString }
func (v EnumValue) Kind() Kind       { return KindEnum }
func (v FixedValue) Kind() Kind      { return KindFixed }

func (v AddressValue) Kind() Kind {
	if v.Contract {
		return KindContract
	}
	return KindAddress
}

func (v UintValue) String() string       { return v.Value.Dec() }
func (v BoolValue) String() string       { return strconv.FormatBool(v.Value) }
func (v AddressValue) String() string    { return v.Address.Hex() }
func (v FixedBytesValue) String() string { return hexutil.Encode(v.Value) }
func (v BytesValue) String() string      { return hexutil.Encode(v.Value) }
func (v StringValue) String() string     { return v.Value }
func (v FixedValue) String() string      { return v.Value.String() }

func (v IntValue) String() string {
	if v.Value == nil {
		return "0"
	}
	return v.Value.String()
}

func (v EnumValue) String() string {
	if v.Name == "" {
		return strconv.FormatUint(v.Index, 10)
	}
	return v.Name
}

// Equal reports whether two values are of the same kind and render identically.
func Equal(a Value, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind() == b.Kind() && a.String() == b.String()
}
