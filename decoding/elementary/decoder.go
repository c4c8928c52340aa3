// Package elementary decodes elementary Solidity types (integers, booleans, addresses, fixed size byte arrays, enums,
// fixed point numbers, strings and dynamic byte arrays) from stack words, memory, storage and constant definitions.
package elementary

import (
	"context"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding"
	"github.com/crytic/medusa-debugger/decoding/pointer"
	"github.com/crytic/medusa-debugger/decoding/values"
	"github.com/crytic/medusa-debugger/logging"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// slotSize is the byte size of a storage slot and of a stack or memory word.
const slotSize = 32

// Decoder decodes elementary types from every storage class. It implements each of the per-class decoder interfaces
// of the decoding package.
type Decoder struct {
	// logger describes the Decoder's log object that can be used to log important events
	logger *logging.Logger
}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		logger: logging.GlobalLogger.NewSubLogger("module", logging.DECODING_SERVICE),
	}
}

// NewDispatcher creates a decoding.Decoder which routes every storage class to a single elementary Decoder.
func NewDispatcher() *decoding.Decoder {
	d := NewDecoder()
	return decoding.NewDecoder(d, d, d, d, d)
}

// DecodeStack decodes the value held in an operand stack slot. Reference types held on the stack are followed into
// memory or storage.
func (d *Decoder) DecodeStack(ctx context.Context, definition *types.Node, ptr pointer.StackPointer, info *decoding.EvmInfo) (values.Value, error) {
	stack := info.State.Stack
	if ptr.Index < 0 || ptr.Index >= len(stack) {
		return nil, errors.Errorf("stack index %d is out of range of a stack of size %d", ptr.Index, len(stack))
	}
	return d.decodeStackWord(ctx, definition, &stack[ptr.Index], info)
}

// DecodeLiteral decodes a word already taken off the stack. Reference types are followed into memory or storage.
func (d *Decoder) DecodeLiteral(ctx context.Context, definition *types.Node, ptr pointer.StackLiteralPointer, info *decoding.EvmInfo) (values.Value, error) {
	return d.decodeStackWord(ctx, definition, &ptr.Literal, info)
}

// decodeStackWord decodes a word as laid out on the stack.
func (d *Decoder) decodeStackWord(ctx context.Context, definition *types.Node, word *uint256.Int, info *decoding.EvmInfo) (values.Value, error) {
	switch types.ReferenceType(definition) {
	case types.LocationMemory:
		if !word.IsUint64() {
			return nil, errors.Errorf("memory offset %s is out of range", word.Hex())
		}
		return d.DecodeMemory(ctx, definition, pointer.MemoryPointer{Start: word.Uint64(), Length: slotSize}, info)
	case types.LocationStorage:
		return d.DecodeStorage(ctx, definition, pointer.StoragePointer{Slot: *word, Length: slotSize}, info)
	case types.LocationCalldata:
		return nil, errors.Errorf("decoding of %s is unsupported", definition.TypeString())
	}
	return decodeWord(definition, word, info)
}

// DecodeMemory decodes a value in memory. Strings and dynamic byte arrays are pointed to by their length word.
func (d *Decoder) DecodeMemory(ctx context.Context, definition *types.Node, ptr pointer.MemoryPointer, info *decoding.EvmInfo) (values.Value, error) {
	memory := info.State.Memory
	if !types.IsDynamicBytes(definition) {
		word := new(uint256.Int).SetBytes(readMemory(memory, ptr.Start, slotSize))
		return decodeWord(definition, word, info)
	}

	length := new(uint256.Int).SetBytes(readMemory(memory, ptr.Start, slotSize))
	if !length.IsUint64() || length.Uint64() > uint64(len(memory)) {
		return nil, errors.Errorf("length %s of %s in memory at %d is out of range", length.Dec(), definition.TypeString(), ptr.Start)
	}
	return dynamicBytesValue(definition, readMemory(memory, ptr.Start+slotSize, length.Uint64())), nil
}

// readMemory returns length bytes of memory starting at offset. Bytes beyond the end of memory read as zero.
func readMemory(memory []byte, offset uint64, length uint64) []byte {
	data := make([]byte, length)
	if offset < uint64(len(memory)) {
		copy(data, memory[offset:])
	}
	return data
}

// DecodeStorage decodes a value in account storage. Slots captured in the trace are preferred over the storage
// reader.
func (d *Decoder) DecodeStorage(ctx context.Context, definition *types.Node, ptr pointer.StoragePointer, info *decoding.EvmInfo) (values.Value, error) {
	if types.IsDynamicBytes(definition) {
		return d.decodeStorageBytes(ctx, definition, &ptr.Slot, info)
	}
	if types.IsMapping(definition) || types.IsReference(definition) {
		return nil, errors.Errorf("decoding of %s is unsupported", definition.TypeString())
	}

	length := ptr.Length
	if length <= 0 || length > slotSize {
		length = slotSize
	}
	if ptr.Offset < 0 || ptr.Offset+length > slotSize {
		return nil, errors.Errorf("value at offset %d of length %d exceeds its slot", ptr.Offset, length)
	}

	slot, err := d.readSlot(ctx, &ptr.Slot, info)
	if err != nil {
		return nil, err
	}
	raw := slot[slotSize-ptr.Offset-length : slotSize-ptr.Offset]

	// Fixed size byte arrays are left-aligned within a word
	word := new(uint256.Int).SetBytes(raw)
	if size, ok := types.SpecifiedSize(definition); ok && types.TypeClass(definition) == "bytes" {
		word.Lsh(word, uint(8*(slotSize-size)))
	}
	return decodeWord(definition, word, info)
}

// decodeStorageBytes decodes a string or dynamic byte array in storage. Values shorter than 32 bytes are kept in the
// slot itself with twice their length in the lowest byte. Longer values keep twice their length plus one in the slot,
// with their data in consecutive slots starting at the keccak256 hash of the slot.
func (d *Decoder) decodeStorageBytes(ctx context.Context, definition *types.Node, slotIndex *uint256.Int, info *decoding.EvmInfo) (values.Value, error) {
	slot, err := d.readSlot(ctx, slotIndex, info)
	if err != nil {
		return nil, err
	}

	header := new(uint256.Int).SetBytes(slot[:])
	if header.Uint64()&1 == 0 {
		length := int(slot[slotSize-1] / 2)
		if length >= slotSize {
			return nil, errors.Errorf("short %s in storage has invalid length %d", definition.TypeString(), length)
		}
		return dynamicBytesValue(definition, append([]byte(nil), slot[:length]...)), nil
	}

	header.Rsh(header, 1)
	if !header.IsUint64() || header.Uint64() > maxStorageBytesLength {
		return nil, errors.Errorf("length %s of %s in storage is out of range", header.Dec(), definition.TypeString())
	}
	length := header.Uint64()

	dataSlot := new(uint256.Int).SetBytes(crypto.Keccak256(slot32(slotIndex)))
	data := make([]byte, 0, length+slotSize)
	for uint64(len(data)) < length {
		chunk, err := d.readSlot(ctx, dataSlot, info)
		if err != nil {
			return nil, err
		}
		data = append(data, chunk[:]...)
		dataSlot.AddUint64(dataSlot, 1)
	}
	return dynamicBytesValue(definition, data[:length]), nil
}

// maxStorageBytesLength bounds the length of strings and dynamic byte arrays read from storage.
const maxStorageBytesLength = 1 << 20

// readSlot reads a storage slot of the account being decoded. Slots not captured in the trace are read through the
// storage reader when the account's address is known, and read as zero otherwise.
func (d *Decoder) readSlot(ctx context.Context, slot *uint256.Int, info *decoding.EvmInfo) (common.Hash, error) {
	key := common.BytesToHash(slot32(slot))
	if value, ok := info.State.Storage[key]; ok {
		return value, nil
	}
	if info.StorageReader == nil || info.ContractAddress == nil {
		return common.Hash{}, nil
	}

	value, err := info.StorageReader.GetStorageAt(ctx, *info.ContractAddress, key)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "could not read storage slot %s of %s", key.Hex(), info.ContractAddress.Hex())
	}
	d.logger.Trace("Read storage slot ", key.Hex(), " of ", info.ContractAddress.Hex(), " from storage reader")
	return value, nil
}

// slot32 returns the 32 byte big-endian encoding of a slot index.
func slot32(slot *uint256.Int) []byte {
	b := slot.Bytes32()
	return b[:]
}

// dynamicBytesValue wraps data as a string or dynamic byte array value, according to the definition.
func dynamicBytesValue(definition *types.Node, data []byte) values.Value {
	if types.TypeClass(definition) == "string" {
		return values.StringValue{Value: string(data)}
	}
	return values.BytesValue{Value: data}
}
