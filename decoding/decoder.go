// Package decoding classifies located pointers and routes each one to the decoder for its storage class.
package decoding

import (
	"context"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding/pointer"
	"github.com/crytic/medusa-debugger/decoding/values"
	"github.com/crytic/medusa-debugger/logging"
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrUnclassifiablePointer is returned when a pointer is none of the five known pointer kinds. It is fatal to the
// session which encounters it.
var ErrUnclassifiablePointer = pointer.ErrUnclassifiablePointer

// StorageReader reads account storage which is not part of the state captured in the trace. Reads may block on
// network I/O.
type StorageReader interface {
	// GetStorageAt returns the value of the provided storage slot of the given account.
	GetStorageAt(ctx context.Context, address common.Address, slot common.Hash) (common.Hash, error)
}

// State describes the machine state captured for a single trace step.
type State struct {
	// Stack holds the operand stack, bottom first.
	Stack []uint256.Int

	// Memory holds the memory of the current call frame.
	Memory []byte

	// Storage holds the storage slots of the current account known at this step.
	Storage map[common.Hash]common.Hash
}

// EvmInfo describes the execution context a value is decoded in.
type EvmInfo struct {
	// State is the machine state of the trace step.
	State State

	// ContractAddress is the address of the account whose storage is decoded, or nil if it is not yet known.
	ContractAddress *common.Address

	// Scopes resolves declarations referred to by the decoded definition, such as enum definitions.
	Scopes types.Scopes

	// StorageReader reads storage slots the trace did not capture. It may be nil.
	StorageReader StorageReader
}

// StorageDecoder decodes values located in account storage.
type StorageDecoder interface {
	DecodeStorage(ctx context.Context, definition *types.Node, ptr pointer.StoragePointer, info *EvmInfo) (values.Value, error)
}

// MemoryDecoder decodes values located in memory.
type MemoryDecoder interface {
	DecodeMemory(ctx context.Context, definition *types.Node, ptr pointer.MemoryPointer, info *EvmInfo) (values.Value, error)
}

// StackDecoder decodes values located on the operand stack.
type StackDecoder interface {
	DecodeStack(ctx context.Context, definition *types.Node, ptr pointer.StackPointer, info *EvmInfo) (values.Value, error)
}

// LiteralDecoder decodes words which were already taken off the stack.
type LiteralDecoder interface {
	DecodeLiteral(ctx context.Context, definition *types.Node, ptr pointer.StackLiteralPointer, info *EvmInfo) (values.Value, error)
}

// ValueDecoder decodes compile-time constants from their definition alone.
type ValueDecoder interface {
	DecodeConstant(ctx context.Context, definition *types.Node, ptr pointer.ConstantDefinitionPointer) (values.Value, error)
}

// Decoder routes each pointer to the decoder for its storage class.
type Decoder struct {
	storage  StorageDecoder
	memory   MemoryDecoder
	stack    StackDecoder
	literal  LiteralDecoder
	constant ValueDecoder

	// logger describes the Decoder's log object that can be used to log important events
	logger *logging.Logger
}

// NewDecoder creates a Decoder routing to the provided per-class decoders.
func NewDecoder(storage StorageDecoder, memory MemoryDecoder, stack StackDecoder, literal LiteralDecoder, constant ValueDecoder) *Decoder {
	return &Decoder{
		storage:  storage,
		memory:   memory,
		stack:    stack,
		literal:  literal,
		constant: constant,
		logger:   logging.GlobalLogger.NewSubLogger("module", logging.DECODING_SERVICE),
	}
}

// Decode decodes the value of the provided definition located at ptr.
// Returns the decoded value, or an error if decoding failed. Errors wrapping ErrUnclassifiablePointer indicate ptr
// was none of the known pointer kinds.
func (d *Decoder) Decode(ctx context.Context, definition *types.Node, ptr pointer.DataPointer, info *EvmInfo) (values.Value, error) {
	if definition == nil {
		return nil, errors.New("cannot decode without a definition")
	}

	var value values.Value
	var err error
	switch p := ptr.(type) {
	case pointer.StoragePointer:
		value, err = d.storage.DecodeStorage(ctx, definition, p, info)
	case pointer.MemoryPointer:
		value, err = d.memory.DecodeMemory(ctx, definition, p, info)
	case pointer.StackPointer:
		value, err = d.stack.DecodeStack(ctx, definition, p, info)
	case pointer.StackLiteralPointer:
		value, err = d.literal.DecodeLiteral(ctx, definition, p, info)
	case pointer.ConstantDefinitionPointer:
		value, err = d.constant.DecodeConstant(ctx, definition, p)
	default:
		return nil, errors.Wrapf(ErrUnclassifiablePointer, "cannot decode %s from pointer %v", definition.TypeString(), ptr)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode %s from %v", definition.TypeString(), ptr)
	}

	if d.logger.Level() <= zerolog.TraceLevel {
		d.logger.Trace("Decoded ", definition.TypeString(), " from ", ptr, ": ", value)
	}
	return value, nil
}

// DecodeRef classifies a partial reference and decodes the value it locates.
// Returns the decoded value, or an error wrapping ErrUnclassifiablePointer if the reference holds no known field.
func (d *Decoder) DecodeRef(ctx context.Context, definition *types.Node, ref pointer.Ref, info *EvmInfo) (values.Value, error) {
	ptr, err := ref.Pointer()
	if err != nil {
		return nil, err
	}
	return d.Decode(ctx, definition, ptr, info)
}

// IsFatal reports whether an error returned by the Decoder must terminate the session.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnclassifiablePointer)
}
