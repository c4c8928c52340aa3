package decoding

import (
	"context"
	"testing"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding/pointer"
	"github.com/crytic/medusa-debugger/decoding/values"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routeRecorder implements every per-class decoder, recording which one was invoked.
type routeRecorder struct {
	routes []string
	err    error
}

func (r *routeRecorder) record(route string) (values.Value, error) {
	r.routes = append(r.routes, route)
	if r.err != nil {
		return nil, r.err
	}
	return values.StringValue{Value: route}, nil
}

func (r *routeRecorder) DecodeStorage(ctx context.Context, definition *types.Node, ptr pointer.StoragePointer, info *EvmInfo) (values.Value, error) {
	return r.record("storage")
}

func (r *routeRecorder) DecodeMemory(ctx context.Context, definition *types.Node, ptr pointer.MemoryPointer, info *EvmInfo) (values.Value, error) {
	return r.record("memory")
}

func (r *routeRecorder) DecodeStack(ctx context.Context, definition *types.Node, ptr pointer.StackPointer, info *EvmInfo) (values.Value, error) {
	return r.record("stack")
}

func (r *routeRecorder) DecodeLiteral(ctx context.Context, definition *types.Node, ptr pointer.StackLiteralPointer, info *EvmInfo) (values.Value, error) {
	return r.record("literal")
}

func (r *routeRecorder) DecodeConstant(ctx context.Context, definition *types.Node, ptr pointer.ConstantDefinitionPointer) (values.Value, error) {
	return r.record("definition")
}

// unknownPointer is a pointer kind the Decoder does not know. It embeds a known kind to satisfy the sealed interface.
type unknownPointer struct {
	pointer.StackPointer
}

// newRecordingDecoder creates a Decoder whose per-class decoders are all the provided recorder.
func newRecordingDecoder(recorder *routeRecorder) *Decoder {
	return NewDecoder(recorder, recorder, recorder, recorder, recorder)
}

var uint256Definition = &types.Node{
	ID:               1,
	NodeType:         types.NodeTypeVariableDeclaration,
	TypeDescriptions: &types.TypeDescriptions{TypeIdentifier: "t_uint256", TypeString: "uint256"},
}

// TestDecodeRoutesEveryPointerKind verifies each of the five pointer kinds routes to exactly one decoder.
func TestDecodeRoutesEveryPointerKind(t *testing.T) {
	cases := map[string]pointer.DataPointer{
		"storage":    pointer.StoragePointer{Slot: *uint256.NewInt(1), Length: 32},
		"memory":     pointer.MemoryPointer{Start: 0x80, Length: 32},
		"stack":      pointer.StackPointer{Index: 0},
		"literal":    pointer.StackLiteralPointer{Literal: *uint256.NewInt(5)},
		"definition": pointer.ConstantDefinitionPointer{Definition: uint256Definition},
	}

	for route, ptr := range cases {
		recorder := &routeRecorder{}
		value, err := newRecordingDecoder(recorder).Decode(context.Background(), uint256Definition, ptr, &EvmInfo{})
		require.NoError(t, err)
		assert.EqualValues(t, []string{route}, recorder.routes)
		assert.EqualValues(t, route, value.String())
	}
}

// TestDecodeUnclassifiablePointer verifies unknown and nil pointers raise a fatal classification error without
// invoking any decoder.
func TestDecodeUnclassifiablePointer(t *testing.T) {
	recorder := &routeRecorder{}
	decoder := newRecordingDecoder(recorder)

	for _, ptr := range []pointer.DataPointer{nil, unknownPointer{}} {
		_, err := decoder.Decode(context.Background(), uint256Definition, ptr, &EvmInfo{})
		require.Error(t, err)
		assert.True(t, IsFatal(err))
	}
	assert.Empty(t, recorder.routes)

	_, err := decoder.DecodeRef(context.Background(), uint256Definition, pointer.Ref{}, &EvmInfo{})
	assert.True(t, IsFatal(err))
}

// TestDecodeErrorsAreNotFatal verifies failures of the per-class decoders are wrapped but not treated as fatal.
func TestDecodeErrorsAreNotFatal(t *testing.T) {
	recorder := &routeRecorder{err: errors.New("stack underflow")}
	_, err := newRecordingDecoder(recorder).DecodeRef(context.Background(), uint256Definition, pointer.StackRef(3), &EvmInfo{})
	require.Error(t, err)
	assert.False(t, IsFatal(err))
	assert.Contains(t, err.Error(), "stack underflow")
}
