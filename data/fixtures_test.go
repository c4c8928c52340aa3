package data

import (
	"testing"

	"github.com/crytic/medusa-debugger/compilation"
	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding"
	"github.com/crytic/medusa-debugger/decoding/elementary"
	"github.com/crytic/medusa-debugger/storage"
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// Ids of the nodes of the test program.
const (
	vaultContractID   = 1
	balancesID        = 2
	ownerID           = 6
	indexIdentifierID = 7
	depositFunctionID = 20
	depositAmountID   = 22
	depositReceiverID = 23
	depositReturnID   = 25
	mappingAccessID   = 30
	constantAccessID  = 33
	constantIndexID   = 32
	arrayAccessID     = 35
	binaryOperationID = 11
	unknownContractID = 50
	unknownBaseID     = 99
)

// testCompilerVersion is the compiler version the test programs claim to be compiled with.
const testCompilerVersion = "0.8.19"

// typed creates a node of the provided kind and type.
func typed(id int, nodeType string, typeIdentifier string) *types.Node {
	return &types.Node{
		ID:               id,
		NodeType:         nodeType,
		TypeDescriptions: &types.TypeDescriptions{TypeIdentifier: typeIdentifier, TypeString: typeIdentifier},
	}
}

// reference creates an identifier referring to the declaration with the provided id.
func reference(id int, declarationID int, typeIdentifier string) *types.Node {
	node := typed(id, types.NodeTypeIdentifier, typeIdentifier)
	node.ReferencedDeclaration = &declarationID
	return node
}

// parameter creates a parameter declaration of the provided type.
func parameter(id int, name string, typeIdentifier string) *types.Node {
	declaration := typed(id, types.NodeTypeVariableDeclaration, typeIdentifier)
	declaration.Name = name
	return declaration.SetChild("typeName", typed(id+100, types.NodeTypeElementaryTypeName, typeIdentifier))
}

// statement wraps an expression into an expression statement.
func statement(id int, expression *types.Node) *types.Node {
	return (&types.Node{ID: id, NodeType: "ExpressionStatement"}).SetChild("expression", expression)
}

// newTestProgram creates the program:
//
//	contract Vault {
//	    mapping(uint256 => uint256) balances;
//	    address owner;
//	    function deposit(uint256 amount, address receiver) returns (bool) {
//	        balances[i];
//	        balances[5];
//	        data[i];
//	        a + b;
//	    }
//	}
func newTestProgram(t *testing.T) *compilation.Program {
	mappingType := "t_mapping$_t_uint256_$_t_uint256_$"
	balancesTypeName := (&types.Node{ID: 3, NodeType: types.NodeTypeMapping}).
		SetChild("keyType", typed(4, types.NodeTypeElementaryTypeName, "t_uint256")).
		SetChild("valueType", typed(5, types.NodeTypeElementaryTypeName, "t_uint256"))
	balances := typed(balancesID, types.NodeTypeVariableDeclaration, mappingType).SetChild("typeName", balancesTypeName)
	balances.Name = "balances"
	balances.StateVariable = true

	owner := typed(ownerID, types.NodeTypeVariableDeclaration, "t_address").
		SetChild("typeName", typed(8, types.NodeTypeElementaryTypeName, "t_address"))
	owner.Name = "owner"
	owner.StateVariable = true

	mappingAccess := typed(mappingAccessID, types.NodeTypeIndexAccess, "t_uint256").
		SetChild("baseExpression", reference(31, balancesID, mappingType)).
		SetChild("indexExpression", typed(indexIdentifierID, types.NodeTypeIdentifier, "t_uint256"))
	constantIndex := typed(constantIndexID, types.NodeTypeLiteral, "t_rational_5_by_1")
	five := "5"
	constantIndex.Kind = "number"
	constantIndex.LiteralValue = &five
	constantAccess := typed(constantAccessID, types.NodeTypeIndexAccess, "t_uint256").
		SetChild("baseExpression", reference(34, balancesID, mappingType)).
		SetChild("indexExpression", constantIndex)
	arrayAccess := typed(arrayAccessID, types.NodeTypeIndexAccess, "t_uint256").
		SetChild("baseExpression", typed(36, types.NodeTypeIdentifier, "t_array$_t_uint256_$dyn_memory_ptr")).
		SetChild("indexExpression", typed(37, types.NodeTypeIdentifier, "t_uint256"))
	binaryOperation := typed(binaryOperationID, "BinaryOperation", "t_uint256")

	body := (&types.Node{ID: 40, NodeType: "Block"}).SetChildList("statements", []*types.Node{
		statement(41, mappingAccess),
		statement(42, constantAccess),
		statement(43, arrayAccess),
		statement(44, binaryOperation),
	})
	deposit := (&types.Node{ID: depositFunctionID, NodeType: types.NodeTypeFunctionDefinition, Name: "deposit"}).
		SetChild("parameters", (&types.Node{ID: 21, NodeType: types.NodeTypeParameterList}).SetChildList("parameters", []*types.Node{
			parameter(depositAmountID, "amount", "t_uint256"),
			parameter(depositReceiverID, "receiver", "t_address"),
		})).
		SetChild("returnParameters", (&types.Node{ID: 24, NodeType: types.NodeTypeParameterList}).SetChildList("parameters", []*types.Node{
			parameter(depositReturnID, "", "t_bool"),
		})).
		SetChild("body", body)

	vault := (&types.Node{
		ID:                      vaultContractID,
		NodeType:                types.NodeTypeContractDefinition,
		Name:                    "Vault",
		ContractKind:            types.ContractKindContract,
		LinearizedBaseContracts: []int{vaultContractID},
	}).SetChildList("nodes", []*types.Node{balances, owner, deposit})
	root := (&types.Node{ID: 100, NodeType: types.NodeTypeSourceUnit}).SetChildList("nodes", []*types.Node{vault})

	program, err := compilation.NewProgramFromTrees(testCompilerVersion, map[int]*types.Node{0: root})
	require.NoError(t, err)
	return program
}

// newTestTracker creates a Tracker over a fresh session of the test program, decoding with the elementary decoders.
func newTestTracker(t *testing.T) *Tracker {
	return newTrackerWithDecoder(t, newTestProgram(t), elementary.NewDispatcher())
}

// newTrackerWithDecoder creates a Tracker over a fresh session of the provided program.
func newTrackerWithDecoder(t *testing.T, program *compilation.Program, decoder *decoding.Decoder) *Tracker {
	return NewTracker(NewSession(program), decoder, storage.NewAllocator(), nil)
}

// stepAt creates a trace step executing the node at the final instruction of its source range.
func stepAt(node *types.Node, depth int, stack ...uint64) *TraceStep {
	words := make([]uint256.Int, len(stack))
	for i, word := range stack {
		words[i].SetUint64(word)
	}
	return &TraceStep{
		Node:                            node,
		Stack:                           words,
		FunctionDepth:                   depth,
		AtLastInstructionForSourceRange: true,
	}
}

// withAddress sets the addresses of the contract executing at the step.
func withAddress(step *TraceStep, address *common.Address, dummyAddress *common.Address) *TraceStep {
	step.Address = address
	step.DummyAddress = dummyAddress
	return step
}

// recordedEvents collects every event published by a session.
type recordedEvents struct {
	assign         []AssignEvent
	allocate       []AllocateEvent
	mapKey         []MapKeyEvent
	mapKeyDecoding []bool
	learnAddress   []LearnAddressEvent
	reset          []ResetEvent
}

// recordEvents subscribes to every event emitter of the session.
func recordEvents(session *Session) *recordedEvents {
	recorded := &recordedEvents{}
	session.Events.Assign.Subscribe(func(event AssignEvent) error {
		recorded.assign = append(recorded.assign, event)
		return nil
	})
	session.Events.Allocate.Subscribe(func(event AllocateEvent) error {
		recorded.allocate = append(recorded.allocate, event)
		return nil
	})
	session.Events.MapKey.Subscribe(func(event MapKeyEvent) error {
		recorded.mapKey = append(recorded.mapKey, event)
		return nil
	})
	session.Events.MapKeyDecoding.Subscribe(func(event MapKeyDecodingEvent) error {
		recorded.mapKeyDecoding = append(recorded.mapKeyDecoding, event.Decoding)
		return nil
	})
	session.Events.LearnAddress.Subscribe(func(event LearnAddressEvent) error {
		recorded.learnAddress = append(recorded.learnAddress, event)
		return nil
	})
	session.Events.Reset.Subscribe(func(event ResetEvent) error {
		recorded.reset = append(recorded.reset, event)
		return nil
	})
	return recorded
}

// mustHash hashes an identity, failing the test on error.
func mustHash(t *testing.T, identity IdentityDescriptor) AssignmentID {
	id, err := HashIdentity(identity)
	require.NoError(t, err)
	return id
}

// node returns the node of the test program with the provided id.
func node(t *testing.T, tracker *Tracker, id int) *types.Node {
	definition := tracker.Session().Program.Scopes.Definition(id)
	require.NotNil(t, definition, "node %d is not part of the program", id)
	return definition
}
