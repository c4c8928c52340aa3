package debugger

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/crytic/medusa-debugger/compilation"
	"github.com/crytic/medusa-debugger/config"
	"github.com/crytic/medusa-debugger/data"
	"github.com/crytic/medusa-debugger/logging/colors"
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterSourceJSON is the compact AST of:
//
//	contract Counter {
//	    uint256 count;
//	    function bump() { 1; }
//	}
const counterSourceJSON = `{
	"id": 10, "nodeType": "SourceUnit", "src": "0:100:0",
	"nodes": [{
		"id": 9, "nodeType": "ContractDefinition", "src": "0:100:0", "name": "Counter",
		"contractKind": "contract", "linearizedBaseContracts": [9],
		"nodes": [{
			"id": 3, "nodeType": "VariableDeclaration", "src": "20:10:0", "name": "count",
			"stateVariable": true, "constant": false, "mutability": "mutable", "storageLocation": "default",
			"typeDescriptions": {"typeIdentifier": "t_uint256", "typeString": "uint256"},
			"typeName": {
				"id": 2, "nodeType": "ElementaryTypeName", "src": "20:7:0", "name": "uint256",
				"typeDescriptions": {"typeIdentifier": "t_uint256", "typeString": "uint256"}
			}
		}, {
			"id": 8, "nodeType": "FunctionDefinition", "src": "40:50:0", "name": "bump",
			"parameters": {"id": 4, "nodeType": "ParameterList", "src": "50:2:0", "parameters": []},
			"returnParameters": {"id": 5, "nodeType": "ParameterList", "src": "53:0:0", "parameters": []},
			"body": {
				"id": 7, "nodeType": "Block", "src": "60:20:0",
				"statements": [{
					"id": 6, "nodeType": "Literal", "src": "62:1:0", "kind": "number", "value": "1",
					"typeDescriptions": {"typeIdentifier": "t_rational_1_by_1", "typeString": "int_const 1"}
				}]
			}
		}]
	}]
}`

// newCounterProgram decodes the Counter program.
func newCounterProgram(t *testing.T) *compilation.Program {
	program, err := compilation.NewProgram("0.8.19", map[int]json.RawMessage{0: json.RawMessage(counterSourceJSON)})
	require.NoError(t, err)
	return program
}

// TestNewValidatesInput verifies a Debugger requires a program and a valid config.
func TestNewValidatesInput(t *testing.T) {
	_, err := New(context.Background(), *config.GetDefaultDebuggerConfig(), nil)
	assert.Error(t, err)

	invalid := config.GetDefaultDebuggerConfig()
	invalid.StorageSource.RPCAddress = "not a url"
	_, err = New(context.Background(), *invalid, newCounterProgram(t))
	assert.Error(t, err)
}

// TestDebuggerRun verifies steps sent to a Debugger are recorded in its session, resolving their nodes from their
// pointers, and structured logs are written to the log directory.
func TestDebuggerRun(t *testing.T) {
	logDirectory := t.TempDir()
	debuggerConfig := config.GetDefaultDebuggerConfig()
	debuggerConfig.Logging.EnableConsoleLogging = false
	debuggerConfig.Logging.LogDirectory = logDirectory

	program := newCounterProgram(t)
	debugger, err := New(context.Background(), *debuggerConfig, program)
	require.NoError(t, err)

	address := common.HexToAddress("0xc0ffee")
	steps := make(chan *data.TraceStep, 2)
	steps <- &data.TraceStep{
		Index:                           0,
		TreeID:                          0,
		Pointer:                         program.Scopes[9].Pointer,
		Stack:                           []uint256.Int{{}},
		Address:                         &address,
		AtLastInstructionForSourceRange: true,
	}
	steps <- &data.TraceStep{
		Index:                           1,
		TreeID:                          0,
		Pointer:                         program.Scopes[6].Pointer,
		Stack:                           []uint256.Int{*uint256.NewInt(1)},
		FunctionDepth:                   1,
		AtLastInstructionForSourceRange: true,
	}
	close(steps)
	require.NoError(t, debugger.Run(context.Background(), steps))

	count := debugger.Session().AssignmentsByAstID(3)
	require.Len(t, count, 1)
	assert.EqualValues(t, data.AddressIdentity{AstID: 3, Address: address}, count[0].Identity)
	require.NotNil(t, count[0].Ref.Storage)
	assert.True(t, count[0].Ref.Storage.Slot.IsZero())

	literal := debugger.Session().AssignmentsByAstID(6)
	require.Len(t, literal, 1)
	assert.EqualValues(t, 1, literal[0].Ref.Literal.Uint64())

	require.NoError(t, debugger.Reset())
	assert.Empty(t, debugger.Session().Assignments())
	require.NoError(t, debugger.Close())

	entries, err := os.ReadDir(logDirectory)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "log-"))
}

// TestNewDisablesColor verifies console coloring is turned off when the config asks for it.
func TestNewDisablesColor(t *testing.T) {
	debuggerConfig := config.GetDefaultDebuggerConfig()
	debuggerConfig.Logging.EnableConsoleLogging = false
	debuggerConfig.Logging.NoColor = true

	debugger, err := New(context.Background(), *debuggerConfig, newCounterProgram(t))
	require.NoError(t, err)
	defer debugger.Close()

	assert.EqualValues(t, "plain", colors.Red("plain"))
}
