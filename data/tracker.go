package data

import (
	"context"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding"
	"github.com/crytic/medusa-debugger/decoding/pointer"
	"github.com/crytic/medusa-debugger/logging"
	"github.com/crytic/medusa-debugger/logging/colors"
	"github.com/crytic/medusa-debugger/storage"
	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// TraceStep describes a single step of an execution trace, as captured by the tracer. The Tracker never modifies it.
type TraceStep struct {
	// Index is the position of the step within the trace.
	Index int

	// TreeID is the id of the tree (source unit) Node belongs to.
	TreeID int

	// Node is the AST node executing at this step, or nil if the step maps to no node.
	Node *types.Node

	// Pointer is the JSON pointer of Node within its tree. It is used to resolve Node when Node is not set.
	Pointer string

	// ProgramCounter is the bytecode offset of the instruction executed at this step.
	ProgramCounter uint64

	// Stack holds the operand stack, bottom first. A nil stack is unavailable.
	Stack []uint256.Int

	// Memory holds the memory of the current call frame.
	Memory []byte

	// Storage holds the storage slots of the executing account known at this step.
	Storage map[common.Hash]common.Hash

	// FunctionDepth is the depth of the call stack of internal and external function calls.
	FunctionDepth int

	// Address is the address of the executing contract, or nil while it is being constructed.
	Address *common.Address

	// DummyAddress is the placeholder address standing in for a contract being constructed.
	DummyAddress *common.Address

	// AtLastInstructionForSourceRange is set if this step executes the final instruction mapping to the source range
	// of Node. Only then does the state reflect the completed evaluation of Node.
	AtLastInstructionForSourceRange bool
}

// Tracker records, step by step, which declarations and expressions are live and where their values can be decoded
// from. A Tracker owns its Session and processes steps strictly in order.
type Tracker struct {
	// session describes the state the Tracker records into.
	session *Session

	// decoder decodes mapping keys.
	decoder *decoding.Decoder

	// allocator computes the storage allocations of the program.
	allocator *storage.Allocator

	// storageReader reads storage the trace did not capture. It may be nil.
	storageReader decoding.StorageReader

	// logger describes the Tracker's log object that can be used to log important events
	logger *logging.Logger
}

// NewTracker creates a Tracker recording into the provided session.
func NewTracker(session *Session, decoder *decoding.Decoder, allocator *storage.Allocator, storageReader decoding.StorageReader) *Tracker {
	return &Tracker{
		session:       session,
		decoder:       decoder,
		allocator:     allocator,
		storageReader: storageReader,
		logger:        logging.GlobalLogger.NewSubLogger("module", logging.DATA_SERVICE),
	}
}

// Session returns the session the Tracker records into.
func (t *Tracker) Session() *Session {
	return t.session
}

// Run processes every step received from steps until the channel is closed.
// Returns an error if the context is cancelled or a fatal error occurs. Errors of single steps are logged and
// processing continues with the next step.
func (t *Tracker) Run(ctx context.Context, steps <-chan *TraceStep) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case step, ok := <-steps:
			if !ok {
				return nil
			}
			if err := t.Advance(ctx, step); err != nil {
				return err
			}
		}
	}
}

// Advance processes a single step. Errors of the step are logged and swallowed, so the trace can continue.
// Returns an error only if it is fatal to the session.
func (t *Tracker) Advance(ctx context.Context, step *TraceStep) error {
	err := t.safeStep(ctx, step)
	if err == nil {
		return nil
	}

	if IsFatal(err) {
		t.logger.Error(colors.Red, "Session ", t.session.ID, " terminated at trace step ", step.Index, colors.Reset, err, stepLogInfo(step))
		return err
	}
	t.logger.Error("Failed to process trace step ", step.Index, err, stepLogInfo(step))
	return nil
}

// safeStep runs Step, converting a panic into an error of the step.
func (t *Tracker) safeStep(ctx context.Context, step *TraceStep) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic while processing trace step: %v", r)
		}
	}()
	return t.Step(ctx, step)
}

// stepLogInfo describes a step for log output.
func stepLogInfo(step *TraceStep) logging.StructuredLogInfo {
	info := logging.StructuredLogInfo{
		"step": step.Index,
		"tree": step.TreeID,
	}
	if step.Node != nil {
		info["node"] = step.Node.ID
		info["nodeType"] = step.Node.NodeType
	}
	return info
}

// Step records the assignments produced by the node executing at the provided step. Steps without a node or an
// operand stack, and steps which are not the final instruction of their node's source range, produce nothing. An
// empty operand stack is still a stack: only nodes reading its top require it to hold a word.
// Returns an error if the step could not be processed.
func (t *Tracker) Step(ctx context.Context, step *TraceStep) error {
	if step == nil || step.Stack == nil || !step.AtLastInstructionForSourceRange {
		return nil
	}
	if step.Node == nil {
		if step.Pointer == "" {
			return nil
		}
		node, err := t.session.Program.NodeAt(step.TreeID, step.Pointer)
		if err != nil {
			return err
		}
		resolved := *step
		resolved.Node = node
		step = &resolved
	}

	switch step.Node.NodeType {
	case types.NodeTypeFunctionDefinition:
		return t.assignParameters(step)
	case types.NodeTypeContractDefinition:
		return t.assignContractMembers(step)
	case types.NodeTypeVariableDeclaration:
		return t.assignVariable(step)
	case types.NodeTypeIndexAccess:
		return t.resolveMappingKey(ctx, step, t.evmInfo(step))
	case types.NodeTypeAssignment:
		return nil
	default:
		return t.assignExpression(step)
	}
}

// Reset clears every assignment, mapping key and learnt address of the session. Storage allocations are kept.
func (t *Tracker) Reset() error {
	t.session.clear()
	t.logger.Debug("Reset session ", t.session.ID)
	return t.session.Events.Reset.Publish(ResetEvent{SessionID: t.session.ID})
}

// assignParameters binds the parameters and return parameters of a function to the stack slots they occupy when the
// function is entered. The last parameter is nearest to the top of the stack, and return parameters lie below the
// parameters.
func (t *Tracker) assignParameters(step *TraceStep) error {
	declarations := append(append([]*types.Node(nil), step.Node.ReturnParameters()...), step.Node.Parameters()...)
	top := len(step.Stack) - 1

	assignments := make([]*Assignment, 0, len(declarations))
	for i := 0; i < len(declarations); i++ {
		declaration := declarations[len(declarations)-1-i]
		if declaration == nil {
			continue
		}
		if top-i < 0 {
			return errors.Errorf("stack of size %d is too small for the %d parameters of function %d", len(step.Stack), len(declarations), step.Node.ID)
		}
		assignment, err := NewAssignment(StackframeIdentity{AstID: declaration.ID, Stackframe: step.FunctionDepth}, pointer.StackRef(top-i))
		if err != nil {
			return err
		}
		assignments = append(assignments, assignment)
	}
	return t.assign(step.TreeID, assignments)
}

// assignContractMembers binds every state variable of a contract to its storage location, for the contract instance
// executing at the provided step.
func (t *Tracker) assignContractMembers(step *TraceStep) error {
	allocations, err := t.RecordAllocations()
	if err != nil {
		return err
	}
	allocation, ok := allocations[step.Node.ID]
	if !ok {
		return errors.Errorf("no storage allocation for contract %s (%d)", step.Node.Name, step.Node.ID)
	}

	assignments := make([]*Assignment, 0, len(allocation.Members))
	for _, id := range allocation.MemberIDs() {
		identity, ok := t.contractIdentity(id, step)
		if !ok {
			t.logger.Debug("Address of contract ", step.Node.Name, " is not known yet at trace step ", step.Index)
			return nil
		}
		assignment, err := NewAssignment(identity, allocation.Members[id].Pointer)
		if err != nil {
			return err
		}
		assignments = append(assignments, assignment)
	}
	return t.assign(step.TreeID, assignments)
}

// assignVariable binds a declared variable to the top of the stack. State variables seen through their accessor
// appear as local declarations, so declarations already bound as contract members are left alone.
func (t *Tracker) assignVariable(step *TraceStep) error {
	for _, assignment := range t.session.assignments.ByAstID(step.Node.ID) {
		if IsContractMember(assignment.Identity) {
			return nil
		}
	}

	if len(step.Stack) == 0 {
		return errors.Errorf("cannot bind variable %d to the top of an empty stack", step.Node.ID)
	}
	assignment, err := NewAssignment(StackframeIdentity{AstID: step.Node.ID, Stackframe: step.FunctionDepth}, pointer.StackRef(len(step.Stack)-1))
	if err != nil {
		return err
	}
	return t.assign(step.TreeID, []*Assignment{assignment})
}

// assignExpression records the value an expression evaluated to, held at the top of the stack. Untyped nodes, such as
// statements, are ignored.
func (t *Tracker) assignExpression(step *TraceStep) error {
	if step.Node.TypeDescriptions == nil {
		return nil
	}

	if len(step.Stack) == 0 {
		return errors.Errorf("cannot read the value of expression %d from an empty stack", step.Node.ID)
	}
	assignment, err := NewAssignment(StackframeIdentity{AstID: step.Node.ID, Stackframe: step.FunctionDepth}, pointer.LiteralRef(&step.Stack[len(step.Stack)-1]))
	if err != nil {
		return err
	}
	return t.assign(step.TreeID, []*Assignment{assignment})
}

// assign records assignments in the session and publishes them.
func (t *Tracker) assign(treeID int, assignments []*Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	applied := t.session.assignments.Apply(assignments)
	return t.session.Events.Assign.Publish(AssignEvent{TreeID: treeID, Assignments: applied})
}

// evmInfo describes the execution context of the provided step for decoding.
func (t *Tracker) evmInfo(step *TraceStep) *decoding.EvmInfo {
	return &decoding.EvmInfo{
		State: decoding.State{
			Stack:   step.Stack,
			Memory:  step.Memory,
			Storage: step.Storage,
		},
		ContractAddress: t.contractAddress(step),
		Scopes:          t.session.Program.Scopes,
		StorageReader:   t.storageReader,
	}
}
