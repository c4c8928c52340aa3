package storage

import (
	"math"
	"strconv"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding/pointer"
	"github.com/crytic/medusa-debugger/logging"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Allocator computes storage allocations of contracts and structs.
type Allocator struct {
	// logger describes the Allocator's log object that can be used to log important events
	logger *logging.Logger
}

// NewAllocator creates an Allocator.
func NewAllocator() *Allocator {
	return &Allocator{
		logger: logging.GlobalLogger.NewSubLogger("module", logging.STORAGE_SERVICE),
	}
}

// allocationContext holds the state of a single Allocate call.
type allocationContext struct {
	referenceDeclarations map[int]*types.Node
	contracts             map[int]*types.Node
	allocations           Allocations

	// inProgress holds the ids of structs currently being allocated, to detect recursive structs.
	inProgress map[int]bool
}

// Allocate computes the allocation of every struct among referenceDeclarations and of every contract. Contracts
// inherit the state variables of their base contracts, which must be among contracts or referenceDeclarations.
// Returns the allocations keyed by definition id, or an error if any declaration is malformed.
func (a *Allocator) Allocate(referenceDeclarations map[int]*types.Node, contracts []*types.Node) (Allocations, error) {
	ctx := &allocationContext{
		referenceDeclarations: referenceDeclarations,
		contracts:             make(map[int]*types.Node, len(contracts)),
		allocations:           make(Allocations),
		inProgress:            make(map[int]bool),
	}
	for id, declaration := range referenceDeclarations {
		if declaration.NodeType == types.NodeTypeContractDefinition {
			ctx.contracts[id] = declaration
		}
	}
	for _, contract := range contracts {
		ctx.contracts[contract.ID] = contract
	}

	for _, id := range sortedIDs(referenceDeclarations) {
		if declaration := referenceDeclarations[id]; declaration.NodeType == types.NodeTypeStructDefinition {
			if _, err := ctx.allocateStruct(declaration); err != nil {
				return nil, err
			}
		}
	}

	for _, id := range sortedIDs(ctx.contracts) {
		if err := ctx.allocateContract(ctx.contracts[id]); err != nil {
			return nil, err
		}
	}

	a.logger.Debug("Allocated storage of ", len(ctx.allocations), " contracts and structs")
	return ctx.allocations, nil
}

// allocateStruct computes the allocation of a struct, reusing an earlier result.
func (ctx *allocationContext) allocateStruct(definition *types.Node) (*Allocation, error) {
	if allocation, ok := ctx.allocations[definition.ID]; ok {
		return allocation, nil
	}
	if ctx.inProgress[definition.ID] {
		return nil, errors.Errorf("struct %s (%d) recursively contains itself", definition.Name, definition.ID)
	}
	ctx.inProgress[definition.ID] = true
	defer delete(ctx.inProgress, definition.ID)

	allocation, err := ctx.allocateMembers(definition.ID, definition.Members())
	if err != nil {
		return nil, errors.Wrapf(err, "could not allocate struct %s (%d)", definition.Name, definition.ID)
	}
	ctx.allocations[definition.ID] = allocation
	return allocation, nil
}

// allocateContract computes the allocation of a contract's state variables, including those of its base contracts.
// Base contracts are laid out first, starting with the most basic.
func (ctx *allocationContext) allocateContract(definition *types.Node) error {
	var variables []*types.Node
	bases := definition.LinearizedBaseContracts
	if len(bases) == 0 {
		bases = []int{definition.ID}
	}
	for i := len(bases) - 1; i >= 0; i-- {
		base, ok := ctx.contracts[bases[i]]
		if !ok {
			return errors.Errorf("base contract %d of contract %s (%d) is unknown", bases[i], definition.Name, definition.ID)
		}
		for _, node := range base.Nodes() {
			if node.NodeType == types.NodeTypeVariableDeclaration && node.StateVariable {
				variables = append(variables, node)
			}
		}
	}

	allocation, err := ctx.allocateMembers(definition.ID, variables)
	if err != nil {
		return errors.Wrapf(err, "could not allocate contract %s (%d)", definition.Name, definition.ID)
	}
	ctx.allocations[definition.ID] = allocation
	return nil
}

// allocateMembers lays out variables in declaration order. Variables smaller than a slot are packed from the right
// (least significant end) of a slot while they fit. Every other variable starts a new slot, and the variable after it
// starts a new slot too. Constants are located by the definition of their value, immutables are not in storage.
func (ctx *allocationContext) allocateMembers(id int, variables []*types.Node) (*Allocation, error) {
	allocation := &Allocation{
		ID:      id,
		Members: make(map[int]*Member, len(variables)),
	}

	var slot uint64
	offset := 0
	for _, variable := range variables {
		if variable.Constant || variable.Mutability == "constant" {
			value := variable.Child("value")
			if value == nil {
				return nil, errors.Errorf("constant %s (%d) has no value", variable.Name, variable.ID)
			}
			allocation.Members[variable.ID] = &Member{Definition: variable, Pointer: pointer.DefinitionRef(value)}
			continue
		}
		if variable.Mutability == "immutable" {
			continue
		}

		size, err := ctx.typeSize(variable.TypeName())
		if err != nil {
			return nil, errors.Wrapf(err, "could not size %s (%d)", variable.Name, variable.ID)
		}

		var location pointer.StoragePointer
		if size.IsPacked() {
			if offset+size.Bytes > SlotSize {
				slot++
				offset = 0
			}
			location = pointer.StoragePointer{Slot: *uint256.NewInt(slot), Offset: offset, Length: size.Bytes}
			offset += size.Bytes
		} else {
			if offset > 0 {
				slot++
				offset = 0
			}
			if size.Slots > math.MaxInt/SlotSize {
				return nil, errors.Errorf("%s (%d) of %s is too large to locate", variable.Name, variable.ID, size)
			}
			location = pointer.StoragePointer{Slot: *uint256.NewInt(slot), Length: int(size.Slots) * SlotSize}
			slot += size.Slots
		}
		allocation.Members[variable.ID] = &Member{Definition: variable, Pointer: pointer.StorageRef(location)}
	}

	if offset > 0 {
		slot++
	}
	allocation.Size = Size{Slots: slot}
	return allocation, nil
}

// typeSize returns the storage a type name occupies.
func (ctx *allocationContext) typeSize(typeName *types.Node) (Size, error) {
	if typeName == nil {
		return Size{}, errors.New("declaration has no type name")
	}

	switch typeName.NodeType {
	case types.NodeTypeMapping:
		return Size{Slots: 1}, nil
	case types.NodeTypeFunctionTypeName:
		if typeName.Visibility == "external" {
			return Size{Bytes: 24}, nil
		}
		return Size{Bytes: 8}, nil
	case types.NodeTypeArrayTypeName:
		return ctx.arraySize(typeName)
	case types.NodeTypeUserDefinedTypeName:
		return ctx.userDefinedSize(typeName)
	}
	return elementarySize(typeName)
}

// elementarySize returns the storage an elementary type occupies.
func elementarySize(typeName *types.Node) (Size, error) {
	switch class := types.TypeClass(typeName); class {
	case "bool":
		return Size{Bytes: 1}, nil
	case "address", "contract":
		return Size{Bytes: 20}, nil
	case "string":
		return Size{Slots: 1}, nil
	case "uint", "int", "fixed", "ufixed":
		bits, ok := types.SpecifiedSize(typeName)
		if !ok {
			bits = 256
			if class == "fixed" || class == "ufixed" {
				bits = 128
			}
		}
		return packedSize(bits / 8), nil
	case "bytes":
		size, ok := types.SpecifiedSize(typeName)
		if !ok {
			return Size{Slots: 1}, nil
		}
		return packedSize(size), nil
	}
	return Size{}, errors.Errorf("unknown elementary type %q", typeName.TypeString())
}

// packedSize returns the size of a type of the provided byte width. Full-width types occupy a slot on their own.
func packedSize(bytes int) Size {
	if bytes >= SlotSize {
		return Size{Slots: 1}
	}
	return Size{Bytes: bytes}
}

// userDefinedSize returns the storage a struct, enum, contract or user defined value type occupies.
func (ctx *allocationContext) userDefinedSize(typeName *types.Node) (Size, error) {
	id, ok := types.ReferencedTypeId(typeName)
	if !ok {
		return Size{}, errors.Errorf("type name %d refers to no declaration", typeName.ID)
	}
	declaration, ok := ctx.referenceDeclarations[id]
	if !ok {
		declaration, ok = ctx.contracts[id]
	}
	if !ok {
		return Size{}, errors.Errorf("declaration %d of type %q is unknown", id, typeName.TypeString())
	}

	switch declaration.NodeType {
	case types.NodeTypeStructDefinition:
		allocation, err := ctx.allocateStruct(declaration)
		if err != nil {
			return Size{}, err
		}
		return allocation.Size, nil
	case types.NodeTypeEnumDefinition:
		return Size{Bytes: enumBytes(len(declaration.Members()))}, nil
	case types.NodeTypeContractDefinition:
		return Size{Bytes: 20}, nil
	case types.NodeTypeUserDefinedValueType:
		return ctx.typeSize(declaration.Child("underlyingType"))
	}
	return Size{}, errors.Errorf("declaration %d of type %q is a %s", id, typeName.TypeString(), declaration.NodeType)
}

// enumBytes returns the bytes needed to hold the index of an enum with the provided amount of members.
func enumBytes(members int) int {
	bytes := 1
	for limit := 256; members > limit && bytes < SlotSize; limit *= 256 {
		bytes++
	}
	return bytes
}

// arraySize returns the storage an array occupies. Dynamic arrays keep their length in a single slot. Static arrays
// pack elements smaller than half a slot into shared slots.
func (ctx *allocationContext) arraySize(typeName *types.Node) (Size, error) {
	lengthExpression := typeName.Length()
	if lengthExpression == nil {
		return Size{Slots: 1}, nil
	}
	length, err := arrayLength(lengthExpression)
	if err != nil {
		return Size{}, err
	}

	element, err := ctx.typeSize(typeName.BaseType())
	if err != nil {
		return Size{}, err
	}

	var slots uint64
	if element.IsPacked() {
		perSlot := uint64(SlotSize / element.Bytes)
		slots = (length + perSlot - 1) / perSlot
	} else {
		if element.Slots != 0 && length > math.MaxUint64/element.Slots {
			return Size{}, errors.Errorf("array of %d elements of %s overflows storage", length, element)
		}
		slots = length * element.Slots
	}
	if slots == 0 {
		slots = 1
	}
	return Size{Slots: slots}, nil
}

// arrayLength returns the length of a static array from its length expression, which is a constant.
func arrayLength(expression *types.Node) (uint64, error) {
	if negative, num, den, ok := types.RationalParts(expression); ok {
		if negative || den != "1" {
			return 0, errors.Errorf("invalid array length %s", expression.TypeIdentifier())
		}
		length, err := strconv.ParseUint(num, 10, 64)
		return length, errors.Wrapf(err, "invalid array length %s", num)
	}
	if expression.LiteralValue != nil {
		length, err := strconv.ParseUint(*expression.LiteralValue, 0, 64)
		return length, errors.Wrapf(err, "invalid array length %s", *expression.LiteralValue)
	}
	return 0, errors.Errorf("array length expression %d is not a constant", expression.ID)
}

// sortedIDs returns the keys of a declaration map in ascending order.
func sortedIDs(declarations map[int]*types.Node) []int {
	ids := make([]int, 0, len(declarations))
	for id := range declarations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
