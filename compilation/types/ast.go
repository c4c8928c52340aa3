package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// ContractKind represents the kind of contract definition represented by an AST node
type ContractKind string

const (
	// ContractKindContract represents a contract node
	ContractKindContract ContractKind = "contract"
	// ContractKindLibrary represents a library node
	ContractKindLibrary ContractKind = "library"
	// ContractKindInterface represents an interface node
	ContractKindInterface ContractKind = "interface"
)

// Node types the debugger treats specially. Every other node type is handled generically.
const (
	NodeTypeSourceUnit            = "SourceUnit"
	NodeTypeContractDefinition    = "ContractDefinition"
	NodeTypeFunctionDefinition    = "FunctionDefinition"
	NodeTypeVariableDeclaration   = "VariableDeclaration"
	NodeTypeStructDefinition      = "StructDefinition"
	NodeTypeEnumDefinition        = "EnumDefinition"
	NodeTypeEnumValue             = "EnumValue"
	NodeTypeIndexAccess           = "IndexAccess"
	NodeTypeAssignment            = "Assignment"
	NodeTypeLiteral               = "Literal"
	NodeTypeParameterList         = "ParameterList"
	NodeTypeElementaryTypeName    = "ElementaryTypeName"
	NodeTypeUserDefinedTypeName   = "UserDefinedTypeName"
	NodeTypeMapping               = "Mapping"
	NodeTypeArrayTypeName         = "ArrayTypeName"
	NodeTypeFunctionTypeName      = "FunctionTypeName"
	NodeTypeIdentifier            = "Identifier"
	NodeTypeUserDefinedValueType  = "UserDefinedValueTypeDefinition"
	NodeTypeVariableDeclStatement = "VariableDeclarationStatement"
)

// TypeDescriptions describes the type the compiler resolved for an expression or declaration.
type TypeDescriptions struct {
	// TypeIdentifier is the machine-readable type, e.g. "t_mapping$_t_uint256_$_t_bool_$".
	TypeIdentifier string `json:"typeIdentifier"`
	// TypeString is the human-readable type, e.g. "mapping(uint256 => bool)".
	TypeString string `json:"typeString"`
}

// Node is a single node of a solc compact-format AST. Attributes the debugger needs are decoded into fields, and every
// nested AST node is kept under the JSON property it was found in, so the whole tree remains traversable regardless
// of node type.
type Node struct {
	ID       int    `json:"id"`
	NodeType string `json:"nodeType"`
	Src      string `json:"src"`
	Name     string `json:"name,omitempty"`

	TypeDescriptions      *TypeDescriptions `json:"typeDescriptions,omitempty"`
	ReferencedDeclaration *int              `json:"referencedDeclaration,omitempty"`

	// Declaration attributes
	StateVariable   bool   `json:"stateVariable,omitempty"`
	Constant        bool   `json:"constant,omitempty"`
	Mutability      string `json:"mutability,omitempty"`
	StorageLocation string `json:"storageLocation,omitempty"`
	Visibility      string `json:"visibility,omitempty"`

	// Contract attributes
	ContractKind            ContractKind `json:"contractKind,omitempty"`
	LinearizedBaseContracts []int        `json:"linearizedBaseContracts,omitempty"`

	// Literal attributes. LiteralValue is only set when "value" is a scalar; a declaration's initial value expression
	// is kept as the "value" child instead.
	Kind         string  `json:"kind,omitempty"`
	LiteralValue *string `json:"-"`
	HexValue     string  `json:"hexValue,omitempty"`

	// Children holds single nested nodes by property name, ChildLists holds arrays of nested nodes by property name.
	Children   map[string]*Node   `json:"-"`
	ChildLists map[string][]*Node `json:"-"`
}

// UnmarshalJSON decodes a compact-format AST node and every node nested within it.
func (n *Node) UnmarshalJSON(data []byte) error {
	// Decode the scalar attributes through an alias so we don't recurse into this method
	type Alias Node
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(n),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return errors.WithStack(err)
	}

	var properties map[string]json.RawMessage
	if err := json.Unmarshal(data, &properties); err != nil {
		return errors.WithStack(err)
	}

	// Sort property names so the child order is stable between runs
	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		value := bytes.TrimSpace(properties[key])
		if len(value) == 0 {
			continue
		}

		switch value[0] {
		case '{':
			if !isNodeJSON(value) {
				continue
			}
			child := &Node{}
			if err := json.Unmarshal(value, child); err != nil {
				return errors.Wrapf(err, "could not decode property %q of node %d", key, n.ID)
			}
			n.SetChild(key, child)
		case '[':
			var elements []json.RawMessage
			if err := json.Unmarshal(value, &elements); err != nil {
				return errors.WithStack(err)
			}
			children, isNodeList, err := decodeNodeList(elements)
			if err != nil {
				return errors.Wrapf(err, "could not decode property %q of node %d", key, n.ID)
			}
			if isNodeList {
				n.SetChildList(key, children)
			}
		case '"':
			if key == "value" {
				var literal string
				if err := json.Unmarshal(value, &literal); err != nil {
					return errors.WithStack(err)
				}
				n.LiteralValue = &literal
			}
		}
	}
	return nil
}

// isNodeJSON reports whether a JSON object carries a node type, i.e. whether it is an AST node rather than an
// attribute object such as typeDescriptions.
func isNodeJSON(data []byte) bool {
	var header struct {
		NodeType string `json:"nodeType"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return false
	}
	return header.NodeType != ""
}

// decodeNodeList decodes a JSON array into nodes. Null elements (e.g. omitted tuple components) are kept as nil.
// Returns false if the array holds anything other than nodes and nulls.
func decodeNodeList(elements []json.RawMessage) ([]*Node, bool, error) {
	if len(elements) == 0 {
		return nil, false, nil
	}

	nodes := make([]*Node, len(elements))
	foundNode := false
	for i, element := range elements {
		element = bytes.TrimSpace(element)
		if bytes.Equal(element, []byte("null")) {
			continue
		}
		if len(element) == 0 || element[0] != '{' || !isNodeJSON(element) {
			return nil, false, nil
		}
		node := &Node{}
		if err := json.Unmarshal(element, node); err != nil {
			return nil, false, err
		}
		nodes[i] = node
		foundNode = true
	}
	return nodes, foundNode, nil
}

// SetChild stores a nested node under the given property name. Returns the receiver so trees can be built fluently.
func (n *Node) SetChild(key string, child *Node) *Node {
	if n.Children == nil {
		n.Children = make(map[string]*Node)
	}
	n.Children[key] = child
	return n
}

// SetChildList stores a list of nested nodes under the given property name. Returns the receiver so trees can be
// built fluently.
func (n *Node) SetChildList(key string, children []*Node) *Node {
	if n.ChildLists == nil {
		n.ChildLists = make(map[string][]*Node)
	}
	n.ChildLists[key] = children
	return n
}

// Child returns the nested node stored under the given property name, or nil.
func (n *Node) Child(key string) *Node {
	if n == nil {
		return nil
	}
	return n.Children[key]
}

// ChildList returns the list of nested nodes stored under the given property name, or nil.
func (n *Node) ChildList(key string) []*Node {
	if n == nil {
		return nil
	}
	return n.ChildLists[key]
}

// ForEachChild invokes fn for every nested node, ordered by property name. index is -1 for single children and the
// position within the list otherwise. Nil list entries are skipped.
func (n *Node) ForEachChild(fn func(key string, index int, child *Node)) {
	keys := make([]string, 0, len(n.Children)+len(n.ChildLists))
	for key := range n.Children {
		keys = append(keys, key)
	}
	for key := range n.ChildLists {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	for _, key := range keys {
		if child, ok := n.Children[key]; ok && child != nil {
			fn(key, -1, child)
		}
		for i, child := range n.ChildLists[key] {
			if child != nil {
				fn(key, i, child)
			}
		}
	}
}

// TypeIdentifier returns the compiler type identifier of the node, or the empty string if the node is untyped.
func (n *Node) TypeIdentifier() string {
	if n == nil || n.TypeDescriptions == nil {
		return ""
	}
	return n.TypeDescriptions.TypeIdentifier
}

// TypeString returns the human-readable type of the node, or the empty string if the node is untyped.
func (n *Node) TypeString() string {
	if n == nil || n.TypeDescriptions == nil {
		return ""
	}
	return n.TypeDescriptions.TypeString
}

// TypeName returns the type name node of a declaration.
func (n *Node) TypeName() *Node { return n.Child("typeName") }

// KeyType returns the key type node of a Mapping type name.
func (n *Node) KeyType() *Node { return n.Child("keyType") }

// ValueType returns the value type node of a Mapping type name.
func (n *Node) ValueType() *Node { return n.Child("valueType") }

// BaseType returns the element type node of an ArrayTypeName.
func (n *Node) BaseType() *Node { return n.Child("baseType") }

// Length returns the length expression of a static ArrayTypeName, or nil for dynamic arrays.
func (n *Node) Length() *Node { return n.Child("length") }

// BaseExpression returns the indexed expression of an IndexAccess.
func (n *Node) BaseExpression() *Node { return n.Child("baseExpression") }

// IndexExpression returns the index expression of an IndexAccess.
func (n *Node) IndexExpression() *Node { return n.Child("indexExpression") }

// Members returns the members of a struct or enum definition.
func (n *Node) Members() []*Node { return n.ChildList("members") }

// Nodes returns the nested definitions of a source unit or contract.
func (n *Node) Nodes() []*Node { return n.ChildList("nodes") }

// Parameters returns the parameter declarations of a function definition.
func (n *Node) Parameters() []*Node {
	return n.Child("parameters").ChildList("parameters")
}

// ReturnParameters returns the return parameter declarations of a function definition.
func (n *Node) ReturnParameters() []*Node {
	return n.Child("returnParameters").ChildList("parameters")
}

// SourceRange parses the node's src attribute ("offset:length:fileID").
// Returns the offset, length and source file identifier, or an error if the attribute is malformed.
func (n *Node) SourceRange() (int, int, int, error) {
	fields := strings.Split(n.Src, ":")
	if len(fields) != 3 {
		return 0, 0, 0, errors.Errorf("malformed source range %q on node %d", n.Src, n.ID)
	}

	var values [3]int
	for i, field := range fields {
		value, err := strconv.Atoi(field)
		if err != nil {
			return 0, 0, 0, errors.Wrapf(err, "malformed source range %q on node %d", n.Src, n.ID)
		}
		values[i] = value
	}
	return values[0], values[1], values[2], nil
}
