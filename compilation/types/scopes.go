package types

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NoParentScope is the ParentID of a Scope whose node is the root of its tree.
const NoParentScope = -1

// Scope describes where a single AST node lives: its definition, its parent node and its position within its tree.
type Scope struct {
	// ID is the AST node id.
	ID int

	// Definition is the AST node itself.
	Definition *Node

	// ParentID is the id of the closest enclosing AST node, or NoParentScope for a tree root.
	ParentID int

	// SourceID is the identifier of the tree (source unit) the node belongs to.
	SourceID int

	// Pointer is the JSON pointer of the node within its tree.
	Pointer string
}

// Scopes maps AST node ids to their Scope. It is built once per program and is read-only afterwards.
type Scopes map[int]*Scope

// pointerEscaper escapes JSON pointer reference tokens as described in RFC 6901.
var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// AddTree records a Scope for every node within the provided tree.
// Returns an error if two nodes share an id.
func (s Scopes) AddTree(sourceID int, root *Node) error {
	return s.addNode(sourceID, root, NoParentScope, "")
}

// addNode records the scope of a node and recurses into its children.
func (s Scopes) addNode(sourceID int, node *Node, parentID int, pointer string) error {
	if existing, ok := s[node.ID]; ok && existing.Definition != node {
		return errors.Errorf("duplicate AST node id %d at %q and %q", node.ID, existing.Pointer, pointer)
	}
	s[node.ID] = &Scope{
		ID:         node.ID,
		Definition: node,
		ParentID:   parentID,
		SourceID:   sourceID,
		Pointer:    pointer,
	}

	var err error
	node.ForEachChild(func(key string, index int, child *Node) {
		if err != nil {
			return
		}
		childPointer := pointer + "/" + pointerEscaper.Replace(key)
		if index >= 0 {
			childPointer += "/" + strconv.Itoa(index)
		}
		err = s.addNode(sourceID, child, node.ID, childPointer)
	})
	return err
}

// Definition returns the AST node with the provided id, or nil if it is unknown.
func (s Scopes) Definition(id int) *Node {
	if scope, ok := s[id]; ok {
		return scope.Definition
	}
	return nil
}

// ResolvePointer resolves a JSON pointer within a tree, as recorded in Scope.Pointer.
// Returns the node the pointer refers to, or an error if it does not refer to a node.
func ResolvePointer(root *Node, pointer string) (*Node, error) {
	if pointer == "" {
		return root, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, errors.Errorf("JSON pointer %q must start with '/'", pointer)
	}

	tokens := strings.Split(pointer[1:], "/")
	current := root
	for i := 0; i < len(tokens); i++ {
		key := strings.NewReplacer("~1", "/", "~0", "~").Replace(tokens[i])
		if child := current.Child(key); child != nil {
			current = child
			continue
		}

		list := current.ChildList(key)
		if list == nil || i+1 >= len(tokens) {
			return nil, errors.Errorf("JSON pointer %q does not refer to a node at %q", pointer, key)
		}
		i++
		index, err := strconv.Atoi(tokens[i])
		if err != nil || index < 0 || index >= len(list) || list[index] == nil {
			return nil, errors.Errorf("JSON pointer %q has an invalid index %q", pointer, tokens[i])
		}
		current = list[index]
	}
	return current, nil
}
