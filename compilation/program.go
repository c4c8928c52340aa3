// Package compilation describes the compiled program a debugging session decodes against: the ASTs of every source
// unit, and the scope and declaration lookups derived from them.
package compilation

import (
	"encoding/json"

	"github.com/Masterminds/semver"
	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// supportedCompilerVersions describes the compilers whose output carries the compact AST format the debugger reads.
const supportedCompilerVersions = ">= 0.5.0"

// Program describes the compiled program being debugged. It is built once and is read-only afterwards.
type Program struct {
	// CompilerVersion describes the version of the compiler which produced the ASTs.
	CompilerVersion *semver.Version

	// Sources maps tree (source unit) ids to their AST roots.
	Sources map[int]*types.Node

	// Scopes maps every AST node id to its Scope.
	Scopes types.Scopes

	// contracts holds every contract definition, ordered by AST id.
	contracts []*types.Node

	// referenceDeclarations maps ids of declarations other types may refer to (structs, enums, contracts and user
	// defined value types) to their definitions.
	referenceDeclarations map[int]*types.Node
}

// NewProgram decodes the provided compact-format ASTs, keyed by tree id, into a Program.
// Returns the Program, or an error if the compiler version is unsupported or an AST is malformed.
func NewProgram(compilerVersion string, sources map[int]json.RawMessage) (*Program, error) {
	trees := make(map[int]*types.Node, len(sources))
	for sourceID, data := range sources {
		root := &types.Node{}
		if err := json.Unmarshal(data, root); err != nil {
			return nil, errors.Wrapf(err, "could not decode AST of source %d", sourceID)
		}
		trees[sourceID] = root
	}
	return NewProgramFromTrees(compilerVersion, trees)
}

// NewProgramFromTrees creates a Program from already decoded ASTs, keyed by tree id.
// Returns the Program, or an error if the compiler version is unsupported or node ids collide.
func NewProgramFromTrees(compilerVersion string, sources map[int]*types.Node) (*Program, error) {
	version, err := semver.NewVersion(compilerVersion)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse compiler version %q", compilerVersion)
	}
	constraint, err := semver.NewConstraint(supportedCompilerVersions)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !constraint.Check(version) {
		return nil, errors.Errorf("compiler version %s is unsupported, expected %s", version, supportedCompilerVersions)
	}

	p := &Program{
		CompilerVersion:       version,
		Sources:               sources,
		Scopes:                make(types.Scopes),
		referenceDeclarations: make(map[int]*types.Node),
	}

	// Walk the trees in id order so errors are reported deterministically
	sourceIDs := make([]int, 0, len(sources))
	for sourceID := range sources {
		sourceIDs = append(sourceIDs, sourceID)
	}
	slices.Sort(sourceIDs)
	for _, sourceID := range sourceIDs {
		if err := p.Scopes.AddTree(sourceID, sources[sourceID]); err != nil {
			return nil, errors.Wrapf(err, "could not build scopes of source %d", sourceID)
		}
	}

	for id, scope := range p.Scopes {
		switch scope.Definition.NodeType {
		case types.NodeTypeContractDefinition:
			p.contracts = append(p.contracts, scope.Definition)
			p.referenceDeclarations[id] = scope.Definition
		case types.NodeTypeStructDefinition, types.NodeTypeEnumDefinition, types.NodeTypeUserDefinedValueType:
			p.referenceDeclarations[id] = scope.Definition
		}
	}
	slices.SortFunc(p.contracts, func(a, b *types.Node) int {
		return a.ID - b.ID
	})

	return p, nil
}

// ContractDefinitions returns every contract definition of the program, ordered by AST id.
func (p *Program) ContractDefinitions() []*types.Node {
	return p.contracts
}

// ReferenceDeclarations returns the declarations other types may refer to, keyed by AST id.
func (p *Program) ReferenceDeclarations() map[int]*types.Node {
	return p.referenceDeclarations
}

// NodeAt resolves a JSON pointer within the tree with the given id.
// Returns the node, or an error if the tree is unknown or the pointer does not refer to a node.
func (p *Program) NodeAt(treeID int, pointer string) (*types.Node, error) {
	root, ok := p.Sources[treeID]
	if !ok {
		return nil, errors.Errorf("unknown tree id %d", treeID)
	}
	return types.ResolvePointer(root, pointer)
}
