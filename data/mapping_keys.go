package data

import (
	"context"

	"github.com/crytic/medusa-debugger/compilation/types"
	"github.com/crytic/medusa-debugger/decoding"
	"github.com/crytic/medusa-debugger/decoding/pointer"
	"github.com/crytic/medusa-debugger/decoding/values"
	"github.com/crytic/medusa-debugger/logging/colors"
	"github.com/fxamacker/cbor"
	"github.com/pkg/errors"
)

// mappingKeyEncoding is the canonical form mapping keys are de-duplicated by.
type mappingKeyEncoding struct {
	Kind  string `cbor:"kind"`
	Value string `cbor:"value"`
}

// resolveMappingKey records the key an IndexAccess node uses to access a mapping. Keys are recorded against the
// declaration of the mapping, so every instance of the mapping shares them. A key whose value is not known yet is
// skipped without error. Index accesses on anything other than a mapping are ignored.
func (t *Tracker) resolveMappingKey(ctx context.Context, step *TraceStep, info *decoding.EvmInfo) (err error) {
	base := step.Node.BaseExpression()
	if !types.IsMapping(base) {
		return nil
	}
	if base.ReferencedDeclaration == nil {
		return errors.Errorf("mapping accessed by index access %d does not refer to a declaration", step.Node.ID)
	}
	baseDeclarationID := *base.ReferencedDeclaration
	baseDeclaration := t.session.Program.Scopes.Definition(baseDeclarationID)
	if baseDeclaration == nil {
		return errors.Errorf("unknown mapping declaration %d", baseDeclarationID)
	}
	keyDefinition := types.KeyDefinition(baseDeclaration)
	if keyDefinition == nil {
		return errors.Errorf("mapping declaration %d has no key type", baseDeclarationID)
	}
	index := step.Node.IndexExpression()
	if index == nil {
		return errors.Errorf("index access %d has no index expression", step.Node.ID)
	}

	if err := t.session.Events.MapKeyDecoding.Publish(MapKeyDecodingEvent{Decoding: true}); err != nil {
		return err
	}
	defer func() {
		if publishErr := t.session.Events.MapKeyDecoding.Publish(MapKeyDecodingEvent{Decoding: false}); err == nil {
			err = publishErr
		}
	}()

	indexID, err := HashIdentity(StackframeIdentity{AstID: index.ID, Stackframe: step.FunctionDepth})
	if err != nil {
		return err
	}

	var key values.Value
	if assignment, ok := t.session.assignments.Get(indexID); ok {
		// The index and the key type describe the same bytes but may disagree on their data location
		if types.IsReference(index) && types.ReferenceType(index) != types.ReferenceType(keyDefinition) {
			keyDefinition = types.SpliceLocation(keyDefinition, types.ReferenceType(index))
		}
		key, err = t.decoder.DecodeRef(ctx, keyDefinition, assignment.Ref, info)
	} else if types.IsConstantType(index) {
		key, err = t.decoder.Decode(ctx, keyDefinition, pointer.ConstantDefinitionPointer{Definition: index}, info)
	}
	if err != nil {
		return err
	}
	if key == nil {
		t.logger.Trace("Key of mapping ", baseDeclarationID, " at index access ", step.Node.ID, " is not known yet")
		return nil
	}

	return t.recordMappingKey(baseDeclarationID, key)
}

// recordMappingKey adds a key to the keys seen for a mapping declaration and publishes it. Keys seen before are
// published again but stored once.
func (t *Tracker) recordMappingKey(baseDeclarationID int, key values.Value) error {
	encoded, err := cbor.Marshal(mappingKeyEncoding{Kind: string(key.Kind()), Value: key.String()}, cbor.EncOptions{Canonical: true})
	if err != nil {
		return errors.Wrapf(err, "could not encode key %v of mapping %d", key, baseDeclarationID)
	}

	seen, ok := t.session.seenMappingKeys[baseDeclarationID]
	if !ok {
		seen = make(map[string]struct{})
		t.session.seenMappingKeys[baseDeclarationID] = seen
	}
	if _, ok := seen[string(encoded)]; !ok {
		seen[string(encoded)] = struct{}{}
		t.session.mappingKeys[baseDeclarationID] = append(t.session.mappingKeys[baseDeclarationID], key)
		t.logger.Debug("Resolved key ", colors.Magenta, key, colors.Reset, " of mapping ", baseDeclarationID)
	}

	return t.session.Events.MapKey.Publish(MapKeyEvent{BaseDeclarationID: baseDeclarationID, Key: key})
}
