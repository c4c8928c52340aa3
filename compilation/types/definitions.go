package types

import (
	"regexp"
	"strconv"
	"strings"
)

// Data locations a reference type may be declared in.
const (
	LocationStorage  = "storage"
	LocationMemory   = "memory"
	LocationCalldata = "calldata"
)

var (
	// locationSuffixRegex matches the data location suffix of a reference type identifier, e.g. "_memory_ptr".
	locationSuffixRegex = regexp.MustCompile(`_(storage|memory|calldata)(_ptr)?$`)

	// locationTypeStringRegex matches the data location suffix of a reference type string, e.g. " storage ref".
	locationTypeStringRegex = regexp.MustCompile(` (storage|memory|calldata)( ref| pointer)?$`)

	// constantTypeRegex matches compile-time constant types (number and string literals).
	constantTypeRegex = regexp.MustCompile(`^t_(rational|stringliteral)_`)

	// typeClassRegex captures the type class of a type identifier, e.g. "uint" for "t_uint256".
	typeClassRegex = regexp.MustCompile(`^t_([a-zA-Z]+)`)

	// specifiedSizeRegex captures the declared size of a sized type, e.g. "256" for "t_uint256" or "32" for
	// "t_bytes32".
	specifiedSizeRegex = regexp.MustCompile(`^t_(?:u?int|bytes|u?fixed)(\d+)`)

	// fixedPointRegex captures bits and decimal places of fixed point types, e.g. "128" and "18" for "t_ufixed128x18".
	fixedPointRegex = regexp.MustCompile(`^t_u?fixed(\d+)x(\d+)`)

	// rationalRegex captures numerator and denominator of rational constants, e.g. "t_rational_42_by_1".
	rationalRegex = regexp.MustCompile(`^t_rational_(minus_)?(\d+)_by_(\d+)`)

	// referencedIdRegex captures the declaration id embedded in user defined type identifiers, e.g. "5" for
	// "t_enum$_Color_$5".
	referencedIdRegex = regexp.MustCompile(`^t_(?:enum|struct|contract|userDefinedValueType)\$_[^$]*_\$(\d+)`)
)

// IsMapping reports whether the definition is of mapping type.
func IsMapping(definition *Node) bool {
	if definition == nil {
		return false
	}
	if definition.NodeType == NodeTypeMapping {
		return true
	}
	return strings.HasPrefix(definition.TypeIdentifier(), "t_mapping")
}

// IsReference reports whether the definition is of a reference type carrying a data location.
func IsReference(definition *Node) bool {
	return locationSuffixRegex.MatchString(definition.TypeIdentifier())
}

// ReferenceType returns the data location of a reference type definition, or the empty string for value types.
func ReferenceType(definition *Node) string {
	match := locationSuffixRegex.FindStringSubmatch(definition.TypeIdentifier())
	if match == nil {
		return ""
	}
	return match[1]
}

// SpliceLocation returns a copy of the definition whose data location is replaced with the provided one. The
// definition itself is not modified. Definitions of value types are returned as an unmodified copy.
func SpliceLocation(definition *Node, location string) *Node {
	spliced := *definition
	if definition.TypeDescriptions != nil {
		typeDescriptions := *definition.TypeDescriptions
		typeDescriptions.TypeIdentifier = locationSuffixRegex.ReplaceAllString(typeDescriptions.TypeIdentifier, "_"+location+"${2}")
		typeDescriptions.TypeString = locationTypeStringRegex.ReplaceAllString(typeDescriptions.TypeString, " "+location+"${2}")
		spliced.TypeDescriptions = &typeDescriptions
	}
	if spliced.StorageLocation != "" && spliced.StorageLocation != "default" {
		spliced.StorageLocation = location
	}
	return &spliced
}

// IsConstantType reports whether the definition is a compile-time constant (a number or string literal type), which
// may never be materialized in the trace.
func IsConstantType(definition *Node) bool {
	return constantTypeRegex.MatchString(definition.TypeIdentifier())
}

// TypeClass returns the class of the definition's type, e.g. "uint", "bytes", "mapping", "enum" or "rational".
func TypeClass(definition *Node) string {
	match := typeClassRegex.FindStringSubmatch(definition.TypeIdentifier())
	if match == nil {
		return ""
	}
	return match[1]
}

// SpecifiedSize returns the declared size of a sized type: bits for integer and fixed point types, bytes for fixed
// size byte arrays. Returns false if the type carries no declared size, e.g. dynamic "bytes".
func SpecifiedSize(definition *Node) (int, bool) {
	match := specifiedSizeRegex.FindStringSubmatch(definition.TypeIdentifier())
	if match == nil {
		return 0, false
	}
	size, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return size, true
}

// DecimalPlaces returns the amount of decimal places of a fixed point type, or zero for any other type.
func DecimalPlaces(definition *Node) int {
	match := fixedPointRegex.FindStringSubmatch(definition.TypeIdentifier())
	if match == nil {
		return 0
	}
	places, _ := strconv.Atoi(match[2])
	return places
}

// IsDynamicBytes reports whether the definition is of type "string" or dynamically sized "bytes".
func IsDynamicBytes(definition *Node) bool {
	switch TypeClass(definition) {
	case "string":
		return true
	case "bytes":
		_, sized := SpecifiedSize(definition)
		return !sized
	}
	return false
}

// RationalParts returns the sign, numerator and denominator (as decimal strings) of a rational constant type.
// Returns false if the definition is not a rational constant.
func RationalParts(definition *Node) (bool, string, string, bool) {
	match := rationalRegex.FindStringSubmatch(definition.TypeIdentifier())
	if match == nil {
		return false, "", "", false
	}
	return match[1] != "", match[2], match[3], true
}

// ReferencedTypeId returns the id of the declaration a user defined type (enum, struct, contract or user defined
// value type) refers to. The id embedded in the type identifier is preferred, with the referencedDeclaration of a
// UserDefinedTypeName (the definition itself or its type name) as a fallback.
func ReferencedTypeId(definition *Node) (int, bool) {
	if definition == nil {
		return 0, false
	}
	if match := referencedIdRegex.FindStringSubmatch(definition.TypeIdentifier()); match != nil {
		if id, err := strconv.Atoi(match[1]); err == nil {
			return id, true
		}
	}
	for _, candidate := range []*Node{definition, definition.TypeName()} {
		if candidate != nil && candidate.NodeType == NodeTypeUserDefinedTypeName && candidate.ReferencedDeclaration != nil {
			return *candidate.ReferencedDeclaration, true
		}
	}
	return 0, false
}

// KeyDefinition returns the key type definition of a mapping declaration. The key type is found on the declaration
// itself when it is a Mapping type name, or on its type name otherwise.
func KeyDefinition(mappingDeclaration *Node) *Node {
	if keyType := mappingDeclaration.KeyType(); keyType != nil {
		return keyType
	}
	return mappingDeclaration.TypeName().KeyType()
}
