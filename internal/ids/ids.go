// Package ids derives deterministic identifiers from content.
//
// Every id is a 128-bit xxh3 digest over a fixed sequence of fields, rendered
// as 32 lowercase hex characters. Identical inputs give identical ids on every
// run and platform; nothing here depends on insertion order or counters.
package ids

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// fieldSep cannot appear in file paths or TypeScript identifiers, so joined
// fields never collide by concatenation.
const fieldSep = "\x1f"

// Classifier returns the id of a classifier declared in file.
func Classifier(kind, file, qualifiedName string) string {
	return hash("classifier", kind, file, qualifiedName)
}

// Relation returns the id of a relation. position is the syntactic position of
// the construct that produced the edge.
func Relation(kind, file, sourceID, targetID, role, position string) string {
	return hash("relation", kind, file, sourceID, targetID, role, position)
}

// Package returns the id of a package. Virtual hierarchies pass their
// namespace so they never collide with directory packages.
func Package(namespace, qualifiedName string) string {
	return hash("package", namespace, qualifiedName)
}

// Position formats a 1-based line/column pair for use in Relation.
func Position(line, column int) string {
	return strconv.Itoa(line) + ":" + strconv.Itoa(column)
}

func hash(fields ...string) string {
	h := xxh3.HashString128(strings.Join(fields, fieldSep))
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}
