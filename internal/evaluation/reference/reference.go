// Package reference generates transaction reference numbers.
//
// All generators satisfy the engine's ReferenceGenerator port:
//
//	Generate() string
//
// UUID is stateless. Sequence allocates human-friendly daily sequence numbers
// from Redis and degrades to UUID when Redis is unreachable, so reference
// generation never fails an evaluation.
package reference

import (
	"strings"

	"github.com/google/uuid"
)

// Prefix starts every generated reference.
const Prefix = "TXN-"

// UUID generates TXN-<UUIDv4> references.
type UUID struct{}

func NewUUID() UUID {
	return UUID{}
}

func (UUID) Generate() string {
	return Prefix + strings.ToUpper(uuid.NewString())
}

// Fixed always returns the same reference. Useful for deterministic tests
// and replaying recorded evaluations.
type Fixed string

func (f Fixed) Generate() string {
	return string(f)
}
