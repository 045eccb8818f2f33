package runid

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// IDGenerator provides ids for synth/verify runs and probe paths.
type IDGenerator interface {
	NewID() string
}

// ULIDGenerator generates lowercase, time-ordered ULIDs.
type ULIDGenerator struct{}

func (ULIDGenerator) NewID() string {
	return strings.ToLower(ulid.Make().String())
}

// Fixed always returns the same id. Useful in tests.
type Fixed string

func (f Fixed) NewID() string {
	return string(f)
}
