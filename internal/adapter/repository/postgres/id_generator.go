package postgres

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator issues record and correlation ids. Ids from one process
// sort in creation order, which history listings rely on for ties.
type ULIDGenerator struct {
	now func() time.Time
}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{now: time.Now}
}

// Generate returns a new ULID string.
func (g *ULIDGenerator) Generate() string {
	return ulid.MustNew(ulid.Timestamp(g.now()), ulid.DefaultEntropy()).String()
}
