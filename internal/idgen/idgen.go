// Package idgen issues the string identifiers used for patients and their
// sub-records.
package idgen

import (
	"sync"

	"github.com/google/uuid"
)

// Generator produces identifiers that are unique within the process and
// lexicographically ordered by issuance time, so sorting records by ID is
// equivalent to sorting by creation order. UUIDv7 carries a millisecond
// timestamp prefix; the generator additionally serializes calls and re-draws
// on the rare same-millisecond tie where the random tail would sort backwards.
type Generator struct {
	mu   sync.Mutex
	last string
}

// New returns a ready Generator.
func New() *Generator {
	return &Generator{}
}

// Next returns the next identifier. Safe for concurrent use.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		id := uuid.Must(uuid.NewV7()).String()
		if id > g.last {
			g.last = id
			return id
		}
	}
}
