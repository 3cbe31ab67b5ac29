package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SequentialIDs generates reproducible record ids.
//
// The n-th id is the name-based (SHA-1) UUID of "<seed>/<n>", so the same
// scenario with the same seed produces byte-identical ids and golden traces.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	mu   sync.Mutex
	seed string
	n    int64
}

// NewSequentialIDs creates a generator. An empty seed means "test".
func NewSequentialIDs(seed string) *SequentialIDs {
	if seed == "" {
		seed = "test"
	}
	return &SequentialIDs{seed: seed}
}

// NewID returns the next id. It never fails.
func (g *SequentialIDs) NewID() (uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", g.seed, g.n))), nil
}

// Reset restarts the sequence.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
