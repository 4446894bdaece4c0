package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// RunIDGenerator names runs. Run calls Generate once per run.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator is the default generator. UUIDv7 IDs sort by creation
// time, which is the order `trace` lists stored runs in.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a fixed list of IDs. Replays use it to re-run
// under the recorded ID; tests use it for stable traces.
type FixedGenerator struct {
	mu   sync.Mutex
	ids  []string
	used int
}

func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next ID. It panics once the list is used up, which
// means more runs were started than the caller planned for.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.used == len(g.ids) {
		panic(fmt.Sprintf("FixedGenerator: all %d run IDs exhausted", len(g.ids)))
	}
	g.used++
	return g.ids[g.used-1]
}
