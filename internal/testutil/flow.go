package testutil

// DefaultRunID is used when a scenario names no run ID.
const DefaultRunID = "test-run-default"

// FixedRunIDGenerator returns the same run ID on every call, so repeated
// runs produce byte-identical stored traces. It satisfies
// engine.RunIDGenerator and is stateless.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator returns a generator for id, or DefaultRunID when
// id is empty.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
