package testutil

// DefaultSessionID is the id a FixedSessionGenerator uses when none is given.
const DefaultSessionID = "test-session-default"

// FixedSessionGenerator returns the same session id every time.
//
// Unlike engine.FixedGenerator, which hands out ids in sequence, every
// engine built with this generator shares one id. The harness uses it so
// golden output does not depend on UUIDv7 timestamps.
//
// FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a fixed generator. An empty id selects
// "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = DefaultSessionID
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
