package ir

// Version constants for the fragment schema and engine.
const (
	// IRVersion is the fragment description schema version. It changes
	// whenever Describe output changes shape, which changes every Hash.
	IRVersion = "1"

	// EngineVersion is recorded on every stored run.
	EngineVersion = "0.1.0"
)
