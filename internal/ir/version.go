package ir

// Version constants for persisted formats.
const (
	// SnapshotFormat is the version of the serialized snapshot document.
	SnapshotFormat = "1"

	// EngineVersion is the promote engine version.
	EngineVersion = "0.1.0"
)
