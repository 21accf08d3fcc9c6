package ir

// Version constants for the IR schema and planner.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// PlannerVersion is the linkage planner version.
	PlannerVersion = "0.1.0"
)
