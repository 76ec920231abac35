package usecase

// Exported for tests of the unexported pipeline steps.
var (
	MoveTree         = moveTree
	ResolveEntryPath = resolveEntryPath
)
