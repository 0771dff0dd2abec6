package build

// Test-only exports for internal helper functions.

//nolint:gochecknoglobals // Test-only exports
var (
	ResolveSourceNames = resolveSourceNames
	ResolveOutputRoot  = resolveOutputRoot
	ChangedDocuments   = changedDocuments
	StaleDocuments     = staleDocuments
	WritePage          = writePage
	RemovePage         = removePage
)
