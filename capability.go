package polystore

// Capability declares which operations a service natively supports.
//
// The Operator consults the capability before dispatching and fails fast
// with an Unsupported error when the flag is false, so services never see
// calls they cannot serve. A false flag is a property of the backend, not
// a transient condition.
type Capability struct {
	// Stat indicates support for metadata retrieval.
	Stat bool

	// Read indicates support for reading object contents.
	Read bool

	// Write indicates support for creating and replacing objects.
	Write bool

	// CreateDir indicates support for creating directories.
	CreateDir bool

	// Delete indicates support for removing objects.
	Delete bool

	// Copy indicates support for copying an object within the backend.
	Copy bool

	// Rename indicates support for renaming an object within the backend.
	Rename bool

	// List indicates support for listing direct children of a directory.
	List bool

	// ListWithRecursive indicates support for listing an entire subtree
	// in one listing.
	ListWithRecursive bool
}
