package loader

import "fmt"

// Representation names the shape of a processed dataset. The set is closed;
// a loader binds at most one processor per representation at construction
// time.
type Representation int

const (
	// Table is the long-format tabular representation.
	Table Representation = iota

	// Matrix is the wide cross-tabulated representation.
	Matrix

	// Custom is a loader-defined representation.
	Custom
)

var representationNames = map[Representation]string{
	Table:  "table",
	Matrix: "matrix",
	Custom: "custom",
}

func (r Representation) String() string {
	if name, ok := representationNames[r]; ok {
		return name
	}
	return fmt.Sprintf("representation(%d)", int(r))
}

// Valid reports whether r is one of the supported representations.
func (r Representation) Valid() bool {
	_, ok := representationNames[r]
	return ok
}

// RepresentationError is returned when a load requests a representation the
// loader has no processor bound for.
type RepresentationError struct {
	Requested Representation
}

func (e *RepresentationError) Error() string {
	return fmt.Sprintf("no processor bound for representation %q", e.Requested)
}
