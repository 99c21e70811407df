package resolve

import "fmt"

// ResolutionError reports that the pass budget was exhausted before the tree
// reached a fixed point. Unresolvable references, including cyclic ones,
// surface this way.
type ResolutionError struct {
	// Passes is the number of substitution passes that ran.
	Passes int

	// Remaining holds a sample of the references still present.
	Remaining []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("variable resolution did not converge after %d passes, unresolved: %v",
		e.Passes, e.Remaining)
}

// PathError reports a reference whose path cannot be walked in the lookup
// root: a missing key, a bad or out-of-range list index, or a scalar node
// where the path expects a container.
type PathError struct {
	// Path is the full reference path as written, e.g. "db/hosts/0".
	Path string

	// Segment is the path segment that failed.
	Segment string

	// Reason describes the failure.
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cannot resolve %q: segment %q: %s", e.Path, e.Segment, e.Reason)
}
