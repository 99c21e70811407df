package loader

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures. Every failure is fail-fast and
// carries exactly one kind; nothing is retried.
type ErrorKind string

const (
	// KindConfiguration covers missing required configuration, missing raw
	// files, and missing selector keys a source needs.
	KindConfiguration ErrorKind = "configuration"

	// KindResolution covers variable substitution that did not reach a
	// fixed point within the pass budget.
	KindResolution ErrorKind = "resolution"

	// KindTranslation covers vocabulary values with no entry on the target
	// axis.
	KindTranslation ErrorKind = "translation"

	// KindIO covers read failures and malformed raw files, propagated
	// unchanged from the underlying read.
	KindIO ErrorKind = "io"
)

// PipelineError wraps a failure with its kind and the pipeline operation
// that produced it.
type PipelineError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func pipelineErr(kind ErrorKind, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err if it is a PipelineError, or "" otherwise.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err is a PipelineError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
