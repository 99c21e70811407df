package labels

import "fmt"

// Axis names a direction of translation: the reserved code axis, or any
// named column of the vocabulary table.
type Axis string

// CodeAxis is the reserved alias for the canonical code axis of a LabelMap.
const CodeAxis Axis = "code"

// AxisKind selects which labels of a table TranslateIndex rewrites.
type AxisKind int

const (
	// AxisRows translates the table's row index labels.
	AxisRows AxisKind = iota

	// AxisColumns translates the table's column names.
	AxisColumns
)

// MissingPolicy controls what happens when a translated value has no entry
// on either axis.
type MissingPolicy int

const (
	// MissingRaise surfaces a *TranslationError for any value that would
	// become newly missing. This is the default.
	MissingRaise MissingPolicy = iota

	// MissingAsNA maps unknown values to an explicit missing cell instead.
	MissingAsNA
)

// TranslationError reports a value with no corresponding entry when mapping
// between vocabulary axes.
type TranslationError struct {
	Value string
	From  Axis
	To    Axis
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("value %q has no entry on axis %q or %q", e.Value, e.From, e.To)
}
