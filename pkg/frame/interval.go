package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// Closed specifies which bounds of an Interval are inclusive.
type Closed string

const (
	// ClosedLeft includes the left bound only: [left, right).
	ClosedLeft Closed = "left"

	// ClosedRight includes the right bound only: (left, right].
	ClosedRight Closed = "right"

	// ClosedBoth includes both bounds: [left, right].
	ClosedBoth Closed = "both"

	// ClosedNeither includes neither bound: (left, right).
	ClosedNeither Closed = "neither"
)

// Valid reports whether c is one of the four supported closedness values.
func (c Closed) Valid() bool {
	switch c {
	case ClosedLeft, ClosedRight, ClosedBoth, ClosedNeither:
		return true
	}
	return false
}

// Interval is a scalar interval value with configurable bound closedness.
// Interval columns are produced by combining paired left/right scalar
// columns during pipeline processing.
type Interval struct {
	Left   float64
	Right  float64
	Closed Closed
}

// Contains reports whether x lies within the interval, honoring closedness.
func (iv Interval) Contains(x float64) bool {
	switch iv.Closed {
	case ClosedLeft:
		return x >= iv.Left && x < iv.Right
	case ClosedRight:
		return x > iv.Left && x <= iv.Right
	case ClosedBoth:
		return x >= iv.Left && x <= iv.Right
	default:
		return x > iv.Left && x < iv.Right
	}
}

// String renders the interval in mathematical notation, e.g. "[0,10)".
func (iv Interval) String() string {
	open, close := "(", ")"
	switch iv.Closed {
	case ClosedLeft:
		open = "["
	case ClosedRight:
		close = "]"
	case ClosedBoth:
		open, close = "[", "]"
	}
	return fmt.Sprintf("%s%s,%s%s", open, trimFloat(iv.Left), trimFloat(iv.Right), close)
}

func trimFloat(f float64) string {
	return stringify(f)
}

// ParseInterval parses the notation produced by Interval.String, e.g.
// "[0,10)".
func ParseInterval(s string) (Interval, error) {
	if len(s) < 5 {
		return Interval{}, fmt.Errorf("malformed interval %q", s)
	}
	open, close := s[0], s[len(s)-1]
	var c Closed
	switch {
	case open == '[' && close == ')':
		c = ClosedLeft
	case open == '(' && close == ']':
		c = ClosedRight
	case open == '[' && close == ']':
		c = ClosedBoth
	case open == '(' && close == ')':
		c = ClosedNeither
	default:
		return Interval{}, fmt.Errorf("malformed interval %q", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return Interval{}, fmt.Errorf("malformed interval %q", s)
	}
	left, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Interval{}, fmt.Errorf("malformed interval %q: %w", s, err)
	}
	right, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Interval{}, fmt.Errorf("malformed interval %q: %w", s, err)
	}
	return Interval{Left: left, Right: right, Closed: c}, nil
}
