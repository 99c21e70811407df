package cache

import (
	"sort"
	"strings"
	"time"
)

// Entry describes one cached processed dataset.
type Entry struct {
	// ID is the entry's unique identifier.
	ID string

	// Loader is the name of the loader that produced the dataset.
	Loader string

	// Selector is the canonical selector string the dataset was loaded
	// for (see CanonicalSelector).
	Selector string

	// RunID identifies the load run that produced the payload.
	RunID string

	// Rows is the row count of the cached table.
	Rows int

	// CreatedAt is when the entry was written.
	CreatedAt time.Time
}

// CanonicalSelector renders a selector map in canonical form: keys sorted,
// joined as key=value pairs. Equal selectors always render identically, so
// the result is usable as a cache key.
func CanonicalSelector(sel map[string]string) string {
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + sel[k]
	}
	return strings.Join(pairs, "&")
}
