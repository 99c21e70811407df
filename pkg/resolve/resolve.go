// Package resolve substitutes variable references inside configuration
// trees. A reference like ${db/host} names another node in the same tree by
// its path; resolution repeats whole-tree substitution passes until a fixed
// point, so references may themselves produce further references.
package resolve

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxPasses bounds the fixed-point iteration. A tree that still
	// contains references after this many passes is cyclic or unresolvable.
	DefaultMaxPasses = 20

	// DefaultSeparator splits reference paths into segments.
	DefaultSeparator = "/"
)

// defaultPattern matches ${...} with the path in the capture group.
var defaultPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

type options struct {
	pattern   *regexp.Regexp
	separator string
	root      any
	maxPasses int
}

// Option adjusts resolution behavior.
type Option func(*options)

// WithPattern replaces the ${...} reference syntax. The expression must
// contain exactly one capture group holding the path.
func WithPattern(re *regexp.Regexp) Option {
	return func(o *options) { o.pattern = re }
}

// WithSeparator replaces the "/" path segment separator.
func WithSeparator(sep string) Option {
	return func(o *options) { o.separator = sep }
}

// WithRoot looks paths up in an alternate tree instead of the tree being
// resolved.
func WithRoot(root any) Option {
	return func(o *options) { o.root = root }
}

// WithMaxPasses overrides the pass budget.
func WithMaxPasses(n int) Option {
	return func(o *options) { o.maxPasses = n }
}

func buildOptions(opts []Option) (options, error) {
	o := options{
		pattern:   defaultPattern,
		separator: DefaultSeparator,
		maxPasses: DefaultMaxPasses,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.pattern.NumSubexp() != 1 {
		return o, fmt.Errorf("reference pattern must have exactly one capture group, has %d",
			o.pattern.NumSubexp())
	}
	if o.maxPasses < 1 {
		return o, fmt.Errorf("max passes must be positive, got %d", o.maxPasses)
	}
	return o, nil
}

// Resolve substitutes every variable reference in tree and returns the
// resolved result. The input is deep-copied first, so the caller's tree is
// never modified. A bare string input gets a single substitution pass.
func Resolve(tree any, opts ...Option) (any, error) {
	return ResolveOwned(copyTree(tree), opts...)
}

// ResolveOwned is Resolve for callers handing over ownership of tree: the
// tree is modified in place and must not be used through other references
// afterwards. Use this on large trees where the defensive copy matters.
func ResolveOwned(tree any, opts ...Option) (any, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	root := o.root
	if root == nil {
		root = tree
	}

	if s, ok := tree.(string); ok {
		return substituteString(s, root, o)
	}

	for pass := 1; pass <= o.maxPasses; pass++ {
		resolved, err := substituteNode(tree, root, o)
		if err != nil {
			return nil, err
		}
		tree = resolved
		if !containsRef(tree, o.pattern) {
			return tree, nil
		}
	}
	return nil, &ResolutionError{
		Passes:    o.maxPasses,
		Remaining: collectRefs(tree, o.pattern, 5),
	}
}

// ResolveFile reads a YAML document and resolves it.
func ResolveFile(path string, opts ...Option) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return ResolveOwned(tree, opts...)
}

// substituteNode runs one substitution pass over a node, rewriting strings
// that contain references and recursing into maps and slices.
func substituteNode(node, root any, o options) (any, error) {
	switch n := node.(type) {
	case string:
		return substituteString(n, root, o)
	case map[string]any:
		for k, v := range n {
			nv, err := substituteNode(v, root, o)
			if err != nil {
				return nil, err
			}
			n[k] = nv
		}
		return n, nil
	case []any:
		for i, v := range n {
			nv, err := substituteNode(v, root, o)
			if err != nil {
				return nil, err
			}
			n[i] = nv
		}
		return n, nil
	default:
		return node, nil
	}
}

func substituteString(s string, root any, o options) (string, error) {
	var firstErr error
	out := o.pattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		path := o.pattern.FindStringSubmatch(match)[1]
		v, err := lookup(root, path, o.separator)
		if err != nil {
			firstErr = err
			return match
		}
		return stringForm(v)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// lookup walks a separator-delimited path through nested maps and slices.
func lookup(root any, path, sep string) (any, error) {
	node := root
	for _, seg := range strings.Split(path, sep) {
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[seg]
			if !ok {
				return nil, &PathError{Path: path, Segment: seg, Reason: "no such key"}
			}
			node = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil, &PathError{Path: path, Segment: seg, Reason: "list index is not an integer"}
			}
			if i < 0 || i >= len(n) {
				return nil, &PathError{Path: path, Segment: seg,
					Reason: fmt.Sprintf("index out of range for list of length %d", len(n))}
			}
			node = n[i]
		default:
			return nil, &PathError{Path: path, Segment: seg,
				Reason: fmt.Sprintf("cannot index into %T", node)}
		}
	}
	return node, nil
}

// stringForm renders a looked-up value for insertion into the surrounding
// string. References to container nodes insert their compact YAML form.
func stringForm(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		raw, err := yaml.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return strings.TrimSuffix(string(raw), "\n")
	}
}

func containsRef(node any, pattern *regexp.Regexp) bool {
	switch n := node.(type) {
	case string:
		return pattern.MatchString(n)
	case map[string]any:
		for _, v := range n {
			if containsRef(v, pattern) {
				return true
			}
		}
	case []any:
		for _, v := range n {
			if containsRef(v, pattern) {
				return true
			}
		}
	}
	return false
}

func collectRefs(node any, pattern *regexp.Regexp, limit int) []string {
	var refs []string
	var walk func(any)
	walk = func(n any) {
		if len(refs) >= limit {
			return
		}
		switch v := n.(type) {
		case string:
			refs = append(refs, pattern.FindAllString(v, limit-len(refs))...)
		case map[string]any:
			for _, c := range v {
				walk(c)
			}
		case []any:
			for _, c := range v {
				walk(c)
			}
		}
	}
	walk(node)
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs
}

// copyTree deep-copies the map/slice/scalar trees produced by YAML decoding.
func copyTree(node any) any {
	switch n := node.(type) {
	case map[string]any:
		c := make(map[string]any, len(n))
		for k, v := range n {
			c[k] = copyTree(v)
		}
		return c
	case []any:
		c := make([]any, len(n))
		for i, v := range n {
			c[i] = copyTree(v)
		}
		return c
	default:
		return node
	}
}
