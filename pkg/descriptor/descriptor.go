// Package descriptor loads dataset descriptors: small metadata records
// naming a dataset, its raw data files and its dimensions. Descriptor files
// are YAML trees run through variable resolution before decoding, so path
// entries can reference other parts of the same file.
package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/datanorm/datanorm/pkg/resolve"
)

// Canonical dimension names, used consistently across datasets.
const (
	DimTime       = "time"
	DimRegion     = "region"
	DimFlow       = "flow"
	DimProduct    = "product"
	DimUnit       = "unit"
	DimGas        = "gas"
	DimAllocation = "allocation"
)

// DefaultDatasetsKey is the top-level key descriptors are listed under.
const DefaultDatasetsKey = "datasets"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for empty tags.
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	return v
}

// RawDataPaths holds a dataset's raw file location, either a single path or
// a version-keyed map of paths.
type RawDataPaths struct {
	// Single is the path when the dataset has one unversioned file.
	Single string

	// Versioned maps version identifiers to paths.
	Versioned map[string]string
}

// IsZero reports whether no path is set.
func (p RawDataPaths) IsZero() bool {
	return p.Single == "" && len(p.Versioned) == 0
}

// ForVersion returns the path for a version, or the single path when
// version is empty and the dataset is unversioned.
func (p RawDataPaths) ForVersion(version string) (string, error) {
	if version == "" {
		if p.Single != "" {
			return p.Single, nil
		}
		return "", fmt.Errorf("dataset is versioned, a version is required")
	}
	path, ok := p.Versioned[version]
	if !ok {
		return "", fmt.Errorf("no raw data path for version %q", version)
	}
	return path, nil
}

// UnmarshalYAML accepts either a scalar path or a version→path mapping.
func (p *RawDataPaths) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&p.Single)
	case yaml.MappingNode:
		return node.Decode(&p.Versioned)
	default:
		return fmt.Errorf("raw_data_path must be a path or a version map")
	}
}

// Descriptor describes one dataset.
type Descriptor struct {
	// ID is the dataset's short name. Must be identifier-shaped.
	ID string `yaml:"id" validate:"required,identifier"`

	// Name is the dataset's full name.
	Name string `yaml:"name"`

	// ParentID names the containing dataset or collection, if any.
	ParentID string `yaml:"parent_id" validate:"omitempty,identifier"`

	// Description is a free-form description.
	Description string `yaml:"description"`

	// RawDataPath locates the raw file(s), single or versioned.
	RawDataPath RawDataPaths `yaml:"raw_data_path"`

	// DefaultVersion picks the version used when none is requested. When
	// set, RawDataPath is expected to be versioned.
	DefaultVersion string `yaml:"default_version"`

	// Dimensions are the ordered dimension names of the dataset.
	Dimensions []string `yaml:"dimensions"`

	// Notes holds free-form notes about the dataset.
	Notes string `yaml:"notes"`
}

// Key returns the registry key: the ID prefixed with the parent ID when one
// is set.
func (d *Descriptor) Key() string {
	if d.ParentID != "" {
		return d.ParentID + "_" + d.ID
	}
	return d.ID
}

// Validate checks structural validity, including the versioning contract.
func (d *Descriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("descriptor %q: %w", d.ID, err)
	}
	if d.DefaultVersion != "" {
		if _, ok := d.RawDataPath.Versioned[d.DefaultVersion]; !ok {
			return fmt.Errorf("descriptor %q: default version %q has no raw data path", d.ID, d.DefaultVersion)
		}
	}
	return nil
}

// WithBasePath returns a copy with the base path prefixed onto every
// relative raw data path. Absolute paths are left alone.
func (d *Descriptor) WithBasePath(base string) *Descriptor {
	out := *d
	prefix := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	out.RawDataPath.Single = prefix(d.RawDataPath.Single)
	if len(d.RawDataPath.Versioned) > 0 {
		out.RawDataPath.Versioned = make(map[string]string, len(d.RawDataPath.Versioned))
		for version, p := range d.RawDataPath.Versioned {
			out.RawDataPath.Versioned[version] = prefix(p)
		}
	}
	if len(d.Dimensions) > 0 {
		out.Dimensions = append([]string(nil), d.Dimensions...)
	}
	return &out
}

// LoadAll reads every descriptor listed under key in a YAML file. The tree
// is variable-resolved before decoding. The result is keyed by Key().
func LoadAll(path, key string) (map[string]*Descriptor, error) {
	if key == "" {
		key = DefaultDatasetsKey
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	resolved, err := resolve.ResolveOwned(tree)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	root, ok := resolved.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: top level must be a mapping", path)
	}
	list, ok := root[key].([]any)
	if !ok {
		return nil, fmt.Errorf("%s: key %q must hold a list of descriptors", path, key)
	}

	out := make(map[string]*Descriptor, len(list))
	for i, item := range list {
		// Round-trip through YAML so the resolved tree decodes with the
		// struct's tags.
		encoded, err := yaml.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("%s: descriptor %d: %w", path, i, err)
		}
		var d Descriptor
		if err := yaml.Unmarshal(encoded, &d); err != nil {
			return nil, fmt.Errorf("%s: descriptor %d: %w", path, i, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, exists := out[d.Key()]; exists {
			return nil, fmt.Errorf("%s: duplicate descriptor key %q", path, d.Key())
		}
		out[d.Key()] = &d
	}
	return out, nil
}
