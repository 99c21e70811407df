// Package config provides the section/option configuration object that
// parametrizes data loaders: INI-style files with typed accessors for lists
// and paths, and a root path used to resolve relative file references.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
)

// RootPathOption is the reserved default-section option naming the root
// path for relative file references.
const RootPathOption = "root_path"

// DefaultListSeparator splits list-valued options: one item per line.
const DefaultListSeparator = "\n"

// Options parametrize SourceConfig construction.
type Options struct {
	// File is the configuration file to read. Optional when Literal or
	// AllowEmpty is set.
	File string

	// Literal is configuration text merged over the file: options given in
	// both places take the literal's value.
	Literal string

	// RootPath overrides the root path. When empty, the file's
	// default-section root_path option applies, then the directory
	// containing the file.
	RootPath string

	// ListSeparator splits list-valued options. Defaults to newline.
	ListSeparator string

	// AllowEmpty permits constructing with neither File nor Literal.
	AllowEmpty bool
}

// SourceConfig is a read-only section/option configuration consulted by
// data loaders during every load operation. Options in the default section
// act as fallbacks for every named section.
type SourceConfig struct {
	file      *ini.File
	rootPath  string
	separator string
}

// New reads and merges the configured sources and resolves the root path
// once. Precedence for the root path: explicit option, then the file's
// default-section root_path, then the directory containing the file.
func New(opts Options) (*SourceConfig, error) {
	// Indented continuation lines carry list-valued options.
	loadOpts := ini.LoadOptions{AllowPythonMultilineValues: true}

	var (
		f   *ini.File
		err error
	)
	switch {
	case opts.File != "" && opts.Literal != "":
		f, err = ini.LoadSources(loadOpts, opts.File, []byte(opts.Literal))
	case opts.File != "":
		f, err = ini.LoadSources(loadOpts, opts.File)
	case opts.Literal != "":
		f, err = ini.LoadSources(loadOpts, []byte(opts.Literal))
	case opts.AllowEmpty:
		f = ini.Empty(loadOpts)
	default:
		return nil, fmt.Errorf("source config needs a file or literal configuration")
	}
	if err != nil {
		return nil, fmt.Errorf("loading source config: %w", err)
	}

	c := &SourceConfig{
		file:      f,
		separator: opts.ListSeparator,
	}
	if c.separator == "" {
		c.separator = DefaultListSeparator
	}

	switch {
	case opts.RootPath != "":
		c.rootPath = opts.RootPath
	case f.Section(ini.DefaultSection).HasKey(RootPathOption):
		c.rootPath = f.Section(ini.DefaultSection).Key(RootPathOption).String()
	case opts.File != "":
		c.rootPath = filepath.Dir(opts.File)
	}
	return c, nil
}

// RootPath returns the resolved root path. Empty means paths resolve
// against the process working directory.
func (c *SourceConfig) RootPath() string { return c.rootPath }

// Sections returns the named sections, default section excluded.
func (c *SourceConfig) Sections() []string {
	var names []string
	for _, s := range c.file.Sections() {
		if s.Name() != ini.DefaultSection {
			names = append(names, s.Name())
		}
	}
	return names
}

// Has reports whether an option exists in the section or in the default
// section.
func (c *SourceConfig) Has(section, option string) bool {
	if s, err := c.file.GetSection(section); err == nil && s.HasKey(option) {
		return true
	}
	return c.file.Section(ini.DefaultSection).HasKey(option)
}

// Get returns an option's raw string value, falling back to the default
// section.
func (c *SourceConfig) Get(section, option string) (string, error) {
	if s, err := c.file.GetSection(section); err == nil && s.HasKey(option) {
		return s.Key(option).String(), nil
	}
	if s := c.file.Section(ini.DefaultSection); s.HasKey(option) {
		return s.Key(option).String(), nil
	}
	return "", fmt.Errorf("no option %q in section %q", option, section)
}

// GetList returns a list-valued option: the raw value split on the list
// separator, items whitespace-stripped, empty items dropped.
func (c *SourceConfig) GetList(section, option string) ([]string, error) {
	raw, err := c.Get(section, option)
	if err != nil {
		return nil, err
	}
	var items []string
	for _, item := range strings.Split(raw, c.separator) {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items, nil
}

// GetPath returns a path-valued option, resolving relative values against
// the root path. Absolute values pass through.
func (c *SourceConfig) GetPath(section, option string) (string, error) {
	raw, err := c.Get(section, option)
	if err != nil {
		return "", err
	}
	return c.resolvePath(raw), nil
}

// GetPaths returns a list-valued option of paths, each resolved like
// GetPath.
func (c *SourceConfig) GetPaths(section, option string) ([]string, error) {
	items, err := c.GetList(section, option)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		items[i] = c.resolvePath(item)
	}
	return items, nil
}

func (c *SourceConfig) resolvePath(p string) string {
	if filepath.IsAbs(p) || c.rootPath == "" {
		return p
	}
	return filepath.Join(c.rootPath, p)
}
