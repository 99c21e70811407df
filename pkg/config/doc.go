// Package config reads INI source configurations that name the raw data
// files a loader consumes.
//
// A source configuration maps section names to options, where an option is
// typically a list of path patterns. Patterns are resolved against a root
// path decided once at load time: an explicit root wins, then a root_path
// key in the default section, then the directory of the INI file itself.
//
// Multi-value options are written one value per indented line, which is the
// format the GetList and GetPaths accessors split on.
package config
