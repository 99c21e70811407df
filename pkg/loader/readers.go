package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/datanorm/datanorm/pkg/config"
	"github.com/datanorm/datanorm/pkg/frame"
)

// ReadConcat reads N files with the supplied per-file reader and
// row-concatenates them in input order. Order matters when downstream
// adjustments assume a particular interleaving, e.g. versioned files listed
// oldest first.
func ReadConcat(paths []string, read func(path string) (*frame.Frame, error)) (*frame.Frame, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths to read")
	}
	var out *frame.Frame
	for _, p := range paths {
		f, err := read(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if out == nil {
			out = f
			continue
		}
		out, err = out.AppendFrame(f)
		if err != nil {
			return nil, fmt.Errorf("concatenating %s: %w", p, err)
		}
	}
	return out, nil
}

// ReadCSV reads a headered CSV file into a frame. Every column is read as a
// string; the pipeline's coercion stage assigns real types. Empty cells are
// missing.
func ReadCSV(path string) (*frame.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no header row", path)
	}
	header := records[0]
	cols := make([]*frame.Series, len(header))
	for j, name := range header {
		cells := make([]any, len(records)-1)
		for i, rec := range records[1:] {
			if rec[j] != "" {
				cells[i] = rec[j]
			}
		}
		s, err := frame.NewSeries(name, frame.DTypeString, cells)
		if err != nil {
			return nil, fmt.Errorf("%s column %q: %w", path, name, err)
		}
		cols[j] = s
	}
	return frame.New(cols...)
}

// CSVSource locates CSV raw files through the source config. The configured
// path patterns may reference selector keys as {key} placeholders, so one
// config line can cover every slice of a dataset.
type CSVSource struct {
	// Section is the config section holding the path option.
	Section string

	// Option is the list-valued option naming the raw files.
	Option string
}

// RawDataPaths expands the configured path patterns with the selector and
// resolves them against the config's root path.
func (s *CSVSource) RawDataPaths(cfg *config.SourceConfig, sel Selector) ([]string, error) {
	patterns, err := cfg.GetList(s.Section, s.Option)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(patterns))
	for i, pattern := range patterns {
		expanded, err := expandSelector(pattern, sel)
		if err != nil {
			return nil, err
		}
		if filepath.IsAbs(expanded) {
			paths[i] = expanded
		} else {
			paths[i] = filepath.Join(cfg.RootPath(), expanded)
		}
	}
	return paths, nil
}

// ReadRawData reads and row-concatenates the located CSV files.
func (s *CSVSource) ReadRawData(paths []string, _ *config.SourceConfig) (*frame.Frame, error) {
	return ReadConcat(paths, ReadCSV)
}

// expandSelector substitutes {key} placeholders in a path pattern. A
// placeholder with no selector value is a configuration error.
func expandSelector(pattern string, sel Selector) (string, error) {
	out := pattern
	for {
		start := strings.Index(out, "{")
		if start < 0 {
			return out, nil
		}
		end := strings.Index(out[start:], "}")
		if end < 0 {
			return "", pipelineErr(KindConfiguration, "locate",
				fmt.Errorf("unterminated placeholder in path pattern %q", pattern))
		}
		key := out[start+1 : start+end]
		value, err := sel.Get(key)
		if err != nil {
			return "", err
		}
		out = out[:start] + value + out[start+end+1:]
	}
}
