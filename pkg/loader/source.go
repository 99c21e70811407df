package loader

import (
	"fmt"

	"github.com/datanorm/datanorm/pkg/config"
	"github.com/datanorm/datanorm/pkg/frame"
)

// Selector identifies which dataset slice a load targets, e.g.
// {"region": "AT", "year": "2020"}. Which keys are required is up to the
// concrete source.
type Selector map[string]string

// Get returns the selector value for key, or a configuration error naming
// the key when it is absent. Sources use this for their required keys.
func (s Selector) Get(key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", pipelineErr(KindConfiguration, "locate",
			fmt.Errorf("selector is missing required key %q", key))
	}
	return v, nil
}

// Source locates and reads raw data files. Concrete sources implement these
// two operations; the rest of the pipeline is provided by the loader.
type Source interface {
	// RawDataPaths returns the raw file locations for a selector. Paths
	// are resolved against the config's root path.
	RawDataPaths(cfg *config.SourceConfig, sel Selector) ([]string, error)

	// ReadRawData reads the located files into a single raw table.
	ReadRawData(paths []string, cfg *config.SourceConfig) (*frame.Frame, error)
}
