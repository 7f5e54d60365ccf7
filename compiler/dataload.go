package compiler

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseDataFile decodes a bundle data file's content into a Value, choosing
// JSON or YAML by path's extension. Both "data.json" and "data.yaml" are
// recognised bundle data file names.
func ParseDataFile(path, content string) (Value, error) {
	var decoded any
	switch {
	case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
		if err := yaml.Unmarshal([]byte(content), &decoded); err != nil {
			return Value{}, errors.Wrapf(err, "compiler: parsing yaml data file %q", path)
		}
	case strings.HasSuffix(path, ".json"):
		if err := json.Unmarshal([]byte(content), &decoded); err != nil {
			return Value{}, errors.Wrapf(err, "compiler: parsing json data file %q", path)
		}
	default:
		return Value{}, errors.Errorf("compiler: unrecognised data file extension for %q", path)
	}
	return FromJSON(decoded), nil
}
