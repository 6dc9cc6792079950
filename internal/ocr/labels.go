package ocr

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// labelFile is the schema of the optional labels YAML file:
//
//	labels:
//	  - valor
//	  - data
//	  - subtotal
type labelFile struct {
	Labels []string `yaml:"labels"`
}

// LoadLabels reads the receipt label set from a YAML file. An empty path
// returns the defaults; configured labels are appended to the defaults so
// the canonical set never shrinks.
func LoadLabels(path string) ([]string, error) {
	if path == "" {
		return DefaultLabels, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}

	var lf labelFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse labels file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(DefaultLabels)+len(lf.Labels))
	labels := make([]string, 0, len(DefaultLabels)+len(lf.Labels))
	for _, l := range append(append([]string{}, DefaultLabels...), lf.Labels...) {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	return labels, nil
}
