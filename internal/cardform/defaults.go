package cardform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadDefaults reads a YAML document of field overrides and applies it on
// top of base. Fields absent from the document keep the base value.
func LoadDefaults(path string, base CardInput) (CardInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CardInput{}, fmt.Errorf("read defaults: %w", err)
	}
	var override CardInput
	if err := yaml.Unmarshal(data, &override); err != nil {
		return CardInput{}, fmt.Errorf("parse defaults %s: %w", path, err)
	}
	return base.Merge(override), nil
}
