// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contacts

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

// FilterFile is the on-disk representation of a reusable filter preset.
// Keywords are listed one per entry so the file can be edited by hand.
type FilterFile struct {
	Description string             `yaml:"description,omitempty"`
	Filters     types.FilterConfig `yaml:"filters"`
}

// WriteFilterFile saves cfg as a preset at path.
func WriteFilterFile(path, description string, cfg types.FilterConfig) error {
	ff := FilterFile{Description: description, Filters: cfg}
	data, err := yaml.Marshal(&ff)
	if err != nil {
		return fmt.Errorf("marshaling filter file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFilterFile loads a preset written by WriteFilterFile. Fields missing
// from the file keep the values from DefaultFilterConfig.
func ReadFilterFile(path string) (types.FilterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.FilterConfig{}, fmt.Errorf("reading filter file: %w", err)
	}
	ff := FilterFile{Filters: types.DefaultFilterConfig()}
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return types.FilterConfig{}, fmt.Errorf("parsing filter file %s: %w", path, err)
	}
	return ff.Filters, nil
}
