package models

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Manifest is a YAML solution description passed to the clone command.
//
// Example:
//
//	name: Wildfire Response
//	items:
//	  - 5be7ec9455e14c65b7b4f7c6a8a0fcf3
//	folder: Wildfire Response (prod)
type Manifest struct {
	// Name is the solution name, used for the destination folder title.
	Name string `yaml:"name" validate:"required"`

	// Items are the root item ids to clone.
	Items []string `yaml:"items" validate:"required,min=1,dive,required"`

	// Folder is an optional pre-existing destination folder id. When empty
	// a new folder is created for the run.
	Folder string `yaml:"folder"`

	// Extent is an optional org-level extent applied to every item that
	// carries an extent placeholder.
	Extent any `yaml:"extent"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := validator.New().Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return &m, nil
}
