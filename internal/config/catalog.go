package config

import (
	"fmt"
	"os"

	"skirental/internal/models"

	"gopkg.in/yaml.v2"
)

// Catalog is the seed file with the rentable equipment and the staff accounts.
type Catalog struct {
	Equipment []models.Equipment `yaml:"equipment"`
	Employers []models.Employer  `yaml:"employers"`
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(catalog.Equipment) == 0 && len(catalog.Employers) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}
	return &catalog, nil
}
