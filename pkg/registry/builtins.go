package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/askdb-io/askdb-engine/pkg/models"
	enginesql "github.com/askdb-io/askdb-engine/pkg/sql"
)

// builtinsManifest is the YAML shape of the built-in datasource file.
type builtinsManifest struct {
	Datasources []models.Datasource `yaml:"datasources"`
}

// LoadBuiltins reads the built-in datasource manifest. Every entry is
// marked IsBuiltIn and validated; a manifest that fails validation refuses
// to start the engine rather than admitting a bad identity anchor.
func LoadBuiltins(path string) ([]models.Datasource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read builtins manifest %q: %w", path, err)
	}
	return ParseBuiltins(data)
}

// ParseBuiltins parses and validates a built-in datasource manifest.
func ParseBuiltins(data []byte) ([]models.Datasource, error) {
	var manifest builtinsManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse builtins manifest: %w", err)
	}

	seen := make(map[string]struct{}, len(manifest.Datasources))
	for i := range manifest.Datasources {
		ds := &manifest.Datasources[i]
		if err := enginesql.ValidateIdentifier(ds.ID, "datasource id"); err != nil {
			return nil, err
		}
		if _, dup := seen[ds.ID]; dup {
			return nil, fmt.Errorf("duplicate built-in datasource id %q", ds.ID)
		}
		seen[ds.ID] = struct{}{}
		for _, table := range ds.Tables {
			if err := enginesql.ValidateIdentifier(table, "table name"); err != nil {
				return nil, err
			}
		}
		ds.IsBuiltIn = true
	}
	return manifest.Datasources, nil
}
