package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadDir reads every YAML file in the directory and returns the enabled
// source configurations, sorted by id.
func LoadDir(dir string) ([]*Config, error) {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list source configs: %w", err)
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no source configurations found in %s", dir)
	}
	sort.Strings(files)

	var configs []*Config
	seen := map[string]string{}
	for _, file := range files {
		config, err := loadFile(file)
		if err != nil {
			return nil, err
		}

		if prev, ok := seen[config.ID]; ok {
			return nil, fmt.Errorf("duplicate source id %q in %s and %s", config.ID, prev, file)
		}
		seen[config.ID] = file

		if !config.IsEnabled() {
			slog.Info("Skipping disabled source", "source", config.ID, "file", file)
			continue
		}
		configs = append(configs, config)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })

	return configs, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source config %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse source config %s: %w", path, err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid source config %s: %w", path, err)
	}

	return &config, nil
}
