package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadScanConfig reads and parses the remediation config at path.
func LoadScanConfig(path string) (*ScanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseScanConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseScanConfig decodes a YAML remediation config. A missing version is
// treated as 1 so hand-written exclusion lists keep working.
func ParseScanConfig(data []byte) (*ScanConfig, error) {
	var cfg ScanConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Version != 1 {
		return nil, errors.New("unsupported config version")
	}

	if cfg.ExcludeBuckets == nil {
		cfg.ExcludeBuckets = []string{}
	}

	return &cfg, nil
}
