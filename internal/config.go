package internal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScanConfig is the optional YAML configuration for the tree scan.
type ScanConfig struct {
	// Exclude holds glob patterns; matching files and directories are not
	// scanned.
	Exclude []string `yaml:"exclude,omitempty"`
	// FollowSymlinks walks through directory symlinks. Defaults to false,
	// the safe choice for trees that link back into themselves.
	FollowSymlinks bool `yaml:"followSymlinks,omitempty"`
	// MaxFileSize skips files larger than this many bytes. Zero disables
	// the cap.
	MaxFileSize int64 `yaml:"maxFileSize,omitempty"`
	// Passwords are extra passwords tried against encrypted private keys,
	// merged with the defaults and any command-line passwords.
	Passwords []string `yaml:"passwords,omitempty"`
}

// LoadScanConfig loads scan configuration from a YAML file.
func LoadScanConfig(path string) (*ScanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ScanConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing scan config %s: %w", path, err)
	}
	return &cfg, nil
}

// FindOptions converts the config to tree-scan options with the final
// password list.
func (c *ScanConfig) FindOptions(passwords []string) FindOptions {
	return FindOptions{
		FollowSymlinks: c.FollowSymlinks,
		Exclude:        c.Exclude,
		MaxFileSize:    c.MaxFileSize,
		Passwords:      passwords,
	}
}
