// Package settings manages glpinv's connection settings.
//
// Settings come from, in order of precedence: command-line flags, the
// GLPI_* environment variables, then ~/.glpinv/settings.yaml as written by
// `glpinv configure`.
//
// Directory layout:
//
//	~/.glpinv/
//	    settings.yaml   # url, tokens, default groups file (mode 0600)
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the content of ~/.glpinv/settings.yaml.
type Settings struct {
	URL       string `yaml:"url"`
	AppToken  string `yaml:"app_token"`
	UserToken string `yaml:"user_token"`
	// GroupsFile is the default groups configuration path.
	GroupsFile string `yaml:"groups_file,omitempty"`
}

// Dir returns the base ~/.glpinv directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".glpinv"), nil
}

// Path returns the path of the settings file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.yaml"), nil
}

// Load reads ~/.glpinv/settings.yaml.
// Returns nil (not an error) if the file does not exist.
func Load() (*Settings, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &s, nil
}

// Save writes s to ~/.glpinv/settings.yaml, creating the directory if
// needed. The file holds API tokens, so it is only readable by its owner.
func Save(s Settings) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create settings dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write settings: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return "", fmt.Errorf("chmod settings: %w", err)
	}
	return path, nil
}
