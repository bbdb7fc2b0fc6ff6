package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that override the default locations.
const (
	EnvConfigPath = "ASSETREPO_CONFIG_PATH"
	EnvHome       = "ASSETREPO_HOME"
	EnvPassphrase = "ASSETREPO_PASSPHRASE"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - ASSETREPO_CONFIG_PATH: config file location (default: ~/.config/assetrepo.toml)
//   - ASSETREPO_HOME: base directory for assetrepo data (default: ~/.local/share/assetrepo)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path":     configPath,
		"base_dir":        baseDir,
		"log_dir":         filepath.Join(baseDir, "log"),
		"credentials_dir": filepath.Join(baseDir, "credentials"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "assetrepo.toml"), nil
}

// getBaseDir falls back to the XDG default ~/.local/share/assetrepo.
func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "assetrepo"), nil
}
