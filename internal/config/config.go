package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Repository backend types.
const (
	TypeREST       = "rest"
	TypeDirectory  = "directory"
	TypeZip        = "zip"
	TypeSingleFile = "singlefile"
)

// Config represents the main configuration for assetrepo.
type Config struct {
	BaseDir string `toml:"base_dir"`
	LogDir  string `toml:"log_dir"`

	// StrictUnknownFields makes every client reject asset JSON carrying
	// fields it does not know.
	StrictUnknownFields bool `toml:"strict_unknown_fields"`

	Database     DatabaseConfig     `toml:"database"`
	Repositories []RepositoryConfig `toml:"repositories"`
}

// DatabaseConfig represents configuration for the operation history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// RepositoryConfig represents configuration for one asset repository.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RepositoryConfig struct {
	Type string `toml:"type"` // "rest", "directory", "zip" or "singlefile"
	Name string `toml:"name"`

	// REST-specific fields (only used when Type == "rest")
	URL                string `toml:"url,omitempty"`
	APIKey             string `toml:"api_key,omitempty"`
	UserID             string `toml:"user_id,omitempty"`
	Password           string `toml:"password,omitempty"`
	PasswordFile       string `toml:"password_file,omitempty"` // age-encrypted, see internal/credentials
	Auth               string `toml:"auth,omitempty"`          // "basic" (default) or "headers"
	ReadTimeoutSeconds int    `toml:"read_timeout_seconds,omitzero"`

	// File-backed fields (directory, zip, singlefile)
	Path   string   `toml:"path,omitempty"`
	Ignore []string `toml:"ignore,omitempty"` // patterns of non-asset files; directory and zip only
}

// NewConfig creates a new Config rooted at baseDir with a sqlite history
// database and no repositories.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// Repository returns the repository called name, or the first configured
// repository when name is empty.
func (c *Config) Repository(name string) (RepositoryConfig, error) {
	if len(c.Repositories) == 0 {
		return RepositoryConfig{}, fmt.Errorf("no repositories configured")
	}
	if name == "" {
		return c.Repositories[0], nil
	}
	for _, r := range c.Repositories {
		if r.Name == name {
			return r, nil
		}
	}
	return RepositoryConfig{}, fmt.Errorf("repository %q is not configured", name)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
