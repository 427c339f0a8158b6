package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the MonetDB MAPI port.
const DefaultPort = 50000

// Output formats accepted by Config.Output.
var Outputs = []string{"table", "json", "yaml"}

// Config holds monetinspect's settings.
type Config struct {
	Output      string            `yaml:"output"`    // "table", "json" or "yaml"
	Theme       string            `yaml:"theme"`     // default, light or monokai
	Highlight   bool              `yaml:"highlight"` // colorize view definitions
	Audit       AuditConfig       `yaml:"audit"`
	Reflection  ReflectionConfig  `yaml:"reflection"`
	Connections []SavedConnection `yaml:"connections"`
}

// AuditConfig controls the catalog query log.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

type ReflectionConfig struct {
	TempSchemaID int64 `yaml:"temp_schema_id"`
}

// SavedConnection is a named MonetDB server. DSN, when set, wins over the
// individual fields.
type SavedConnection struct {
	Name     string `yaml:"name"`
	DSN      string `yaml:"dsn,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Output:    "table",
		Theme:     "default",
		Highlight: true,
		Audit: AuditConfig{
			MaxSizeMB: 10,
		},
		Reflection: ReflectionConfig{
			TempSchemaID: 2097,
		},
	}
}

// ConfigDir returns the monetinspect configuration directory, typically
// ~/.config/monetinspect.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "monetinspect"), nil
}

// DefaultPath returns ConfigDir()/config.yaml.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads a Config from the YAML file at path. A missing file yields
// DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from DefaultPath.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Validate checks enumerated fields and connection names.
func (c *Config) Validate() error {
	if !validOutput(c.Output) {
		return fmt.Errorf("output %q: want one of %s", c.Output, strings.Join(Outputs, ", "))
	}
	seen := make(map[string]bool, len(c.Connections))
	for i, sc := range c.Connections {
		if sc.Name == "" {
			return fmt.Errorf("connection #%d has no name", i+1)
		}
		if seen[sc.Name] {
			return fmt.Errorf("duplicate connection %q", sc.Name)
		}
		seen[sc.Name] = true
	}
	return nil
}

func validOutput(s string) bool {
	for _, o := range Outputs {
		if s == o {
			return true
		}
	}
	return false
}

// Find returns the saved connection called name.
func (c *Config) Find(name string) (*SavedConnection, bool) {
	for i := range c.Connections {
		if c.Connections[i].Name == name {
			return &c.Connections[i], true
		}
	}
	return nil, false
}

// AuditPath returns the configured audit log path, defaulting to
// ConfigDir()/audit.jsonl.
func (c *Config) AuditPath() (string, error) {
	if c.Audit.Path != "" {
		return c.Audit.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audit.jsonl"), nil
}

// Save writes the Config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// BuildDSN returns the MonetDB-Go DSN "user:password@host:port/database"
// for the connection, or DSN verbatim when set.
func (sc *SavedConnection) BuildDSN() string {
	if sc.DSN != "" {
		return sc.DSN
	}

	var b strings.Builder
	if sc.User != "" {
		b.WriteString(sc.User)
		if sc.Password != "" {
			b.WriteByte(':')
			b.WriteString(sc.Password)
		}
		b.WriteByte('@')
	}
	b.WriteString(sc.host())
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(sc.port()))
	if sc.Database != "" {
		b.WriteByte('/')
		b.WriteString(sc.Database)
	}
	return b.String()
}

// DisplayString renders the connection as "monetdb://host:port/database"
// without credentials.
func (sc *SavedConnection) DisplayString() string {
	location := fmt.Sprintf("%s:%d", sc.host(), sc.port())
	if sc.Database != "" {
		return fmt.Sprintf("monetdb://%s/%s", location, sc.Database)
	}
	return "monetdb://" + location
}

func (sc *SavedConnection) host() string {
	if sc.Host == "" {
		return "localhost"
	}
	return sc.Host
}

func (sc *SavedConnection) port() int {
	if sc.Port <= 0 {
		return DefaultPort
	}
	return sc.Port
}
