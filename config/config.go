// ABOUTME: Application configuration loaded from YAML, .env and the environment
// ABOUTME: Resolves XDG config and data paths and applies defaults for every section

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/harperreed/partneros/charm"
	"github.com/harperreed/partneros/llm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG config and data directories.
const AppName = "partneros"

// Environment overrides.
const (
	EnvAPIKey  = "OPENROUTER_API_KEY"
	EnvModel   = "OPENROUTER_MODEL"
	EnvDataDir = "PARTNEROS_DATA_DIR"
)

// Intent classifiers.
const (
	ClassifierKeywords = "keywords"
	ClassifierModel    = "model"
)

// Memory backends.
const (
	BackendFile  = "file"
	BackendCharm = "charm"
)

const (
	DefaultHost             = "127.0.0.1"
	DefaultPort             = 8000
	DefaultRateLimit        = 20
	DefaultRateWindow       = 60 * time.Second
	DefaultMaxMessageLength = 5000
	DefaultLogLevel         = "info"
)

// Config is read from config.yaml. Every field is optional.
//
// Example:
//
//	data_dir: ~/partners
//	llm:
//	  model: qwen/qwen3.5-plus-02-15
//	server:
//	  port: 8000
//	memory:
//	  backend: charm
type Config struct {
	DataDir      string       `yaml:"data_dir"`
	TemplatesDir string       `yaml:"templates_dir"`
	LLM          LLMConfig    `yaml:"llm"`
	Server       ServerConfig `yaml:"server"`
	Memory       MemoryConfig `yaml:"memory"`
	Charm        charm.Config `yaml:"charm"`
	Log          LogConfig    `yaml:"log"`
}

type LLMConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
	// Classifier is "keywords" (default) or "model".
	Classifier string `yaml:"classifier"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	RateLimit        int           `yaml:"rate_limit"`
	RateWindow       time.Duration `yaml:"rate_window"`
	MaxMessageLength int           `yaml:"max_message_length"`
}

type MemoryConfig struct {
	Backend string `yaml:"backend"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultPath returns the config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (DefaultPath when empty), then .env, then environment overrides.
// A missing file yields defaults; an unparseable one is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	// .env is optional; only existing variables win over it.
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		c.LLM.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		c.DataDir = v
	}
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = filepath.Join(xdg.DataHome, AppName)
	}
	c.DataDir = expandHome(c.DataDir)
	c.TemplatesDir = expandHome(c.TemplatesDir)

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = llm.DefaultBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = llm.DefaultModel
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = llm.DefaultTimeout
	}
	if c.LLM.Classifier == "" {
		c.LLM.Classifier = ClassifierKeywords
	}

	if strings.TrimSpace(c.Server.Host) == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = DefaultRateLimit
	}
	if c.Server.RateWindow <= 0 {
		c.Server.RateWindow = DefaultRateWindow
	}
	if c.Server.MaxMessageLength <= 0 {
		c.Server.MaxMessageLength = DefaultMaxMessageLength
	}

	if c.Memory.Backend == "" {
		c.Memory.Backend = BackendFile
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Memory.Backend {
	case BackendFile, BackendCharm:
	default:
		return fmt.Errorf("unknown memory.backend %q", c.Memory.Backend)
	}
	switch c.LLM.Classifier {
	case ClassifierKeywords, ClassifierModel:
	default:
		return fmt.Errorf("unknown llm.classifier %q", c.LLM.Classifier)
	}
	return nil
}

// Save writes the config to path with restrictive permissions.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) LedgerPath() string   { return filepath.Join(c.DataDir, "partners.json") }
func (c *Config) MemoryDir() string    { return filepath.Join(c.DataDir, "memory") }
func (c *Config) DocumentsDir() string { return filepath.Join(c.DataDir, "partners") }
func (c *Config) AuditPath() string    { return filepath.Join(c.DataDir, "audit.db") }
func (c *Config) LogPath() string      { return filepath.Join(c.DataDir, "partneros.log") }

// Addr is the web server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
