package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Narrative Narrative `yaml:"narrative"`
	Storage   Storage   `yaml:"storage"`
	Output    Output    `yaml:"output"`
	Report    Report    `yaml:"report"`
	Server    Server    `yaml:"server"`
	Access    Access    `yaml:"access"`
	Logging   Logging   `yaml:"logging"`
}

// Narrative configures the text-generation endpoint used for report commentary.
type Narrative struct {
	URL             string        `yaml:"url"`
	Model           string        `yaml:"model"`
	Temperature     float64       `yaml:"temperature"`
	TopP            float64       `yaml:"top_p"`
	Timeout         time.Duration `yaml:"timeout"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	Language        string        `yaml:"language"`
	BreakerFailures int           `yaml:"breaker_failures"`
}

type Storage struct {
	DataDir string `yaml:"data_dir"`
}

type Output struct {
	Dir string `yaml:"dir"`
}

// Report holds defaults applied to every generated report.
type Report struct {
	Channel string `yaml:"channel"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Access struct {
	AdminIDs []int64 `yaml:"admin_ids"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for channelreports.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "channelreports")
}

// DataDir returns the XDG data directory for channelreports.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "channelreports")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/channelreports/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'channelreports init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Narrative: Narrative{
			URL:             "http://localhost:11434/api/generate",
			Model:           "llama3",
			Temperature:     0.5,
			TopP:            0.9,
			Timeout:         30 * time.Second,
			ProbeTimeout:    5 * time.Second,
			Language:        "English",
			BreakerFailures: 3,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info", Format: "text"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays environment variables on top of the file configuration.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("OLLAMA_API_URL"); v != "" {
		c.Narrative.URL = v
	}
	if v := getenv("REPORTS_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := getenv("REPORTS_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := getenv("ADMIN_IDS"); v != "" {
		ids, err := parseIDList(v)
		if err != nil {
			return fmt.Errorf("parsing ADMIN_IDS: %w", err)
		}
		c.Access.AdminIDs = ids
	}
	return nil
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// GetOutputDir returns the directory reports are written to. Defaults to the
// working directory.
func (c *Config) GetOutputDir() string {
	if c.Output.Dir != "" {
		return c.Output.Dir
	}
	return "."
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
