package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"lifeline/internal/status"
)

// Config models lifeline.yml.
type Config struct {
	Server struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Defaults Defaults `yaml:"defaults"`
	Board    struct {
		Columns   []string `yaml:"columns"`
		Sort      string   `yaml:"sort"`
		Direction string   `yaml:"direction"`
	} `yaml:"board"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Defaults are applied to create requests that leave a field empty.
type Defaults struct {
	PersonaColor     string `yaml:"persona_color"`
	TaskStatus       string `yaml:"task_status"`
	TaskPriority     string `yaml:"task_priority"`
	WorkstreamStatus string `yaml:"workstream_status"`
}

var sortFields = []string{"title", "status", "priority", "workstream", "created_at", "updated_at"}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with lifeline config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if v := c.Defaults.PersonaColor; v != "" && !isHexColor(v) {
		return fmt.Errorf("config.defaults.persona_color %q is not a #rrggbb color", v)
	}
	if v := c.Defaults.TaskStatus; v != "" {
		if _, ok := status.TaskStatuses.Match(v); !ok {
			return fmt.Errorf("config.defaults.task_status %q is not a task status", v)
		}
	}
	if v := c.Defaults.TaskPriority; v != "" {
		if _, ok := status.Priorities.Match(v); !ok {
			return fmt.Errorf("config.defaults.task_priority %q is not a priority", v)
		}
	}
	if v := c.Defaults.WorkstreamStatus; v != "" {
		if _, ok := status.WorkstreamStatuses.Match(v); !ok {
			return fmt.Errorf("config.defaults.workstream_status %q is not a workstream status", v)
		}
	}
	for _, col := range c.Board.Columns {
		if _, ok := status.TaskStatuses.Match(col); !ok {
			return fmt.Errorf("config.board.columns contains unknown status %q", col)
		}
	}
	if c.Board.Sort != "" {
		found := false
		for _, f := range sortFields {
			if f == c.Board.Sort {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("config.board.sort must be one of %s", strings.Join(sortFields, ", "))
		}
	}
	switch c.Board.Direction {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("config.board.direction must be asc or desc")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be debug, info, warn or error")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json")
	}
	return nil
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "lifeline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// WriteDefault writes the default config to the workspace. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(workspace string, force bool) (string, error) {
	path := Path(workspace)
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("config %s already exists; use --force to overwrite", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, err
	}
	if err := atomic.WriteFile(path, strings.NewReader(defaultTemplate)); err != nil {
		return path, fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing
// sections keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8420
  base_path: /v0
  # Set to enable HS256 bearer auth on the API.
  jwt_secret: ""

defaults:
  persona_color: "#3b82f6"
  task_status: todo
  task_priority: medium
  workstream_status: planning

board:
  columns: [backlog, todo, inprogress, review, done]
  sort: created_at
  direction: desc

log:
  level: warn
  format: text
`
