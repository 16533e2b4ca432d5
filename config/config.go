package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentteam/internal/util"
	"github.com/hupe1980/agentteam/logging"
	"github.com/hupe1980/agentteam/model/provider"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "config.yaml"

// Store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// knownProviders get an API key from the environment even when config.yaml
// does not mention them.
var knownProviders = []provider.Provider{provider.OpenAI, provider.Claude, provider.DeepSeek, provider.Qwen}

// ModelSettings are the credentials and model names of one provider.
type ModelSettings struct {
	APIKey  string   `yaml:"api_key"`
	APIBase string   `yaml:"api_base"`
	Models  []string `yaml:"models"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the project configuration.
type Config struct {
	// Models maps a provider name to its settings.
	Models map[string]ModelSettings `yaml:"models"`
	// Tools maps a tool name to its factory settings.
	Tools map[string]map[string]any `yaml:"tools"`

	TeamsDir   string `yaml:"teams_dir"`
	ResultsDir string `yaml:"results_dir"`
	// OutputMode is print, logger or empty to choose by terminal.
	OutputMode string `yaml:"output_mode"`
	// Store is json or sqlite.
	Store string `yaml:"store"`
	// MetricsFile receives a Prometheus text export after each run when set.
	MetricsFile string    `yaml:"metrics_file"`
	Log         LogConfig `yaml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Models:     map[string]ModelSettings{},
		Tools:      map[string]map[string]any{},
		TeamsDir:   "teams",
		ResultsDir: "results",
		Store:      StoreJSON,
		Log:        LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path on top of the defaults. A missing file yields the
// defaults; API keys are then filled from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.applyEnvKeys()

			return cfg, nil
		}

		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes YAML config data, expanding environment references first.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	cfg := Default()

	if raw != nil {
		expanded, _ := ExpandEnvInData(raw).(map[string]any)
		if err := util.Decode(expanded, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Models == nil {
		cfg.Models = map[string]ModelSettings{}
	}

	if cfg.Tools == nil {
		cfg.Tools = map[string]map[string]any{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.applyEnvKeys()

	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Store {
	case "", StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreJSON, StoreSQLite)
	}

	switch c.OutputMode {
	case "", "print", "logger":
	default:
		return fmt.Errorf("unknown output_mode %q (want print or logger)", c.OutputMode)
	}

	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format %q (want json or text)", c.Log.Format)
	}

	return nil
}

// applyEnvKeys fills empty API keys from <PROVIDER>_API_KEY.
func (c *Config) applyEnvKeys() {
	for name, s := range c.Models {
		if s.APIKey == "" {
			s.APIKey = apiKeyFromEnv(name)
			c.Models[name] = s
		}
	}

	for _, p := range knownProviders {
		if _, ok := c.Models[string(p)]; ok {
			continue
		}

		if key := apiKeyFromEnv(string(p)); key != "" {
			c.Models[string(p)] = ModelSettings{APIKey: key}
		}
	}
}

// ProviderSettings converts the model section for provider construction.
func (c *Config) ProviderSettings() map[string]provider.Settings {
	out := make(map[string]provider.Settings, len(c.Models))
	for name, s := range c.Models {
		out[name] = provider.Settings{
			APIKey:  s.APIKey,
			APIBase: s.APIBase,
			Models:  append([]string(nil), s.Models...),
		}
	}

	return out
}

// ProviderNames returns the configured providers in sorted order.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// LoggerConfig maps the log section onto a logging configuration.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.ParseLevel(c.Log.Level)

	if c.Log.Format != "" {
		cfg.Format = c.Log.Format
	}

	return cfg
}

// ResolvePaths makes relative directories absolute against base, usually
// the directory holding config.yaml.
func (c *Config) ResolvePaths(base string) {
	for _, p := range []*string{&c.TeamsDir, &c.ResultsDir, &c.MetricsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}
