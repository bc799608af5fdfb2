package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var DebugLog func(string, ...interface{})

const (
	DefaultTimeout     = 10
	DefaultOutputDir   = "generated"
	DefaultPython      = "python3"
	DefaultBatchSize   = 4
	DefaultConfigName  = "hierdec-trio_16bar"
	DefaultNumOutputs  = 2
	DefaultTemperature = 0.6
	DefaultMixPrograms = "25-31,40-48"
	DefaultIndex       = "musegen_generations"
)

// DefaultCheckpoints maps builtin configuration names to their published
// checkpoints.
var DefaultCheckpoints = map[string]string{
	"hierdec-trio_16bar": "https://storage.googleapis.com/magentadata/models/music_vae/checkpoints/hierdec-trio_16bar.tar",
}

type Config struct {
	DefaultSettings DefaultSettings    `yaml:"default_settings"`
	Sampler         Sampler            `yaml:"sampler"`
	Generation      Generation         `yaml:"generation"`
	Checkpoints     Checkpoints        `yaml:"checkpoints"`
	Configs         []ConfigDefinition `yaml:"configs"`
	Mix             Mix                `yaml:"mix"`
	Database        Database           `yaml:"database"`
	Elastic         Elastic            `yaml:"elastic"`
}

type DefaultSettings struct {
	Timeout   int    `yaml:"timeout"`
	OutputDir string `yaml:"output_dir"`
}

type Sampler struct {
	Python    string `yaml:"python"`
	Script    string `yaml:"script"`
	BatchSize int    `yaml:"batch_size"`
}

type Generation struct {
	Config        string  `yaml:"config"`
	NumOutputs    int     `yaml:"num_outputs"`
	Temperature   float64 `yaml:"temperature"`
	StrictHParams bool    `yaml:"strict_hparams"`
}

type Checkpoints struct {
	CacheDir  string            `yaml:"cache_dir"`
	Locations map[string]string `yaml:"locations"`
}

// ConfigDefinition declares a named model configuration derived from a
// registered one.
type ConfigDefinition struct {
	Name              string         `yaml:"name"`
	Base              string         `yaml:"base"`
	HParams           map[string]any `yaml:"hparams"`
	TrainExamplesPath string         `yaml:"train_examples_path"`
	EvalExamplesPath  string         `yaml:"eval_examples_path"`
	DatasetID         string         `yaml:"dataset_id"`
	Checkpoint        string         `yaml:"checkpoint"`
}

type Mix struct {
	ProgramRanges string `yaml:"program_ranges"`
}

type Database struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Elastic struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

type Manager struct {
	config     *Config
	configPath string
}

func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// LoadConfig reads the settings file. An explicitly given path must exist;
// when none is given and no file is found in the usual places the defaults
// are used.
func (m *Manager) LoadConfig() error {
	if m.configPath == "" {
		m.configPath = m.findConfigFile()
	}

	var config Config
	if m.configPath == "" {
		if DebugLog != nil {
			DebugLog("no config file found, using defaults")
		}
	} else {
		if DebugLog != nil {
			DebugLog("loading config from %s", m.configPath)
		}

		if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found at %s. Please create one based on config.yaml.example", m.configPath)
		}

		data, err := os.ReadFile(m.configPath)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&config)

	if err := m.validateConfig(&config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	m.config = &config
	return nil
}

func (m *Manager) GetConfig() *Config {
	return m.config
}

func (m *Manager) ConfigPath() string {
	return m.configPath
}

func (m *Manager) findConfigFile() string {
	candidates := []string{
		"config.yaml",
		filepath.Join("config", "config.yaml"),
		GetDefaultConfigPath(),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func applyDefaults(c *Config) {
	if c.DefaultSettings.Timeout == 0 {
		c.DefaultSettings.Timeout = DefaultTimeout
	}
	if c.DefaultSettings.OutputDir == "" {
		c.DefaultSettings.OutputDir = DefaultOutputDir
	}
	if c.Sampler.Python == "" {
		c.Sampler.Python = DefaultPython
	}
	if c.Sampler.BatchSize == 0 {
		c.Sampler.BatchSize = DefaultBatchSize
	}
	if c.Generation.Config == "" {
		c.Generation.Config = DefaultConfigName
	}
	if c.Generation.NumOutputs == 0 {
		c.Generation.NumOutputs = DefaultNumOutputs
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = DefaultTemperature
	}
	if c.Checkpoints.CacheDir == "" {
		c.Checkpoints.CacheDir = GetCheckpointCacheDir()
	}
	locations := make(map[string]string, len(DefaultCheckpoints)+len(c.Checkpoints.Locations))
	for name, loc := range DefaultCheckpoints {
		locations[name] = loc
	}
	for name, loc := range c.Checkpoints.Locations {
		locations[name] = loc
	}
	c.Checkpoints.Locations = locations
	if c.Mix.ProgramRanges == "" {
		c.Mix.ProgramRanges = DefaultMixPrograms
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if strings.TrimSpace(c.Elastic.Index) == "" {
		c.Elastic.Index = DefaultIndex
	}
}

func (m *Manager) validateConfig(config *Config) error {
	if config.DefaultSettings.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if config.Sampler.BatchSize <= 0 {
		return fmt.Errorf("sampler batch_size must be greater than 0")
	}
	if config.Generation.NumOutputs <= 0 {
		return fmt.Errorf("num_outputs must be greater than 0")
	}
	if config.Generation.Temperature <= 0 {
		return fmt.Errorf("temperature must be greater than 0")
	}

	seen := make(map[string]bool)
	for i, def := range config.Configs {
		if def.Name == "" {
			return fmt.Errorf("configs[%d]: name is required", i)
		}
		if def.Base == "" {
			return fmt.Errorf("config %s: base is required", def.Name)
		}
		if seen[def.Name] {
			return fmt.Errorf("config %s declared twice", def.Name)
		}
		seen[def.Name] = true
	}

	if config.Elastic.Enabled && config.Elastic.URL == "" {
		return fmt.Errorf("elastic url is required when elastic is enabled")
	}

	return nil
}

// CheckpointFor returns the checkpoint locator for a model configuration
// name. A derived configuration without its own checkpoint inherits the one
// of its base.
func (c *Config) CheckpointFor(name string) (string, bool) {
	for hops := 0; hops <= len(c.Configs); hops++ {
		def, derived := c.definition(name)
		if derived && def.Checkpoint != "" {
			return def.Checkpoint, true
		}
		if loc, ok := c.Checkpoints.Locations[name]; ok {
			return loc, true
		}
		if !derived {
			return "", false
		}
		name = def.Base
	}
	return "", false
}

func (c *Config) definition(name string) (ConfigDefinition, bool) {
	for _, def := range c.Configs {
		if def.Name == name {
			return def, true
		}
	}
	return ConfigDefinition{}, false
}
