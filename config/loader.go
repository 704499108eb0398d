// Package config provides configuration loading and parsing functionality
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// Loader handles configuration loading from various sources
type Loader struct {
	// Configuration search paths
	searchPaths []string

	// Environment variable prefix
	envPrefix string

	// Default configuration
	defaultConfig *Config
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		searchPaths: []string{
			".",
			"./config",
			"./configs",
			"/etc/xcmroute",
			os.Getenv("HOME") + "/.xcmroute",
		},
		envPrefix:     "XCMROUTE",
		defaultConfig: DefaultConfig(),
	}
}

// SetSearchPaths sets the configuration file search paths
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the default configuration
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

// Load loads configuration from the specified file, or from defaults when
// filename is empty
func (l *Loader) Load(filename string) (*Config, error) {
	if filename != "" {
		config, err := l.loadFromFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", filename, err)
		}
		return config, nil
	}
	return l.finish(l.defaults())
}

// LoadFromFile loads configuration from a specific file
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	return l.loadFromFile(filename)
}

// LoadFromReader loads configuration from an io.Reader. Missing fields take
// their default values; environment overrides are not applied.
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}
	config = l.mergeConfig(l.defaults(), config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// AutoLoad automatically discovers and loads configuration
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, _, err := l.findConfigFile()
	if err == ErrConfigFileNotFound {
		// No file anywhere: defaults plus environment
		return l.finish(l.defaults())
	}
	if err != nil {
		return nil, err
	}
	return l.loadFromFile(configFile)
}

// findConfigFile searches for configuration files in search paths
func (l *Loader) findConfigFile() (string, ConfigFormat, error) {
	filenames := []string{
		"xcmroute.yaml", "xcmroute.yml",
		"config.yaml", "config.yml",
		"xcmroute.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err == nil {
				format, err := formatOf(fullPath)
				if err != nil {
					continue
				}
				return fullPath, format, nil
			}
		}
	}

	return "", "", ErrConfigFileNotFound
}

// formatOf determines the format from a file extension
func formatOf(filename string) (ConfigFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file format: %s", filepath.Ext(filename))
	}
}

// loadFromFile loads configuration from a file
func (l *Loader) loadFromFile(filename string) (*Config, error) {
	format, err := formatOf(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}

	// Merge with default config to fill missing fields
	return l.finish(l.mergeConfig(l.defaults(), config))
}

// finish applies environment overrides and validates
func (l *Loader) finish(config *Config) (*Config, error) {
	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// defaults returns a private copy of the default configuration
func (l *Loader) defaults() *Config {
	if l.defaultConfig == nil {
		return DefaultConfig()
	}
	config := *l.defaultConfig
	config.Router.Strategies = append([]string(nil), l.defaultConfig.Router.Strategies...)
	config.Router.ExportTable = append([]ExportEntry(nil), l.defaultConfig.Router.ExportTable...)
	config.Transport.Endpoints = copyMap(l.defaultConfig.Transport.Endpoints)
	config.Transport.Peers = copyMap(l.defaultConfig.Transport.Peers)
	config.Log.Fields = copyMap(l.defaultConfig.Log.Fields)
	return &config
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// parseConfig parses configuration data based on format
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := &Config{}

	switch format {
	case FormatYAML:
		err := yaml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("%w: YAML: %v", ErrConfigParseError, err)
		}
	case FormatJSON:
		err := json.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("%w: JSON: %v", ErrConfigParseError, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	return config, nil
}

// loadFromEnv loads configuration overrides from environment variables
func (l *Loader) loadFromEnv(config *Config) error {
	// App configuration
	if val := os.Getenv(l.envPrefix + "_APP_NAME"); val != "" {
		config.App.Name = val
	}
	if val := os.Getenv(l.envPrefix + "_APP_ENVIRONMENT"); val != "" {
		config.App.Environment = Environment(val)
	}
	if val := os.Getenv(l.envPrefix + "_APP_DEBUG"); val != "" {
		config.App.Debug = strings.ToLower(val) == "true"
	}

	// Log configuration
	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		config.Log.Level = LogLevel(val)
	}
	if val := os.Getenv(l.envPrefix + "_LOG_FORMAT"); val != "" {
		config.Log.Format = val
	}
	if val := os.Getenv(l.envPrefix + "_LOG_OUTPUT"); val != "" {
		config.Log.Output = val
	}

	// Router configuration
	if val := os.Getenv(l.envPrefix + "_ROUTER_UNIVERSAL_LOCATION"); val != "" {
		config.Router.UniversalLocation = val
	}
	if val := os.Getenv(l.envPrefix + "_ROUTER_STRATEGIES"); val != "" {
		config.Router.Strategies = splitList(val)
	}

	// Transport configuration
	if val := os.Getenv(l.envPrefix + "_TRANSPORT_LISTEN"); val != "" {
		config.Transport.Listen = val
	}

	// Executor configuration
	if val := os.Getenv(l.envPrefix + "_EXECUTOR_WEIGHT_LIMIT"); val != "" {
		limit, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s_EXECUTOR_WEIGHT_LIMIT: %v", ErrEnvironmentVarError, l.envPrefix, err)
		}
		config.Executor.WeightLimit = limit
	}

	return nil
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// mergeConfig merges user config with default config
func (l *Loader) mergeConfig(defaultConfig, userConfig *Config) *Config {
	// Start with default config
	merged := *defaultConfig

	// App config
	if userConfig.App.Name != "" {
		merged.App.Name = userConfig.App.Name
	}
	if userConfig.App.Version != "" {
		merged.App.Version = userConfig.App.Version
	}
	if userConfig.App.Environment != "" {
		merged.App.Environment = userConfig.App.Environment
	}
	merged.App.Debug = userConfig.App.Debug

	// Log config
	if userConfig.Log.Level != "" {
		merged.Log.Level = userConfig.Log.Level
	}
	if userConfig.Log.Format != "" {
		merged.Log.Format = userConfig.Log.Format
	}
	if userConfig.Log.Output != "" {
		merged.Log.Output = userConfig.Log.Output
	}
	if userConfig.Log.Rotation.Enabled {
		merged.Log.Rotation.Enabled = true
		merged.Log.Rotation.Compress = userConfig.Log.Rotation.Compress
	}
	if userConfig.Log.Rotation.MaxSize > 0 {
		merged.Log.Rotation.MaxSize = userConfig.Log.Rotation.MaxSize
	}
	if userConfig.Log.Rotation.MaxBackups > 0 {
		merged.Log.Rotation.MaxBackups = userConfig.Log.Rotation.MaxBackups
	}
	if userConfig.Log.Rotation.MaxAge > 0 {
		merged.Log.Rotation.MaxAge = userConfig.Log.Rotation.MaxAge
	}
	if userConfig.Log.Fields != nil {
		merged.Log.Fields = userConfig.Log.Fields
	}

	// Router config
	if userConfig.Router.UniversalLocation != "" {
		merged.Router.UniversalLocation = userConfig.Router.UniversalLocation
	}
	if len(userConfig.Router.Strategies) > 0 {
		merged.Router.Strategies = userConfig.Router.Strategies
	}
	if userConfig.Router.ExportTable != nil {
		merged.Router.ExportTable = userConfig.Router.ExportTable
	}

	// Transport config
	if userConfig.Transport.Listen != "" {
		merged.Transport.Listen = userConfig.Transport.Listen
	}
	if userConfig.Transport.Endpoints != nil {
		merged.Transport.Endpoints = userConfig.Transport.Endpoints
	}
	if userConfig.Transport.Peers != nil {
		merged.Transport.Peers = userConfig.Transport.Peers
	}
	if userConfig.Transport.MaxMessageSize > 0 {
		merged.Transport.MaxMessageSize = userConfig.Transport.MaxMessageSize
	}
	if userConfig.Transport.Timeouts.Dial > 0 {
		merged.Transport.Timeouts.Dial = userConfig.Transport.Timeouts.Dial
	}
	if userConfig.Transport.Timeouts.Write > 0 {
		merged.Transport.Timeouts.Write = userConfig.Transport.Timeouts.Write
	}
	if userConfig.Transport.Timeouts.Idle > 0 {
		merged.Transport.Timeouts.Idle = userConfig.Transport.Timeouts.Idle
	}
	cb := userConfig.Transport.CircuitBreaker
	if cb.Enabled {
		merged.Transport.CircuitBreaker.Enabled = true
	}
	if cb.FailureThreshold > 0 {
		merged.Transport.CircuitBreaker.FailureThreshold = cb.FailureThreshold
	}
	if cb.SuccessThreshold > 0 {
		merged.Transport.CircuitBreaker.SuccessThreshold = cb.SuccessThreshold
	}
	if cb.Timeout > 0 {
		merged.Transport.CircuitBreaker.Timeout = cb.Timeout
	}

	// Executor config
	if userConfig.Executor.WeightPerInstruction > 0 {
		merged.Executor.WeightPerInstruction = userConfig.Executor.WeightPerInstruction
	}
	if userConfig.Executor.MaxInstructions > 0 {
		merged.Executor.MaxInstructions = userConfig.Executor.MaxInstructions
	}
	if userConfig.Executor.WeightLimit > 0 {
		merged.Executor.WeightLimit = userConfig.Executor.WeightLimit
	}

	return &merged
}
