// Package config provides configuration management for the xcmroute node
package config

import (
	"fmt"
	"time"

	"github.com/EgorPopelyaev/polkadot/exports"
	"github.com/EgorPopelyaev/polkadot/location"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// Routing strategies, in the names used by RouterConfig.Strategies
const (
	StrategyLocalUnpaid    = "local_unpaid"
	StrategyLocalExecuting = "local_executing"
	StrategyRemote         = "remote"
)

// Config represents the complete xcmroute configuration
type Config struct {
	// Application configuration
	App AppConfig `yaml:"app" json:"app"`

	// Logging configuration
	Log LogConfig `yaml:"log" json:"log"`

	// Routing configuration
	Router RouterConfig `yaml:"router" json:"router"`

	// Transport configuration
	Transport TransportConfig `yaml:"transport" json:"transport"`

	// Local executor configuration
	Executor ExecutorConfig `yaml:"executor" json:"executor"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	// Application name
	Name string `yaml:"name" json:"name"`

	// Application version
	Version string `yaml:"version" json:"version"`

	// Deployment environment
	Environment Environment `yaml:"environment" json:"environment"`

	// Debug forces debug-level logging
	Debug bool `yaml:"debug" json:"debug"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	// Log level
	Level LogLevel `yaml:"level" json:"level"`

	// Log format (json, console)
	Format string `yaml:"format" json:"format"`

	// Output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Log rotation configuration, used when Output is a file
	Rotation LogRotationConfig `yaml:"rotation" json:"rotation"`

	// Fields to include in log output
	Fields map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// LogRotationConfig contains log rotation settings
type LogRotationConfig struct {
	// Enable log rotation
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Maximum file size in MB
	MaxSize int `yaml:"max_size" json:"max_size"`

	// Maximum number of old files to retain
	MaxBackups int `yaml:"max_backups" json:"max_backups"`

	// Maximum age in days
	MaxAge int `yaml:"max_age" json:"max_age"`

	// Compress old files
	Compress bool `yaml:"compress" json:"compress"`
}

// RouterConfig describes where this node sits and how it reaches other
// consensus systems
type RouterConfig struct {
	// Universal location in text form, e.g. "GlobalConsensus(Polkadot)/Parachain(1000)"
	UniversalLocation string `yaml:"universal_location" json:"universal_location"`

	// Strategies tried in order for every message
	Strategies []string `yaml:"strategies" json:"strategies"`

	// Bridges serving each remote network, used by the remote strategy
	ExportTable []ExportEntry `yaml:"export_table,omitempty" json:"export_table,omitempty"`
}

// ExportEntry maps a remote network to the bridge serving it
type ExportEntry struct {
	// Remote network name
	Network string `yaml:"network" json:"network"`

	// Bridge location relative to this node, e.g. "../Parachain(1002)"
	Bridge string `yaml:"bridge" json:"bridge"`
}

// TransportConfig contains transport settings
type TransportConfig struct {
	// Listen address for inbound envelopes
	Listen string `yaml:"listen" json:"listen"`

	// Endpoints maps remote network names to host:port
	Endpoints map[string]string `yaml:"endpoints,omitempty" json:"endpoints,omitempty"`

	// Peers maps local destinations, such as bridges, to host:port
	Peers map[string]string `yaml:"peers,omitempty" json:"peers,omitempty"`

	// Maximum encoded envelope size in bytes
	MaxMessageSize int `yaml:"max_message_size" json:"max_message_size"`

	// Timeouts
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Circuit breaker settings
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
}

// TimeoutConfig contains timeout settings
type TimeoutConfig struct {
	// Connection dial timeout
	Dial time.Duration `yaml:"dial" json:"dial"`

	// Write timeout
	Write time.Duration `yaml:"write" json:"write"`

	// Idle connection timeout
	Idle time.Duration `yaml:"idle" json:"idle"`
}

// CircuitBreakerConfig contains circuit breaker settings
type CircuitBreakerConfig struct {
	// Enable circuit breaker
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Failure threshold
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold"`

	// Success threshold for recovery
	SuccessThreshold int `yaml:"success_threshold" json:"success_threshold"`

	// Timeout for open state
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ExecutorConfig contains local executor settings
type ExecutorConfig struct {
	// Weight charged per instruction
	WeightPerInstruction uint64 `yaml:"weight_per_instruction" json:"weight_per_instruction"`

	// Maximum instructions per message, nested ones included
	MaxInstructions int `yaml:"max_instructions" json:"max_instructions"`

	// Heaviest message the executing strategy accepts; zero means no limit
	WeightLimit uint64 `yaml:"weight_limit" json:"weight_limit"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "xcmroute",
			Version:     "1.0.0",
			Environment: EnvDevelopment,
			Debug:       false,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: "console",
			Output: "stdout",
			Rotation: LogRotationConfig{
				Enabled:    false,
				MaxSize:    100,
				MaxBackups: 10,
				MaxAge:     30,
				Compress:   true,
			},
		},
		Router: RouterConfig{
			UniversalLocation: "GlobalConsensus(Polkadot)",
			Strategies:        []string{StrategyRemote},
		},
		Transport: TransportConfig{
			Listen:         "127.0.0.1:7700",
			Endpoints:      make(map[string]string),
			Peers:          make(map[string]string),
			MaxMessageSize: 1024 * 1024,
			Timeouts: TimeoutConfig{
				Dial:  10 * time.Second,
				Write: 10 * time.Second,
				Idle:  5 * time.Minute,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          false,
				FailureThreshold: 5,
				SuccessThreshold: 3,
				Timeout:          60 * time.Second,
			},
		},
		Executor: ExecutorConfig{
			WeightPerInstruction: 1_000_000,
			MaxInstructions:      100,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate app config
	if c.App.Name == "" {
		return ErrInvalidAppName
	}
	if !c.App.Environment.IsValid() {
		return ErrInvalidEnvironment
	}

	// Validate log config
	if !c.Log.Level.IsValid() {
		return ErrInvalidLogLevel
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}

	// Validate router config
	if _, err := c.Router.Universal(); err != nil {
		return err
	}
	if len(c.Router.Strategies) == 0 {
		return fmt.Errorf("%w: none configured", ErrInvalidStrategy)
	}
	for _, name := range c.Router.Strategies {
		switch name {
		case StrategyLocalUnpaid, StrategyLocalExecuting, StrategyRemote:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
		}
	}
	if _, err := c.Router.Exports(); err != nil {
		return err
	}

	// Validate transport config
	if _, err := c.Transport.NetworkEndpoints(); err != nil {
		return err
	}
	if _, err := c.Transport.PeerAddresses(); err != nil {
		return err
	}

	// Validate executor config
	if c.Executor.WeightPerInstruction == 0 {
		return ErrInvalidWeight
	}
	if c.Executor.MaxInstructions <= 0 {
		return ErrInvalidMaxInstructions
	}

	return nil
}

// Universal parses the universal location. It must start with a
// GlobalConsensus junction.
func (r *RouterConfig) Universal() (location.Junctions, error) {
	universal, err := location.ParseJunctions(r.UniversalLocation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUniversalLocation, err)
	}
	if _, ok := universal.GlobalConsensus(); !ok {
		return nil, fmt.Errorf("%w: %q has no global consensus", ErrInvalidUniversalLocation, r.UniversalLocation)
	}
	return universal, nil
}

// Exports parses the export table, preserving order.
func (r *RouterConfig) Exports() ([]exports.NetworkExportEntry, error) {
	entries := make([]exports.NetworkExportEntry, 0, len(r.ExportTable))
	for _, entry := range r.ExportTable {
		network, err := location.ParseNetworkID(entry.Network)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExportEntry, err)
		}
		bridge, err := location.Parse(entry.Bridge)
		if err != nil {
			return nil, fmt.Errorf("%w: bridge for %s: %v", ErrInvalidExportEntry, network, err)
		}
		entries = append(entries, exports.NetworkExportEntry{Network: network, Bridge: bridge})
	}
	return entries, nil
}

// NetworkEndpoints parses the endpoint keys as network names.
func (t *TransportConfig) NetworkEndpoints() (map[location.NetworkID]string, error) {
	endpoints := make(map[location.NetworkID]string, len(t.Endpoints))
	for name, address := range t.Endpoints {
		network, err := location.ParseNetworkID(name)
		if err != nil || address == "" {
			return nil, fmt.Errorf("%w: network %q", ErrInvalidEndpoint, name)
		}
		endpoints[network] = address
	}
	return endpoints, nil
}

// LogSettings returns the log configuration, at debug level when
// app.debug is set.
func (c *Config) LogSettings() LogConfig {
	settings := c.Log
	if c.App.Debug {
		settings.Level = LogLevelDebug
	}
	return settings
}

// PeerAddresses keys the peer table by canonical location text, so
// "../Parachain(1002)/" and "../Parachain(1002)" name the same peer.
func (t *TransportConfig) PeerAddresses() (map[string]string, error) {
	peers := make(map[string]string, len(t.Peers))
	for dest, address := range t.Peers {
		loc, err := location.Parse(dest)
		if err != nil || address == "" {
			return nil, fmt.Errorf("%w: peer %q", ErrInvalidEndpoint, dest)
		}
		key := loc.String()
		if _, dup := peers[key]; dup {
			return nil, fmt.Errorf("%w: peer %s listed twice", ErrInvalidEndpoint, key)
		}
		peers[key] = address
	}
	return peers, nil
}
