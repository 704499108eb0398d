// Package config provides error definitions for configuration management
package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidAppName           = errors.New("invalid application name")
	ErrInvalidEnvironment       = errors.New("invalid environment")
	ErrInvalidLogLevel          = errors.New("invalid log level")
	ErrInvalidLogFormat         = errors.New("invalid log format")
	ErrInvalidUniversalLocation = errors.New("invalid universal location")
	ErrInvalidStrategy          = errors.New("invalid routing strategy")
	ErrInvalidExportEntry       = errors.New("invalid export table entry")
	ErrInvalidEndpoint          = errors.New("invalid transport endpoint")
	ErrInvalidWeight            = errors.New("invalid weight")
	ErrInvalidMaxInstructions   = errors.New("invalid max instructions")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrConfigParseError    = errors.New("configuration parse error")
	ErrEnvironmentVarError = errors.New("environment variable error")
	ErrConfigWatchError    = errors.New("configuration watch error")
)
