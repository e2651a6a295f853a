package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig = goerr.New("invalid configuration", goerr.ID("invalid_config"))
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
)
