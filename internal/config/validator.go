package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Steins-Lab/LLOneBot/internal/errors"
	"github.com/Steins-Lab/LLOneBot/internal/logging"
	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() errors.ValidationErrors {
	var errs errors.ValidationErrors

	errs = append(errs, c.validateBridge()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

// validateBridge validates the BridgeConfig
func (c *Config) validateBridge() errors.ValidationErrors {
	var errs errors.ValidationErrors

	if c.Bridge.DefaultTimeoutMs <= 0 {
		errs = append(errs, errors.NewValidationError("must be positive").
			WithField("bridge.default_timeout_ms").
			WithValue(c.Bridge.DefaultTimeoutMs))
	}

	if !c.Bridge.Namespace().Valid() {
		errs = append(errs, errors.NewValidationError(
			fmt.Sprintf("must be one of: %s", joinNamespaces())).
			WithField("bridge.default_namespace").
			WithValue(c.Bridge.DefaultNamespace))
	}

	if !c.Bridge.Channel().Valid() {
		errs = append(errs, errors.NewValidationError(
			fmt.Sprintf("must be one of: %s", joinChannels())).
			WithField("bridge.default_channel").
			WithValue(c.Bridge.DefaultChannel))
	}

	if c.Bridge.QueueSize < 1 {
		errs = append(errs, errors.NewValidationError("must be at least 1").
			WithField("bridge.queue_size").
			WithValue(c.Bridge.QueueSize))
	}

	return errs
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() errors.ValidationErrors {
	var errs errors.ValidationErrors

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(logging.ValidLevels(), strings.ToUpper(c.Logging.Level)) {
		errs = append(errs, errors.NewValidationError(
			fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", "))).
			WithField("logging.level").
			WithValue(c.Logging.Level))
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, errors.NewValidationError("must be positive").
			WithField("logging.max_size_mb").
			WithValue(c.Logging.MaxSizeMB))
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errs = append(errs, errors.NewValidationError(
			fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB)).
			WithField("logging.max_size_mb").
			WithValue(c.Logging.MaxSizeMB))
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errs = append(errs, errors.NewValidationError("must be non-negative").
			WithField("logging.max_backups").
			WithValue(c.Logging.MaxBackups))
	}

	return errs
}

func joinNamespaces() string {
	names := make([]string, 0, len(ntcall.Namespaces()))
	for _, ns := range ntcall.Namespaces() {
		names = append(names, string(ns))
	}
	return strings.Join(names, ", ")
}

func joinChannels() string {
	names := make([]string, 0, len(ntcall.Channels()))
	for _, ch := range ntcall.Channels() {
		names = append(names, string(ch))
	}
	return strings.Join(names, ", ")
}
