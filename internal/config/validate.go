package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateNodeConfig(&config.Node)...)
	errs = append(errs, validateStorageConfig(&config.Storage)...)
	errs = append(errs, validateRaftConfig(&config.Raft)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)

	return errs
}

// validateNodeConfig validates the node address and peer list.
func validateNodeConfig(config *NodeConfig) []error {
	var errs []error

	if config.Address == "" {
		errs = append(errs, ValidationError{
			Field:   "node.address",
			Message: "is required",
		})
	} else if err := validateAddress(config.Address); err != nil {
		errs = append(errs, ValidationError{
			Field:   "node.address",
			Message: err.Error(),
		})
	}

	seen := make(map[string]bool, len(config.Peers))
	for i, peer := range config.Peers {
		field := fmt.Sprintf("node.peers[%d]", i)
		if err := validateAddress(peer); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
			continue
		}
		if seen[peer] {
			errs = append(errs, ValidationError{Field: field, Message: "duplicate peer " + peer})
		}
		seen[peer] = true
	}

	return errs
}

// validateStorageConfig validates storage configuration.
func validateStorageConfig(config *StorageConfig) []error {
	var errs []error

	switch config.Backend {
	case BackendBolt:
		if config.DataDir == "" {
			errs = append(errs, ValidationError{
				Field:   "storage.dataDir",
				Message: "is required for the bolt backend",
			})
		}
	case BackendMemory:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: "must be bolt or memory",
		})
	}

	if config.Partitions <= 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.partitions",
			Message: "must be positive",
		})
	}

	return errs
}

// validateRaftConfig validates consensus timing.
func validateRaftConfig(config *RaftConfig) []error {
	var errs []error

	if config.ElectionTimeoutMin <= 0 {
		errs = append(errs, ValidationError{
			Field:   "raft.electionTimeoutMin",
			Message: "must be positive",
		})
	}
	if config.ElectionTimeoutMax < config.ElectionTimeoutMin {
		errs = append(errs, ValidationError{
			Field:   "raft.electionTimeoutMax",
			Message: "must not be less than electionTimeoutMin",
		})
	}
	if config.HeartbeatInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "raft.heartbeatInterval",
			Message: "must be positive",
		})
	} else if config.HeartbeatInterval >= config.ElectionTimeoutMin {
		errs = append(errs, ValidationError{
			Field:   "raft.heartbeatInterval",
			Message: "must be less than electionTimeoutMin",
		})
	}
	if config.DialTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "raft.dialTimeout",
			Message: "must be positive",
		})
	}

	return errs
}

// validateLogConfig validates logging configuration.
func validateLogConfig(config *LogConfig) []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}

// validateAddress validates a network address in host:port format.
func validateAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %v", err)
	}
	if port == "" {
		return fmt.Errorf("port is required")
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
