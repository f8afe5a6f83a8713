// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration
// structure: server settings, logging, monitor interval, default circuit
// breaker tunables and named per-service breaker presets.
package config
