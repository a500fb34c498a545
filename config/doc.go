// Package config handles loading and parsing of configuration from YAML
// files and environment variables. It defines the application configuration
// structure including the ops server settings, breaker defaults,
// per-service breaker overrides and the monitor poll interval.
package config
