// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// After the file is parsed, RELAY_* environment variables override individual
// fields (RELAY_HOST, RELAY_PORT, RELAY_LOG_LEVEL, ...), so a relay can run
// with no file at all.
package config
