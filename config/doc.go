// Package config handles application configuration loading and validation.
//
// Configuration is read from config.yml, overlaid with environment variables
// (optionally loaded from a .env file) and validated using struct tags.
package config
