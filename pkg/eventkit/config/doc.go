// Package config provides configuration loading for eventkit
// applications: a typed map wrapper, YAML/JSON file loading, and
// extraction of event bus wiring settings.
package config
