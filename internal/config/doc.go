// Package config loads the application configuration. Values are layered:
// built-in defaults, then an optional YAML file, then PIPELINESTUDIO_*
// environment variables. Command-line flags are applied on top by the cli
// package before Validate is called.
package config
