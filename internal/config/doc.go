// Package config loads, normalizes, and validates lotreel configuration.
//
// Configuration is TOML, defaulting to ~/.config/lotreel/config.toml with a
// project-local lotreel.toml fallback. Defaults live in defaults.go, path
// expansion and environment fallbacks in normalize.go, and structural checks
// in validate.go. Secrets (LLM API key, object storage credentials) are read
// from the environment, never persisted by this package.
package config
