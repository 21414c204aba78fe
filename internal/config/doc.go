// Package config loads and validates the orchestrator configuration.
//
// Configuration is YAML with two conveniences: ${VAR} references are
// expanded from the environment before parsing, and duration fields are
// written as Go duration strings ("30s", "24h") and parsed after unmarshal.
//
// Default() supplies a complete working configuration so the orchestrator
// can be embedded in-process without a file; Load overlays a file on top of
// those defaults.
package config
