// Package config loads, normalizes, and validates Reelsmith configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as OPENAI_API_KEY and PEXELS_API_KEY. The Config type
// centralizes every knob the daemon and CLI need, including the render
// defaults merged into each submitted job.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical provider names, and clear validation errors.
package config
