// Package config loads, validates and normalizes the euphony TOML
// configuration, including per-library tracked-file lists and the per-album
// override file.
package config
