// Package config defines the attention monitor settings and provides helpers
// to load, validate and save them in YAML format.
//
// Values come from the YAML file, then ATTENTION_* environment variables
// (optionally seeded from a .env file), then command-line options.
package config
