// Package config loads relay configuration from YAML.
//
// Resolution order: YAML file (with ${VAR} expansion), then RELAY_* environment
// overrides, then defaults for anything still unset. LoadAndValidate is the
// entry point used by the binaries.
package config
