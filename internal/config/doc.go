// Package config loads the tracked-image configuration file.
//
// The file is JSON or YAML, selected by extension. Each image entry is
// validated and its version regex is compiled and safety-checked once, so the
// update path only ever reads the resulting pattern table.
package config
