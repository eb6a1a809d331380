// Package confloader loads layered configuration with koanf and watches
// the config file for edits.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap / WithFlags)
//  2. Environment variables (SUBWIRE_ prefix)
//  3. The YAML config file
//  4. Defaults (WithDefaults)
package confloader
