// Package config defines the subwire CLI configuration.
//
//   - spec.go: CLIConfig and its sections (~/.subwire/cli.yaml)
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: copies safe to print
//   - loader.go: layered loading through confloader, and saving
package config
