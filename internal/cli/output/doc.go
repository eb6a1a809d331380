// Package output formats command results and streamed messages for the
// subwire CLI.
//
//   - formatter.go: Formatter interface, format parsing
//   - table.go: aligned tables built from structs, slices and maps
//   - json.go, yaml.go: machine-readable output
//   - stream.go: one entry per received message, flushed as it arrives
package output
