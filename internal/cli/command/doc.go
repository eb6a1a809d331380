// Package command defines the subwire-cli commands on urfave/cli/v2.
//
// Global flags override the config file and SUBWIRE_* environment
// variables. The root Before hook loads the configuration and the
// logger once; commands read them back with envFrom.
package command
