// subwire-cli streams messages from a RESP pub/sub server.
//
// Usage:
//
//	subwire-cli subscribe orders invoices
//	subwire-cli --prefix app: -o json psubscribe 'news.*'
//	subwire-cli publish orders created
//	subwire-cli repl
//
// Flags override ~/.subwire/cli.yaml and SUBWIRE_* environment variables.
package main
