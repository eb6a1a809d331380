// Package resp implements the RESP2 wire format used by subwire.
//
// The package has two halves:
//
//   - encode.go: a pure, total encoder from Go values to RESP bytes
//   - reader.go: an incremental reply parser that tolerates arbitrarily
//     chunked input (partial or concatenated socket reads)
//
// Encoding table:
//
//	nil          $-1\r\n
//	integer N    :N\r\n
//	string S     $len(S)\r\nS\r\n
//	array        *N\r\n followed by each element
//	"ping"       PING\r\n (top-level inline command)
package resp
