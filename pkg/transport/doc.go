// Package transport owns the single socket a subscriber talks over.
//
// A Socket is the raw collaborator (all-or-nothing send, packet receive
// with timeout, close). Conn wraps one Socket with the Open -> Closed
// lifecycle and translates socket failures into *SocketError values.
//
// Timeouts are not failures: Recv returns ErrTimeout and the connection
// stays open. A peer close, an empty read or a read failure all surface
// as ErrClosed.
package transport
