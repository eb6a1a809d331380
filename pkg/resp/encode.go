package resp

import (
	"fmt"
	"strconv"
)

// CRLF terminates every RESP line.
const CRLF = "\r\n"

// InlinePing is the unframed liveness command.
const InlinePing = "PING" + CRLF

// Command is a verb plus its arguments. It is always encoded as an array
// of bulk strings.
type Command struct {
	Verb string
	Args []string
}

// NewCommand creates a command from a verb and its arguments.
func NewCommand(verb string, args ...string) Command {
	return Command{Verb: verb, Args: args}
}

// Values returns the command as the list of its wire elements.
func (c Command) Values() []string {
	out := make([]string, 0, len(c.Args)+1)
	out = append(out, c.Verb)
	return append(out, c.Args...)
}

// Encode returns the RESP encoding of v.
//
// The top-level string "ping" is encoded as the inline PING command rather
// than as a bulk string.
func Encode(v any) []byte {
	if s, ok := v.(string); ok && s == "ping" {
		return []byte(InlinePing)
	}
	return AppendValue(nil, v)
}

// AppendValue appends the RESP encoding of v to dst and returns the
// extended buffer. Nested arrays are encoded recursively. Values outside
// the grammar are rendered with fmt.Sprint as bulk strings.
func AppendValue(dst []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(dst, "$-1\r\n"...)
	case int:
		return appendInteger(dst, int64(x))
	case int8:
		return appendInteger(dst, int64(x))
	case int16:
		return appendInteger(dst, int64(x))
	case int32:
		return appendInteger(dst, int64(x))
	case int64:
		return appendInteger(dst, x)
	case uint:
		return appendUnsigned(dst, uint64(x))
	case uint8:
		return appendUnsigned(dst, uint64(x))
	case uint16:
		return appendUnsigned(dst, uint64(x))
	case uint32:
		return appendUnsigned(dst, uint64(x))
	case uint64:
		return appendUnsigned(dst, x)
	case string:
		return appendBulk(dst, x)
	case []byte:
		if x == nil {
			return append(dst, "$-1\r\n"...)
		}
		return appendBulk(dst, string(x))
	case Command:
		return AppendValue(dst, x.Values())
	case []string:
		dst = appendArrayHeader(dst, len(x))
		for _, s := range x {
			dst = appendBulk(dst, s)
		}
		return dst
	case []any:
		dst = appendArrayHeader(dst, len(x))
		for _, e := range x {
			dst = AppendValue(dst, e)
		}
		return dst
	default:
		return appendBulk(dst, fmt.Sprint(x))
	}
}

func appendInteger(dst []byte, n int64) []byte {
	dst = append(dst, ':')
	dst = strconv.AppendInt(dst, n, 10)
	return append(dst, CRLF...)
}

func appendUnsigned(dst []byte, n uint64) []byte {
	dst = append(dst, ':')
	dst = strconv.AppendUint(dst, n, 10)
	return append(dst, CRLF...)
}

func appendBulk(dst []byte, s string) []byte {
	dst = append(dst, '$')
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, CRLF...)
	dst = append(dst, s...)
	return append(dst, CRLF...)
}

func appendArrayHeader(dst []byte, n int) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, CRLF...)
}
