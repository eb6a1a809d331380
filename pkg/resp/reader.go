package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Protocol limits to keep a misbehaving peer from exhausting memory.
const (
	// MaxArrayLen limits the number of elements in a RESP array.
	MaxArrayLen = 1024 * 1024

	// MaxBulkLen limits the size of a single bulk string (512MB, the server's own limit).
	MaxBulkLen = 512 * 1024 * 1024

	// MaxLineLen limits header, simple string and error line length.
	MaxLineLen = 64 * 1024

	// MaxDepth limits array nesting.
	MaxDepth = 16
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// Kind identifies the type of a decoded reply.
type Kind uint8

const (
	KindNull Kind = iota
	KindSimple
	KindError
	KindInteger
	KindBulk
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindSimple:
		return "simple"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is one decoded reply.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Array []Value
}

// Text returns the scalar content of v as a string. Integers are
// formatted in base 10; null and arrays yield "".
func (v Value) Text() string {
	switch v.Kind {
	case KindSimple, KindError, KindBulk:
		return v.Str
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	default:
		return ""
	}
}

// IsNull reports whether v is a null bulk string or null array.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Reader decodes replies from a byte stream. Reads may be split or merged
// arbitrarily by the underlying io.Reader; the bufio layer reassembles them.
type Reader struct {
	br *bufio.Reader
}

// NewReader creates a Reader on top of r.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{br: br}
	}
	return &Reader{br: bufio.NewReader(r)}
}

// ReadValue reads one complete reply.
func (r *Reader) ReadValue() (Value, error) {
	return r.readValue(0)
}

func (r *Reader) readValue(depth int) (Value, error) {
	line, err := readLine(r.br, MaxLineLen)
	if err != nil {
		return Value{}, err
	}
	if len(line) == 0 {
		return Value{}, fmt.Errorf("%w: empty line", ErrProtocol)
	}

	switch line[0] {
	case '+':
		return Value{Kind: KindSimple, Str: line[1:]}, nil
	case '-':
		return Value{Kind: KindError, Str: line[1:]}, nil
	case ':':
		n, err := strconv.ParseInt(line[1:], 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: invalid integer", ErrProtocol)
		}
		return Value{Kind: KindInteger, Int: n}, nil
	case '$':
		return r.readBulk(line)
	case '*', '>':
		return r.readArray(line, depth)
	default:
		return Value{}, fmt.Errorf("%w: unexpected type byte %q", ErrProtocol, line[0])
	}
}

func (r *Reader) readBulk(header string) (Value, error) {
	n, err := strconv.Atoi(header[1:])
	if err != nil {
		return Value{}, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
	}
	if n == -1 {
		return Value{Kind: KindNull}, nil
	}
	if n < 0 {
		return Value{}, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
	}
	if n > MaxBulkLen {
		return Value{}, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return Value{}, unexpectedEOF(err)
	}
	if !bytes.HasSuffix(buf, []byte(CRLF)) {
		return Value{}, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	return Value{Kind: KindBulk, Str: string(buf[:n])}, nil
}

func (r *Reader) readArray(header string, depth int) (Value, error) {
	if depth >= MaxDepth {
		return Value{}, fmt.Errorf("%w: array nesting exceeds %d", ErrLimitExceeded, MaxDepth)
	}
	n, err := strconv.Atoi(header[1:])
	if err != nil {
		return Value{}, fmt.Errorf("%w: invalid array length", ErrProtocol)
	}
	if n == -1 {
		return Value{Kind: KindNull}, nil
	}
	if n < 0 {
		return Value{}, fmt.Errorf("%w: invalid array length", ErrProtocol)
	}
	if n > MaxArrayLen {
		return Value{}, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	elems := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := r.readValue(depth + 1)
		if err != nil {
			return Value{}, unexpectedEOF(err)
		}
		elems = append(elems, v)
	}
	return Value{Kind: KindArray, Array: elems}, nil
}

// readLine reads a CRLF-terminated line and returns it without the terminator.
func readLine(r *bufio.Reader, maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > maxLen {
				return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
			}
			continue
		}
		if len(buf) > 0 || len(frag) > 0 {
			return "", unexpectedEOF(err)
		}
		return "", err
	}

	if len(buf) > maxLen {
		return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
	}
	if len(buf) < 2 || !bytes.HasSuffix(buf, []byte(CRLF)) {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(buf[:len(buf)-2]), nil
}

// unexpectedEOF converts a clean EOF in the middle of a reply into
// io.ErrUnexpectedEOF so callers can tell truncation from a clean close.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
