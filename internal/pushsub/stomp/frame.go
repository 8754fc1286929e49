package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Client and server commands used by the transport.
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdDisconnect  = "DISCONNECT"
	CmdMessage     = "MESSAGE"
	CmdReceipt     = "RECEIPT"
	CmdError       = "ERROR"
)

// ErrMalformedFrame is returned by Decode for data that is not a STOMP frame.
var ErrMalformedFrame = errors.New("malformed stomp frame")

// Header is one frame header. Order is preserved on the wire.
type Header struct {
	Key   string
	Value string
}

// Frame is a single STOMP 1.2 frame. A zero Command denotes a heart-beat.
type Frame struct {
	Command string
	Headers []Header
	Body    []byte
}

// NewFrame builds a frame from alternating key/value pairs.
func NewFrame(command string, kv ...string) Frame {
	f := Frame{Command: command}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Headers = append(f.Headers, Header{Key: kv[i], Value: kv[i+1]})
	}
	return f
}

// Get returns the first value of key. Repeated headers resolve to the first occurrence.
func (f Frame) Get(key string) string {
	for _, h := range f.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}

// IsHeartBeat reports whether the frame is an EOL-only keep-alive.
func (f Frame) IsHeartBeat() bool {
	return f.Command == ""
}

// CONNECT and CONNECTED headers are never escaped.
func escapes(command string) bool {
	return command != CmdConnect && command != CmdConnected
}

var (
	escaper   = strings.NewReplacer("\\", "\\\\", "\r", "\\r", "\n", "\\n", ":", "\\c")
	unescaper = strings.NewReplacer("\\\\", "\\", "\\r", "\r", "\\n", "\n", "\\c", ":")
)

// Encode serializes the frame including the trailing NUL.
func (f Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')
	esc := escapes(f.Command)
	for _, h := range f.Headers {
		k, v := h.Key, h.Value
		if esc {
			k, v = escaper.Replace(k), escaper.Replace(v)
		}
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	if len(f.Body) > 0 {
		buf.WriteString("content-length:")
		buf.WriteString(strconv.Itoa(len(f.Body)))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Decode parses one frame. Data consisting only of EOLs decodes to a heart-beat.
func Decode(data []byte) (Frame, error) {
	data = bytes.TrimLeft(data, "\r\n")
	if len(data) == 0 {
		return Frame{}, nil
	}

	end := bytes.Index(data, []byte("\n\n"))
	sep := 2
	if crlf := bytes.Index(data, []byte("\r\n\r\n")); crlf >= 0 && (end < 0 || crlf < end) {
		end, sep = crlf, 4
	}
	if end < 0 {
		return Frame{}, fmt.Errorf("%w: missing header terminator", ErrMalformedFrame)
	}

	lines := strings.Split(strings.ReplaceAll(string(data[:end]), "\r\n", "\n"), "\n")
	f := Frame{Command: lines[0]}
	if f.Command == "" {
		return Frame{}, fmt.Errorf("%w: empty command", ErrMalformedFrame)
	}
	esc := escapes(f.Command)
	for _, line := range lines[1:] {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return Frame{}, fmt.Errorf("%w: header %q", ErrMalformedFrame, line)
		}
		if esc {
			k, v = unescaper.Replace(k), unescaper.Replace(v)
		}
		f.Headers = append(f.Headers, Header{Key: k, Value: v})
	}

	body := data[end+sep:]
	if cl := f.Get("content-length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 || n > len(body) {
			return Frame{}, fmt.Errorf("%w: content-length %q", ErrMalformedFrame, cl)
		}
		body = body[:n]
	} else if i := bytes.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	} else {
		return Frame{}, fmt.Errorf("%w: missing NUL terminator", ErrMalformedFrame)
	}
	if len(body) > 0 {
		f.Body = append([]byte(nil), body...)
	}
	return f, nil
}
