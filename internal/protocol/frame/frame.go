// Package frame delimits messages on a byte stream using Content-Length
// headers, the framing used by debug-adapter and language-server transports.
// The payload bytes are opaque; interpretation belongs to protocol/codec.
package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrMalformedHeader = errors.New("frame: malformed header")
	ErrMissingLength   = errors.New("frame: missing Content-Length header")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrTruncated       = errors.New("frame: truncated frame")
)

const headerContentLength = "content-length"

// maxHeaderBytes bounds the whole header block of one frame. Header lines
// are read through the bufio buffer, so a single line is additionally capped
// at the buffer size; both caps keep a malicious peer from growing memory
// without ever announcing a payload length.
const maxHeaderBytes = 16 * 1024

// Limits constrains frame decode memory use.
type Limits struct {
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 8 * 1024 * 1024}
}

// Reader extracts one payload per ReadFrame call. It buffers the underlying
// stream, so nothing else may read from r once a Reader wraps it.
type Reader struct {
	br     *bufio.Reader
	limits Limits
}

func NewReader(r io.Reader, limits Limits) *Reader {
	return &Reader{br: bufio.NewReader(r), limits: limits}
}

// ReadFrame reads the header block and the payload it announces. A clean
// end of stream before any header byte returns io.EOF unchanged; end of
// stream inside a frame is ErrTruncated.
func (r *Reader) ReadFrame() ([]byte, error) {
	length, haveLength := uint64(0), false
	headerBytes := 0
	first := true
	for {
		line, err := r.readHeaderLine(first)
		if err != nil {
			return nil, err
		}
		first = false
		if headerBytes += len(line) + 2; headerBytes > maxHeaderBytes {
			return nil, fmt.Errorf("%w: header block exceeds %d bytes", ErrMalformedHeader, maxHeaderBytes)
		}
		if line == "" {
			break
		}
		name, val, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		if strings.ToLower(strings.TrimSpace(name)) != headerContentLength {
			// Unknown headers (e.g. Content-Type) are skipped.
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad Content-Length %q", ErrMalformedHeader, strings.TrimSpace(val))
		}
		length, haveLength = n, true
	}
	if !haveLength {
		return nil, ErrMissingLength
	}
	if length > r.limits.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return payload, nil
}

// readHeaderLine reads one header line through the bufio buffer. ReadSlice
// caps the line at the buffer size, so an endless line fails instead of
// accumulating.
func (r *Reader) readHeaderLine(first bool) (string, error) {
	line, err := r.br.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return "", fmt.Errorf("%w: header line too long", ErrMalformedHeader)
		}
		if errors.Is(err, io.EOF) && len(line) == 0 && first {
			return "", io.EOF
		}
		if errors.Is(err, io.EOF) {
			return "", ErrTruncated
		}
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// Writer frames payloads onto the underlying stream. Callers serialize
// access; a Writer performs no locking of its own.
type Writer struct {
	w      io.Writer
	limits Limits
}

func NewWriter(w io.Writer, limits Limits) *Writer {
	return &Writer{w: w, limits: limits}
}

// WriteFrame emits the header block and payload as a single Write so
// message boundaries survive write-interleaving-sensitive transports.
func (w *Writer) WriteFrame(payload []byte) error {
	if uint64(len(payload)) > w.limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(payload))
	buf := make([]byte, 0, len(header)+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	_, err := w.w.Write(buf)
	return err
}
