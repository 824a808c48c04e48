// Package transport supplies byte streams for sessions to bind: an
// in-process duplex pipe for loopback pairs, and TCP helpers with dial
// retry. Sessions only ever see io.Reader/io.Writer.
package transport

import (
	"errors"
	"io"
	"sync"
)

var ErrPipeClosed = errors.New("transport: pipe closed")

// Pipe returns the two endpoints of an in-process duplex byte stream.
// Writes to one endpoint are buffered until read from the other, so a
// writer never blocks waiting for the peer's reader. Closing either
// endpoint unblocks both directions.
func Pipe() (a, b io.ReadWriteCloser) {
	ab := newBuffer()
	ba := newBuffer()
	return &pipeEnd{r: ba, w: ab}, &pipeEnd{r: ab, w: ba}
}

type pipeEnd struct {
	r *buffer
	w *buffer
}

func (p *pipeEnd) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeEnd) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *pipeEnd) Close() error {
	p.r.Close()
	p.w.Close()
	return nil
}

// buffer is one direction of the pipe: an unbounded byte queue with
// blocking reads.
type buffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   []byte
	closed bool
}

func newBuffer() *buffer {
	b := &buffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.data) == 0 {
		if b.closed {
			return 0, io.EOF
		}
		b.cond.Wait()
	}
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

func (b *buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrPipeClosed
	}
	b.data = append(b.data, p...)
	b.cond.Broadcast()
	return len(p), nil
}

func (b *buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
