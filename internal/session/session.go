package session

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danmuck/duplex/internal/protocol"
	"github.com/danmuck/duplex/internal/protocol/codec"
	"github.com/danmuck/duplex/internal/protocol/frame"
	"github.com/danmuck/duplex/internal/protocol/schema"
	"github.com/danmuck/duplex/internal/protocol/value"
)

// State is the session lifecycle position. Transitions only move forward:
// Unbound -> Bound -> Closing -> Closed.
type State int32

const (
	StateUnbound State = iota
	StateBound
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Session is one endpoint of the duplex protocol. Any number of goroutines
// may send concurrently; exactly one receive loop runs per bound session.
// Handlers execute on the receive loop, so a handler that blocks stalls all
// further inbound processing for this session. Handlers needing long work
// must hand off internally.
type Session struct {
	id    string
	cfg   Config
	log   zerolog.Logger
	codec codec.Codec

	state atomic.Int32
	seq   atomic.Uint64

	mu      sync.Mutex // guards bind, closers and onErr
	onErr   func(error)
	closers []io.Closer

	writeMu sync.Mutex // serializes encode+write of one envelope
	fw      *frame.Writer
	fr      *frame.Reader

	pending  *pendingTable
	handlers *handlerRegistry

	closeOnce sync.Once
	done      chan struct{}
}

// New creates an unbound session. Handlers may be registered immediately;
// sends fail until Bind.
func New(cfg Config) (*Session, error) {
	c, err := cfg.codec()
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		cfg:      cfg,
		log:      cfg.Logger.With().Str("session", id).Logger(),
		codec:    c,
		pending:  newPendingTable(),
		handlers: newHandlerRegistry(),
		done:     make(chan struct{}),
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	return State(s.state.Load())
}

// OnError registers the callback invoked on decode failures, transport
// failures and sends attempted while unbound or closed. Replaces any
// previous callback.
func (s *Session) OnError(fn func(error)) {
	s.mu.Lock()
	s.onErr = fn
	s.mu.Unlock()
}

// Bind attaches the session to its transport streams and starts the receive
// loop. Streams that also implement io.Closer are closed at teardown, which
// is what unblocks the receive loop when Close is called first.
func (s *Session) Bind(r io.Reader, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.State() {
	case StateBound:
		return ErrAlreadyBound
	case StateClosing, StateClosed:
		return ErrClosed
	}

	limits := s.cfg.limits()
	s.fr = frame.NewReader(r, limits)
	s.fw = frame.NewWriter(w, limits)
	if c, ok := r.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	if c, ok := w.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}

	s.state.Store(int32(StateBound))
	s.log.Debug().Msg("session bound")
	go s.recvLoop()
	return nil
}

// Close cancels every outstanding request with a synthetic error, stops the
// receive loop and releases the transport. Idempotent.
func (s *Session) Close() error {
	s.teardown("session closed")
	return nil
}

// Done is closed when the receive loop exits. It never closes for a session
// that was never bound.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) teardown(reason string) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		if n := s.pending.cancelAll(reason); n > 0 {
			s.log.Debug().Int("cancelled", n).Str("reason", reason).Msg("cancelled pending requests")
		}
		s.mu.Lock()
		closers := s.closers
		s.closers = nil
		s.mu.Unlock()
		for _, c := range closers {
			_ = c.Close()
		}
		s.state.Store(int32(StateClosed))
		s.log.Debug().Str("reason", reason).Msg("session closed")
	})
}

func (s *Session) failTransport(err error) {
	s.reportError(fmt.Errorf("session: transport failure: %w", err))
	s.teardown("transport failure: " + err.Error())
}

func (s *Session) reportError(err error) {
	s.log.Debug().Err(err).Msg("session error")
	s.mu.Lock()
	fn := s.onErr
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func stateErr(st State) error {
	if st == StateUnbound {
		return ErrUnbound
	}
	return ErrClosed
}

// nextSeq allocates the next session-wide sequence number. Strictly
// positive, never reused, one per outgoing message of any kind.
func (s *Session) nextSeq() uint64 {
	return s.seq.Add(1)
}

// writeEnvelope encodes and writes one envelope. Encode and write are held
// under one lock so concurrent senders interleave at message granularity
// only.
func (s *Session) writeEnvelope(env protocol.Envelope) error {
	v, err := env.Encode()
	if err != nil {
		return err
	}
	data, err := s.codec.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.fw.WriteFrame(data)
}

// sendRequest registers the pending entry first, then writes. Registration
// must precede the write: a fast loopback peer can respond before the
// sender's call stack unwinds. The state check alone cannot exclude
// teardown — it can finish cancelAll between the check and registration —
// so the pending table refuses registrations once closed, keeping the
// failure on this call path instead of stranding an entry nothing will
// ever resolve.
func (s *Session) sendRequest(discriminator string, body value.Value, fulfill func(outcome)) error {
	if st := s.State(); st != StateBound {
		return stateErr(st)
	}
	seq := s.nextSeq()
	if err := s.pending.register(seq, fulfill); err != nil {
		if errors.Is(err, ErrClosed) {
			return err
		}
		// Unreachable while sequence numbers come from the atomic
		// allocator; a duplicate means corrupted internal state.
		panic(err)
	}
	env := protocol.Envelope{
		Seq:           seq,
		Kind:          protocol.KindRequest,
		Discriminator: discriminator,
		Body:          body,
	}
	if err := s.writeEnvelope(env); err != nil {
		s.failTransport(err)
		return err
	}
	return nil
}

func (s *Session) sendEvent(discriminator string, body value.Value) error {
	if st := s.State(); st != StateBound {
		return stateErr(st)
	}
	env := protocol.Envelope{
		Seq:           s.nextSeq(),
		Kind:          protocol.KindEvent,
		Discriminator: discriminator,
		Body:          body,
	}
	if err := s.writeEnvelope(env); err != nil {
		s.failTransport(err)
		return err
	}
	return nil
}

// recvLoop is the single reader of the inbound stream. Individual malformed
// messages are reported and skipped; stream-level failures end the session.
func (s *Session) recvLoop() {
	defer close(s.done)
	for {
		payload, err := s.fr.ReadFrame()
		if err != nil {
			if s.State() != StateBound {
				// Deliberate teardown closed the transport under us.
				return
			}
			if errors.Is(err, io.EOF) {
				s.log.Debug().Msg("peer closed the stream")
				s.teardown("connection closed")
				return
			}
			s.failTransport(err)
			return
		}

		v, err := s.codec.Unmarshal(payload)
		if err != nil {
			s.reportError(err)
			continue
		}
		env, err := protocol.DecodeEnvelope(v)
		if err != nil {
			s.reportError(err)
			continue
		}
		s.dispatch(env)
	}
}

func (s *Session) dispatch(env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindResponse:
		out := outcome{body: env.Body, success: env.Success, errMsg: env.ErrorMessage}
		if !s.pending.fulfill(env.RequestSeq, out) {
			s.log.Debug().
				Uint64("request_seq", env.RequestSeq).
				Str("command", env.Discriminator).
				Msg("dropping response with no pending request")
		}
	case protocol.KindRequest:
		s.dispatchRequest(env)
	case protocol.KindEvent:
		s.dispatchEvent(env)
	}
}

// dispatchRequest runs the handler synchronously on the receive loop and
// writes the reply before the next message is read.
func (s *Session) dispatchRequest(env protocol.Envelope) {
	entry, ok := s.handlers.lookupRequest(env.Discriminator)
	if !ok {
		s.sendResponse(env, value.Absent(), false, fmt.Sprintf("no handler registered for %q", env.Discriminator))
		return
	}

	respBody, resp, err := entry.handle(env.Body)
	if err != nil {
		if isDecodeFailure(err) {
			s.reportError(err)
		}
		s.sendResponse(env, value.Absent(), false, err.Error())
	} else {
		s.sendResponse(env, respBody, true, "")
	}
	if sentFn, ok := s.handlers.lookupSent(env.Discriminator); ok {
		sentFn(resp, err)
	}
}

func (s *Session) dispatchEvent(env protocol.Envelope) {
	entry, ok := s.handlers.lookupEvent(env.Discriminator)
	if !ok {
		// Peers routinely emit events the other side does not care about.
		s.log.Debug().Str("event", env.Discriminator).Msg("dropping unhandled event")
		return
	}
	if err := entry.handle(env.Body); err != nil {
		s.reportError(err)
	}
}

func (s *Session) sendResponse(req protocol.Envelope, body value.Value, success bool, errMsg string) {
	env := protocol.Envelope{
		Seq:           s.nextSeq(),
		Kind:          protocol.KindResponse,
		Discriminator: req.Discriminator,
		RequestSeq:    req.Seq,
		Success:       success,
		ErrorMessage:  errMsg,
		Body:          body,
	}
	if err := s.writeEnvelope(env); err != nil {
		s.failTransport(err)
	}
}

// isDecodeFailure distinguishes a request body the peer sent malformed from
// an error the handler chose to return; only the former is a local fault
// worth reporting through OnError.
func isDecodeFailure(err error) bool {
	var de *schema.DecodeError
	return errors.As(err, &de) || errors.Is(err, schema.ErrBodyNotObject)
}
