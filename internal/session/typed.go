package session

import (
	"fmt"

	"github.com/danmuck/duplex/internal/protocol/schema"
	"github.com/danmuck/duplex/internal/protocol/value"
)

// The typed surface. Registration is explicit: the caller names the message
// type through its schema descriptor and the kind is implied by the helper,
// so dispatch never inspects handler signatures.

// Send issues a request and returns immediately with a future for its
// response. The future resolves exactly once: with the peer's typed
// response, with the peer's error message, or with a synthetic error if the
// session closes first. A send on an unbound or closed session resolves the
// future at once and reports through OnError; it never blocks.
func Send[Req, Resp any](s *Session, rt *schema.RequestType[Req, Resp], req *Req) *Future[Resp] {
	fut := newFuture[Resp]()
	discriminator := rt.Request.Discriminator()

	fulfill := func(out outcome) {
		if !out.success {
			fut.resolve(Result[Resp]{Err: &ResponseError{Message: out.errMsg}})
			return
		}
		resp, err := rt.Response.Decode(out.body)
		if err != nil {
			s.reportError(err)
			fut.resolve(Result[Resp]{Err: err})
			return
		}
		fut.resolve(Result[Resp]{Response: resp})
	}

	body, err := rt.Request.Encode(req)
	if err != nil {
		s.reportError(err)
		fut.resolve(Result[Resp]{Err: err})
		return fut
	}
	if err := s.sendRequest(discriminator, body, fulfill); err != nil {
		s.reportError(fmt.Errorf("send request %q: %w", discriminator, err))
		fut.resolve(Result[Resp]{Err: err})
	}
	return fut
}

// SendEvent fires a one-way event. Best-effort: failures are returned and
// also reported through OnError, and no reply ever arrives.
func SendEvent[E any](s *Session, et *schema.TypeInfo[E], ev *E) error {
	discriminator := et.Discriminator()
	body, err := et.Encode(ev)
	if err != nil {
		s.reportError(err)
		return err
	}
	if err := s.sendEvent(discriminator, body); err != nil {
		s.reportError(fmt.Errorf("send event %q: %w", discriminator, err))
		return err
	}
	return nil
}

// HandleRequest binds fn to inbound requests of rt's discriminator. fn runs
// on the receive loop; returning a non-nil error sends an error response
// carrying exactly that error's message.
func HandleRequest[Req, Resp any](s *Session, rt *schema.RequestType[Req, Resp], fn func(*Req) (*Resp, error)) error {
	return s.handlers.registerRequest(rt.Request.Discriminator(), &requestEntry{
		handle: func(body value.Value) (value.Value, any, error) {
			req, err := rt.Request.Decode(body)
			if err != nil {
				return value.Absent(), nil, err
			}
			resp, err := fn(req)
			if err != nil {
				return value.Absent(), nil, err
			}
			respBody, err := rt.Response.Encode(resp)
			if err != nil {
				return value.Absent(), nil, err
			}
			return respBody, resp, nil
		},
	})
}

// HandleEvent binds fn to inbound events of et's discriminator. No reply is
// generated; fn runs on the receive loop.
func HandleEvent[E any](s *Session, et *schema.TypeInfo[E], fn func(*E)) error {
	return s.handlers.registerEvent(et.Discriminator(), &eventEntry{
		handle: func(body value.Value) error {
			ev, err := et.Decode(body)
			if err != nil {
				return err
			}
			fn(ev)
			return nil
		},
	})
}

// HandleSent binds a post-send observer for rt: after a reply produced by
// this side's request handler has been written, fn sees the outcome. resp
// is nil exactly when err is non-nil. Fire-and-forget; it cannot alter
// protocol flow.
func HandleSent[Req, Resp any](s *Session, rt *schema.RequestType[Req, Resp], fn func(resp *Resp, err error)) error {
	return s.handlers.registerSent(rt.Request.Discriminator(), func(resp any, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		typed, ok := resp.(*Resp)
		if !ok {
			fn(nil, fmt.Errorf("%w: sent observer got %T", schema.ErrWrongGoType, resp))
			return
		}
		fn(typed, nil)
	})
}
