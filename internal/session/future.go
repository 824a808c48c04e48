package session

import "sync"

// Result is the outcome of one request: a response value or an error,
// never both.
type Result[T any] struct {
	Response *T
	Err      error
}

func (r Result[T]) Ok() bool { return r.Err == nil }

// Future is a write-once result cell. The producer is the session's receive
// loop (or its teardown path); the consumer is whichever goroutine issued
// the request. It resolves exactly once.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	res  Result[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(res Result[T]) {
	f.once.Do(func() {
		f.res = res
		close(f.done)
	})
}

// Wait blocks until the future resolves.
func (f *Future[T]) Wait() Result[T] {
	<-f.done
	return f.res
}

// Poll reports the result without blocking.
func (f *Future[T]) Poll() (Result[T], bool) {
	select {
	case <-f.done:
		return f.res, true
	default:
		return Result[T]{}, false
	}
}

// Done is closed when the future resolves; usable in select statements.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
