package session

import (
	"sync"

	"github.com/danmuck/duplex/internal/protocol/value"
)

// outcome is what reaches a pending request: the raw response body when the
// peer succeeded, or an error message otherwise. Decoding into the typed
// response happens in the per-request fulfill closure, which knows the type.
type outcome struct {
	body    value.Value
	success bool
	errMsg  string
}

// pendingTable tracks requests awaiting a response, keyed by the sequence
// number the request went out with. Each entry is delivered to exactly once:
// fulfill and cancelAll both remove before invoking. cancelAll is terminal —
// it marks the table closed under the same lock, so a sender that lost the
// race against teardown has its registration refused rather than stranded
// with no receive loop left to resolve it.
type pendingTable struct {
	mu      sync.Mutex
	entries map[uint64]func(outcome)
	closed  bool
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[uint64]func(outcome))}
}

func (t *pendingTable) register(seq uint64, fulfill func(outcome)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if _, exists := t.entries[seq]; exists {
		return ErrDuplicateSequence
	}
	t.entries[seq] = fulfill
	return nil
}

// fulfill removes and satisfies the entry for requestSeq. It reports false
// when no entry exists, which the caller treats as a stale or unsolicited
// response to drop.
func (t *pendingTable) fulfill(requestSeq uint64, out outcome) bool {
	t.mu.Lock()
	fn, ok := t.entries[requestSeq]
	if ok {
		delete(t.entries, requestSeq)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	fn(out)
	return true
}

// cancelAll closes the table and drains it, fulfilling every remaining
// entry with an error carrying reason. Safe to call repeatedly; later calls
// find an empty table. Returns how many entries were cancelled.
func (t *pendingTable) cancelAll(reason string) int {
	t.mu.Lock()
	t.closed = true
	drained := make([]func(outcome), 0, len(t.entries))
	for seq, fn := range t.entries {
		drained = append(drained, fn)
		delete(t.entries, seq)
	}
	t.mu.Unlock()

	for _, fn := range drained {
		fn(outcome{success: false, errMsg: reason})
	}
	return len(drained)
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
