// Package shutdown provides a fire-once broadcast signal observed by any
// number of independently scheduled receivers.
//
// Every Send closes the current wake channel and installs a fresh one, so all
// goroutines selecting on Receiver.Ready wake up together. Receivers keep their
// own cursor into the sequence of sends; nothing is shared between them except
// the immutable state snapshot held by the Broadcaster.
package shutdown

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrClosed is returned once the broadcaster was closed and the receiver
	// has consumed every signal sent before that.
	ErrClosed = errors.New("shutdown: broadcaster closed")

	// ErrEmpty is returned by TryRecv when no signal is pending.
	ErrEmpty = errors.New("shutdown: no signal pending")
)

// LaggedError reports that a receiver fell behind the retained window and
// missed Skipped signals.
type LaggedError struct {
	Skipped uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("shutdown: receiver lagged, skipped %d signal(s)", e.Skipped)
}

type state struct {
	sent   uint64
	closed bool
	wake   chan struct{}
}

// Broadcaster owns the shutdown signal.
type Broadcaster struct {
	capacity uint64
	st       atomic.Pointer[state]
}

// New creates a broadcaster retaining up to capacity unconsumed signals per
// receiver.
func New(capacity int) *Broadcaster {
	if capacity < 1 {
		capacity = 1
	}
	b := &Broadcaster{capacity: uint64(capacity)}
	b.st.Store(&state{wake: make(chan struct{})})
	return b
}

// Send delivers the signal to every receiver. It never blocks and succeeds
// with zero receivers.
func (b *Broadcaster) Send() error {
	for {
		cur := b.st.Load()
		if cur.closed {
			return ErrClosed
		}
		next := &state{sent: cur.sent + 1, wake: make(chan struct{})}
		if b.st.CompareAndSwap(cur, next) {
			close(cur.wake)
			return nil
		}
	}
}

// Close drops the broadcaster. Receivers still see signals sent before Close
// and get ErrClosed afterwards.
func (b *Broadcaster) Close() {
	for {
		cur := b.st.Load()
		if cur.closed {
			return
		}
		next := &state{sent: cur.sent, closed: true, wake: make(chan struct{})}
		if b.st.CompareAndSwap(cur, next) {
			close(cur.wake)
			close(next.wake)
			return
		}
	}
}

// Subscribe returns a receiver that observes signals sent after this call.
func (b *Broadcaster) Subscribe() *Receiver {
	return &Receiver{b: b, next: b.st.Load().sent}
}

// Receiver is a single observer of a Broadcaster. A Receiver is owned by one
// goroutine; use Resubscribe to hand a receiver to another goroutine.
type Receiver struct {
	b    *Broadcaster
	next uint64
}

// Resubscribe returns an independent receiver bound to the same broadcaster.
// It starts at r's unconsumed position, clamped to the retained window, so a
// signal r has not consumed yet is still delivered to it and it never starts
// lagged.
func (r *Receiver) Resubscribe() *Receiver {
	cur := r.b.st.Load()
	next := r.next
	if oldest := r.b.oldest(cur.sent); next < oldest {
		next = oldest
	}
	return &Receiver{b: r.b, next: next}
}

func (b *Broadcaster) oldest(sent uint64) uint64 {
	if sent > b.capacity {
		return sent - b.capacity
	}
	return 0
}

// Ready returns a channel that is closed once a receive would not block.
func (r *Receiver) Ready() <-chan struct{} {
	cur := r.b.st.Load()
	if cur.sent > r.next || cur.closed {
		return closedChan
	}
	return cur.wake
}

// TryRecv consumes one pending signal without blocking. It returns nil when a
// signal was observed, a *LaggedError when signals were missed, ErrClosed when
// the broadcaster is gone, and ErrEmpty when nothing is pending.
func (r *Receiver) TryRecv() error {
	cur := r.b.st.Load()
	if oldest := r.b.oldest(cur.sent); r.next < oldest {
		skipped := oldest - r.next
		r.next = oldest
		return &LaggedError{Skipped: skipped}
	}
	if r.next < cur.sent {
		r.next++
		return nil
	}
	if cur.closed {
		return ErrClosed
	}
	return ErrEmpty
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
