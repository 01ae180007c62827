// Package connset tracks spawned connection tasks so the server can wait for
// every one of them to finish.
package connset

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/eapache/queue"
	uuid "github.com/satori/go.uuid"
)

// JoinError reports a task that panicked instead of returning.
type JoinError struct {
	ID    uuid.UUID
	Value any
	Stack []byte
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("connset: task %s panicked: %v", e.ID, e.Value)
}

// Result is the outcome of one finished task.
type Result struct {
	ID   uuid.UUID
	Peer string
	Err  error
}

type task struct {
	peer string
	conn io.Closer
}

// Set is a registry of live tasks plus a FIFO of finished ones.
type Set struct {
	mu   sync.Mutex
	live map[uuid.UUID]*task
	done *queue.Queue
	wake chan struct{}
}

// New creates an empty Set.
func New() *Set {
	return &Set{
		live: make(map[uuid.UUID]*task),
		done: queue.New(),
		wake: make(chan struct{}),
	}
}

// Go registers a task and runs fn in its own goroutine. conn is closed by
// CloseAll and may be nil.
func (s *Set) Go(id uuid.UUID, peer string, conn io.Closer, fn func() error) {
	s.mu.Lock()
	s.live[id] = &task{peer: peer, conn: conn}
	s.mu.Unlock()

	go func() {
		var err error
		defer func() {
			if v := recover(); v != nil {
				err = &JoinError{ID: id, Value: v, Stack: debug.Stack()}
			}
			s.finish(Result{ID: id, Peer: peer, Err: err})
		}()
		err = fn()
	}()
}

func (s *Set) finish(r Result) {
	s.mu.Lock()
	delete(s.live, r.ID)
	s.done.Add(r)
	close(s.wake)
	s.wake = make(chan struct{})
	s.mu.Unlock()
}

// JoinNext waits for the next task to finish and returns its result. It
// returns false once the set is empty or ctx is done.
func (s *Set) JoinNext(ctx context.Context) (Result, bool) {
	for {
		s.mu.Lock()
		if s.done.Length() > 0 {
			r := s.done.Remove().(Result)
			s.mu.Unlock()
			return r, true
		}
		if len(s.live) == 0 {
			s.mu.Unlock()
			return Result{}, false
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return Result{}, false
		}
	}
}

// Len returns the number of tasks still running.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// CloseAll closes the connection of every live task. Tasks are expected to
// notice the closed connection and return.
func (s *Set) CloseAll() {
	s.mu.Lock()
	conns := make([]io.Closer, 0, len(s.live))
	for _, t := range s.live {
		if t.conn != nil {
			conns = append(conns, t.conn)
		}
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
