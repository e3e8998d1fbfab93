package ingestion

import (
	"context"
	"errors"

	"YieldVault/internal/core"
)

// ErrQueueClosed is returned by Submit after the engine loop has exited.
var ErrQueueClosed = errors.New("command queue closed")

// Command is one unit of work for the engine goroutine.
type Command struct {
	Name string
	Run  func(eng *core.Engine) error
	done chan error
}

// CommandQueue serializes every engine call onto one goroutine. The
// gRPC/HTTP server, the NATS callback processor and the snapshot ticker
// all submit here.
type CommandQueue struct {
	ch     chan Command
	closed chan struct{}
}

func NewCommandQueue(size int) *CommandQueue {
	return &CommandQueue{
		ch:     make(chan Command, size),
		closed: make(chan struct{}),
	}
}

// Submit queues fn and waits for it to run. If ctx ends while fn is still
// queued the call is abandoned; once started it always runs to completion.
func (q *CommandQueue) Submit(ctx context.Context, name string, fn func(eng *core.Engine) error) error {
	cmd := Command{Name: name, Run: fn, done: make(chan error, 1)}

	select {
	case q.ch <- cmd:
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.done:
		return err
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes commands until ctx ends. It must be the only goroutine
// touching eng.
func (q *CommandQueue) Run(ctx context.Context, eng *core.Engine) {
	defer close(q.closed)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-q.ch:
			cmd.done <- cmd.Run(eng)
		}
	}
}

// Len returns the number of queued commands.
func (q *CommandQueue) Len() int {
	return len(q.ch)
}
