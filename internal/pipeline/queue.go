// Package pipeline moves media from producers to the encoder: bounded
// chunk queues between reader and writer goroutines, the FIFO writers
// themselves, a per-frame processing hook, real-time pacing, and counters.
package pipeline

import (
	"context"
	"sync"
)

// Queue is a bounded FIFO of byte chunks between one producer and one
// consumer. Close marks the end of the stream.
type Queue struct {
	ch   chan []byte
	once sync.Once
}

// NewQueue returns a queue holding at most capacity chunks.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan []byte, capacity)}
}

// Put blocks while the queue is full. It returns ctx.Err() if the context
// ends first.
func (q *Queue) Put(ctx context.Context, chunk []byte) error {
	select {
	case q.ch <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the next chunk, or ok=false once the queue is closed and
// drained. It returns ctx.Err() if the context ends first.
func (q *Queue) Get(ctx context.Context) (chunk []byte, ok bool, err error) {
	select {
	case chunk, ok = <-q.ch:
		return chunk, ok, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Close ends the stream. Only the producer closes, and only once.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.ch) })
}

// Len is the number of buffered chunks.
func (q *Queue) Len() int { return len(q.ch) }

// Cap is the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }
