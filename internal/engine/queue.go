package engine

import "sync"

// chunkQueue is a thread-safe FIFO of raw trace chunks.
//
// Transports enqueue from any goroutine; the Engine's Run loop is the only
// consumer, which preserves arrival order into the decoder. The queue is
// unbounded so a burst from the runtime never blocks the transport.
//
// The signal channel (buffer 1) lets Run wait with a select on its context.
type chunkQueue struct {
	mu     sync.Mutex
	chunks [][]byte
	closed bool
	signal chan struct{}
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{
		chunks: make([][]byte, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends a chunk. Returns false if the queue is closed.
func (q *chunkQueue) Enqueue(chunk []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.chunks = append(q.chunks, chunk)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front chunk without blocking.
func (q *chunkQueue) TryDequeue() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.chunks) == 0 {
		return nil, false
	}
	c := q.chunks[0]
	q.chunks[0] = nil // release the buffer for GC
	if len(q.chunks) == 1 {
		q.chunks = q.chunks[:0]
	} else {
		q.chunks = q.chunks[1:]
	}
	return c, true
}

// Wait returns a channel that fires when chunks may be available or the
// queue was closed.
func (q *chunkQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued chunks.
func (q *chunkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}

// Close stops further enqueues and wakes the consumer.
func (q *chunkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
