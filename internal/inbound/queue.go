package inbound

import (
	"sync"
)

// Queue is a thread-safe FIFO that doubles its capacity when it
// reaches 70% full.
type Queue[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalEnqueued int64
	totalDrained  int64
	resizeCount   int
}

// NewQueue creates a queue with the given initial capacity.
func NewQueue[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Queue[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
	}
}

// Enqueue appends an entry to the tail.
// Returns false if the queue is closed.
func (q *Queue[T]) Enqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalEnqueued++
	return true
}

// DrainOne removes and returns the head entry.
// Returns the zero value and false if the queue is empty.
func (q *Queue[T]) DrainOne() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.pop(), true
}

// DrainAll hands every entry present at call time to fn, in arrival order.
// fn runs outside the queue's lock, so it may Enqueue; such entries are left
// for the next call. Returns the number of entries processed.
func (q *Queue[T]) DrainAll(fn func(T)) int {
	items := q.take(0)
	for _, item := range items {
		fn(item)
	}
	return len(items)
}

// DrainTo removes up to max entries (all when max <= 0) and returns them.
func (q *Queue[T]) DrainTo(max int) []T {
	return q.take(max)
}

// Close stops the queue from accepting entries. Entries already queued can
// still be drained.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Len returns the current number of queued entries.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the current capacity of the ring.
func (q *Queue[T]) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Count:         q.count,
		Capacity:      q.capacity,
		TotalEnqueued: q.totalEnqueued,
		TotalDrained:  q.totalDrained,
		ResizeCount:   q.resizeCount,
	}
}

// Stats contains queue statistics.
type Stats struct {
	Count         int
	Capacity      int
	TotalEnqueued int64
	TotalDrained  int64
	ResizeCount   int
}

func (q *Queue[T]) take(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	n := q.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = q.pop()
	}
	return result
}

// pop removes the head entry. Must be called with lock held and count > 0.
func (q *Queue[T]) pop() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // Clear reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.totalDrained++
	return item
}

// grow doubles the ring capacity. Must be called with lock held.
func (q *Queue[T]) grow() {
	newCapacity := q.capacity * 2
	newBuf := make([]T, newCapacity)

	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = newCapacity
	q.resizeCount++
}
