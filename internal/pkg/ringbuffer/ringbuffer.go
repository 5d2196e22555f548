package ringbuffer

import (
	"sync"
)

// Item is a single entry tagged with a monotonically increasing sequence number.
type Item[T any] struct {
	Seq   uint64
	Value T
}

// RingBuffer keeps the most recent entries, ordered by sequence number.
// When full, pushing evicts the oldest entry. Lookups by sequence are O(1).
type RingBuffer[T any] struct {
	mu       sync.RWMutex
	items    []Item[T]
	index    map[uint64]int
	capacity int
	size     int
	head     int // oldest item
	tail     int // next insertion position
}

// New creates a RingBuffer holding at most capacity entries. Non-positive
// capacities are raised to 1.
func New[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}

	return &RingBuffer[T]{
		items:    make([]Item[T], capacity),
		index:    make(map[uint64]int, capacity),
		capacity: capacity,
	}
}

// Push appends value under seq. An existing entry with the same seq is replaced in place.
func (rb *RingBuffer[T]) Push(seq uint64, value T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if idx, exists := rb.index[seq]; exists {
		rb.items[idx].Value = value
		return
	}

	if rb.size >= rb.capacity {
		delete(rb.index, rb.items[rb.head].Seq)
	}

	rb.items[rb.tail] = Item[T]{Seq: seq, Value: value}
	rb.index[seq] = rb.tail

	rb.tail = (rb.tail + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	} else {
		rb.head = (rb.head + 1) % rb.capacity
	}
}

// Get returns the entry stored under seq.
func (rb *RingBuffer[T]) Get(seq uint64) (T, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if idx, exists := rb.index[seq]; exists {
		return rb.items[idx].Value, true
	}

	var zero T

	return zero, false
}

// Last returns the newest entry.
func (rb *RingBuffer[T]) Last() (Item[T], bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 {
		return Item[T]{}, false
	}

	idx := (rb.tail - 1 + rb.capacity) % rb.capacity

	return rb.items[idx], true
}

// Since returns entries with a sequence strictly greater than seq, oldest first.
func (rb *RingBuffer[T]) Since(seq uint64) []Item[T] {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var result []Item[T]

	for i := range rb.size {
		item := rb.items[(rb.head+i)%rb.capacity]
		if item.Seq > seq {
			result = append(result, item)
		}
	}

	return result
}

// Len returns the current number of entries.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return rb.size
}

// Capacity returns the maximum number of entries.
func (rb *RingBuffer[T]) Capacity() int {
	return rb.capacity
}

// Clear removes all entries.
func (rb *RingBuffer[T]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.size = 0
	rb.head = 0
	rb.tail = 0
	rb.index = make(map[uint64]int, rb.capacity)
}

// GetAll returns every entry, oldest first.
func (rb *RingBuffer[T]) GetAll() []Item[T] {
	return rb.Since(0)
}
