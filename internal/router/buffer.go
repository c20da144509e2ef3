package router

import (
	"context"
	"sync"
)

// growThreshold is the fill percentage at which the buffer doubles.
const growThreshold = 70

// GrowableBuffer is a thread-safe FIFO queue that doubles its capacity when
// it reaches 70% full. Push never blocks: once maxCapacity is reached the
// oldest item is dropped to make room.
type GrowableBuffer[T any] struct {
	mu          sync.Mutex
	buf         []T
	head        int // read position
	tail        int // write position
	count       int
	capacity    int
	maxCapacity int // 0 = unbounded
	closed      bool

	// ready holds a token while the buffer is non-empty or closed.
	ready chan struct{}

	// Stats
	totalReceived int64
	totalSent     int64
	dropped       int64
	resizeCount   int
}

// NewGrowableBuffer creates a new buffer with the given initial capacity.
// maxCapacity bounds growth; 0 means unbounded.
func NewGrowableBuffer[T any](initialCapacity, maxCapacity int) *GrowableBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if maxCapacity > 0 && maxCapacity < initialCapacity {
		maxCapacity = initialCapacity
	}
	return &GrowableBuffer[T]{
		buf:         make([]T, initialCapacity),
		capacity:    initialCapacity,
		maxCapacity: maxCapacity,
		ready:       make(chan struct{}, 1),
	}
}

// Send adds an item to the buffer. Returns false if the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * growThreshold) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold && (b.maxCapacity == 0 || b.capacity < b.maxCapacity) {
		b.grow()
	}

	if b.count == b.capacity {
		// At the bound: overwrite the oldest item.
		b.popLocked()
		b.totalSent--
		b.dropped++
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalReceived++

	b.signalLocked()
	return true
}

// Receive removes and returns the oldest item, waiting until one is
// available, the buffer is closed and empty, or ctx is done.
func (b *GrowableBuffer[T]) Receive(ctx context.Context) (T, bool) {
	for {
		if item, ok, done := b.tryReceive(); ok || done {
			return item, ok
		}

		select {
		case <-b.ready:
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

// TryReceive attempts to receive without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	item, ok, _ := b.tryReceive()
	return item, ok
}

// tryReceive pops one item. done reports a closed, empty buffer.
func (b *GrowableBuffer[T]) tryReceive() (item T, ok, done bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return item, false, b.closed
	}

	item = b.popLocked()
	b.signalLocked()
	return item, true, false
}

// Ready returns a channel that has a value while items may be available.
// Consumers select on it and then drain with TryReceive or DrainTo.
func (b *GrowableBuffer[T]) Ready() <-chan struct{} {
	return b.ready
}

// Close closes the buffer. After closing, Send returns false. Receivers
// still get the remaining items.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.signalLocked()
}

// Len returns the current number of items in the buffer.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity of the buffer.
func (b *GrowableBuffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// Stats returns buffer statistics.
func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:         b.count,
		Capacity:      b.capacity,
		TotalReceived: b.totalReceived,
		TotalSent:     b.totalSent,
		Dropped:       b.dropped,
		ResizeCount:   b.resizeCount,
	}
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalReceived int64
	TotalSent     int64
	Dropped       int64
	ResizeCount   int
}

// DrainTo removes up to max items (all if max <= 0) in FIFO order.
func (b *GrowableBuffer[T]) DrainTo(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := range result {
		result[i] = b.popLocked()
	}
	b.signalLocked()
	return result
}

func (b *GrowableBuffer[T]) popLocked() T {
	item := b.buf[b.head]
	var zero T
	b.buf[b.head] = zero // Clear reference for GC
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.totalSent++
	return item
}

// signalLocked keeps the ready token in sync with the buffer contents.
func (b *GrowableBuffer[T]) signalLocked() {
	if b.count > 0 || b.closed {
		select {
		case b.ready <- struct{}{}:
		default:
		}
		return
	}
	select {
	case <-b.ready:
	default:
	}
}

// grow doubles the buffer capacity, capped at maxCapacity. Must be called
// with lock held.
func (b *GrowableBuffer[T]) grow() {
	newCapacity := b.capacity * 2
	if b.maxCapacity > 0 && newCapacity > b.maxCapacity {
		newCapacity = b.maxCapacity
	}
	newBuf := make([]T, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count % newCapacity
	b.capacity = newCapacity
	b.resizeCount++
}
