package ring

// Buffer is a fixed-capacity FIFO over a circular slice. Appending to a full
// buffer evicts the oldest element. Not safe for concurrent use; callers hold
// their own locks.
type Buffer[T any] struct {
	buf   []T
	start int
	count int
}

// New allocates a buffer with the given capacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ring capacity must be positive")
	}
	return &Buffer[T]{buf: make([]T, capacity)}
}

// Len reports the number of stored elements.
func (b *Buffer[T]) Len() int {
	return b.count
}

// Cap reports the fixed capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.buf)
}

// Push appends v. When the buffer is full the oldest element is evicted and
// returned with ok=true.
func (b *Buffer[T]) Push(v T) (evicted T, ok bool) {
	if b.count == len(b.buf) {
		evicted = b.buf[b.start]
		b.buf[b.start] = v
		b.start = (b.start + 1) % len(b.buf)
		return evicted, true
	}
	b.buf[(b.start+b.count)%len(b.buf)] = v
	b.count++
	return evicted, false
}

// Items returns a copy of the contents in insertion order, oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.buf[(b.start+i)%len(b.buf)]
	}
	return out
}

// Newest returns up to limit elements, most recent first. A non-positive
// limit returns everything.
func (b *Buffer[T]) Newest(limit int) []T {
	n := b.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = b.buf[(b.start+b.count-1-i+len(b.buf))%len(b.buf)]
	}
	return out
}
