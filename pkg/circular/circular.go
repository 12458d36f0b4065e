package circular

import (
	"sync"
)

/*
 * Fixed-capacity ring of the most recent values written to it.
 */
type Buffer[T any] struct {
	mutex   sync.RWMutex
	values  []T
	pointer int
	filled  int
}

/*
 * Add elements to the ring, overwriting the oldest ones once it is full.
 *
 * Pointer points to the next slot to be written, which is also the oldest
 * element once the ring has wrapped.
 */
func (b *Buffer[T]) Push(elems ...T) {
	n := len(b.values)

	if n == 0 {
		return
	}

	/*
	 * Only the tail of an oversized write can survive.
	 */
	if len(elems) > n {
		elems = elems[len(elems)-n:]
	}

	b.mutex.Lock()
	ptr := b.pointer
	head := copy(b.values[ptr:], elems)
	copy(b.values, elems[head:])
	b.pointer = (ptr + len(elems)) % n
	b.filled += len(elems)

	if b.filled > n {
		b.filled = n
	}

	b.mutex.Unlock()
}

/*
 * Returns the number of elements written and not yet overwritten.
 */
func (b *Buffer[T]) Len() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.filled
}

/*
 * Returns the capacity of the ring.
 */
func (b *Buffer[T]) Cap() int {
	return len(b.values)
}

/*
 * Append the stored elements, oldest first, to dst and return it.
 */
func (b *Buffer[T]) Snapshot(dst []T) []T {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	n := len(b.values)
	start := b.pointer - b.filled

	if start < 0 {
		start += n
	}

	for i := 0; i < b.filled; i++ {
		dst = append(dst, b.values[(start+i)%n])
	}

	return dst
}

/*
 * Returns the most recently written element.
 */
func (b *Buffer[T]) Latest() (T, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	var zero T

	if b.filled == 0 {
		return zero, false
	}

	n := len(b.values)
	idx := (b.pointer - 1 + n) % n
	return b.values[idx], true
}

/*
 * Forget all elements without releasing storage.
 */
func (b *Buffer[T]) Reset() {
	b.mutex.Lock()
	b.pointer = 0
	b.filled = 0
	b.mutex.Unlock()
}

/*
 * Creates a ring holding up to size elements.
 */
func New[T any](size int) *Buffer[T] {

	if size < 0 {
		size = 0
	}

	buf := Buffer[T]{
		values: make([]T, size),
	}

	return &buf
}
