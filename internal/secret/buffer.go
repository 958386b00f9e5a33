package secret

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer holds secret bytes in an anonymous mmap region outside the Go heap.
// The region is locked into RAM (no swap) and excluded from core dumps.
// Close zeroes and releases the region; reads after Close return nil.
type Buffer struct {
	mu     sync.RWMutex
	data   []byte
	closed bool
}

// newBuffer allocates a protected region of the given size
func newBuffer(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}

	// Keep the seed out of swap
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock failed: %w", err)
	}

	// Keep the seed out of core dumps
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise failed: %w", err)
	}

	return &Buffer{data: data}, nil
}

// NewBufferFromBytes copies source into a protected region and zeroes source.
func NewBufferFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, errors.New("secret: cannot protect empty value")
	}

	buf, err := newBuffer(len(source))
	if err != nil {
		Zero(source)
		return nil, err
	}

	copy(buf.data, source)
	Zero(source)

	return buf, nil
}

// view returns the protected bytes without copying. Caller must hold no
// reference past Close. Views may run concurrently and nest.
func (b *Buffer) view(fn func(data []byte)) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false
	}
	fn(b.data)
	return true
}

// Len returns size of the protected value (0 after Close)
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.data)
}

// Close zeroes, unlocks and unmaps the region. Idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	Zero(b.data)

	// Memory is already zeroed, so release errors are reported but not fatal
	var firstErr error
	if err := unix.Munlock(b.data); err != nil {
		firstErr = fmt.Errorf("secret: munlock failed: %w", err)
	}
	if err := unix.Munmap(b.data); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("secret: munmap failed: %w", err)
	}

	b.data = nil
	return firstErr
}

// Zero overwrites b with zeros
func Zero(b []byte) {
	clear(b)
}
