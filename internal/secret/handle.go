// Package secret implements a revocable handle for a wallet seed.
//
// A handle starts Empty, is populated at most once, and is revoked at
// most once. After Revoke the handle releases its protected buffer and
// every read reports the seed as absent, exactly as it does before the
// seed arrives. Callers that need to tell "pending" from "revoked" track
// that separately.
package secret

import (
	"errors"
	"sync"
)

var (
	// ErrAlreadyPopulated is returned when a seed is attached twice to one handle
	ErrAlreadyPopulated = errors.New("secret: handle already populated")
	// ErrRevoked is returned when a seed is attached after revocation
	ErrRevoked = errors.New("secret: handle revoked")
)

// State is the lifecycle state of a handle
type State int

const (
	StateEmpty State = iota
	StatePopulated
	StateRevoked
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

type handle struct {
	mu    sync.Mutex
	state State
	value *Buffer
	// readers counts Use callbacks in progress; the buffer outlives them
	readers int
}

// Proxy is the read/write entry point of one handle.
type Proxy struct {
	h *handle
}

// Capability pairs a proxy with the function that revokes it
type Capability struct {
	Proxy  *Proxy
	Revoke func()
}

// Create allocates a fresh Empty handle and returns its capability.
func Create() Capability {
	h := &handle{}
	return Capability{
		Proxy:  &Proxy{h: h},
		Revoke: h.revoke,
	}
}

// Attach stores value as the handle's seed. It takes ownership of value:
// the slice is zeroed on return whatever the outcome.
func (p *Proxy) Attach(value []byte) error {
	defer Zero(value)

	p.h.mu.Lock()
	defer p.h.mu.Unlock()

	switch p.h.state {
	case StateRevoked:
		return ErrRevoked
	case StatePopulated:
		return ErrAlreadyPopulated
	}

	buf, err := NewBufferFromBytes(value)
	if err != nil {
		return err
	}

	p.h.value = buf
	p.h.state = StatePopulated
	return nil
}

// Read returns a copy of the seed. ok is false while the handle is empty
// and after it has been revoked. Caller must Zero the copy when done.
func (p *Proxy) Read() (seed []byte, ok bool) {
	ok = p.Use(func(value []byte) {
		seed = make([]byte, len(value))
		copy(seed, value)
	})
	return seed, ok
}

// Use calls fn with the protected seed bytes, without copying them to the
// heap. fn must not retain the slice. Reports false, without calling fn,
// when no seed is readable.
//
// fn may revoke the handle, which is how a seed is exposed once: the
// handle is Revoked as soon as Revoke returns and the buffer is released
// when the last Use callback returns. Attach from fn reports
// ErrAlreadyPopulated.
func (p *Proxy) Use(fn func(seed []byte)) bool {
	h := p.h

	h.mu.Lock()
	if h.state != StatePopulated {
		h.mu.Unlock()
		return false
	}
	value := h.value
	h.readers++
	h.mu.Unlock()

	defer h.release()
	return value.view(fn)
}

// String keeps the seed out of fmt and log output
func (p *Proxy) String() string {
	return "secret.Proxy(redacted)"
}

// GoString keeps the seed out of %#v output
func (p *Proxy) GoString() string {
	return p.String()
}

// revoke moves the handle to Revoked and releases the seed. Idempotent.
func (h *handle) revoke() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateRevoked {
		return
	}
	h.state = StateRevoked

	if h.readers == 0 {
		h.closeValue()
	}
}

// release ends one Use callback and frees the seed if it was revoked meanwhile
func (h *handle) release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.readers--
	if h.readers == 0 && h.state == StateRevoked {
		h.closeValue()
	}
}

func (h *handle) closeValue() {
	if h.value != nil {
		// Close zeroes before unmapping, so a release error leaves no plaintext
		_ = h.value.Close()
		h.value = nil
	}
}

// state reports the handle state
func (p *Proxy) state() State {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()

	return p.h.state
}
