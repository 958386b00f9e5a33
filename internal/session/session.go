// Package session owns the seed capability of one unlocked wallet.
//
// A Session runs the generation protocol against an encrypted wallet:
// create the wallet if none is stored, decrypt it, and attach the seed
// to the current capability. Each unlock attempt gets a fresh capability;
// the previous one is revoked before it is dropped. The "generating" flag
// is tracked here, apart from the seed read channel, so a revoked seed
// never looks like one that is still on its way.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AlexZinkM/seedvault/internal/secret"

	"go.uber.org/zap"
)

// Generation steps reported in GenerationError
const (
	StepCreate  = "create"
	StepDecrypt = "decrypt"
	StepAttach  = "attach"
)

var (
	// ErrGenerationInFlight is returned when the protocol is already running
	ErrGenerationInFlight = errors.New("session: generation already in flight")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("session: closed")
)

// EncryptedWallet is the wallet storage the seed is generated from
type EncryptedWallet interface {
	HasStoredWallet() bool
	// StorageID changes whenever a different wallet is stored; empty when none is
	StorageID() string
	// CreateWallet is a no-op when a wallet is already stored
	CreateWallet(ctx context.Context) error
	// Decrypt returns the plaintext seed; caller owns and clears it
	Decrypt(ctx context.Context) ([]byte, error)
}

// GenerationError is a recoverable failure of the generation protocol.
// It never carries seed material.
type GenerationError struct {
	Step string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("session: %s step failed: %v", e.Step, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError checks if error is GenerationError
func IsGenerationError(err error) bool {
	var target *GenerationError
	return errors.As(err, &target)
}

// Status is the loading state shown to the UI layer
type Status struct {
	Generating bool
	HasWallet  bool
}

// Option configures a Session
type Option func(*Session)

// WithStrictContracts makes contract violations panic instead of being logged
func WithStrictContracts(strict bool) Option {
	return func(s *Session) {
		s.strict = strict
	}
}

// attempt is one unlock attempt and its capability
type attempt struct {
	capability secret.Capability
	attached   bool
	revoked    bool
}

func (a *attempt) revoke() {
	a.capability.Revoke()
	a.revoked = true
}

// Session drives seed generation for one wallet
type Session struct {
	wallet EncryptedWallet
	logger *zap.Logger
	strict bool

	mu         sync.Mutex
	current    *attempt
	generating bool
	inFlight   bool
	rerun      bool
	storageID  string
	// hadWallet is set once a stored wallet has been seen
	hadWallet bool
	closed    bool
}

// New creates a Session with an empty capability. Nothing is generated
// until Generate, Unlock or StorageChanged is called.
func New(w EncryptedWallet, logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}

	id := w.StorageID()
	s := &Session{
		wallet:    w,
		logger:    logger,
		current:   &attempt{capability: secret.Create()},
		storageID: id,
		hadWallet: id != "",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capability returns the capability of the current unlock attempt
func (s *Session) Capability() secret.Capability {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current.capability
}

// Generating reports whether the generation protocol is running
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generating
}

// Status returns the loading state
func (s *Session) Status() Status {
	return Status{
		Generating: s.Generating(),
		HasWallet:  s.wallet.HasStoredWallet(),
	}
}

// Generate runs the generation protocol for the current capability. It is
// a no-op when the capability already holds a seed or has been revoked.
// Collaborator failures are logged and returned as *GenerationError; the
// capability stays empty and Generate may be called again.
func (s *Session) Generate(ctx context.Context) error {
	current, err := s.begin()
	if err != nil {
		return err
	}

	finished := false
	defer func() {
		// Reached only when the protocol panicked (strict contract violation)
		if !finished {
			s.mu.Lock()
			s.generating = false
			s.inFlight = false
			s.mu.Unlock()
		}
	}()

	for {
		err = s.generate(ctx, current)

		var again bool
		current, again = s.next()
		if !again {
			finished = true
			return err
		}
		s.logger.Debug("wallet storage changed during generation, running again")
	}
}

// Unlock starts a new unlock attempt: the current capability is revoked,
// a fresh one is created and the generation protocol runs for it.
func (s *Session) Unlock(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	s.rotateLocked()
	s.mu.Unlock()

	return s.Generate(ctx)
}

// StorageChanged re-runs the protocol when the wallet storage identity
// differs from the one last seen. Returns false when the identity is
// unchanged and nothing was done. A change is a new unlock attempt; when
// the protocol is already running it picks the new attempt up once the
// current pass finishes.
func (s *Session) StorageChanged(ctx context.Context) (bool, error) {
	id := s.wallet.StorageID()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if id == s.storageID {
		s.mu.Unlock()
		return false, nil
	}
	s.storageID = id
	s.rotateLocked()
	if s.inFlight {
		s.rerun = true
		s.mu.Unlock()
		return true, nil
	}
	s.mu.Unlock()

	s.logger.Info("wallet storage changed, starting new unlock attempt", zap.String("storage_id", shortID(id)))

	err := s.Generate(ctx)
	if errors.Is(err, ErrGenerationInFlight) {
		// The pass that beat us works on the new attempt already
		return true, nil
	}
	return true, err
}

// Revoke permanently revokes the current capability
func (s *Session) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.revoke()
	s.logger.Info("seed capability revoked")
}

// Close revokes the current capability and stops the session. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.rerun = false
	s.current.revoke()
}

// begin takes the in-flight guard
func (s *Session) begin() (*attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.inFlight {
		return nil, ErrGenerationInFlight
	}
	s.inFlight = true
	s.generating = true
	s.rerun = false
	return s.current, nil
}

// next either hands out the attempt to run again or releases the guard,
// in one critical section so a concurrent StorageChanged is never lost.
func (s *Session) next() (*attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rerun && !s.closed {
		s.rerun = false
		return s.current, true
	}
	s.rerun = false
	s.generating = false
	s.inFlight = false
	return nil, false
}

// generate is one pass of the protocol for attempt a
func (s *Session) generate(ctx context.Context, a *attempt) error {
	s.mu.Lock()
	skip := a.attached || a.revoked
	s.mu.Unlock()
	if skip {
		s.logger.Debug("seed capability already settled, skipping generation")
		return nil
	}

	if !s.wallet.HasStoredWallet() {
		s.mu.Lock()
		replaced := s.hadWallet
		s.mu.Unlock()
		if replaced {
			s.logger.Warn("stored wallet disappeared, creating a new wallet with a new mnemonic")
		}
		if err := s.wallet.CreateWallet(ctx); err != nil {
			s.logger.Warn("failed to create wallet", zap.Error(err))
			return &GenerationError{Step: StepCreate, Err: err}
		}
		s.logger.Info("wallet created")
	}
	s.recordStorage(a)

	seed, err := s.wallet.Decrypt(ctx)
	if err != nil {
		s.logger.Warn("failed to decrypt wallet", zap.Error(err))
		return &GenerationError{Step: StepDecrypt, Err: err}
	}

	return s.attach(a, seed)
}

// recordStorage remembers the storage identity a is generated from, so the
// watcher event caused by our own CreateWallet does not start another attempt.
func (s *Session) recordStorage(a *attempt) {
	id := s.wallet.StorageID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		s.hadWallet = true
	}
	if s.current == a {
		s.storageID = id
	}
}

// attach hands seed to the attempt's capability; seed is zeroed either way
func (s *Session) attach(a *attempt, seed []byte) error {
	err := a.capability.Proxy.Attach(seed)
	switch {
	case err == nil:
		s.mu.Lock()
		a.attached = true
		s.mu.Unlock()
		s.logger.Info("seed attached")
		return nil
	case errors.Is(err, secret.ErrRevoked):
		// Torn down while decrypting
		s.logger.Debug("seed capability revoked before seed arrived, seed dropped")
		return nil
	case errors.Is(err, secret.ErrAlreadyPopulated):
		s.contractViolation(err)
		return nil
	default:
		s.logger.Error("failed to protect seed", zap.Error(err))
		return &GenerationError{Step: StepAttach, Err: err}
	}
}

// contractViolation escalates programmer errors
func (s *Session) contractViolation(err error) {
	if s.strict {
		panic(fmt.Sprintf("session: contract violation: %v", err))
	}
	s.logger.Error("contract violation ignored", zap.Error(err))
}

// rotateLocked revokes the current attempt and starts a new one. s.mu must be held.
func (s *Session) rotateLocked() {
	s.current.revoke()
	s.current = &attempt{capability: secret.Create()}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
