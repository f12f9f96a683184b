// Package lockout throttles credential guessing: repeated failed logins for
// the same email inside a sliding window hard-lock that email for a fixed
// period. Lock state is keyed by email, not session, so an attacker cannot
// dodge it by dropping cookies.
package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dErrors "vitalreg/pkg/domain-errors"
)

const (
	defaultMaxAttempts  = 5
	defaultWindow       = 15 * time.Minute
	defaultLockDuration = 15 * time.Minute
)

// Record is the failure state for one email.
type Record struct {
	Email         string
	FailureCount  int
	LockedUntil   time.Time
	LastFailureAt time.Time
}

// Store persists lockout records. RecordFailure must increment atomically,
// resetting the count when the previous failure is older than windowStart.
type Store interface {
	Get(ctx context.Context, email string) (*Record, error)
	RecordFailure(ctx context.Context, email string, now, windowStart time.Time) (*Record, error)
	Lock(ctx context.Context, email string, until time.Time) error
	Clear(ctx context.Context, email string) error
}

// Service applies the lockout policy around a Store.
type Service struct {
	store        Store
	logger       *slog.Logger
	maxAttempts  int
	window       time.Duration
	lockDuration time.Duration

	now func() time.Time
}

// Config carries the service dependencies. Zero thresholds fall back to the
// defaults.
type Config struct {
	Store        Store
	Logger       *slog.Logger
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// New constructs the lockout service.
func New(cfg Config) *Service {
	s := &Service{
		store:        cfg.Store,
		logger:       cfg.Logger,
		maxAttempts:  cfg.MaxAttempts,
		window:       cfg.Window,
		lockDuration: cfg.LockDuration,
		now:          time.Now,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.window <= 0 {
		s.window = defaultWindow
	}
	if s.lockDuration <= 0 {
		s.lockDuration = defaultLockDuration
	}
	return s
}

// Check fails when the email is currently locked. Unknown emails pass.
func (s *Service) Check(ctx context.Context, email string) error {
	record, err := s.store.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("get lockout record: %w", err)
	}
	if record == nil {
		return nil
	}
	if record.LockedUntil.After(s.now().UTC()) {
		return dErrors.New(dErrors.CodeTooManyRequests, "Too many failed login attempts. Try again later.")
	}
	return nil
}

// RecordFailure notes a failed credential check and locks the email once
// the attempt limit is reached. Store errors are logged, not returned: the
// caller is already on its failure path and the login answer must not
// change.
func (s *Service) RecordFailure(ctx context.Context, email string) {
	now := s.now().UTC()
	record, err := s.store.RecordFailure(ctx, email, now, now.Add(-s.window))
	if err != nil {
		s.logger.ErrorContext(ctx, "record login failure", "error", err)
		return
	}
	if record.FailureCount < s.maxAttempts {
		return
	}

	until := now.Add(s.lockDuration)
	if err := s.store.Lock(ctx, email, until); err != nil {
		s.logger.ErrorContext(ctx, "lock account", "error", err)
		return
	}
	s.logger.WarnContext(ctx, "account locked after repeated login failures",
		"failure_count", record.FailureCount,
		"locked_until", until,
	)
}

// Clear removes the failure state after a successful login.
func (s *Service) Clear(ctx context.Context, email string) {
	if err := s.store.Clear(ctx, email); err != nil {
		s.logger.ErrorContext(ctx, "clear lockout record", "error", err)
	}
}
