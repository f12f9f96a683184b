// Package verification implements the public certificate lookup: anyone can
// ask whether a certificate number corresponds to an approved registration.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vitalreg/internal/audit"
	"vitalreg/internal/platform/metrics"
	"vitalreg/internal/registration/models"
	"vitalreg/internal/registration/store"
	"vitalreg/pkg/platform/sentinel"
	"vitalreg/pkg/requestcontext"
)

const issuingOffice = "Accra Registry"

// Result is the outcome of a certificate lookup. When Valid is false the
// remaining fields are zero so an invalid number leaks nothing about the
// records it resembles.
type Result struct {
	Valid         bool
	Type          string
	ApplicationID string
	IssuedDate    time.Time
	IssuingOffice string
}

// Service answers certificate verification queries against both
// registration kinds.
type Service struct {
	births    store.BirthStore
	deaths    store.DeathStore
	publisher *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Config carries the service dependencies.
type Config struct {
	Births    store.BirthStore
	Deaths    store.DeathStore
	Publisher *audit.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// New constructs the verification service.
func New(cfg Config) *Service {
	return &Service{
		births:    cfg.Births,
		deaths:    cfg.Deaths,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Verify resolves a certificate number to its issuance metadata. Birth
// records are checked first, then death records. Only approved records
// verify: a number on a non-approved record reports invalid even though the
// issuance flow should make that state unreachable.
func (s *Service) Verify(ctx context.Context, certificateNumber string) (Result, error) {
	result, err := s.lookup(ctx, certificateNumber)
	if err != nil {
		return Result{}, err
	}

	s.metrics.ObserveVerification(result.Valid)
	s.publish(ctx, certificateNumber, result.Valid)
	return result, nil
}

func (s *Service) lookup(ctx context.Context, certificateNumber string) (Result, error) {
	birth, err := s.births.FindByCertificateNumber(ctx, certificateNumber)
	switch {
	case err == nil:
		if birth.Status != models.StatusApproved {
			return Result{}, nil
		}
		return Result{
			Valid:         true,
			Type:          "Birth Certificate",
			ApplicationID: birth.ApplicationID,
			IssuedDate:    birth.UpdatedAt,
			IssuingOffice: issuingOffice,
		}, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return Result{}, fmt.Errorf("verify birth certificate: %w", err)
	}

	death, err := s.deaths.FindByCertificateNumber(ctx, certificateNumber)
	switch {
	case err == nil:
		if death.Status != models.StatusApproved {
			return Result{}, nil
		}
		return Result{
			Valid:         true,
			Type:          "Death Certificate",
			ApplicationID: death.ApplicationID,
			IssuedDate:    death.UpdatedAt,
			IssuingOffice: issuingOffice,
		}, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return Result{}, fmt.Errorf("verify death certificate: %w", err)
	}

	return Result{}, nil
}

func (s *Service) publish(ctx context.Context, certificateNumber string, valid bool) {
	if s.publisher == nil {
		return
	}
	detail := "invalid"
	if valid {
		detail = "valid"
	}
	s.publisher.Publish(audit.Event{
		ActorID:   requestcontext.UserID(ctx),
		Action:    audit.ActionCertificateVerified,
		Subject:   certificateNumber,
		Detail:    detail,
		RequestID: requestcontext.RequestID(ctx),
	})
}
