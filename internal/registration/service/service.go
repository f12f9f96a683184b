// Package service implements the registration workflow: submission with
// atomically allocated application ids, review decisions with certificate
// issuance, and the merged pending queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"vitalreg/internal/audit"
	"vitalreg/internal/platform/metrics"
	"vitalreg/internal/registration/models"
	"vitalreg/internal/registration/store"
	dErrors "vitalreg/pkg/domain-errors"
	"vitalreg/pkg/platform/sentinel"
	"vitalreg/pkg/requestcontext"
)

// certificateAttempts bounds the regenerate-and-retry loop on a certificate
// number collision. Collisions need a millisecond-identical timestamp plus
// an identical random suffix, so two attempts is already generous.
const certificateAttempts = 3

const certificateSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Service coordinates registration submissions and review decisions.
type Service struct {
	births    store.BirthStore
	deaths    store.DeathStore
	counter   store.CounterStore
	publisher *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	now func() time.Time
}

// Config carries the service dependencies.
type Config struct {
	Births    store.BirthStore
	Deaths    store.DeathStore
	Counter   store.CounterStore
	Publisher *audit.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// New constructs the registration service.
func New(cfg Config) *Service {
	return &Service{
		births:    cfg.Births,
		deaths:    cfg.Deaths,
		counter:   cfg.Counter,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// SubmitBirth assigns an application id and persists the application as
// pending. The id combines the current year with a per-year sequence the
// counter store allocates atomically.
func (s *Service) SubmitBirth(ctx context.Context, reg *models.BirthRegistration, submitterID string) (*models.BirthRegistration, error) {
	applicationID, err := s.nextApplicationID(ctx, models.KindBirth)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	reg.ApplicationID = applicationID
	reg.SubmittedBy = submitterID
	reg.Review = models.Review{Status: models.StatusPending}
	reg.CreatedAt = now
	reg.UpdatedAt = now

	if err := s.births.Create(ctx, reg); err != nil {
		return nil, fmt.Errorf("create birth registration: %w", err)
	}

	s.metrics.ObserveSubmission("birth")
	s.publish(ctx, submitterID, audit.ActionApplicationSubmitted, applicationID, "birth")
	return reg, nil
}

// SubmitDeath assigns an application id and persists the application as
// pending.
func (s *Service) SubmitDeath(ctx context.Context, reg *models.DeathRegistration, submitterID string) (*models.DeathRegistration, error) {
	applicationID, err := s.nextApplicationID(ctx, models.KindDeath)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	reg.ApplicationID = applicationID
	reg.SubmittedBy = submitterID
	reg.Review = models.Review{Status: models.StatusPending}
	reg.CreatedAt = now
	reg.UpdatedAt = now

	if err := s.deaths.Create(ctx, reg); err != nil {
		return nil, fmt.Errorf("create death registration: %w", err)
	}

	s.metrics.ObserveSubmission("death")
	s.publish(ctx, submitterID, audit.ActionApplicationSubmitted, applicationID, "death")
	return reg, nil
}

// GetBirth fetches a birth registration by numeric id.
func (s *Service) GetBirth(ctx context.Context, id int64) (*models.BirthRegistration, error) {
	reg, err := s.births.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Birth registration not found")
		}
		return nil, fmt.Errorf("find birth registration: %w", err)
	}
	return reg, nil
}

// GetDeath fetches a death registration by numeric id.
func (s *Service) GetDeath(ctx context.Context, id int64) (*models.DeathRegistration, error) {
	reg, err := s.deaths.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Death registration not found")
		}
		return nil, fmt.Errorf("find death registration: %w", err)
	}
	return reg, nil
}

// ListBirths returns all birth registrations, newest first.
func (s *Service) ListBirths(ctx context.Context) ([]*models.BirthRegistration, error) {
	return s.births.ListAll(ctx)
}

// ListBirthsBySubmitter returns the caller's own birth registrations.
func (s *Service) ListBirthsBySubmitter(ctx context.Context, submitterID string) ([]*models.BirthRegistration, error) {
	return s.births.ListBySubmitter(ctx, submitterID)
}

// ListDeaths returns all death registrations, newest first.
func (s *Service) ListDeaths(ctx context.Context) ([]*models.DeathRegistration, error) {
	return s.deaths.ListAll(ctx)
}

// ListDeathsBySubmitter returns the caller's own death registrations.
func (s *Service) ListDeathsBySubmitter(ctx context.Context, submitterID string) ([]*models.DeathRegistration, error) {
	return s.deaths.ListBySubmitter(ctx, submitterID)
}

// DecideBirth applies an approve/reject decision to a pending birth
// registration. Approval issues a certificate number atomically with the
// status change; a number collision regenerates the suffix and retries.
func (s *Service) DecideBirth(ctx context.Context, id int64, status models.Status, reviewerID, notes string) (*models.BirthRegistration, error) {
	if err := validateDecision(status); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < certificateAttempts; attempt++ {
		update := store.StatusUpdate{
			Status:      status,
			ReviewedBy:  reviewerID,
			ReviewNotes: notes,
		}
		if status == models.StatusApproved {
			update.CertificateNumber = s.newCertificateNumber(models.KindBirth)
		}

		updated, err := s.births.UpdateStatus(ctx, id, update)
		if err == nil {
			s.recordDecision(ctx, models.KindBirth, updated.ApplicationID, status, reviewerID)
			return updated, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			lastErr = err
			continue
		}
		return nil, decisionError(err, "Birth registration")
	}
	return nil, fmt.Errorf("issue birth certificate number: %w", lastErr)
}

// DecideDeath applies an approve/reject decision to a pending death
// registration.
func (s *Service) DecideDeath(ctx context.Context, id int64, status models.Status, reviewerID, notes string) (*models.DeathRegistration, error) {
	if err := validateDecision(status); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < certificateAttempts; attempt++ {
		update := store.StatusUpdate{
			Status:      status,
			ReviewedBy:  reviewerID,
			ReviewNotes: notes,
		}
		if status == models.StatusApproved {
			update.CertificateNumber = s.newCertificateNumber(models.KindDeath)
		}

		updated, err := s.deaths.UpdateStatus(ctx, id, update)
		if err == nil {
			s.recordDecision(ctx, models.KindDeath, updated.ApplicationID, status, reviewerID)
			return updated, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			lastErr = err
			continue
		}
		return nil, decisionError(err, "Death registration")
	}
	return nil, fmt.Errorf("issue death certificate number: %w", lastErr)
}

// PendingApplication pairs a pending record with its kind for the merged
// review queue. Exactly one of Birth and Death is set.
type PendingApplication struct {
	Kind      models.Kind
	CreatedAt time.Time
	Birth     *models.BirthRegistration
	Death     *models.DeathRegistration
}

// PendingApplications returns the pending records of both kinds merged
// newest-first. The two lists are fetched concurrently.
func (s *Service) PendingApplications(ctx context.Context) ([]PendingApplication, error) {
	var (
		births []*models.BirthRegistration
		deaths []*models.DeathRegistration
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		births, err = s.births.ListByStatus(gctx, models.StatusPending)
		return err
	})
	g.Go(func() error {
		var err error
		deaths, err = s.deaths.ListByStatus(gctx, models.StatusPending)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list pending applications: %w", err)
	}

	merged := make([]PendingApplication, 0, len(births)+len(deaths))
	for _, reg := range births {
		merged = append(merged, PendingApplication{Kind: models.KindBirth, CreatedAt: reg.CreatedAt, Birth: reg})
	}
	for _, reg := range deaths {
		merged = append(merged, PendingApplication{Kind: models.KindDeath, CreatedAt: reg.CreatedAt, Death: reg})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

func (s *Service) nextApplicationID(ctx context.Context, kind models.Kind) (string, error) {
	year := s.now().UTC().Year()
	seq, err := s.counter.NextSequence(ctx, kind, year)
	if err != nil {
		return "", fmt.Errorf("allocate application sequence: %w", err)
	}
	return fmt.Sprintf("%s%d%03d", kind.ApplicationPrefix(), year, seq), nil
}

// newCertificateNumber builds <prefix><unix-millis><4 random alnum chars>.
func (s *Service) newCertificateNumber(kind models.Kind) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = certificateSuffixAlphabet[rand.Intn(len(certificateSuffixAlphabet))]
	}
	return fmt.Sprintf("%s%d%s", kind.CertificatePrefix(), s.now().UnixMilli(), suffix)
}

func (s *Service) recordDecision(ctx context.Context, kind models.Kind, applicationID string, status models.Status, reviewerID string) {
	action := audit.ActionApplicationRejected
	if status == models.StatusApproved {
		action = audit.ActionApplicationApproved
		s.metrics.ObserveCertificateIssued(string(kind))
	}
	s.publish(ctx, reviewerID, action, applicationID, string(kind))
}

func (s *Service) publish(ctx context.Context, actorID string, action audit.Action, subject, detail string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(audit.Event{
		ActorID:   actorID,
		Action:    action,
		Subject:   subject,
		Detail:    detail,
		RequestID: requestcontext.RequestID(ctx),
	})
}

func validateDecision(status models.Status) error {
	if status != models.StatusApproved && status != models.StatusRejected {
		return dErrors.NewValidation("Invalid status", map[string]string{"status": "must be approved or rejected"})
	}
	return nil
}

func decisionError(err error, label string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, label+" not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidTransition, label+" has already been reviewed")
	default:
		return fmt.Errorf("update registration status: %w", err)
	}
}
