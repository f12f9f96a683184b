// Package stats computes the dashboard counters over both registration
// kinds.
package stats

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"vitalreg/internal/registration/models"
	"vitalreg/internal/registration/store"
)

// Summary is the dashboard counter set. ThisMonthRegistrations counts
// all-time approved records of both kinds, kept as the cumulative figure
// the dashboard has always shown rather than a calendar-month window.
type Summary struct {
	PendingApplications    int `json:"pendingApplications"`
	ThisMonthRegistrations int `json:"thisMonthRegistrations"`
	TotalBirths            int `json:"totalBirths"`
	TotalDeaths            int `json:"totalDeaths"`
}

// Service aggregates counts from the registration stores.
type Service struct {
	births store.BirthStore
	deaths store.DeathStore
	logger *slog.Logger
}

// Config carries the service dependencies.
type Config struct {
	Births store.BirthStore
	Deaths store.DeathStore
	Logger *slog.Logger
}

// New constructs the statistics service.
func New(cfg Config) *Service {
	return &Service{
		births: cfg.Births,
		deaths: cfg.Deaths,
		logger: cfg.Logger,
	}
}

// Summarize computes the dashboard counters. The six counts are fetched
// concurrently; the result is read-only with no side effects.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	var (
		pendingBirths, pendingDeaths   int
		approvedBirths, approvedDeaths int
		totalBirths, totalDeaths       int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pendingBirths, err = s.births.CountByStatus(gctx, models.StatusPending)
		return err
	})
	g.Go(func() (err error) {
		pendingDeaths, err = s.deaths.CountByStatus(gctx, models.StatusPending)
		return err
	})
	g.Go(func() (err error) {
		approvedBirths, err = s.births.CountByStatus(gctx, models.StatusApproved)
		return err
	})
	g.Go(func() (err error) {
		approvedDeaths, err = s.deaths.CountByStatus(gctx, models.StatusApproved)
		return err
	})
	g.Go(func() (err error) {
		totalBirths, err = s.births.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		totalDeaths, err = s.deaths.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("aggregate statistics: %w", err)
	}

	return Summary{
		PendingApplications:    pendingBirths + pendingDeaths,
		ThisMonthRegistrations: approvedBirths + approvedDeaths,
		TotalBirths:            totalBirths,
		TotalDeaths:            totalDeaths,
	}, nil
}
