//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vitalreg/internal/registration/models"
	"vitalreg/internal/registration/store"
	"vitalreg/pkg/platform/sentinel"
	"vitalreg/pkg/testutil/containers"
)

type PostgresRegistrationSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	births   *store.PostgresBirthStore
	deaths   *store.PostgresDeathStore
	counter  *store.PostgresCounter
}

func TestPostgresRegistrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRegistrationSuite))
}

func (s *PostgresRegistrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.births = store.NewPostgresBirthStore(s.postgres.DB)
	s.deaths = store.NewPostgresDeathStore(s.postgres.DB)
	s.counter = store.NewPostgresCounter(s.postgres.DB)
}

func (s *PostgresRegistrationSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"birth_registrations", "death_registrations", "application_counters")
	s.Require().NoError(err)
}

func testBirth(applicationID string) *models.BirthRegistration {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.BirthRegistration{
		ApplicationID:    applicationID,
		ChildName:        "Ama Mensah",
		ChildSex:         "female",
		DateOfBirth:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		PlaceOfBirth:     "Korle Bu Teaching Hospital",
		FatherName:       "Kofi Mensah",
		FatherNationalID: "GHA-000000001-1",
		MotherName:       "Abena Mensah",
		MotherNationalID: "GHA-000000002-2",
		SubmittedBy:      uuid.NewString(),
		Review:           models.Review{Status: models.StatusPending},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *PostgresRegistrationSuite) TestConcurrentSequenceAllocation() {
	ctx := context.Background()
	const goroutines = 40

	var wg sync.WaitGroup
	seen := make(chan int, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := s.counter.NextSequence(ctx, models.KindBirth, 2025)
			s.NoError(err)
			seen <- seq
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int]bool)
	for seq := range seen {
		s.False(unique[seq], "sequence %d handed out twice", seq)
		unique[seq] = true
	}
	s.Len(unique, goroutines)
}

func (s *PostgresRegistrationSuite) TestCreateAndRoundTrip() {
	ctx := context.Background()

	reg := testBirth("BR2025001")
	reg.TimeOfBirth = "04:30"
	reg.FatherOccupation = "Teacher"
	s.Require().NoError(s.births.Create(ctx, reg))
	s.NotZero(reg.ID)

	found, err := s.births.FindByApplicationID(ctx, "BR2025001")
	s.Require().NoError(err)
	s.Equal("Ama Mensah", found.ChildName)
	s.Equal("04:30", found.TimeOfBirth)
	s.Equal("Teacher", found.FatherOccupation)
	s.Empty(found.MotherOccupation)
	s.True(found.MotherDateOfBirth.IsZero())
	s.Equal(models.StatusPending, found.Status)
}

func (s *PostgresRegistrationSuite) TestOnlyOneDecisionWins() {
	ctx := context.Background()

	reg := testBirth("BR2025001")
	s.Require().NoError(s.births.Create(ctx, reg))

	const goroutines = 10
	var wg sync.WaitGroup
	var approvals, invalid atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.births.UpdateStatus(ctx, reg.ID, store.StatusUpdate{
				Status:            models.StatusApproved,
				ReviewedBy:        uuid.NewString(),
				CertificateNumber: uuid.NewString()[:20],
			})
			if err == nil {
				approvals.Add(1)
			} else if errors.Is(err, sentinel.ErrInvalidState) {
				invalid.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), approvals.Load(), "exactly one decision should apply")
	s.Equal(int32(goroutines-1), invalid.Load())
}

func (s *PostgresRegistrationSuite) TestCertificateNumberUnique() {
	ctx := context.Background()

	first := testBirth("BR2025001")
	second := testBirth("BR2025002")
	s.Require().NoError(s.births.Create(ctx, first))
	s.Require().NoError(s.births.Create(ctx, second))

	_, err := s.births.UpdateStatus(ctx, first.ID, store.StatusUpdate{
		Status: models.StatusApproved, ReviewedBy: uuid.NewString(), CertificateNumber: "BC1700000000000ABCD",
	})
	s.Require().NoError(err)

	_, err = s.births.UpdateStatus(ctx, second.ID, store.StatusUpdate{
		Status: models.StatusApproved, ReviewedBy: uuid.NewString(), CertificateNumber: "BC1700000000000ABCD",
	})
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// The losing record must still be pending so the caller can retry.
	found, err := s.births.FindByID(ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
}

func (s *PostgresRegistrationSuite) TestListOrdering() {
	ctx := context.Background()

	older := testBirth("BR2025001")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	newer := testBirth("BR2025002")
	s.Require().NoError(s.births.Create(ctx, older))
	s.Require().NoError(s.births.Create(ctx, newer))

	all, err := s.births.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("BR2025002", all[0].ApplicationID)
}

func (s *PostgresRegistrationSuite) TestDeathStoreRoundTrip() {
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	reg := &models.DeathRegistration{
		ApplicationID:         "DR2025001",
		DeceasedName:          "Yaw Boateng",
		DateOfDeath:           time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		PlaceOfDeath:          "Accra",
		CauseOfDeath:          "natural causes",
		NextOfKinName:         "Akosua Boateng",
		NextOfKinRelationship: "spouse",
		NextOfKinContact:      "+233200000000",
		SubmittedBy:           uuid.NewString(),
		Review:                models.Review{Status: models.StatusPending},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	s.Require().NoError(s.deaths.Create(ctx, reg))

	updated, err := s.deaths.UpdateStatus(ctx, reg.ID, store.StatusUpdate{
		Status: models.StatusApproved, ReviewedBy: uuid.NewString(), CertificateNumber: "DC1700000000000WXYZ",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, updated.Status)

	found, err := s.deaths.FindByCertificateNumber(ctx, "DC1700000000000WXYZ")
	s.Require().NoError(err)
	s.Equal("DR2025001", found.ApplicationID)

	_, err = s.deaths.UpdateStatus(ctx, reg.ID, store.StatusUpdate{Status: models.StatusRejected})
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}
