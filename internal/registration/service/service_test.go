package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vitalreg/internal/registration/models"
	"vitalreg/internal/registration/store"
	dErrors "vitalreg/pkg/domain-errors"
)

var (
	birthApplicationIDPattern = regexp.MustCompile(`^BR\d{4}\d{3}$`)
	birthCertificatePattern   = regexp.MustCompile(`^BC\d+[A-Z0-9]{4}$`)
	deathCertificatePattern   = regexp.MustCompile(`^DC\d+[A-Z0-9]{4}$`)
)

type RegistrationServiceSuite struct {
	suite.Suite
	births  *store.InMemoryBirthStore
	deaths  *store.InMemoryDeathStore
	service *Service
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) SetupTest() {
	s.births = store.NewInMemoryBirthStore()
	s.deaths = store.NewInMemoryDeathStore()
	s.service = New(Config{
		Births:  s.births,
		Deaths:  s.deaths,
		Counter: store.NewInMemoryCounter(),
		Logger:  slog.Default(),
	})
}

func (s *RegistrationServiceSuite) submitBirth(submitter string) *models.BirthRegistration {
	reg, err := s.service.SubmitBirth(context.Background(), &models.BirthRegistration{
		ChildName:        "Ama Mensah",
		ChildSex:         "female",
		DateOfBirth:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		PlaceOfBirth:     "Korle Bu Teaching Hospital",
		FatherName:       "Kofi Mensah",
		FatherNationalID: "GHA-000000001-1",
		MotherName:       "Abena Mensah",
		MotherNationalID: "GHA-000000002-2",
	}, submitter)
	s.Require().NoError(err)
	return reg
}

func (s *RegistrationServiceSuite) submitDeath(submitter string) *models.DeathRegistration {
	reg, err := s.service.SubmitDeath(context.Background(), &models.DeathRegistration{
		DeceasedName:          "Yaw Boateng",
		DateOfDeath:           time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		PlaceOfDeath:          "Accra",
		CauseOfDeath:          "natural causes",
		NextOfKinName:         "Akosua Boateng",
		NextOfKinRelationship: "spouse",
		NextOfKinContact:      "+233200000000",
	}, submitter)
	s.Require().NoError(err)
	return reg
}

func (s *RegistrationServiceSuite) TestSubmitBirth() {
	s.Run("assigns year-scoped application id and pending status", func() {
		reg := s.submitBirth("user-1")

		s.Regexp(birthApplicationIDPattern, reg.ApplicationID)
		s.Contains(reg.ApplicationID, fmt.Sprintf("BR%d", time.Now().UTC().Year()))
		s.Equal(models.StatusPending, reg.Status)
		s.Empty(reg.CertificateNumber)
		s.Equal("user-1", reg.SubmittedBy)
	})

	s.Run("sequence increments per submission", func() {
		first := s.submitBirth("user-1")
		second := s.submitBirth("user-1")
		s.NotEqual(first.ApplicationID, second.ApplicationID)
	})

	s.Run("death ids use the DR prefix and an independent sequence", func() {
		reg := s.submitDeath("user-1")
		s.Regexp(`^DR\d{4}001$`, reg.ApplicationID)
	})
}

func (s *RegistrationServiceSuite) TestConcurrentSubmissionsGetDistinctIDs() {
	const goroutines = 30

	var wg sync.WaitGroup
	ids := make(chan string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg, err := s.service.SubmitBirth(context.Background(), &models.BirthRegistration{
				ChildName:        "Child",
				ChildSex:         "male",
				DateOfBirth:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				PlaceOfBirth:     "Accra",
				FatherName:       "Father",
				FatherNationalID: "GHA-1",
				MotherName:       "Mother",
				MotherNationalID: "GHA-2",
			}, "user-1")
			s.NoError(err)
			ids <- reg.ApplicationID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		s.False(seen[id], "application id %s assigned twice", id)
		seen[id] = true
	}
	s.Len(seen, goroutines)
}

func (s *RegistrationServiceSuite) TestDecideBirth() {
	ctx := context.Background()

	s.Run("approval issues a certificate number", func() {
		reg := s.submitBirth("user-1")

		updated, err := s.service.DecideBirth(ctx, reg.ID, models.StatusApproved, "registrar-1", "all documents present")
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, updated.Status)
		s.Regexp(birthCertificatePattern, updated.CertificateNumber)
		s.Equal("registrar-1", updated.ReviewedBy)
	})

	s.Run("rejection assigns no certificate number", func() {
		reg := s.submitBirth("user-1")

		updated, err := s.service.DecideBirth(ctx, reg.ID, models.StatusRejected, "registrar-1", "missing records")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, updated.Status)
		s.Empty(updated.CertificateNumber)
		s.Equal("missing records", updated.ReviewNotes)
	})

	s.Run("terminal records cannot transition again", func() {
		reg := s.submitBirth("user-1")
		_, err := s.service.DecideBirth(ctx, reg.ID, models.StatusApproved, "registrar-1", "")
		s.Require().NoError(err)

		_, err = s.service.DecideBirth(ctx, reg.ID, models.StatusRejected, "registrar-2", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("pending is not a valid decision", func() {
		reg := s.submitBirth("user-1")
		_, err := s.service.DecideBirth(ctx, reg.ID, models.StatusPending, "registrar-1", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown id is not found", func() {
		_, err := s.service.DecideBirth(ctx, 9999, models.StatusApproved, "registrar-1", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RegistrationServiceSuite) TestDecideDeath() {
	ctx := context.Background()

	reg := s.submitDeath("user-1")
	updated, err := s.service.DecideDeath(ctx, reg.ID, models.StatusApproved, "registrar-1", "")
	s.Require().NoError(err)
	s.Regexp(deathCertificatePattern, updated.CertificateNumber)
}

func (s *RegistrationServiceSuite) TestApprovedIffCertificateNumber() {
	ctx := context.Background()

	approved := s.submitBirth("user-1")
	rejected := s.submitBirth("user-1")
	pending := s.submitBirth("user-1")

	_, err := s.service.DecideBirth(ctx, approved.ID, models.StatusApproved, "registrar-1", "")
	s.Require().NoError(err)
	_, err = s.service.DecideBirth(ctx, rejected.ID, models.StatusRejected, "registrar-1", "")
	s.Require().NoError(err)

	all, err := s.service.ListBirths(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	for _, reg := range all {
		s.Equal(reg.Status == models.StatusApproved, reg.CertificateNumber != "",
			"application %s: certificate presence must match approval", reg.ApplicationID)
	}
	_ = pending
}

func (s *RegistrationServiceSuite) TestPendingApplications() {
	ctx := context.Background()

	oldBirth := s.submitBirth("user-1")
	time.Sleep(2 * time.Millisecond)
	death := s.submitDeath("user-2")
	time.Sleep(2 * time.Millisecond)
	newBirth := s.submitBirth("user-3")

	decided := s.submitBirth("user-4")
	_, err := s.service.DecideBirth(ctx, decided.ID, models.StatusRejected, "registrar-1", "")
	s.Require().NoError(err)

	pending, err := s.service.PendingApplications(ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 3)

	s.Equal(models.KindBirth, pending[0].Kind)
	s.Equal(newBirth.ApplicationID, pending[0].Birth.ApplicationID)
	s.Equal(models.KindDeath, pending[1].Kind)
	s.Equal(death.ApplicationID, pending[1].Death.ApplicationID)
	s.Equal(oldBirth.ApplicationID, pending[2].Birth.ApplicationID)
}
